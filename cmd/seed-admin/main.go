// seed-admin creates or updates the admin console operator.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// Override the defaults with ADMIN_USERNAME / ADMIN_PASSWORD.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/models"
	"github.com/mmdatafocus/adaudit_backend/utils"
)

const (
	defaultAdminUsername = "adauditAdmin"
	defaultAdminPassword = "Ad@uditAdmin"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = defaultAdminUsername
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = defaultAdminPassword
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var existing models.Operator
	err = db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Fprintf(os.Stderr, "failed to lookup operator: %v\n", err)
			os.Exit(1)
		}
		op := models.Operator{
			Username:       username,
			Name:           "AD Audit Admin",
			HashedPassword: hashed,
			Role:           models.OperatorRoleAdmin,
			IsActive:       utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&op).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create operator: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created admin operator %q (id=%d)\n", username, op.ID)
		return
	}

	if err := db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"hashed_password": hashed,
		"role":            models.OperatorRoleAdmin,
		"is_active":       true,
	}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update operator: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("updated admin operator %q (id=%d)\n", username, existing.ID)
}
