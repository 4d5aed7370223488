package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/utils"
)

const (
	OperatorRoleAdmin = "Admin"
	OperatorRoleUser  = "User"
)

// Operator is a console user that can trigger runs and send result emails.
type Operator struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Username       string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Email          string    `gorm:"size:255" json:"email"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"`
	Role           string    `gorm:"size:20;not null;default:User" json:"role"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AuthenticateOperator checks credentials, issues a jwt session token and
// registers it in Redis for the session middleware.
func AuthenticateOperator(ctx context.Context, username string, password string) (string, *Operator, error) {
	db := config.GetDB()
	var operator Operator
	if err := db.WithContext(ctx).
		Where("username = ? AND is_active = 1", username).
		First(&operator).Error; err != nil {
		return "", nil, errors.New("invalid username or password")
	}
	if err := utils.ComparePassword(operator.HashedPassword, password); err != nil {
		return "", nil, errors.New("invalid username or password")
	}

	token, err := utils.JwtGenerate(operator.ID, operator.Role)
	if err != nil {
		return "", nil, err
	}
	if err := config.SetRedisValue("Token:"+token, operator.Username, sessionLifespan()); err != nil {
		return "", nil, err
	}
	return token, &operator, nil
}

func GetOperatorByUsername(ctx context.Context, username string) (*Operator, error) {
	db := config.GetDB()
	var operator Operator
	if err := db.WithContext(ctx).
		Where("username = ?", username).
		First(&operator).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &operator, nil
}

func sessionLifespan() time.Duration {
	return 8 * time.Hour
}
