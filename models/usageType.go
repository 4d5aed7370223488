package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/utils"
)

// UsageType is the user managed taxonomy grouping path definitions and
// email templates by purpose (e.g. AD_LOG, BACKUP).
type UsageType struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:100;not null;unique" json:"name" binding:"required"`
	Code        string    `gorm:"size:50;not null;unique" json:"code" binding:"required"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// UsageTypeCodeAdLog is the built-in business line for AD log reconciliation.
const UsageTypeCodeAdLog = "AD_LOG"

type NewUsageType struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
}

func (input *NewUsageType) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[UsageType](ctx, "name", input.Name, id); err != nil {
		return err
	}
	if err := utils.ValidateUnique[UsageType](ctx, "code", input.Code, id); err != nil {
		return err
	}
	return nil
}

func CreateUsageType(ctx context.Context, input *NewUsageType) (*UsageType, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	usageType := UsageType{
		Name:        input.Name,
		Code:        input.Code,
		Description: input.Description,
		IsActive:    utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&usageType).Error; err != nil {
		return nil, err
	}
	return &usageType, nil
}

func UpdateUsageType(ctx context.Context, id int, input *NewUsageType) (*UsageType, error) {
	usageType, err := utils.FetchModel[UsageType](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&usageType).Updates(map[string]interface{}{
		"Name":        input.Name,
		"Code":        input.Code,
		"Description": input.Description,
	}).Error; err != nil {
		return nil, err
	}
	return usageType, nil
}

func GetUsageTypeByCode(ctx context.Context, code string) (*UsageType, error) {
	db := config.GetDB()
	var usageType UsageType
	if err := db.WithContext(ctx).Where("code = ?", code).First(&usageType).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &usageType, nil
}

func ListUsageTypes(ctx context.Context) ([]*UsageType, error) {
	return utils.FetchAllModels[UsageType](ctx)
}
