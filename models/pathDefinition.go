package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/utils"
	"gorm.io/gorm"
)

// ErrPathNotConfigured is returned when a usage type has no resolvable
// path definition (no named match and no active default).
var ErrPathNotConfigured = errors.New("no path definition configured for usage type")

// PathDefinition maps a usage type to a (source, output) directory pair on
// the file server. At most one active default exists per usage type.
type PathDefinition struct {
	ID          int        `gorm:"primary_key" json:"id"`
	Name        string     `gorm:"size:255;not null;uniqueIndex:idx_pd_usage_name,priority:2" json:"name" binding:"required"`
	UsageTypeId int        `gorm:"not null;uniqueIndex:idx_pd_usage_name,priority:1" json:"usage_type_id" binding:"required"`
	UsageType   *UsageType `gorm:"foreignKey:UsageTypeId" json:"usage_type,omitempty"`
	SourcePath  string     `gorm:"size:500;not null" json:"source_path" binding:"required"`
	OutputPath  string     `gorm:"size:500;not null" json:"output_path" binding:"required"`
	IsActive    *bool      `gorm:"not null;default:true" json:"is_active"`
	IsDefault   bool       `gorm:"not null;default:false" json:"is_default"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPathDefinition struct {
	Name        string `json:"name" binding:"required"`
	UsageTypeId int    `json:"usage_type_id" binding:"required"`
	SourcePath  string `json:"source_path" binding:"required"`
	OutputPath  string `json:"output_path" binding:"required"`
	IsDefault   bool   `json:"is_default"`
}

// CreatePathDefinition inserts the entry; when it is flagged default, sibling
// defaults in the same usage type are cleared in the same transaction so two
// defaults never coexist (last writer wins).
func CreatePathDefinition(ctx context.Context, input *NewPathDefinition) (*PathDefinition, error) {
	db := config.GetDB()

	pathDef := PathDefinition{
		Name:        input.Name,
		UsageTypeId: input.UsageTypeId,
		SourcePath:  input.SourcePath,
		OutputPath:  input.OutputPath,
		IsActive:    utils.NewTrue(),
		IsDefault:   input.IsDefault,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IsDefault {
			if err := clearSiblingDefaults[PathDefinition](tx, input.UsageTypeId, 0); err != nil {
				return err
			}
		}
		return tx.Create(&pathDef).Error
	})
	if err != nil {
		return nil, err
	}
	return &pathDef, nil
}

func UpdatePathDefinition(ctx context.Context, id int, input *NewPathDefinition) (*PathDefinition, error) {
	db := config.GetDB()
	pathDef, err := utils.FetchModel[PathDefinition](ctx, id)
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IsDefault {
			if err := clearSiblingDefaults[PathDefinition](tx, input.UsageTypeId, id); err != nil {
				return err
			}
		}
		return tx.Model(&pathDef).Updates(map[string]interface{}{
			"Name":        input.Name,
			"UsageTypeId": input.UsageTypeId,
			"SourcePath":  input.SourcePath,
			"OutputPath":  input.OutputPath,
			"IsDefault":   input.IsDefault,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return pathDef, nil
}

func DeletePathDefinition(ctx context.Context, id int) (*PathDefinition, error) {
	db := config.GetDB()
	pathDef, err := utils.FetchModel[PathDefinition](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(&pathDef).Error; err != nil {
		return nil, err
	}
	return pathDef, nil
}

// ResolvePathDefinition returns the entry named `name` under the usage type,
// or the active default when name is blank.
func ResolvePathDefinition(ctx context.Context, usageTypeCode string, name string) (*PathDefinition, error) {
	usageType, err := GetUsageTypeByCode(ctx, usageTypeCode)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var pathDef PathDefinition
	query := db.WithContext(ctx).Where("usage_type_id = ? AND is_active = 1", usageType.ID)
	if name != "" {
		query = query.Where("name = ?", name)
	} else {
		query = query.Where("is_default = 1")
	}
	if err := query.First(&pathDef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPathNotConfigured
		}
		return nil, err
	}
	return &pathDef, nil
}

func ListPathDefinitions(ctx context.Context) ([]*PathDefinition, error) {
	return utils.FetchAllModels[PathDefinition](ctx, "UsageType")
}

// clearSiblingDefaults unsets is_default on every other row of the usage type.
// Shared by PathDefinition and EmailTemplate, which carry the same invariant.
func clearSiblingDefaults[T any](tx *gorm.DB, usageTypeId int, exceptId int) error {
	var model T
	return tx.Model(&model).
		Where("usage_type_id = ? AND is_default = 1 AND NOT id = ?", usageTypeId, exceptId).
		Update("is_default", false).Error
}
