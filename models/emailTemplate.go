package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/utils"
	"gorm.io/gorm"
)

var ErrTemplateNotFound = errors.New("no email template configured for usage type")

// EmailTemplate holds a subject/body pair with {token} placeholders plus
// default recipients. Same one-default-per-usage-type invariant as
// PathDefinition.
type EmailTemplate struct {
	ID          int        `gorm:"primary_key" json:"id"`
	Name        string     `gorm:"size:255;not null;uniqueIndex:idx_et_usage_name,priority:2" json:"name" binding:"required"`
	UsageTypeId int        `gorm:"not null;uniqueIndex:idx_et_usage_name,priority:1" json:"usage_type_id" binding:"required"`
	UsageType   *UsageType `gorm:"foreignKey:UsageTypeId" json:"usage_type,omitempty"`
	Subject     string     `gorm:"size:255;not null" json:"subject" binding:"required"`
	Body        string     `gorm:"type:text;not null" json:"body" binding:"required"`
	DefaultTo   string     `gorm:"type:text" json:"default_to"`
	DefaultCc   string     `gorm:"type:text" json:"default_cc"`
	IsActive    *bool      `gorm:"not null;default:true" json:"is_active"`
	IsDefault   bool       `gorm:"not null;default:false" json:"is_default"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type RenderedEmail struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	DefaultTo string `json:"default_to"`
	DefaultCc string `json:"default_cc"`
}

// Render substitutes {token} placeholders literally. Unknown tokens are left
// unexpanded, not an error.
func (t *EmailTemplate) Render(tokens map[string]string) *RenderedEmail {
	subject := t.Subject
	body := t.Body
	for key, value := range tokens {
		placeholder := "{" + key + "}"
		subject = strings.ReplaceAll(subject, placeholder, value)
		body = strings.ReplaceAll(body, placeholder, value)
	}
	return &RenderedEmail{
		Subject:   subject,
		Body:      body,
		DefaultTo: t.DefaultTo,
		DefaultCc: t.DefaultCc,
	}
}

type NewEmailTemplate struct {
	Name        string `json:"name" binding:"required"`
	UsageTypeId int    `json:"usage_type_id" binding:"required"`
	Subject     string `json:"subject" binding:"required"`
	Body        string `json:"body" binding:"required"`
	DefaultTo   string `json:"default_to"`
	DefaultCc   string `json:"default_cc"`
	IsDefault   bool   `json:"is_default"`
}

func CreateEmailTemplate(ctx context.Context, input *NewEmailTemplate) (*EmailTemplate, error) {
	db := config.GetDB()

	template := EmailTemplate{
		Name:        input.Name,
		UsageTypeId: input.UsageTypeId,
		Subject:     input.Subject,
		Body:        input.Body,
		DefaultTo:   input.DefaultTo,
		DefaultCc:   input.DefaultCc,
		IsActive:    utils.NewTrue(),
		IsDefault:   input.IsDefault,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IsDefault {
			if err := clearSiblingDefaults[EmailTemplate](tx, input.UsageTypeId, 0); err != nil {
				return err
			}
		}
		return tx.Create(&template).Error
	})
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func UpdateEmailTemplate(ctx context.Context, id int, input *NewEmailTemplate) (*EmailTemplate, error) {
	db := config.GetDB()
	template, err := utils.FetchModel[EmailTemplate](ctx, id)
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IsDefault {
			if err := clearSiblingDefaults[EmailTemplate](tx, input.UsageTypeId, id); err != nil {
				return err
			}
		}
		return tx.Model(&template).Updates(map[string]interface{}{
			"Name":        input.Name,
			"UsageTypeId": input.UsageTypeId,
			"Subject":     input.Subject,
			"Body":        input.Body,
			"DefaultTo":   input.DefaultTo,
			"DefaultCc":   input.DefaultCc,
			"IsDefault":   input.IsDefault,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return template, nil
}

func DeleteEmailTemplate(ctx context.Context, id int) (*EmailTemplate, error) {
	db := config.GetDB()
	template, err := utils.FetchModel[EmailTemplate](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(&template).Error; err != nil {
		return nil, err
	}
	return template, nil
}

// GetDefaultEmailTemplate looks up the active default for the usage type,
// falling back to any active template of that type.
func GetDefaultEmailTemplate(ctx context.Context, usageTypeCode string) (*EmailTemplate, error) {
	usageType, err := GetUsageTypeByCode(ctx, usageTypeCode)
	if err != nil {
		return nil, ErrTemplateNotFound
	}

	db := config.GetDB()
	var template EmailTemplate
	err = db.WithContext(ctx).
		Where("usage_type_id = ? AND is_active = 1 AND is_default = 1", usageType.ID).
		First(&template).Error
	if err == nil {
		return &template, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.WithContext(ctx).
		Where("usage_type_id = ? AND is_active = 1", usageType.ID).
		Order("id ASC").
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &template, nil
}

func ListEmailTemplates(ctx context.Context) ([]*EmailTemplate, error) {
	return utils.FetchAllModels[EmailTemplate](ctx, "UsageType")
}
