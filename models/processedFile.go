package models

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mmdatafocus/adaudit_backend/config"
)

// ProcessedAdFile records one successfully parsed source workbook. Rows are
// created once during the processing stage and never mutated.
type ProcessedAdFile struct {
	ID               int            `gorm:"primary_key" json:"id"`
	AnalysisId       int            `gorm:"not null;index" json:"analysis_id"`
	Analysis         *AdLogAnalysis `gorm:"foreignKey:AnalysisId;constraint:OnDelete:CASCADE" json:"-"`
	OriginalFilename string         `gorm:"size:255;not null" json:"original_filename"`
	StoredFile       string         `gorm:"size:500" json:"stored_file"`
	GidsCount        int            `gorm:"not null;default:0" json:"gids_count"`
	ProcessedAt      time.Time      `gorm:"autoCreateTime" json:"processed_at"`
}

// ReplaceProcessedFiles swaps the run's processed-file rows in one
// transaction so a re-run never duplicates them.
func ReplaceProcessedFiles(ctx context.Context, analysisId int, rows []ProcessedAdFile) error {
	return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAnalysisRows(gormRowStore[ProcessedAdFile]{tx}, analysisId, rows,
			func(r *ProcessedAdFile, id int) { r.AnalysisId = id })
	})
}

// ListProcessedFiles returns the run's processed files in filename order.
func ListProcessedFiles(ctx context.Context, analysisId int) ([]*ProcessedAdFile, error) {
	var files []*ProcessedAdFile
	err := config.GetDB().WithContext(ctx).
		Where("analysis_id = ?", analysisId).
		Order("original_filename asc").
		Find(&files).Error
	return files, err
}
