package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/adaudit_backend/config"
	"gorm.io/gorm"
)

// Discrepancy kinds. Only missing_in_system is produced today; the AD
// export set is diffed against the system set, never the reverse. The other
// kinds are reserved.
const (
	DiscrepancyMissingInSystem = "missing_in_system"
	DiscrepancyMissingInAd     = "missing_in_ad"
	DiscrepancyDataMismatch    = "data_mismatch"
)

// GidDiscrepancy is one GID present in the AD exports but absent from the
// system GID table. Rows for a run are fully replaced on every
// reconciliation, never merged.
type GidDiscrepancy struct {
	ID              int            `gorm:"primary_key" json:"id"`
	AnalysisId      int            `gorm:"not null;index" json:"analysis_id"`
	Analysis        *AdLogAnalysis `gorm:"foreignKey:AnalysisId;constraint:OnDelete:CASCADE" json:"-"`
	Gid             string         `gorm:"size:100;not null" json:"gid"`
	DiscrepancyType string         `gorm:"size:30;not null" json:"discrepancy_type"`
	Details         string         `gorm:"type:text" json:"details"`
	// Comma separated contributing source filenames.
	SourceFile string    `gorm:"size:255" json:"source_file"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ReplaceDiscrepancies deletes every prior discrepancy row for the run and
// bulk-inserts the new generation in one transaction, so recomputation is
// idempotent even when the system GID set changed between runs.
func ReplaceDiscrepancies(ctx context.Context, analysisId int, rows []GidDiscrepancy) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAnalysisRows(gormRowStore[GidDiscrepancy]{tx}, analysisId, rows,
			func(r *GidDiscrepancy, id int) { r.AnalysisId = id })
	})
}

func ListDiscrepancies(ctx context.Context, analysisId int) ([]*GidDiscrepancy, error) {
	db := config.GetDB()
	var rows []*GidDiscrepancy
	err := db.WithContext(ctx).
		Where("analysis_id = ?", analysisId).
		Order("gid ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
