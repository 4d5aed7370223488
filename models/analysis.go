package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/utils"
)

// Analysis lifecycle. Status only advances forward, or jumps to failed
// (cancelled when the worker context is cancelled). completed and
// email_pending are the same successful-analysis milestone; email_sent is
// reached only through an explicit operator send.
const (
	AnalysisStatusPending      = "pending"
	AnalysisStatusQueued       = "queued"
	AnalysisStatusDownloading  = "downloading"
	AnalysisStatusProcessing   = "processing"
	AnalysisStatusComparing    = "comparing"
	AnalysisStatusCompleted    = "completed"
	AnalysisStatusEmailPending = "email_pending"
	AnalysisStatusEmailSent    = "email_sent"
	AnalysisStatusFailed       = "failed"
	AnalysisStatusCancelled    = "cancelled"
)

// IsAnalysisProcessed reports whether the run is already past the point where
// re-triggering makes sense.
func IsAnalysisProcessed(status string) bool {
	switch status {
	case AnalysisStatusCompleted, AnalysisStatusEmailPending, AnalysisStatusEmailSent:
		return true
	default:
		return false
	}
}

// Month display names and their romanized lowercase forms used for output
// folder naming (<romanized-month>_<year>).
var monthNames = [13]string{"",
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}

var monthFolderNames = [13]string{"",
	"ocak", "subat", "mart", "nisan", "mayis", "haziran",
	"temmuz", "agustos", "eylul", "ekim", "kasim", "aralik",
}

// AdLogAnalysis is one reconciliation run for a (year, month) period.
type AdLogAnalysis struct {
	ID          int    `gorm:"primary_key" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name" binding:"required"`
	Description string `gorm:"type:text" json:"description"`

	PathDefinitionId *int            `json:"path_definition_id"`
	PathDefinition   *PathDefinition `gorm:"foreignKey:PathDefinitionId" json:"path_definition,omitempty"`
	// Legacy free-text source path, used when no path definition is linked.
	SourcePath string `gorm:"size:500" json:"source_path"`

	Year  int `gorm:"not null" json:"year" binding:"required"`
	Month int `gorm:"not null" json:"month" binding:"required,min=1,max=12"`

	Status       string `gorm:"size:20;not null;default:pending;index" json:"status"`
	ErrorMessage string `gorm:"type:text" json:"error_message"`

	// Counters, set once per stage, never decremented.
	ProcessedFilesCount int `gorm:"not null;default:0" json:"processed_files_count"`
	TotalGidsFound      int `gorm:"not null;default:0" json:"total_gids_found"`
	UniqueGidsCount     int `gorm:"not null;default:0" json:"unique_gids_count"`
	DiscrepancyCount    int `gorm:"not null;default:0" json:"discrepancy_count"`

	// Artifact references, filled by the saving stage.
	OutputFolder   string `gorm:"size:500" json:"output_folder"`
	ChecklistFile  string `gorm:"size:500" json:"checklist_file"`
	UniqueGidsFile string `gorm:"size:500" json:"unique_gids_file"`
	LogFile        string `gorm:"size:500" json:"log_file"`

	// Email metadata, stamped by the notifier on successful send.
	EmailTo      string     `gorm:"type:text" json:"email_to"`
	EmailCc      string     `gorm:"type:text" json:"email_cc"`
	EmailSubject string     `gorm:"size:255" json:"email_subject"`
	EmailBody    string     `gorm:"type:text" json:"email_body"`
	EmailSentAt  *time.Time `json:"email_sent_at"`

	// Dispatcher claim bookkeeping.
	QueuedAt *time.Time `json:"queued_at"`
	LockedAt *time.Time `json:"locked_at"`
	LockedBy *string    `gorm:"size:64" json:"locked_by"`

	CreatedById *int      `json:"created_by_id"`
	CreatedBy   *Operator `gorm:"foreignKey:CreatedById" json:"created_by,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *AdLogAnalysis) MonthName() string {
	if a.Month < 1 || a.Month > 12 {
		return ""
	}
	return monthNames[a.Month]
}

// PeriodDisplay renders the run's period, e.g. "Kasım 2025".
func (a *AdLogAnalysis) PeriodDisplay() string {
	return fmt.Sprintf("%s %d", a.MonthName(), a.Year)
}

// OutputFolderPath derives the run's output folder deterministically from the
// period, e.g. <base>/kasim_2025, so re-running a period overwrites instead
// of accumulating folders.
func (a *AdLogAnalysis) OutputFolderPath() string {
	var base string
	if a.PathDefinition != nil {
		base = a.PathDefinition.OutputPath
	} else {
		base = filepath.Join(MediaRoot(), "ad_logs", "outputs")
	}
	if a.Month < 1 || a.Month > 12 {
		return base
	}
	return filepath.Join(base, fmt.Sprintf("%s_%d", monthFolderNames[a.Month], a.Year))
}

// ResolvedSourcePath returns the linked path definition's source directory,
// falling back to the legacy free-text path.
func (a *AdLogAnalysis) ResolvedSourcePath() string {
	if a.PathDefinition != nil {
		return a.PathDefinition.SourcePath
	}
	return a.SourcePath
}

// MediaRoot is the base directory for working dirs and fallback outputs.
func MediaRoot() string {
	root := os.Getenv("MEDIA_ROOT")
	if root == "" {
		root = "media"
	}
	return root
}

type NewAdLogAnalysis struct {
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	PathDefinitionId *int   `json:"path_definition_id"`
	SourcePath       string `json:"source_path"`
	Year             int    `json:"year" binding:"required"`
	Month            int    `json:"month" binding:"required,min=1,max=12"`
}

func CreateAdLogAnalysis(ctx context.Context, input *NewAdLogAnalysis) (*AdLogAnalysis, error) {
	if input.PathDefinitionId == nil && input.SourcePath == "" {
		return nil, errors.New("either path_definition_id or source_path is required")
	}

	db := config.GetDB()
	analysis := AdLogAnalysis{
		Name:             input.Name,
		Description:      input.Description,
		PathDefinitionId: input.PathDefinitionId,
		SourcePath:       input.SourcePath,
		Year:             input.Year,
		Month:            input.Month,
		Status:           AnalysisStatusPending,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok && userId > 0 {
		analysis.CreatedById = &userId
	}
	if err := db.WithContext(ctx).Create(&analysis).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

func GetAdLogAnalysis(ctx context.Context, id int) (*AdLogAnalysis, error) {
	return utils.FetchModel[AdLogAnalysis](ctx, id, "PathDefinition", "CreatedBy")
}

func ListAdLogAnalyses(ctx context.Context) ([]*AdLogAnalysis, error) {
	db := config.GetDB()
	var analyses []*AdLogAnalysis
	err := db.WithContext(ctx).
		Preload("PathDefinition").
		Order("created_at DESC").
		Find(&analyses).Error
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

// DeleteAdLogAnalysis removes the run and, via FK cascade, its processed file
// and discrepancy rows.
func DeleteAdLogAnalysis(ctx context.Context, id int) (*AdLogAnalysis, error) {
	db := config.GetDB()
	analysis, err := utils.FetchModel[AdLogAnalysis](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(&analysis).Error; err != nil {
		return nil, err
	}
	return analysis, nil
}

// UpdateAnalysisStatus persists a single status advance.
func UpdateAnalysisStatus(ctx context.Context, analysis *AdLogAnalysis, status string) error {
	db := config.GetDB()
	analysis.Status = status
	return db.WithContext(ctx).Model(&AdLogAnalysis{}).
		Where("id = ?", analysis.ID).
		Update("status", status).Error
}

// MarkAnalysisFailed stores the terminal failure and its message.
func MarkAnalysisFailed(ctx context.Context, analysis *AdLogAnalysis, message string) error {
	db := config.GetDB()
	analysis.Status = AnalysisStatusFailed
	analysis.ErrorMessage = message
	return db.WithContext(ctx).Model(&AdLogAnalysis{}).
		Where("id = ?", analysis.ID).
		Updates(map[string]interface{}{
			"status":        AnalysisStatusFailed,
			"error_message": message,
			"locked_at":     nil,
			"locked_by":     nil,
		}).Error
}

// SaveAnalysisFields persists the given column updates and mirrors them on
// the in-memory struct being orchestrated.
func SaveAnalysisFields(ctx context.Context, analysis *AdLogAnalysis, fields map[string]interface{}) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&AdLogAnalysis{}).
		Where("id = ?", analysis.ID).
		Updates(fields).Error
}
