package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/models"
)

// AnalysisDispatcher polls for queued runs and executes them one at a
// time. Claims go through a row lock with SKIP LOCKED so several
// replicas can poll the same table without double-running, and a stale
// claim left by a dead replica is reclaimed after LockTimeout.
type AnalysisDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	DispatcherID string
	PollInterval time.Duration
	LockTimeout  time.Duration
	BatchSize    int
}

func NewAnalysisDispatcher(db *gorm.DB, logger *logrus.Logger) *AnalysisDispatcher {
	host, _ := os.Hostname()
	return &AnalysisDispatcher{
		DB:           db,
		Logger:       logger,
		DispatcherID: fmt.Sprintf("%s-%s", host, uuid.New().String()[:8]),
		PollInterval: 2 * time.Second,
		LockTimeout:  30 * time.Minute,
		BatchSize:    5,
	}
}

// EnqueueAnalysis marks an analysis for background execution. The
// status transition runs under a row lock so two concurrent triggers
// of the same run cannot both enqueue it.
func EnqueueAnalysis(ctx context.Context, analysisId int) (*models.AdLogAnalysis, error) {
	var analysis models.AdLogAnalysis
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&analysis, analysisId).Error; err != nil {
			return err
		}
		if models.IsAnalysisProcessed(analysis.Status) {
			return ErrAlreadyProcessed
		}
		switch analysis.Status {
		case models.AnalysisStatusQueued,
			models.AnalysisStatusDownloading,
			models.AnalysisStatusProcessing,
			models.AnalysisStatusComparing:
			return ErrRunInProgress
		}
		now := time.Now()
		return tx.Model(&analysis).Updates(map[string]interface{}{
			"status":        models.AnalysisStatusQueued,
			"queued_at":     now,
			"error_message": "",
			"locked_at":     nil,
			"locked_by":     nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	analysis.Status = models.AnalysisStatusQueued
	return &analysis, nil
}

// Run polls until the context is cancelled. Meant to be started as a
// goroutine next to the HTTP server.
func (d *AnalysisDispatcher) Run(ctx context.Context) {
	d.Logger.WithField("dispatcherId", d.DispatcherID).Info("analysis dispatcher started")
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.Logger.Info("analysis dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.dispatchOnce(ctx); err != nil {
				config.LogError(d.Logger, "dispatcher.go", "Run", "dispatchOnce", nil, err)
			}
		}
	}
}

// dispatchOnce claims up to BatchSize queued runs and executes them
// sequentially. Runs are rare and heavy; parallelism buys nothing and
// would fight the per-period lease.
func (d *AnalysisDispatcher) dispatchOnce(ctx context.Context) error {
	claimed, err := d.claimQueued(ctx)
	if err != nil || len(claimed) == 0 {
		return err
	}
	for _, id := range claimed {
		if ctx.Err() != nil {
			return nil
		}
		d.runOne(ctx, id)
	}
	return nil
}

func (d *AnalysisDispatcher) claimQueued(ctx context.Context) ([]int, error) {
	var ids []int
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		staleBefore := time.Now().Add(-d.LockTimeout)
		var pending []models.AdLogAnalysis
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND (locked_at IS NULL OR locked_at < ?)",
				models.AnalysisStatusQueued, staleBefore).
			Order("queued_at asc").
			Limit(d.BatchSize).
			Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}
		now := time.Now()
		for _, p := range pending {
			if err := tx.Model(&models.AdLogAnalysis{}).
				Where("id = ?", p.ID).
				Updates(map[string]interface{}{
					"locked_at": now,
					"locked_by": d.DispatcherID,
				}).Error; err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}
		return nil
	})
	return ids, err
}

// claimedRunnable reports whether a claimed run should still execute.
// Claiming only stamps the lock columns, so a run can be cancelled (or
// otherwise moved off queued) between claim and execution; anything but
// queued means someone else got there first.
func claimedRunnable(status string) bool {
	return status == models.AnalysisStatusQueued
}

func (d *AnalysisDispatcher) runOne(ctx context.Context, analysisId int) {
	analysis, err := models.GetAdLogAnalysis(ctx, analysisId)
	if err != nil {
		config.LogError(d.Logger, "dispatcher.go", "runOne", "GetAdLogAnalysis", analysisId, err)
		return
	}
	if !claimedRunnable(analysis.Status) {
		d.Logger.WithFields(logrus.Fields{
			"analysisId": analysisId,
			"status":     analysis.Status,
		}).Info("claimed run no longer queued, skipping")
		return
	}
	// Reset to pending so the orchestrator's processed guard sees a
	// runnable status; the claim above keeps other replicas away.
	analysis.Status = models.AnalysisStatusPending

	if err := RunFullAnalysis(ctx, d.Logger, analysis); err != nil {
		// Terminal state already persisted by the orchestrator.
		return
	}

	if err := models.SaveAnalysisFields(context.WithoutCancel(ctx), analysis, map[string]interface{}{
		"status": models.AnalysisStatusEmailPending,
	}); err != nil {
		config.LogError(d.Logger, "dispatcher.go", "runOne", "mark email_pending", analysisId, err)
		return
	}
	analysis.Status = models.AnalysisStatusEmailPending
}
