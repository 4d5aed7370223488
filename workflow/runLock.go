package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/models"
)

// runLeaseTTL bounds how long a crashed run can block its period. A
// healthy run refreshes nothing; the database status guard below is
// the definitive check, the Redis lease only narrows the race window.
const runLeaseTTL = 30 * time.Minute

var activeRunStatuses = []string{
	models.AnalysisStatusDownloading,
	models.AnalysisStatusProcessing,
	models.AnalysisStatusComparing,
}

func runLeaseKey(year int, month int) string {
	return fmt.Sprintf("AdLogRunLease:%04d-%02d", year, month)
}

// AcquireRunLease claims the period for this run. Two checks back each
// other: a Redis lock for fast mutual exclusion across processes, and
// a database scan for other runs of the same period already in an
// active stage. Redis being down degrades to the database check alone,
// which is check-then-act: two runs could both count zero before either
// reaches downloading. MySQL has no partial unique index to close that
// window, so it stays open only while Redis is unreachable; the
// dispatcher's SKIP LOCKED claim already keeps replicas off the same
// row, leaving only distinct same-period runs exposed.
func AcquireRunLease(ctx context.Context, analysis *models.AdLogAnalysis) (func(), error) {
	var lock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, runLeaseKey(analysis.Year, analysis.Month), runLeaseTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrRunInProgress
		}
		if err != nil {
			config.LogWarn(config.GetLogger(), "runLock.go", "AcquireRunLease", "redis lock", err)
		}
	}

	release := func() {
		if lock != nil {
			if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				config.LogWarn(config.GetLogger(), "runLock.go", "AcquireRunLease", "release", err)
			}
		}
	}

	var count int64
	err := config.GetDB().WithContext(ctx).
		Model(&models.AdLogAnalysis{}).
		Where("year = ? AND month = ? AND id <> ? AND status IN ?",
			analysis.Year, analysis.Month, analysis.ID, activeRunStatuses).
		Count(&count).Error
	if err != nil {
		release()
		return nil, err
	}
	if count > 0 {
		release()
		return nil, ErrRunInProgress
	}
	return release, nil
}
