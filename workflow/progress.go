package workflow

import (
	"strconv"
	"time"

	"github.com/mmdatafocus/adaudit_backend/config"
)

// progressTTL keeps stale progress entries from lingering after a run
// finishes or the process dies mid-run.
const progressTTL = time.Hour

const (
	StepInitializing = "initializing"
	StepDownloading  = "downloading"
	StepProcessing   = "processing"
	StepComparing    = "comparing"
	StepSaving       = "saving"
	StepCompleted    = "completed"
	StepFailed       = "failed"
	StepCancelled    = "cancelled"
)

type Progress struct {
	Step      string                 `json:"step"`
	Percent   int                    `json:"percent"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	UpdatedAt string                 `json:"updatedAt"`
}

// Terminal reports whether the run has reached a final step and the
// UI can stop polling. Failed and cancelled stop immediately; saving
// and completed only once the percent reaches 100, since saving
// publishes intermediate percentages while artifacts are written out.
func (p *Progress) Terminal() bool {
	switch p.Step {
	case StepFailed, StepCancelled:
		return true
	case StepSaving, StepCompleted:
		return p.Percent >= 100
	}
	return false
}

func progressKey(analysisId int) string {
	return "AdLogProgress:" + strconv.Itoa(analysisId)
}

// PublishProgress writes the current run state to Redis. Progress is a
// convenience for the UI; a publish failure is logged and ignored so it
// can never fail the run itself.
func PublishProgress(analysisId int, step string, percent int, message string, details map[string]interface{}) {
	p := Progress{
		Step:      step,
		Percent:   percent,
		Message:   message,
		Details:   details,
		UpdatedAt: time.Now().Format(time.RFC3339),
	}
	if err := config.SetRedisObject(progressKey(analysisId), &p, progressTTL); err != nil {
		config.LogWarn(config.GetLogger(), "progress.go", "PublishProgress", "SetRedisObject", err)
	}
}

// ReadProgress returns the latest published progress for a run, or
// found=false when no entry exists (never published, or TTL expired).
func ReadProgress(analysisId int) (*Progress, bool, error) {
	var p Progress
	found, err := config.GetRedisObject(progressKey(analysisId), &p)
	if err != nil || !found {
		return nil, false, err
	}
	return &p, true, nil
}

// ClearProgress removes the progress entry for a run.
func ClearProgress(analysisId int) {
	if err := config.RemoveRedisKey(progressKey(analysisId)); err != nil {
		config.LogWarn(config.GetLogger(), "progress.go", "ClearProgress", "RemoveRedisKey", err)
	}
}

func cancelKey(analysisId int) string {
	return "AdLogCancel:" + strconv.Itoa(analysisId)
}

// RequestCancel flags a running analysis for cancellation. The flag is
// checked between stages, so the current stage always finishes first.
func RequestCancel(analysisId int) error {
	return config.SetRedisValue(cancelKey(analysisId), "1", progressTTL)
}

func cancelRequested(analysisId int) bool {
	_, found, err := config.GetRedisValue(cancelKey(analysisId))
	if err != nil {
		config.LogWarn(config.GetLogger(), "progress.go", "cancelRequested", "GetRedisValue", err)
		return false
	}
	return found
}

func clearCancelFlag(analysisId int) {
	if err := config.RemoveRedisKey(cancelKey(analysisId)); err != nil {
		config.LogWarn(config.GetLogger(), "progress.go", "clearCancelFlag", "RemoveRedisKey", err)
	}
}
