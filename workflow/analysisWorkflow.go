package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/models"
)

// RunFullAnalysis executes the whole reconciliation pipeline for a
// single run: staging, from the source directory, into a scratch dir;
// GID extraction; set comparison against the system GID table; and
// artifact output. Counters are persisted before each status advance
// so a crash leaves the record consistent with its status.
func RunFullAnalysis(ctx context.Context, logger *logrus.Logger, analysis *models.AdLogAnalysis) error {
	if models.IsAnalysisProcessed(analysis.Status) {
		return ErrAlreadyProcessed
	}

	sourceDir := analysis.ResolvedSourcePath()
	if sourceDir == "" {
		return failRun(ctx, logger, analysis, fmt.Errorf("analysis has no source path configured"))
	}

	release, err := AcquireRunLease(ctx, analysis)
	if err != nil {
		if !errors.Is(err, ErrRunInProgress) {
			return failRun(ctx, logger, analysis, err)
		}
		return err
	}
	defer release()

	// A cancel flag left over from an earlier run must not kill this one.
	clearCancelFlag(analysis.ID)
	PublishProgress(analysis.ID, StepInitializing, 0, "Starting analysis", nil)

	// Stage: downloading
	if err := advanceStatus(ctx, logger, analysis, models.AnalysisStatusDownloading); err != nil {
		return err
	}
	workingDir := WorkingDirFor(analysis.ID)
	staged, err := StageMonthlyExports(logger, analysis.ID, sourceDir, workingDir, analysis.Year, analysis.Month)
	if err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	if cancelled(ctx, logger, analysis) {
		return context.Canceled
	}

	// Stage: processing
	if err := advanceStatus(ctx, logger, analysis, models.AnalysisStatusProcessing); err != nil {
		return err
	}
	extracted, err := ExtractGids(logger, analysis.ID, staged.WorkingDir)
	if err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	if err := models.SaveAnalysisFields(ctx, analysis, map[string]interface{}{
		"processed_files_count": len(extracted.ProcessedFiles),
		"total_gids_found":      extracted.TotalGids,
		"unique_gids_count":     extracted.UniqueCount,
	}); err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	if err := recordProcessedFiles(ctx, analysis.ID, extracted); err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	if cancelled(ctx, logger, analysis) {
		return context.Canceled
	}

	// Stage: comparing
	if err := advanceStatus(ctx, logger, analysis, models.AnalysisStatusComparing); err != nil {
		return err
	}
	PublishProgress(analysis.ID, StepComparing, 30, "Loading system GID set", nil)
	systemSet, err := models.FetchSystemGidSet(ctx)
	if err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	recon := Reconcile(extracted.Records, systemSet)
	PublishProgress(analysis.ID, StepComparing, 70, "Persisting discrepancies", map[string]interface{}{
		"discrepancies": recon.MissingCount,
	})
	if err := models.ReplaceDiscrepancies(ctx, analysis.ID, DiscrepancyRows(analysis.ID, recon)); err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	if err := models.SaveAnalysisFields(ctx, analysis, map[string]interface{}{
		"discrepancy_count": recon.MissingCount,
	}); err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	if cancelled(ctx, logger, analysis) {
		return context.Canceled
	}

	// Stage: saving outputs
	saved, err := SaveOutputs(ctx, logger, analysis, staged.WorkingDir, recon)
	if err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	if err := models.SaveAnalysisFields(ctx, analysis, map[string]interface{}{
		"output_folder":    saved.OutputFolder,
		"checklist_file":   saved.SystemGidsFile,
		"unique_gids_file": saved.UniqueGidsFile,
		"log_file":         saved.LogFile,
	}); err != nil {
		return failRun(ctx, logger, analysis, err)
	}

	if err := models.SaveAnalysisFields(ctx, analysis, map[string]interface{}{
		"status":        models.AnalysisStatusCompleted,
		"error_message": "",
		"locked_at":     nil,
		"locked_by":     nil,
	}); err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	analysis.Status = models.AnalysisStatusCompleted

	PublishProgress(analysis.ID, StepCompleted, 100, "Analysis completed", map[string]interface{}{
		"totalGids":     extracted.TotalGids,
		"uniqueGids":    extracted.UniqueCount,
		"discrepancies": recon.MissingCount,
	})
	CleanupWorkingDir(logger, analysis.ID)
	return nil
}

func advanceStatus(ctx context.Context, logger *logrus.Logger, analysis *models.AdLogAnalysis, status string) error {
	if err := models.UpdateAnalysisStatus(ctx, analysis, status); err != nil {
		return failRun(ctx, logger, analysis, err)
	}
	return nil
}

// failRun records the failure on the run and mirrors it into the
// progress channel, then returns the original error. Persistence uses
// a detached context so a cancelled run can still write its epitaph.
func failRun(ctx context.Context, logger *logrus.Logger, analysis *models.AdLogAnalysis, cause error) error {
	config.LogError(logger, "analysisWorkflow.go", "RunFullAnalysis", "run failed", analysis.ID, cause)
	if err := models.MarkAnalysisFailed(context.WithoutCancel(ctx), analysis, cause.Error()); err != nil {
		config.LogError(logger, "analysisWorkflow.go", "failRun", "MarkAnalysisFailed", analysis.ID, err)
	}
	PublishProgress(analysis.ID, StepFailed, 100, cause.Error(), nil)
	return cause
}

// cancelled checks the run context and the Redis cancel flag between
// stages. Cancellation is cooperative: the current stage finishes,
// then the run stops here.
func cancelled(ctx context.Context, logger *logrus.Logger, analysis *models.AdLogAnalysis) bool {
	if ctx.Err() == nil && !cancelRequested(analysis.ID) {
		return false
	}
	if err := models.SaveAnalysisFields(context.WithoutCancel(ctx), analysis, map[string]interface{}{
		"status":        models.AnalysisStatusCancelled,
		"error_message": "analysis cancelled",
		"locked_at":     nil,
		"locked_by":     nil,
	}); err != nil {
		config.LogError(logger, "analysisWorkflow.go", "cancelled", "SaveAnalysisFields", analysis.ID, err)
	}
	analysis.Status = models.AnalysisStatusCancelled
	clearCancelFlag(analysis.ID)
	PublishProgress(analysis.ID, StepCancelled, 100, "Analysis cancelled", nil)
	return true
}

func recordProcessedFiles(ctx context.Context, analysisId int, extracted *ExtractResult) error {
	rows := make([]models.ProcessedAdFile, 0, len(extracted.ProcessedFiles))
	now := time.Now()
	for _, name := range extracted.ProcessedFiles {
		rows = append(rows, models.ProcessedAdFile{
			AnalysisId:       analysisId,
			OriginalFilename: name,
			StoredFile:       name,
			GidsCount:        extracted.FileGidCounts[name],
			ProcessedAt:      now,
		})
	}
	return models.ReplaceProcessedFiles(ctx, analysisId, rows)
}
