package workflow

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/models"
)

// ExportFilePrefix is the fixed prefix the AD export job uses for its
// daily spreadsheet drops.
const ExportFilePrefix = "EventExport_"

// exportExtensions is the lookup order when a daily export exists in
// more than one format. The first match wins.
var exportExtensions = []string{".xlsx", ".xls", ".xlsm"}

type StageResult struct {
	WorkingDir string
	Staged     []string
	Missing    []string
}

// ExpectedBaseNames returns the export file names (without extension)
// for every calendar day of the given month, e.g. EventExport_2025-11-01.
func ExpectedBaseNames(year int, month int) []string {
	days := daysInMonth(year, month)
	names := make([]string, 0, days)
	for day := 1; day <= days; day++ {
		names = append(names, fmt.Sprintf("%s%04d-%02d-%02d", ExportFilePrefix, year, month, day))
	}
	return names
}

func daysInMonth(year int, month int) int {
	// day 0 of the next month is the last day of this month
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WorkingDirFor returns the per-run scratch directory staged exports
// are copied into before parsing.
func WorkingDirFor(analysisId int) string {
	return filepath.Join(models.MediaRoot(), "ad_logs", "temp", fmt.Sprintf("analysis_%d", analysisId))
}

// StageMonthlyExports copies every export file found for the analysis
// period from sourceDir into workingDir. Days with no export in any
// known format are recorded in Missing and do not fail the run; only a
// month with zero matches is an error.
func StageMonthlyExports(logger *logrus.Logger, analysisId int, sourceDir string, workingDir string, year int, month int) (*StageResult, error) {
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, sourceDir)
	}

	if err := os.MkdirAll(workingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	names := ExpectedBaseNames(year, month)
	result := &StageResult{WorkingDir: workingDir}

	for i, base := range names {
		PublishProgress(analysisId, StepDownloading, (i+1)*100/len(names),
			fmt.Sprintf("Checking %s", base), map[string]interface{}{
				"staged":  len(result.Staged),
				"missing": len(result.Missing),
			})

		staged := false
		for _, ext := range exportExtensions {
			src := filepath.Join(sourceDir, base+ext)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			dst := filepath.Join(workingDir, base+ext)
			if err := copyFile(src, dst); err != nil {
				config.LogWarn(logger, "fileStager.go", "StageMonthlyExports", "copy "+src, err)
				continue
			}
			result.Staged = append(result.Staged, base+ext)
			staged = true
			break
		}
		if !staged {
			result.Missing = append(result.Missing, base)
		}
	}

	if len(result.Staged) == 0 {
		return nil, fmt.Errorf("%w: %04d-%02d", ErrNoDataForPeriod, year, month)
	}
	return result, nil
}

// CleanupWorkingDir removes the per-run scratch directory. Called only
// after a successful run; failed runs keep their staged files for
// inspection.
func CleanupWorkingDir(logger *logrus.Logger, analysisId int) {
	dir := WorkingDirFor(analysisId)
	if err := os.RemoveAll(dir); err != nil {
		config.LogWarn(logger, "fileStager.go", "CleanupWorkingDir", dir, err)
	}
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
