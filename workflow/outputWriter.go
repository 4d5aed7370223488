package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/mmdatafocus/adaudit_backend/models"
)

const reportSeparatorWidth = 70

type SavedOutputs struct {
	OutputFolder   string
	ExcelFolder    string
	SystemGidsFile string
	UniqueGidsFile string
	LogFile        string
}

// SaveOutputs materializes the run's artifacts under the analysis
// output folder: the raw staged exports, a system GID snapshot, the
// unique extracted GIDs, and the text report.
func SaveOutputs(ctx context.Context, logger *logrus.Logger, analysis *models.AdLogAnalysis, workingDir string, recon *ReconcileResult) (*SavedOutputs, error) {
	outputFolder := analysis.OutputFolderPath()
	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}

	saved := &SavedOutputs{OutputFolder: outputFolder}

	PublishProgress(analysis.ID, StepSaving, 20, "Copying source exports", nil)
	excelFolder := filepath.Join(outputFolder, "excels")
	if err := copyStagedExports(workingDir, excelFolder); err != nil {
		return nil, err
	}
	saved.ExcelFolder = excelFolder

	PublishProgress(analysis.ID, StepSaving, 40, "Exporting system GIDs", nil)
	systemFile := filepath.Join(outputFolder, "system_gids.xlsx")
	if err := exportSystemGids(ctx, systemFile); err != nil {
		return nil, fmt.Errorf("export system GIDs: %w", err)
	}
	saved.SystemGidsFile = systemFile

	PublishProgress(analysis.ID, StepSaving, 60, "Exporting unique GIDs", nil)
	uniqueFile := filepath.Join(outputFolder, "ad_log_gids.xlsx")
	if err := exportUniqueGids(uniqueFile, recon); err != nil {
		return nil, fmt.Errorf("export unique GIDs: %w", err)
	}
	saved.UniqueGidsFile = uniqueFile

	PublishProgress(analysis.ID, StepSaving, 80, "Writing report", nil)
	now := time.Now()
	logFile := filepath.Join(outputFolder, fmt.Sprintf("log_%04d_%02d_%s.txt",
		analysis.Year, analysis.Month, now.Format("020106_1504")))
	report := buildDiscrepancyReport(analysis, recon, now)
	if err := os.WriteFile(logFile, []byte(report), 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	saved.LogFile = logFile

	return saved, nil
}

// copyStagedExports preserves the raw inputs next to the derived
// artifacts. Any copy failure fails the run: a partial output folder
// would present an incomplete evidence trail as complete.
func copyStagedExports(workingDir string, excelFolder string) error {
	if err := os.MkdirAll(excelFolder, 0o755); err != nil {
		return fmt.Errorf("create excel folder: %w", err)
	}
	for _, ext := range exportExtensions {
		matches, err := filepath.Glob(filepath.Join(workingDir, "*"+ext))
		if err != nil {
			return err
		}
		for _, src := range matches {
			dst := filepath.Join(excelFolder, filepath.Base(src))
			if err := copyFile(src, dst); err != nil {
				return fmt.Errorf("copy staged export %s: %w", filepath.Base(src), err)
			}
		}
	}
	return nil
}

func exportSystemGids(ctx context.Context, path string) error {
	gids, err := models.FetchAllSystemGids(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"GID", "Display Name", "Email", "Department", "Active"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, h)
	}
	for i, g := range gids {
		row := i + 2
		f.SetCellValue("Sheet1", fmt.Sprintf("A%d", row), g.Gid)
		f.SetCellValue("Sheet1", fmt.Sprintf("B%d", row), g.DisplayName)
		f.SetCellValue("Sheet1", fmt.Sprintf("C%d", row), g.Email)
		f.SetCellValue("Sheet1", fmt.Sprintf("D%d", row), g.Department)
		active := "Yes"
		if g.IsActive != nil && !*g.IsActive {
			active = "No"
		}
		f.SetCellValue("Sheet1", fmt.Sprintf("E%d", row), active)
	}
	return f.SaveAs(path)
}

func exportUniqueGids(path string, recon *ReconcileResult) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetCellValue("Sheet1", "A1", "GID")
	f.SetCellValue("Sheet1", "B1", "Source Files")
	for i, gid := range recon.UniqueGids {
		row := i + 2
		f.SetCellValue("Sheet1", fmt.Sprintf("A%d", row), gid)
		f.SetCellValue("Sheet1", fmt.Sprintf("B%d", row), strings.Join(recon.SourcesByGid[gid], ", "))
	}
	return f.SaveAs(path)
}

func buildDiscrepancyReport(analysis *models.AdLogAnalysis, recon *ReconcileResult, generatedAt time.Time) string {
	sep := strings.Repeat("=", reportSeparatorWidth)
	thin := strings.Repeat("-", reportSeparatorWidth)

	createdBy := "N/A"
	if analysis.CreatedBy != nil {
		createdBy = analysis.CreatedBy.Username
	}

	var b strings.Builder
	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b, "AD LOG ANALYSIS REPORT - UNMATCHED GIDS")
	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Analysis Name : %s\n", analysis.Name)
	fmt.Fprintf(&b, "Period        : %s\n", analysis.PeriodDisplay())
	fmt.Fprintf(&b, "Generated     : %s\n", generatedAt.Format("02/01/2006 15:04:05"))
	fmt.Fprintf(&b, "Created By    : %s\n", createdBy)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, thin)
	fmt.Fprintln(&b, "SUMMARY")
	fmt.Fprintln(&b, thin)
	fmt.Fprintf(&b, "Total GID rows in AD exports       : %d\n", recon.TotalInSource)
	fmt.Fprintf(&b, "Unique GIDs extracted from AD logs : %d\n", len(recon.UniqueGids))
	fmt.Fprintf(&b, "System GID count                   : %d\n", recon.TotalInSystem)
	fmt.Fprintf(&b, "Matched GID count                  : %d\n", recon.MatchedCount)
	fmt.Fprintf(&b, "Unmatched GID count                : %d\n", recon.MissingCount)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, thin)
	fmt.Fprintln(&b, "UNMATCHED GIDS (present in AD exports, absent in system)")
	fmt.Fprintln(&b, thin)
	if len(recon.Missing) == 0 {
		fmt.Fprintln(&b, "None. Every extracted GID has a matching system record.")
	} else {
		for i, m := range recon.Missing {
			fmt.Fprintf(&b, "%4d. %s\n", i+1, m.Gid)
			fmt.Fprintf(&b, "      Source: %s\n", strings.Join(m.SourceFiles, ", "))
		}
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b, "END OF REPORT")
	fmt.Fprintln(&b, sep)
	return b.String()
}
