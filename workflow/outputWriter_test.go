package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/adaudit_backend/models"
)

func TestCopyStagedExports_CopiesAllFormats(t *testing.T) {
	working := t.TempDir()
	writeDummyFile(t, filepath.Join(working, "EventExport_2025-11-01.xlsx"))
	writeDummyFile(t, filepath.Join(working, "EventExport_2025-11-02.xls"))
	writeDummyFile(t, filepath.Join(working, "EventExport_2025-11-03.xlsm"))

	excelFolder := filepath.Join(t.TempDir(), "excels")
	if err := copyStagedExports(working, excelFolder); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"EventExport_2025-11-01.xlsx",
		"EventExport_2025-11-02.xls",
		"EventExport_2025-11-03.xlsm",
	} {
		if _, err := os.Stat(filepath.Join(excelFolder, name)); err != nil {
			t.Errorf("%s not copied: %v", name, err)
		}
	}
}

func TestCopyStagedExports_CopyFailureIsFatal(t *testing.T) {
	working := t.TempDir()
	writeDummyFile(t, filepath.Join(working, "EventExport_2025-11-01.xlsx"))

	// A directory squatting on the destination filename makes the copy fail.
	excelFolder := filepath.Join(t.TempDir(), "excels")
	if err := os.MkdirAll(filepath.Join(excelFolder, "EventExport_2025-11-01.xlsx"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := copyStagedExports(working, excelFolder); err == nil {
		t.Fatal("expected error when a staged export cannot be copied")
	}
}

func TestBuildDiscrepancyReport(t *testing.T) {
	analysis := &models.AdLogAnalysis{
		ID:    1,
		Name:  "November audit",
		Year:  2025,
		Month: 11,
		CreatedBy: &models.Operator{
			Username: "auditor1",
		},
	}
	recon := Reconcile([]GidRecord{
		{Gid: "G1", SourceFile: "EventExport_2025-11-01.xlsx"},
		{Gid: "G2", SourceFile: "EventExport_2025-11-01.xlsx"},
		{Gid: "G2", SourceFile: "EventExport_2025-11-02.xlsx"},
	}, systemSet("G1"))

	generatedAt := time.Date(2025, 12, 1, 9, 30, 0, 0, time.UTC)
	report := buildDiscrepancyReport(analysis, recon, generatedAt)

	for _, want := range []string{
		"AD LOG ANALYSIS REPORT - UNMATCHED GIDS",
		"Analysis Name : November audit",
		"Period        : Kasım 2025",
		"Generated     : 01/12/2025 09:30:00",
		"Created By    : auditor1",
		"Unique GIDs extracted from AD logs : 2",
		"System GID count                   : 1",
		"Unmatched GID count                : 1",
		"1. G2",
		"Source: EventExport_2025-11-01.xlsx, EventExport_2025-11-02.xlsx",
		"END OF REPORT",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}

	sep := strings.Repeat("=", reportSeparatorWidth)
	if strings.Count(report, sep) < 4 {
		t.Error("report separators malformed")
	}
}

func TestBuildDiscrepancyReport_NoDiscrepancies(t *testing.T) {
	analysis := &models.AdLogAnalysis{ID: 2, Name: "Clean month", Year: 2025, Month: 1}
	recon := Reconcile([]GidRecord{
		{Gid: "G1", SourceFile: "a.xlsx"},
	}, systemSet("G1"))

	report := buildDiscrepancyReport(analysis, recon, time.Now())
	if !strings.Contains(report, "None. Every extracted GID has a matching system record.") {
		t.Error("clean report should state there are no unmatched GIDs")
	}
	if !strings.Contains(report, "Created By    : N/A") {
		t.Error("missing creator should render as N/A")
	}
}
