package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLocateGidColumn(t *testing.T) {
	cases := []struct {
		name    string
		headers []string
		want    int
	}{
		{"exact header", []string{"Date", "Event", "User", "MatchedQueryElements"}, 3},
		{"case insensitive", []string{"matchedqueryelements"}, 0},
		{"substring match", []string{"Time", "MatchedQueryElements (GID)", "Detail"}, 1},
		{"padded header", []string{"A", " matchedQueryElements "}, 1},
		{"no header wide row falls back", []string{"a", "b", "c", "d", "e"}, 3},
		{"no header narrow row", []string{"a", "b", "c"}, -1},
		{"empty row", nil, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LocateGidColumn(tc.headers); got != tc.want {
				t.Errorf("LocateGidColumn(%v) = %d, want %d", tc.headers, got, tc.want)
			}
		})
	}
}

func writeExportFile(t *testing.T, path string, headers []string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue("Sheet1", cell, h); err != nil {
			t.Fatal(err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestExtractGids_HeaderMatch(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, filepath.Join(dir, "EventExport_2025-11-01.xlsx"),
		[]string{"Date", "MatchedQueryElements", "Detail"},
		[][]string{
			{"2025-11-01", "G100", "x"},
			{"2025-11-01", "G200", "y"},
			{"2025-11-01", "", "blank gid skipped"},
			{"2025-11-01", "  G300  ", "trimmed"},
		})

	result, err := ExtractGids(testLogger(), 1, dir)
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalGids != 3 {
		t.Fatalf("TotalGids = %d, want 3", result.TotalGids)
	}
	if result.UniqueCount != 3 {
		t.Fatalf("UniqueCount = %d, want 3", result.UniqueCount)
	}
	gids := map[string]bool{}
	for _, r := range result.Records {
		gids[r.Gid] = true
		if r.SourceFile != "EventExport_2025-11-01.xlsx" {
			t.Errorf("SourceFile = %q", r.SourceFile)
		}
		if r.Date != "2025-11-01" {
			t.Errorf("Date = %q", r.Date)
		}
	}
	for _, want := range []string{"G100", "G200", "G300"} {
		if !gids[want] {
			t.Errorf("missing GID %s", want)
		}
	}
}

func TestExtractGids_FallbackColumn(t *testing.T) {
	dir := t.TempDir()
	// No recognizable header; the GID lives in the fourth column.
	writeExportFile(t, filepath.Join(dir, "EventExport_2025-11-02.xlsx"),
		[]string{"col1", "col2", "col3", "col4"},
		[][]string{
			{"a", "b", "c", "G400"},
			{"a", "b", "c", "G500"},
		})

	result, err := ExtractGids(testLogger(), 1, dir)
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalGids != 2 {
		t.Fatalf("TotalGids = %d, want 2", result.TotalGids)
	}
}

func TestExtractGids_CorruptFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeExportFile(t, filepath.Join(dir, "EventExport_2025-11-01.xlsx"),
		[]string{"MatchedQueryElements"},
		[][]string{{"G100"}})
	if err := os.WriteFile(filepath.Join(dir, "EventExport_2025-11-02.xlsx"), []byte("not a workbook"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := ExtractGids(testLogger(), 1, dir)
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalGids != 1 {
		t.Fatalf("TotalGids = %d, want 1 (corrupt file skipped)", result.TotalGids)
	}
	if len(result.ProcessedFiles) != 1 || result.ProcessedFiles[0] != "EventExport_2025-11-01.xlsx" {
		t.Fatalf("ProcessedFiles = %v", result.ProcessedFiles)
	}
}

func TestExtractGids_EmptyWorkbookNotProcessed(t *testing.T) {
	dir := t.TempDir()
	// Header only, no data rows: parsed fine but yields nothing.
	writeExportFile(t, filepath.Join(dir, "EventExport_2025-11-03.xlsx"),
		[]string{"MatchedQueryElements"}, nil)
	writeExportFile(t, filepath.Join(dir, "EventExport_2025-11-04.xlsx"),
		[]string{"MatchedQueryElements"},
		[][]string{{"G700"}})

	result, err := ExtractGids(testLogger(), 1, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.ProcessedFiles) != 1 {
		t.Fatalf("ProcessedFiles = %v, want the non-empty file only", result.ProcessedFiles)
	}
	if result.FileGidCounts["EventExport_2025-11-04.xlsx"] != 1 {
		t.Errorf("FileGidCounts = %v", result.FileGidCounts)
	}
}

func TestExtractGids_NoFiles(t *testing.T) {
	if _, err := ExtractGids(testLogger(), 1, t.TempDir()); err == nil {
		t.Fatal("expected error for empty working dir")
	}
}

func TestDateFromFilename(t *testing.T) {
	if got := dateFromFilename("EventExport_2025-11-01.xlsx"); got != "2025-11-01" {
		t.Errorf("got %q", got)
	}
	if got := dateFromFilename("EventExport_2025-01-31.xlsm"); got != "2025-01-31" {
		t.Errorf("got %q", got)
	}
}
