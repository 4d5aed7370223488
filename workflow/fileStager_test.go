package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free and Redis-free. Progress
// publishes are no-ops when Redis is not connected.

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestExpectedBaseNames_DaysPerMonth(t *testing.T) {
	cases := []struct {
		year, month int
		want        int
	}{
		{2025, 11, 30},
		{2025, 12, 31},
		{2025, 2, 28},
		{2024, 2, 29}, // leap year
		{2000, 2, 29}, // divisible by 400
		{1900, 2, 28}, // divisible by 100 but not 400
	}
	for _, tc := range cases {
		names := ExpectedBaseNames(tc.year, tc.month)
		if len(names) != tc.want {
			t.Errorf("%d-%02d: got %d names, want %d", tc.year, tc.month, len(names), tc.want)
		}
	}
}

func TestExpectedBaseNames_Format(t *testing.T) {
	names := ExpectedBaseNames(2025, 3)
	if names[0] != "EventExport_2025-03-01" {
		t.Errorf("first name = %q", names[0])
	}
	if names[len(names)-1] != "EventExport_2025-03-31" {
		t.Errorf("last name = %q", names[len(names)-1])
	}
}

func writeDummyFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("dummy"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStageMonthlyExports_PartialMonth(t *testing.T) {
	source := t.TempDir()
	working := filepath.Join(t.TempDir(), "run")

	// 3 of February's 28 days present, in mixed formats.
	writeDummyFile(t, filepath.Join(source, "EventExport_2025-02-03.xlsx"))
	writeDummyFile(t, filepath.Join(source, "EventExport_2025-02-10.xls"))
	writeDummyFile(t, filepath.Join(source, "EventExport_2025-02-17.xlsm"))
	// Noise that must not be picked up.
	writeDummyFile(t, filepath.Join(source, "EventExport_2025-01-03.xlsx"))
	writeDummyFile(t, filepath.Join(source, "notes.txt"))

	result, err := StageMonthlyExports(testLogger(), 1, source, working, 2025, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Staged) != 3 {
		t.Fatalf("staged %d files, want 3: %v", len(result.Staged), result.Staged)
	}
	if len(result.Missing) != 25 {
		t.Fatalf("missing %d days, want 25", len(result.Missing))
	}
	for _, name := range result.Staged {
		if _, err := os.Stat(filepath.Join(working, name)); err != nil {
			t.Errorf("staged file %s not copied: %v", name, err)
		}
	}
}

func TestStageMonthlyExports_ExtensionPriority(t *testing.T) {
	source := t.TempDir()
	working := filepath.Join(t.TempDir(), "run")

	// Same day in two formats: .xlsx must win over .xls.
	writeDummyFile(t, filepath.Join(source, "EventExport_2025-06-05.xlsx"))
	writeDummyFile(t, filepath.Join(source, "EventExport_2025-06-05.xls"))

	result, err := StageMonthlyExports(testLogger(), 1, source, working, 2025, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Staged) != 1 || result.Staged[0] != "EventExport_2025-06-05.xlsx" {
		t.Fatalf("staged = %v, want the .xlsx variant only", result.Staged)
	}
}

func TestStageMonthlyExports_EmptyMonth(t *testing.T) {
	source := t.TempDir()
	working := filepath.Join(t.TempDir(), "run")

	_, err := StageMonthlyExports(testLogger(), 1, source, working, 2025, 4)
	if !errors.Is(err, ErrNoDataForPeriod) {
		t.Fatalf("err = %v, want ErrNoDataForPeriod", err)
	}
}

func TestStageMonthlyExports_MissingSourceDir(t *testing.T) {
	working := filepath.Join(t.TempDir(), "run")

	_, err := StageMonthlyExports(testLogger(), 1, "/nonexistent/exports", working, 2025, 4)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if _, statErr := os.Stat(working); !os.IsNotExist(statErr) {
		t.Error("working dir should not be created when the source is unavailable")
	}
}
