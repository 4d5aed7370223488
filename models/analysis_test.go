package models

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestMonthName(t *testing.T) {
	cases := []struct {
		month int
		want  string
	}{
		{1, "Ocak"},
		{2, "Şubat"},
		{11, "Kasım"},
		{12, "Aralık"},
		{0, ""},
		{13, ""},
	}
	for _, tc := range cases {
		a := AdLogAnalysis{Month: tc.month}
		if got := a.MonthName(); got != tc.want {
			t.Errorf("MonthName(%d) = %q, want %q", tc.month, got, tc.want)
		}
	}
}

func TestPeriodDisplay(t *testing.T) {
	a := AdLogAnalysis{Year: 2025, Month: 11}
	if got := a.PeriodDisplay(); got != "Kasım 2025" {
		t.Errorf("PeriodDisplay = %q", got)
	}
}

func TestOutputFolderPath_RomanizedFolderNames(t *testing.T) {
	// Folder names must stay ASCII regardless of the display name.
	cases := []struct {
		month int
		want  string
	}{
		{1, "ocak_2025"},
		{2, "subat_2025"},
		{3, "mart_2025"},
		{6, "haziran_2025"},
		{8, "agustos_2025"},
		{9, "eylul_2025"},
		{11, "kasim_2025"},
		{12, "aralik_2025"},
	}
	base := string(filepath.Separator) + filepath.Join("srv", "outputs")
	for _, tc := range cases {
		a := AdLogAnalysis{
			Year:  2025,
			Month: tc.month,
			PathDefinition: &PathDefinition{
				OutputPath: base,
			},
		}
		got := a.OutputFolderPath()
		if filepath.Base(got) != tc.want {
			t.Errorf("month %d: folder = %q, want %q", tc.month, filepath.Base(got), tc.want)
		}
		if !strings.HasPrefix(got, base) {
			t.Errorf("month %d: path %q not under %q", tc.month, got, base)
		}
		for _, r := range filepath.Base(got) {
			if r > 127 {
				t.Errorf("month %d: non-ASCII rune %q in folder name %q", tc.month, r, got)
			}
		}
	}
}

func TestOutputFolderPath_FallbackBase(t *testing.T) {
	a := AdLogAnalysis{Year: 2025, Month: 5}
	got := a.OutputFolderPath()
	if filepath.Base(got) != "mayis_2025" {
		t.Errorf("folder = %q", filepath.Base(got))
	}
	if !strings.Contains(got, filepath.Join("ad_logs", "outputs")) {
		t.Errorf("fallback path = %q", got)
	}
}

func TestResolvedSourcePath(t *testing.T) {
	withPath := AdLogAnalysis{
		SourcePath:     "/legacy/path",
		PathDefinition: &PathDefinition{SourcePath: "/configured/path"},
	}
	if got := withPath.ResolvedSourcePath(); got != "/configured/path" {
		t.Errorf("got %q, want the path definition to win", got)
	}

	legacyOnly := AdLogAnalysis{SourcePath: "/legacy/path"}
	if got := legacyOnly.ResolvedSourcePath(); got != "/legacy/path" {
		t.Errorf("got %q", got)
	}
}

func TestIsAnalysisProcessed(t *testing.T) {
	processed := []string{AnalysisStatusCompleted, AnalysisStatusEmailPending, AnalysisStatusEmailSent}
	for _, s := range processed {
		if !IsAnalysisProcessed(s) {
			t.Errorf("IsAnalysisProcessed(%s) = false", s)
		}
	}
	notProcessed := []string{
		AnalysisStatusPending, AnalysisStatusQueued, AnalysisStatusDownloading,
		AnalysisStatusProcessing, AnalysisStatusComparing,
		AnalysisStatusFailed, AnalysisStatusCancelled,
	}
	for _, s := range notProcessed {
		if IsAnalysisProcessed(s) {
			t.Errorf("IsAnalysisProcessed(%s) = true", s)
		}
	}
}
