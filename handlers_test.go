package main

import (
	"testing"

	"github.com/mmdatafocus/adaudit_backend/models"
)

// The progress endpoint exposes a terminal flag so the UI knows when to
// stop polling. When no live entry exists the flag comes from the
// persisted status alone.
func TestStoredStatusTerminal(t *testing.T) {
	cases := map[string]bool{
		models.AnalysisStatusPending:      false,
		models.AnalysisStatusQueued:       false,
		models.AnalysisStatusDownloading:  false,
		models.AnalysisStatusProcessing:   false,
		models.AnalysisStatusComparing:    false,
		models.AnalysisStatusCompleted:    true,
		models.AnalysisStatusEmailPending: true,
		models.AnalysisStatusEmailSent:    true,
		models.AnalysisStatusFailed:       true,
		models.AnalysisStatusCancelled:    true,
	}
	for status, want := range cases {
		if got := storedStatusTerminal(status); got != want {
			t.Errorf("storedStatusTerminal(%q) = %v, want %v", status, got, want)
		}
	}
}
