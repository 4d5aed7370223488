package workflow

import (
	"testing"

	"github.com/mmdatafocus/adaudit_backend/models"
)

// Claiming a run only stamps its lock columns; the status can change
// underneath before execution starts. Only a still-queued run may
// proceed — in particular one cancelled while waiting must not.
func TestClaimedRunnable(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{models.AnalysisStatusQueued, true},
		{models.AnalysisStatusCancelled, false},
		{models.AnalysisStatusPending, false},
		{models.AnalysisStatusDownloading, false},
		{models.AnalysisStatusProcessing, false},
		{models.AnalysisStatusComparing, false},
		{models.AnalysisStatusCompleted, false},
		{models.AnalysisStatusEmailPending, false},
		{models.AnalysisStatusEmailSent, false},
		{models.AnalysisStatusFailed, false},
	}
	for _, c := range cases {
		if got := claimedRunnable(c.status); got != c.want {
			t.Errorf("claimedRunnable(%q) = %v, want %v", c.status, got, c.want)
		}
	}
}
