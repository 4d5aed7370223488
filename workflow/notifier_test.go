package workflow

import (
	"context"
	"errors"
	"testing"

	"gopkg.in/gomail.v2"

	"github.com/mmdatafocus/adaudit_backend/models"
)

type fakeSender struct {
	sent int
	err  error
}

func (s *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent += len(m)
	return nil
}

func TestSendAnalysisEmail_TransportFailureLeavesRunUntouched(t *testing.T) {
	analysis := &models.AdLogAnalysis{
		ID:     1,
		Name:   "November audit",
		Status: models.AnalysisStatusEmailPending,
	}
	sender := &fakeSender{err: errors.New("smtp connection refused")}

	err := SendAnalysisEmail(context.Background(), testLogger(), sender, analysis,
		[]string{"it@example.com"}, nil, "Subject", "Body")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if analysis.Status != models.AnalysisStatusEmailPending {
		t.Errorf("status changed to %q on failed send", analysis.Status)
	}
	if analysis.EmailSentAt != nil {
		t.Error("EmailSentAt stamped on failed send")
	}
	if analysis.EmailTo != "" {
		t.Error("email metadata recorded on failed send")
	}
}

func TestSendAnalysisEmail_Validation(t *testing.T) {
	analysis := &models.AdLogAnalysis{ID: 1, Status: models.AnalysisStatusEmailPending}
	sender := &fakeSender{}
	ctx := context.Background()

	if err := SendAnalysisEmail(ctx, testLogger(), sender, analysis, nil, nil, "Subject", "Body"); err == nil {
		t.Error("expected error for empty recipient list")
	}
	if err := SendAnalysisEmail(ctx, testLogger(), sender, analysis, []string{"not-an-email"}, nil, "Subject", "Body"); err == nil {
		t.Error("expected error for malformed recipient")
	}
	if err := SendAnalysisEmail(ctx, testLogger(), sender, analysis, []string{"a@example.com"}, []string{"bad cc"}, "Subject", "Body"); err == nil {
		t.Error("expected error for malformed cc recipient")
	}
	if err := SendAnalysisEmail(ctx, testLogger(), sender, analysis, []string{"a@example.com"}, nil, "   ", "Body"); err == nil {
		t.Error("expected error for blank subject")
	}
	if sender.sent != 0 {
		t.Errorf("sender called %d times for invalid input", sender.sent)
	}
}
