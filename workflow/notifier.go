package workflow

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/models"
	"github.com/mmdatafocus/adaudit_backend/utils"
)

// reportGidLimit caps how many unmatched GIDs are inlined into the
// email body; the full list lives in the attached report.
const reportGidLimit = 100

// MailSender is the transport the notifier sends through, satisfied by
// *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// BuildEmailTokens assembles the substitution values for a completed
// run's notification template.
func BuildEmailTokens(ctx context.Context, analysis *models.AdLogAnalysis) (map[string]string, error) {
	discrepancies, err := models.ListDiscrepancies(ctx, analysis.ID)
	if err != nil {
		return nil, err
	}

	unmatched := "None"
	if len(discrepancies) > 0 {
		gids := make([]string, 0, reportGidLimit)
		for i, d := range discrepancies {
			if i == reportGidLimit {
				gids = append(gids, fmt.Sprintf("... and %d more (see attached report)", len(discrepancies)-reportGidLimit))
				break
			}
			gids = append(gids, d.Gid)
		}
		unmatched = strings.Join(gids, "\n")
	}

	pathName := ""
	if analysis.PathDefinition != nil {
		pathName = analysis.PathDefinition.Name
	}

	return map[string]string{
		"analysis_name":     analysis.Name,
		"period":            analysis.PeriodDisplay(),
		"date":              time.Now().Format("02/01/2006"),
		"total_gids":        fmt.Sprint(analysis.TotalGidsFound),
		"unique_gids":       fmt.Sprint(analysis.UniqueGidsCount),
		"discrepancy_count": fmt.Sprint(analysis.DiscrepancyCount),
		"unmatched_gids":    unmatched,
		"path_name":         pathName,
		"source_path":       analysis.ResolvedSourcePath(),
		"output_path":       analysis.OutputFolder,
	}, nil
}

// RenderAnalysisEmail renders the default AD log template against the
// run. Tokens the template uses but the run does not define are left
// in place verbatim.
func RenderAnalysisEmail(ctx context.Context, analysis *models.AdLogAnalysis) (*models.RenderedEmail, error) {
	tmpl, err := models.GetDefaultEmailTemplate(ctx, models.UsageTypeCodeAdLog)
	if err != nil {
		return nil, err
	}
	tokens, err := BuildEmailTokens(ctx, analysis)
	if err != nil {
		return nil, err
	}
	return tmpl.Render(tokens), nil
}

// SendAnalysisEmail sends the run notification with the report and GID
// exports attached, then stamps the email metadata and advances the
// run to email_sent. A transport failure leaves the run untouched in
// email_pending so the send can be retried.
func SendAnalysisEmail(ctx context.Context, logger *logrus.Logger, sender MailSender, analysis *models.AdLogAnalysis, to []string, cc []string, subject string, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	for _, addr := range append(append([]string{}, to...), cc...) {
		if !utils.IsValidEmail(addr) {
			return fmt.Errorf("invalid email address: %s", addr)
		}
	}
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("subject is required")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", config.GetMailFrom())
	m.SetHeader("To", to...)
	if len(cc) > 0 {
		m.SetHeader("Cc", cc...)
	}
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	for _, path := range []string{analysis.LogFile, analysis.UniqueGidsFile, analysis.ChecklistFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			config.LogWarn(logger, "notifier.go", "SendAnalysisEmail", "missing attachment "+path, err)
			continue
		}
		m.Attach(path)
	}

	if err := sender.DialAndSend(m); err != nil {
		config.LogError(logger, "notifier.go", "SendAnalysisEmail", "DialAndSend", analysis.ID, err)
		return err
	}

	now := time.Now()
	if err := models.SaveAnalysisFields(ctx, analysis, map[string]interface{}{
		"email_to":      strings.Join(to, ","),
		"email_cc":      strings.Join(cc, ","),
		"email_subject": subject,
		"email_body":    body,
		"email_sent_at": now,
		"status":        models.AnalysisStatusEmailSent,
	}); err != nil {
		// The mail went out; surface the bookkeeping failure but do
		// not pretend the send failed.
		config.LogError(logger, "notifier.go", "SendAnalysisEmail", "stamp email metadata", analysis.ID, err)
		return err
	}
	analysis.Status = models.AnalysisStatusEmailSent
	analysis.EmailSentAt = &now
	return nil
}
