// run-analysis executes one reconciliation run synchronously, bypassing the
// HTTP queue. Useful for cron-style scheduling and for reprocessing a
// failed run from a shell.
//
// Usage:
//   go run ./cmd/run-analysis -id 42 [-email]
//
// -email also sends the default notification after a successful run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/models"
	"github.com/mmdatafocus/adaudit_backend/utils"
	"github.com/mmdatafocus/adaudit_backend/workflow"
)

func main() {
	id := flag.Int("id", 0, "analysis id to run")
	sendEmail := flag.Bool("email", false, "send the default notification on success")
	flag.Parse()
	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "usage: run-analysis -id <analysis id> [-email]")
		os.Exit(2)
	}

	logger := config.GetLogger()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	// Ctrl-C cancels the run at the next stage boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analysis, err := models.GetAdLogAnalysis(ctx, *id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load analysis %d: %v\n", *id, err)
		os.Exit(1)
	}

	if err := workflow.RunFullAnalysis(ctx, logger, analysis); err != nil {
		fmt.Fprintf(os.Stderr, "analysis %d failed: %v\n", *id, err)
		os.Exit(1)
	}
	if err := models.SaveAnalysisFields(ctx, analysis, map[string]interface{}{
		"status": models.AnalysisStatusEmailPending,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to advance analysis %d: %v\n", *id, err)
		os.Exit(1)
	}
	analysis.Status = models.AnalysisStatusEmailPending
	fmt.Printf("analysis %d completed: %d files, %d GIDs (%d unique), %d unmatched\n",
		analysis.ID, analysis.ProcessedFilesCount, analysis.TotalGidsFound,
		analysis.UniqueGidsCount, analysis.DiscrepancyCount)

	if !*sendEmail {
		return
	}
	rendered, err := workflow.RenderAnalysisEmail(ctx, analysis)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render notification: %v\n", err)
		os.Exit(1)
	}
	dialer, err := config.GetMailDialer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mail transport not configured: %v\n", err)
		os.Exit(1)
	}
	to := utils.SplitAndTrim(rendered.DefaultTo)
	cc := utils.SplitAndTrim(rendered.DefaultCc)
	if err := workflow.SendAnalysisEmail(ctx, logger, dialer, analysis, to, cc, rendered.Subject, rendered.Body); err != nil {
		fmt.Fprintf(os.Stderr, "failed to send notification: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("notification sent")
}
