// seed-usage-types creates the built-in AD_LOG usage type together with a
// default path definition and a default notification template, so a fresh
// deployment can run an analysis without manual configuration.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-usage-types
//
// AD_LOG_SOURCE_PATH / AD_LOG_OUTPUT_PATH override the seeded paths.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/models"
)

const defaultTemplateBody = `Hello,

The AD log analysis "{analysis_name}" for {period} finished on {date}.

Summary:
  Total GID rows extracted : {total_gids}
  Unique GIDs              : {unique_gids}
  Unmatched GIDs           : {discrepancy_count}

Unmatched GIDs:
{unmatched_gids}

Source : {source_path}
Output : {output_path}

The detailed report and GID exports are attached.
`

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	usageType, err := models.GetUsageTypeByCode(ctx, models.UsageTypeCodeAdLog)
	if err != nil {
		usageType, err = models.CreateUsageType(ctx, &models.NewUsageType{
			Name:        "AD Log Reconciliation",
			Code:        models.UsageTypeCodeAdLog,
			Description: "Monthly Active Directory export reconciliation against the system GID table",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create usage type: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created usage type %s (id=%d)\n", usageType.Code, usageType.ID)
	}

	sourcePath := os.Getenv("AD_LOG_SOURCE_PATH")
	if sourcePath == "" {
		sourcePath = filepath.Join(models.MediaRoot(), "ad_logs", "exports")
	}
	outputPath := os.Getenv("AD_LOG_OUTPUT_PATH")
	if outputPath == "" {
		outputPath = filepath.Join(models.MediaRoot(), "ad_logs", "outputs")
	}

	if _, err := models.ResolvePathDefinition(ctx, models.UsageTypeCodeAdLog, ""); err != nil {
		if !errors.Is(err, models.ErrPathNotConfigured) {
			fmt.Fprintf(os.Stderr, "failed to resolve path definition: %v\n", err)
			os.Exit(1)
		}
		path, err := models.CreatePathDefinition(ctx, &models.NewPathDefinition{
			Name:        "Default AD export location",
			UsageTypeId: usageType.ID,
			SourcePath:  sourcePath,
			OutputPath:  outputPath,
			IsDefault:   true,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create path definition: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created default path definition (id=%d)\n", path.ID)
	}

	if _, err := models.GetDefaultEmailTemplate(ctx, models.UsageTypeCodeAdLog); err != nil {
		if !errors.Is(err, models.ErrTemplateNotFound) {
			fmt.Fprintf(os.Stderr, "failed to resolve email template: %v\n", err)
			os.Exit(1)
		}
		tmpl, err := models.CreateEmailTemplate(ctx, &models.NewEmailTemplate{
			Name:        "AD log completion notice",
			UsageTypeId: usageType.ID,
			Subject:     "AD Log Analysis Completed - {analysis_name} ({period})",
			Body:        defaultTemplateBody,
			IsDefault:   true,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create email template: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created default email template (id=%d)\n", tmpl.ID)
	}

	fmt.Println("seed complete")
}
