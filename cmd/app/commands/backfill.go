package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	backfillDomain "github.com/tickbase/fieldvault/internal/backfill/domain"
	backfillUseCase "github.com/tickbase/fieldvault/internal/backfill/usecase"
)

// RunBackfill migrates one table column to workspace-key encryption and
// prints the run summary. Supports dry-run mode to preview the work and both
// text/JSON output formats.
//
// The run never aborts on individual record failures; those are listed in the
// summary and turned into a non-nil return so the process exits non-zero and
// an operator rerun picks the same records up again.
//
// Requirements: Database must be migrated and accessible.
func RunBackfill(
	ctx context.Context,
	useCase backfillUseCase.BackfillUseCase,
	logger *slog.Logger,
	out io.Writer,
	spec *backfillDomain.FieldSpec,
	dryRun bool,
	format string,
) error {
	logger.Info("starting field backfill",
		slog.String("table", spec.Table),
		slog.String("source_column", spec.SourceColumn),
		slog.String("target_column", spec.TargetColumn),
		slog.Bool("dry_run", dryRun),
	)

	result, runErr := useCase.Run(ctx, spec, dryRun)

	// A canceled run still carries partial counts worth reporting.
	if result != nil {
		if format == "json" {
			outputBackfillJSON(out, spec, result, dryRun)
		} else {
			outputBackfillText(out, spec, result, dryRun)
		}
	}

	if runErr != nil {
		return fmt.Errorf("backfill run failed: %w", runErr)
	}

	logger.Info("backfill completed",
		slog.Int("scanned", result.Scanned),
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", len(result.Errors)),
	)

	if len(result.Errors) > 0 {
		return fmt.Errorf("backfill completed with %d record error(s)", len(result.Errors))
	}

	return nil
}

// outputBackfillText outputs the run summary in human-readable text format.
func outputBackfillText(out io.Writer, spec *backfillDomain.FieldSpec, result *backfillDomain.Result, dryRun bool) {
	if dryRun {
		fmt.Fprintln(out, "Dry-run mode: no records were written")
	}
	fmt.Fprintf(out, "Backfill of %s.%s: scanned %d, processed %d, skipped %d, errors %d\n",
		spec.Table, spec.SourceColumn,
		result.Scanned, result.Processed, result.Skipped, len(result.Errors),
	)
	for _, recordError := range result.Errors {
		fmt.Fprintf(out, "  record %s: %s\n", recordError.RecordID, recordError.Message)
	}
}

// outputBackfillJSON outputs the run summary in JSON format for machine consumption.
func outputBackfillJSON(out io.Writer, spec *backfillDomain.FieldSpec, result *backfillDomain.Result, dryRun bool) {
	recordErrors := make([]map[string]string, 0, len(result.Errors))
	for _, recordError := range result.Errors {
		recordErrors = append(recordErrors, map[string]string{
			"record_id": recordError.RecordID,
			"message":   recordError.Message,
		})
	}

	payload := map[string]interface{}{
		"table":         spec.Table,
		"source_column": spec.SourceColumn,
		"target_column": spec.TargetColumn,
		"dry_run":       dryRun,
		"scanned":       result.Scanned,
		"processed":     result.Processed,
		"skipped":       result.Skipped,
		"errors":        recordErrors,
	}

	jsonBytes, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(out, string(jsonBytes))
}
