package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/tickbase/fieldvault/cmd/app/commands"
	"github.com/tickbase/fieldvault/internal/app"
	backfillDomain "github.com/tickbase/fieldvault/internal/backfill/domain"
	"github.com/tickbase/fieldvault/internal/config"
)

func getBackfillCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "backfill",
			Usage: "Encrypt a plaintext column in place under workspace keys",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "table",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Table holding the column to migrate",
				},
				&cli.StringFlag{
					Name:  "id-column",
					Value: "id",
					Usage: "Primary key column used as the pagination cursor",
				},
				&cli.StringFlag{
					Name:  "workspace-column",
					Value: "workspace_id",
					Usage: "Column holding the owning workspace UUID",
				},
				&cli.StringFlag{
					Name:     "source-column",
					Required: true,
					Usage:    "Column holding the plaintext (or legacy token) value",
				},
				&cli.StringFlag{
					Name:     "target-column",
					Required: true,
					Usage:    "Column receiving the encrypted token",
				},
				&cli.StringFlag{
					Name:  "fingerprint-column",
					Value: "",
					Usage: "Column receiving the blind-index digest (omit to skip fingerprints)",
				},
				&cli.IntFlag{
					Name:  "batch-size",
					Usage: "Records fetched per cursor page (defaults to BACKFILL_BATCH_SIZE)",
				},
				&cli.IntFlag{
					Name:  "concurrency",
					Usage: "Records migrated in parallel within a batch (defaults to BACKFILL_CONCURRENCY)",
				},
				&cli.FloatFlag{
					Name:  "rate-limit",
					Usage: "Maximum records per second, 0 for unlimited (defaults to BACKFILL_RATE_LIMIT)",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Walk the table and report what would change without writing",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()

				// Worker tuning flags override the environment defaults
				if cmd.IsSet("concurrency") {
					cfg.BackfillConcurrency = int(cmd.Int("concurrency"))
				}
				if cmd.IsSet("rate-limit") {
					cfg.BackfillRateLimit = cmd.Float("rate-limit")
				}

				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				backfillUseCase, err := container.BackfillUseCase()
				if err != nil {
					return err
				}

				batchSize := cfg.BackfillBatchSize
				if cmd.IsSet("batch-size") {
					batchSize = int(cmd.Int("batch-size"))
				}

				spec := &backfillDomain.FieldSpec{
					Table:             cmd.String("table"),
					IDColumn:          cmd.String("id-column"),
					WorkspaceIDColumn: cmd.String("workspace-column"),
					SourceColumn:      cmd.String("source-column"),
					TargetColumn:      cmd.String("target-column"),
					FingerprintColumn: cmd.String("fingerprint-column"),
					BatchSize:         batchSize,
				}

				return commands.RunBackfill(
					ctx,
					backfillUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					spec,
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
	}
}
