package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/tickbase/fieldvault/cmd/app/commands"
	"github.com/tickbase/fieldvault/internal/app"
	"github.com/tickbase/fieldvault/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrations",
			Usage: "Manage database migrations",
			Commands: []*cli.Command{
				{
					Name:  "up",
					Usage: "Apply all pending migrations",
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return runMigrations(ctx, "up")
					},
				},
				{
					Name:  "down",
					Usage: "Roll back all applied migrations",
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return runMigrations(ctx, "down")
					},
				},
				{
					Name:  "reset",
					Usage: "Drop the schema and reapply all migrations",
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return runMigrations(ctx, "reset")
					},
				},
			},
		},
	}
}

func runMigrations(ctx context.Context, direction string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString, direction)
}
