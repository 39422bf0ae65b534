package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies schema migrations for the configured driver, reading
// migration files from migrations/postgresql or migrations/mysql. Direction
// "up" applies everything pending, "down" rolls everything back, and "reset"
// drops the schema before rebuilding it from the first migration. A database
// that is already current is not an error.
func RunMigrations(logger *slog.Logger, driver, connectionString, direction string) error {
	switch direction {
	case "up", "down", "reset":
	default:
		return fmt.Errorf("unknown migration direction: %s (valid options: up, down, reset)", direction)
	}

	logger.Info("applying schema migrations",
		slog.String("driver", driver),
		slog.String("direction", direction),
	)

	migrationsPath := "file://migrations/postgresql"
	if driver == "mysql" {
		migrationsPath = "file://migrations/mysql"
	}

	m, err := migrate.New(migrationsPath, connectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "reset":
		if err = m.Drop(); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
		// Drop removes the schema_migrations bookkeeping too, so a plain Up
		// rebuilds everything from the first migration.
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("schema migrations applied")
	return nil
}
