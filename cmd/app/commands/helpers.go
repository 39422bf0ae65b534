// Package commands implements the operational subcommands of the fieldvault
// binary. Each Run function takes its collaborators as parameters so tests
// can drive it without a container.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/tickbase/fieldvault/internal/app"
)

// IOTuple carries the reader and writer a command talks to. Tests substitute
// buffers; the CLI wires the process streams.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns the process stdin and stdout.
func DefaultIO() IOTuple {
	return IOTuple{Reader: os.Stdin, Writer: os.Stdout}
}

// closeContainer shuts the container down, logging instead of failing the
// command when cleanup goes wrong.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("container shutdown reported errors", slog.Any("error", err))
	}
}

// closeMigrate releases the migration source and database handles.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceErr, dbErr := migrate.Close()
	if sourceErr != nil || dbErr != nil {
		logger.Error(
			"failed to close the migrate instance",
			slog.Any("source_error", sourceErr),
			slog.Any("database_error", dbErr),
		)
	}
}
