// Package app assembles the service behind a lazily initialized container,
// so each command builds only the slice of the system it needs. The keygen
// command never opens a database, migrations never load key material.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gin-gonic/gin"

	backfillUseCase "github.com/tickbase/fieldvault/internal/backfill/usecase"
	"github.com/tickbase/fieldvault/internal/config"
	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
	cryptoService "github.com/tickbase/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/tickbase/fieldvault/internal/crypto/usecase"
	"github.com/tickbase/fieldvault/internal/database"
	fieldsHTTP "github.com/tickbase/fieldvault/internal/fields/http"
	fieldsUseCase "github.com/tickbase/fieldvault/internal/fields/usecase"
	"github.com/tickbase/fieldvault/internal/http"
	"github.com/tickbase/fieldvault/internal/keycache"
	"github.com/tickbase/fieldvault/internal/metrics"
)

// lazy memoizes one container component. The first get runs build, every
// later call returns the memoized value and error, so a failed
// initialization stays failed instead of being retried.
type lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.val, l.err = build()
	})
	return l.val, l.err
}

// Container wires configuration, infrastructure, use cases and servers
// together. Every component is built on first access and shared afterwards.
type Container struct {
	config *config.Config

	// mu serializes Shutdown.
	mu sync.Mutex

	loggerOnce sync.Once
	logger     *slog.Logger

	kmsOnce    sync.Once
	kmsService cryptoService.KMSService

	aeadOnce    sync.Once
	aeadManager cryptoService.AEADManager

	keyManagerOnce sync.Once
	keyManager     cryptoService.KeyManager

	dekCacheOnce sync.Once
	dekCache     *keycache.Cache

	db              lazy[*sql.DB]
	txManager       lazy[database.TxManager]
	keyring         lazy[*cryptoDomain.Keyring]
	fingerprinter   lazy[cryptoService.Fingerprinter]
	metricsProvider lazy[*metrics.Provider]
	businessMetrics lazy[metrics.BusinessMetrics]

	workspaceKeyRepository lazy[cryptoUseCase.WorkspaceKeyRepository]
	backfillRepository     lazy[backfillUseCase.BackfillRepository]

	workspaceKeyUseCase lazy[cryptoUseCase.WorkspaceKeyUseCase]
	fieldUseCase        lazy[fieldsUseCase.FieldUseCase]
	backfillUseCase     lazy[backfillUseCase.BackfillUseCase]

	fieldHandler lazy[*fieldsHTTP.FieldHandler]

	httpServer    lazy[*http.Server]
	metricsServer lazy[*http.MetricsServer]
}

// NewContainer returns an empty container around cfg. Nothing is built until
// a component is first requested.
func NewContainer(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the process logger, a JSON slog handler at the configured
// level. Unknown level names fall back to info.
func (c *Container) Logger() *slog.Logger {
	c.loggerOnce.Do(func() {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.config.LogLevel)); err != nil {
			level = slog.LevelInfo
		}
		c.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	})
	return c.logger
}

// DB returns the shared connection pool, opening it on first use.
func (c *Container) DB() (*sql.DB, error) {
	return c.db.get(c.openDB)
}

// TxManager returns the transaction manager over the shared pool.
func (c *Container) TxManager() (database.TxManager, error) {
	return c.txManager.get(c.newTxManager)
}

// HTTPServer returns the API server with its router fully wired.
func (c *Container) HTTPServer() (*http.Server, error) {
	return c.httpServer.get(c.newHTTPServer)
}

// MetricsServer returns the Prometheus exposition server, or nil without
// error when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	return c.metricsServer.get(c.newMetricsServer)
}

// Shutdown releases everything the container built. Servers drain first so
// in-flight requests finish, then key material is zeroed and the connection
// pool closes. Components that were never requested are not touched.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if server := c.httpServer.val; server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if server := c.metricsServer.val; server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if provider := c.metricsProvider.val; provider != nil {
		if err := provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.dekCache != nil {
		c.dekCache.Flush()
	}
	if keyring := c.keyring.val; keyring != nil {
		keyring.Close()
	}

	if db := c.db.val; db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Container) openDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) newTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) newHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	fieldHandler, err := c.FieldHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get field handler for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())

	var metricsMiddleware gin.HandlerFunc
	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		if provider != nil {
			metricsMiddleware = metrics.HTTPMetricsMiddleware(provider.MeterProvider(), c.config.MetricsNamespace)
		}
	}

	server.SetupRouter(fieldHandler, c.config.CORSEnabled, c.config.CORSAllowOrigins, metricsMiddleware)

	return server, nil
}

func (c *Container) newMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
