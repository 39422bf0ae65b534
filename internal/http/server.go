// Package http provides the API server, its middleware, and the companion
// metrics server.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	fieldsHTTP "github.com/tickbase/fieldvault/internal/fields/http"
)

// readinessPingTimeout bounds the database ping on the readiness endpoint so
// a hung pool cannot stall probes.
const readinessPingTimeout = 2 * time.Second

// Server represents the API server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new API server. The database handle is used by the
// readiness endpoint; SetupRouter must be called before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the Gin engine with the standard middleware chain and
// the field encryption routes. metricsMiddleware may be nil when metrics are
// disabled.
func (s *Server) SetupRouter(
	fieldHandler *fieldsHTTP.FieldHandler,
	corsEnabled bool,
	corsAllowOrigins string,
	metricsMiddleware gin.HandlerFunc,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(corsEnabled, corsAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if metricsMiddleware != nil {
		router.Use(metricsMiddleware)
	}

	router.GET("/healthz", s.healthHandler)
	router.GET("/readyz", s.readinessHandler)

	v1 := router.Group("/v1")
	{
		v1.POST("/workspaces/:workspace_id/encrypt", fieldHandler.EncryptHandler)
		v1.POST("/workspaces/:workspace_id/decrypt", fieldHandler.DecryptHandler)
		v1.POST("/fingerprint", fieldHandler.FingerprintHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes. It is nil until
// SetupRouter has been called.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can do useful work, which
// means the database must answer a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}

	databaseReady := s.db != nil
	if databaseReady {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessPingTimeout)
		defer cancel()
		databaseReady = s.db.PingContext(ctx) == nil
	}

	if !databaseReady {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured: call SetupRouter before Start")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
