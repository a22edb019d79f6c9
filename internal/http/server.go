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
	"go.opentelemetry.io/otel/metric"

	"github.com/sealbox/sealbox/internal/config"
	"github.com/sealbox/sealbox/internal/metrics"
)

// Server is the administrative HTTP server: health and readiness probes plus
// the rotation, token and hash endpoints.
type Server struct {
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates the administrative HTTP server with its full middleware
// chain and routes.
func NewServer(
	cfg *config.Config,
	db *sql.DB,
	rotationHandler *RotationHandler,
	tokenHandler *TokenHandler,
	hashHandler *HashHandler,
	recordHandler *RecordHandler,
	meterProvider metric.MeterProvider,
	logger *slog.Logger,
) *Server {
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	s := &Server{
		db:     db,
		logger: logger,
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	admin := router.Group("/admin")
	{
		triggerHandlers := []gin.HandlerFunc{}
		if limiter := createRateLimitMiddleware(
			cfg.RateLimitEnabled,
			cfg.RateLimitRequestsPerSec,
			cfg.RateLimitBurst,
			logger,
		); limiter != nil {
			triggerHandlers = append(triggerHandlers, limiter)
		}
		triggerHandlers = append(triggerHandlers, rotationHandler.Trigger)

		admin.POST("/rotation", triggerHandlers...)
		admin.GET("/rotation", rotationHandler.Status)

		admin.POST("/tokens", tokenHandler.Issue)
		admin.POST("/tokens/verify", tokenHandler.Verify)

		admin.POST("/hashes", hashHandler.Hash)

		admin.POST("/records/:collection", recordHandler.Save)
		admin.GET("/records/:collection", recordHandler.List)
		admin.GET("/records/:collection/:id", recordHandler.Get)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic: the
// database must be reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}

	if s.db == nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	components["database"] = "ok"
	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}
