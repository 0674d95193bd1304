// Package api serves the cohort engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/cohort"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/loader"
	"github.com/tso500-cohort-explorer/internal/middleware"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// BreakerState reports the graph circuit breaker state
type BreakerState interface {
	State() string
}

// Server represents the HTTP server
type Server struct {
	config   *domain.Config
	service  *cohort.Service
	dataset  *loader.Dataset
	breaker  BreakerState
	logger   *logrus.Logger
	router   *gin.Engine
	server   *http.Server
	upgrader websocket.Upgrader
}

// NewServer creates a new HTTP server instance. breaker may be nil when the
// graph store runs in process.
func NewServer(config *domain.Config, service *cohort.Service, dataset *loader.Dataset, breaker BreakerState, logger *logrus.Logger) *Server {
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())
	router.Use(middleware.AuditLogger(logger))

	server := &Server{
		config:  config,
		service: service,
		dataset: dataset,
		breaker: breaker,
		logger:  logger,
		router:  router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.RateLimit(s.config.RateLimit))
	{
		v1.GET("/options", s.handleOptions)
		v1.GET("/stream", s.handleStream)

		// The stream is long-lived; only one-shot requests get a deadline.
		oneShot := v1.Group("")
		oneShot.Use(middleware.RequestTimeout(s.config.Server.WriteTimeout))
		oneShot.POST("/cohort", s.handleCohort)
		oneShot.POST("/views", s.handleViews)
		oneShot.POST("/survival", s.handleSurvival)
		oneShot.POST("/dashboard", s.handleDashboard)
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
