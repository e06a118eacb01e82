package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"

	"github.com/soundprediction/mangagraph"
	"github.com/soundprediction/mangagraph/pkg/config"
	"github.com/soundprediction/mangagraph/pkg/server/handlers"
)

// gzipMinSize is the smallest response body that is compressed.
const gzipMinSize = 256

// Server represents the HTTP server
type Server struct {
	config *config.Config
	router *gin.Engine
	client mangagraph.Mangagraph
	server *http.Server
	logger *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, client mangagraph.Mangagraph, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	if s.config.Server.Mode != "" {
		gin.SetMode(s.config.Server.Mode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware(s.config.Server.AllowOrigins))
	s.router.Use(requestContextMiddleware())
	s.router.Use(loggingMiddleware(s.logger))

	s.setupRoutes()

	var handler http.Handler = s.router
	if s.config.Server.Gzip {
		wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(gzipMinSize))
		if err != nil {
			s.logger.Warn("Gzip disabled", "error", err)
		} else {
			handler = wrap(handler)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: handler,
	}
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	var healthClient handlers.HealthClient
	if s.client != nil {
		healthClient = s.client
	}
	healthHandler := handlers.NewHealthHandler(healthClient)
	graphHandler := handlers.NewGraphHandler(s.client, s.logger)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck) // Kubernetes liveness probe
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	v1 := s.router.Group("/api/v1")
	v1.Use(timeoutMiddleware(s.config.Server.RequestTimeout))
	{
		v1.GET("/graph", graphHandler.SearchGraph)
		v1.POST("/graph", graphHandler.SearchGraphJSON)
		v1.POST("/similar", graphHandler.SimilarWorks)
		v1.GET("/works/:id/graph", graphHandler.WorkGraph)
		v1.GET("/stats", graphHandler.Stats)
	}
}

// Handler returns the server's root handler. Setup must have been called.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("Starting server", "addr", s.server.Addr, "mode", gin.Mode())
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping server")
	return s.server.Shutdown(ctx)
}
