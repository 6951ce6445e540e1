// Package api exposes the orchestration core over REST: request
// processing, tool discovery, session administration, and system
// introspection.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/mcp"
	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/session"
)

// orchestrationService runs requests. Satisfied by *orchestrator.Orchestrator.
type orchestrationService interface {
	Process(ctx context.Context, req *models.OrchestrationRequest) *models.OrchestrationResponse
	ActiveRequests() int64
}

// mcpService is the coordinator surface the handlers use. Satisfied by
// *mcp.Coordinator.
type mcpService interface {
	GetAvailableTools(ctx context.Context) []models.Tool
	TestServerConnection(ctx context.Context, name string) (bool, error)
	InvalidateToolCache(name string)
	CachedServers() []string
	Registry() *mcp.ServerRegistry
}

// Server wires the HTTP handlers to the orchestration core.
type Server struct {
	orchestrator orchestrationService
	coordinator  mcpService
	sessions     *session.Manager
	cfg          *config.Config
	logger       *slog.Logger
}

// NewServer creates the API server.
func NewServer(orch orchestrationService, coord mcpService, sessions *session.Manager, cfg *config.Config) *Server {
	return &Server{
		orchestrator: orch,
		coordinator:  coord,
		sessions:     sessions,
		cfg:          cfg,
		logger:       slog.Default(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	v1 := r.Group("/api/v1/orchestration")
	{
		v1.POST("/process", s.processHandler)
		v1.GET("/tools", s.listToolsHandler)
		v1.GET("/tools/:server", s.serverToolsHandler)
		v1.POST("/configure", s.configureHandler)
		v1.GET("/health", s.healthHandler)
		v1.GET("/status", s.statusHandler)
		v1.GET("/sessions", s.listSessionsHandler)
		v1.GET("/session/:id", s.getSessionHandler)
		v1.DELETE("/session/:id", s.clearSessionHandler)
		v1.POST("/servers/:name/test", s.testServerHandler)
		v1.POST("/cache/invalidate", s.invalidateCacheHandler)
	}
	return r
}

// requestLogger logs each request with method, path, status, and latency.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// HTTPServer builds the http.Server for the given listen address.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
