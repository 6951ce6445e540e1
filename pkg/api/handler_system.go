package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conductor-ai/conductor/pkg/mcp"
	"github.com/conductor-ai/conductor/pkg/version"
)

// healthHandler handles GET /api/v1/orchestration/health.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   version.AppName,
		"version":   version.GitCommit,
		"timestamp": time.Now(),
	})
}

// statusHandler handles GET /api/v1/orchestration/status: the full system
// snapshot across servers, cache, sessions, and the request pool.
func (s *Server) statusHandler(c *gin.Context) {
	health := s.coordinator.Registry().Health()

	healthy := 0
	for _, h := range health {
		if h.Healthy {
			healthy++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"servers": health,
		"totals": gin.H{
			"servers":        len(health),
			"healthyServers": healthy,
			"cachedServers":  len(s.coordinator.CachedServers()),
		},
		"context": s.sessions.Metrics(),
		"orchestration": gin.H{
			"activeRequests":        s.orchestrator.ActiveRequests(),
			"maxConcurrentRequests": s.cfg.Orchestration.MaxConcurrentRequests,
			"defaultMaxSteps":       s.cfg.Orchestration.DefaultMaxSteps,
		},
	})
}

// testServerHandler handles POST /api/v1/orchestration/servers/:name/test.
func (s *Server) testServerHandler(c *gin.Context) {
	name := c.Param("name")
	healthy, err := s.coordinator.TestServerConnection(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, mcp.ErrServerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "server not found: " + name})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"serverName": name,
		"isHealthy":  healthy,
		"checkedAt":  time.Now(),
	})
}

// invalidateCacheHandler handles POST /api/v1/orchestration/cache/invalidate.
// Without a serverName query parameter the whole cache is purged.
func (s *Server) invalidateCacheHandler(c *gin.Context) {
	name := c.Query("serverName")
	s.coordinator.InvalidateToolCache(name)

	resp := gin.H{"status": "invalidated"}
	if name != "" {
		resp["serverName"] = name
	}
	c.JSON(http.StatusOK, resp)
}
