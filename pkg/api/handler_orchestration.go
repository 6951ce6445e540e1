package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conductor-ai/conductor/pkg/models"
)

// processHandler handles POST /api/v1/orchestration/process.
// Orchestration failures never surface as HTTP errors; they come back as a
// structured response with status "error".
func (s *Server) processHandler(c *gin.Context) {
	var req models.OrchestrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	resp := s.orchestrator.Process(c.Request.Context(), &req)
	c.JSON(http.StatusOK, resp)
}

// listToolsHandler handles GET /api/v1/orchestration/tools.
func (s *Server) listToolsHandler(c *gin.Context) {
	tools := s.coordinator.GetAvailableTools(c.Request.Context())

	var servers []string
	seen := map[string]struct{}{}
	for _, tool := range tools {
		if _, ok := seen[tool.ServerName]; !ok {
			seen[tool.ServerName] = struct{}{}
			servers = append(servers, tool.ServerName)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"tools":   tools,
		"count":   len(tools),
		"servers": servers,
	})
}

// serverToolsHandler handles GET /api/v1/orchestration/tools/:server.
func (s *Server) serverToolsHandler(c *gin.Context) {
	name := c.Param("server")
	registry := s.coordinator.Registry()
	if _, ok := registry.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found: " + name})
		return
	}

	var tools []models.Tool
	for _, tool := range s.coordinator.GetAvailableTools(c.Request.Context()) {
		if tool.ServerName == name {
			tools = append(tools, tool)
		}
	}

	health := registry.Health()[name]
	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"serverName":   name,
		"tools":        tools,
		"count":        len(tools),
		"capabilities": health.Capabilities,
		"health": gin.H{
			"healthy":     health.Healthy,
			"lastChecked": health.LastChecked,
		},
	})
}

// configureHandler handles POST /api/v1/orchestration/configure?sessionId=…
// It persists preferences in the session so later requests inherit them.
func (s *Server) configureHandler(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId query parameter is required"})
		return
	}

	var prefs models.OrchestrationPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := s.sessions.GetOrCreate(sessionID)
	sess.Preferences = &prefs
	s.sessions.Update(sess)

	c.JSON(http.StatusOK, gin.H{
		"status":      "success",
		"sessionId":   sessionID,
		"preferences": prefs,
	})
}
