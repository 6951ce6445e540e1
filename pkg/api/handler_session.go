package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conductor-ai/conductor/pkg/session"
)

// listSessionsHandler handles GET /api/v1/orchestration/sessions.
func (s *Server) listSessionsHandler(c *gin.Context) {
	sessions := s.sessions.List()
	c.JSON(http.StatusOK, gin.H{
		"sessions":       sessions,
		"count":          len(sessions),
		"activeSessions": s.sessions.Metrics().ActiveSessions,
	})
}

// getSessionHandler handles GET /api/v1/orchestration/session/:id.
func (s *Server) getSessionHandler(c *gin.Context) {
	id := c.Param("id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found: " + id})
		return
	}

	c.JSON(http.StatusOK, session.Info{
		SessionID:      sess.SessionID,
		MessageCount:   len(sess.Messages),
		StepCount:      len(sess.ExecutionHistory),
		CreatedAt:      sess.CreatedAt,
		LastActivityAt: sess.LastActivityAt,
	})
}

// clearSessionHandler handles DELETE /api/v1/orchestration/session/:id.
func (s *Server) clearSessionHandler(c *gin.Context) {
	id := c.Param("id")
	if !s.sessions.Clear(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found: " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "sessionId": id})
}
