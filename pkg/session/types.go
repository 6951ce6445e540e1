// Package session holds the in-memory conversation store: per-session
// message history, execution history, and sticky preferences, with bounded
// history, capacity eviction, and idle-timeout cleanup.
package session

import (
	"time"

	"github.com/conductor-ai/conductor/pkg/models"
)

// Message roles in the conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationContext is the per-session state carried across requests.
// Callers get a private copy from the manager, mutate it during a request,
// and hand it back via UpdateContext; the stored copy is never shared.
type ConversationContext struct {
	SessionID        string                           `json:"sessionId"`
	Messages         []Message                        `json:"messages"`
	AvailableTools   []models.Tool                    `json:"availableTools,omitempty"`
	ExecutionHistory []models.ExecutionStep           `json:"executionHistory,omitempty"`
	Preferences      *models.OrchestrationPreferences `json:"preferences,omitempty"`
	CreatedAt        time.Time                        `json:"createdAt"`
	LastActivityAt   time.Time                        `json:"lastActivityAt"`
}

// AddMessage appends one turn stamped with the current time.
func (c *ConversationContext) AddMessage(role, content string) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// clone returns a deep copy so the stored context and the caller's working
// copy cannot alias each other's slices.
func (c *ConversationContext) clone() *ConversationContext {
	dup := *c
	dup.Messages = append([]Message(nil), c.Messages...)
	dup.AvailableTools = append([]models.Tool(nil), c.AvailableTools...)
	dup.ExecutionHistory = append([]models.ExecutionStep(nil), c.ExecutionHistory...)
	return &dup
}

// Info is a read-only listing entry for one active session.
type Info struct {
	SessionID      string    `json:"sessionId"`
	MessageCount   int       `json:"messageCount"`
	StepCount      int       `json:"stepCount"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// Metrics summarizes the session store for the status endpoint.
type Metrics struct {
	ActiveSessions int       `json:"activeSessions"`
	TotalMessages  int       `json:"totalMessages"`
	TotalSteps     int       `json:"totalSteps"`
	OldestActivity time.Time `json:"oldestActivity,omitempty"`
}
