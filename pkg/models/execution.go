package models

import "time"

// StepType classifies an execution step.
type StepType string

const (
	StepAIAnalysis StepType = "ai_analysis"
	StepMCPCall    StepType = "mcp_call"
	StepSynthesis  StepType = "synthesis"
)

// ExecutionStep is an immutable record of one operation performed while
// serving a request: an LLM analysis, an MCP tool call, or a synthesis pass.
// Steps are appended to the request's execution flow and to the session's
// execution history; they are never mutated after creation.
type ExecutionStep struct {
	StepID     string         `json:"stepId"`
	Type       StepType       `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	Duration   time.Duration  `json:"duration"`
	ServerName string         `json:"serverName,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Input      string         `json:"input"`
	Output     string         `json:"output"`
	Success    bool           `json:"success"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
