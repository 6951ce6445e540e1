// Package models defines the shared data model for the orchestration core:
// discovered tools, tool calls, execution steps, and the request/response
// envelope of the orchestration API.
package models

// Tool is a remote callable discovered from an MCP server.
// (ServerName, Name) uniquely identifies a tool at a point in time; tool
// identity is not stable across discoveries.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
	ServerName  string         `json:"serverName"`
}

// ToolCall is one tool invocation requested by the LLM.
type ToolCall struct {
	ServerName string         `json:"server_name"`
	ToolName   string         `json:"tool_name"`
	Arguments  map[string]any `json:"arguments"`
}

// ServerCapabilities holds the result of an MCP initialize handshake.
// Replaced wholesale on re-initialize, never mutated piecewise.
type ServerCapabilities struct {
	ProtocolVersion   string         `json:"protocolVersion"`
	SupportedFeatures []string       `json:"supportedFeatures"`
	ServerInfo        map[string]any `json:"serverInfo,omitempty"`
}

// Supports reports whether the server advertised the given capability tag.
func (c *ServerCapabilities) Supports(feature string) bool {
	for _, f := range c.SupportedFeatures {
		if f == feature {
			return true
		}
	}
	return false
}
