// Package config loads and validates the conductor configuration: LLM
// provider credentials, MCP server definitions, orchestration limits, and
// session context policy.
package config

import (
	"time"
)

// Config is the fully resolved application configuration.
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	MCP           MCPConfig           `yaml:"mcp"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Context       ContextConfig       `yaml:"context"`
}

// LLMConfig selects reasoner providers and their credentials.
type LLMConfig struct {
	// DefaultProvider is used when a request does not name one.
	DefaultProvider string `yaml:"default_provider"`

	// Providers maps provider name (claude, openai, gemini) to its settings.
	Providers map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig holds credentials and model selection for one provider.
type LLMProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// MCPConfig groups MCP client settings and the configured servers.
type MCPConfig struct {
	// ConnectionTimeout bounds TCP connect for servers without a per-server
	// timeout. Milliseconds.
	ConnectionTimeout int `yaml:"connection_timeout"`

	// ReadTimeout bounds response reads for servers without a per-server
	// timeout. Milliseconds.
	ReadTimeout int `yaml:"read_timeout"`

	// RetryAttempts is parsed and carried but not applied on call paths;
	// reserved for future use.
	RetryAttempts int `yaml:"retry_attempts"`

	// HealthCheckInterval is how often the coordinator probes all servers.
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`

	// AutoDiscoveryEnabled gates the periodic health check loop.
	// Pointer so an explicit false survives the defaults merge; nil → true.
	AutoDiscoveryEnabled *bool `yaml:"auto_discovery_enabled,omitempty"`

	// Servers maps server name to its definition.
	Servers map[string]MCPServerConfig `yaml:"servers"`
}

// AutoDiscovery reports whether periodic health checks are enabled.
func (c *MCPConfig) AutoDiscovery() bool {
	return c.AutoDiscoveryEnabled == nil || *c.AutoDiscoveryEnabled
}

// AuthType enumerates MCP server authentication schemes.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "apikey"
)

// AuthConfig describes how to authenticate against one MCP server.
// Exactly the fields for the chosen Type are consulted.
type AuthConfig struct {
	Type     AuthType `yaml:"type"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Token    string   `yaml:"token,omitempty"`
	Header   string   `yaml:"header,omitempty"` // apikey header name, default X-API-Key
	Key      string   `yaml:"key,omitempty"`
}

// MCPServerConfig is one configured upstream MCP server. Immutable after
// load; runtime health lives in the mcp.ServerRegistry, not here.
type MCPServerConfig struct {
	Description string            `yaml:"description,omitempty"`
	BaseURL     string            `yaml:"base_url"`
	Timeout     int               `yaml:"timeout"` // per-call timeout in ms; 0 falls back to the MCP-level timeouts
	Auth        *AuthConfig       `yaml:"auth,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Enabled     *bool             `yaml:"enabled,omitempty"` // nil → enabled
	Priority    int               `yaml:"priority,omitempty"`
}

// IsEnabled reports whether the server participates in discovery and dispatch.
func (c MCPServerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// OrchestrationConfig bounds the reasoning loop and request admission.
type OrchestrationConfig struct {
	DefaultMaxSteps       int `yaml:"default_max_steps"`
	DefaultTimeout        int `yaml:"default_timeout"` // milliseconds
	MaxConcurrentRequests int `yaml:"max_concurrent_requests"`
	RequestQueueSize      int `yaml:"request_queue_size"`
}

// ContextConfig governs the in-memory session store.
type ContextConfig struct {
	SessionTimeout  time.Duration `yaml:"session_timeout"`
	MaxSessions     int           `yaml:"max_sessions"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	MaxHistorySize  int           `yaml:"max_history_size"`
}
