package config

import "time"

// Built-in defaults merged under user-provided configuration. Any value the
// YAML leaves unset falls back to these.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			DefaultProvider: "claude",
		},
		MCP: MCPConfig{
			ConnectionTimeout:   10000,
			ReadTimeout:         30000,
			RetryAttempts:       3,
			HealthCheckInterval: 5 * time.Minute,
		},
		Orchestration: OrchestrationConfig{
			DefaultMaxSteps:       10,
			DefaultTimeout:        30000,
			MaxConcurrentRequests: 10,
			RequestQueueSize:      100,
		},
		Context: ContextConfig{
			SessionTimeout:  30 * time.Minute,
			MaxSessions:     1000,
			CleanupInterval: 5 * time.Minute,
			MaxHistorySize:  100,
		},
	}
}
