package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path, expands environment variables,
// merges built-in defaults under it, applies per-server defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	log := slog.With("config_file", path)
	log.Info("Loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(ExpandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Merge defaults under the user config: non-zero user values win.
	if err := mergo.Merge(cfg, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("failed to merge default config: %w", err)
	}

	applyServerDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration loaded",
		"llm_providers", len(cfg.LLM.Providers),
		"default_provider", cfg.LLM.DefaultProvider,
		"mcp_servers", len(cfg.MCP.Servers))

	return cfg, nil
}

// applyServerDefaults fills in per-server values the YAML omitted. A server
// without its own timeout keeps zero and falls back to the MCP-level
// connection and read timeouts at call time.
func applyServerDefaults(cfg *Config) {
	for name, server := range cfg.MCP.Servers {
		if server.Auth != nil && server.Auth.Type == "" {
			server.Auth.Type = AuthNone
		}
		cfg.MCP.Servers[name] = server
	}
}

// Validate checks the configuration for internal consistency. All problems
// are reported at once, joined into a single error.
func (c *Config) Validate() error {
	var errs []error

	if len(c.LLM.Providers) == 0 {
		errs = append(errs, errors.New("llm: at least one provider must be configured"))
	}
	if c.LLM.DefaultProvider != "" {
		if _, ok := c.LLM.Providers[c.LLM.DefaultProvider]; !ok {
			errs = append(errs, fmt.Errorf("llm: default_provider %q is not a configured provider", c.LLM.DefaultProvider))
		}
	}
	for name, p := range c.LLM.Providers {
		if p.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm: provider %q has no api_key", name))
		}
	}

	for name, server := range c.MCP.Servers {
		if server.BaseURL == "" {
			errs = append(errs, fmt.Errorf("mcp: server %q has no base_url", name))
		}
		if server.Auth != nil {
			switch server.Auth.Type {
			case AuthNone:
			case AuthBasic:
				if server.Auth.Username == "" {
					errs = append(errs, fmt.Errorf("mcp: server %q basic auth requires username", name))
				}
			case AuthBearer:
				if server.Auth.Token == "" {
					errs = append(errs, fmt.Errorf("mcp: server %q bearer auth requires token", name))
				}
			case AuthAPIKey:
				if server.Auth.Key == "" {
					errs = append(errs, fmt.Errorf("mcp: server %q apikey auth requires key", name))
				}
			default:
				errs = append(errs, fmt.Errorf("mcp: server %q has unknown auth type %q", name, server.Auth.Type))
			}
		}
	}

	if c.Orchestration.MaxConcurrentRequests <= 0 {
		errs = append(errs, errors.New("orchestration: max_concurrent_requests must be positive"))
	}
	if c.Orchestration.DefaultMaxSteps < 0 {
		errs = append(errs, errors.New("orchestration: default_max_steps must not be negative"))
	}
	if c.Context.MaxSessions <= 0 {
		errs = append(errs, errors.New("context: max_sessions must be positive"))
	}
	if c.Context.MaxHistorySize <= 0 {
		errs = append(errs, errors.New("context: max_history_size must be positive"))
	}

	return errors.Join(errs...)
}
