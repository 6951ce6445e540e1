package mcp

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/models"
)

// Pre-dispatch refusal errors. Each surfaces as a failed ExecutionStep;
// the orchestration loop continues.
var (
	ErrServerNotFound  = errors.New("MCP server not found")
	ErrServerDisabled  = errors.New("MCP server is disabled")
	ErrServerUnhealthy = errors.New("MCP server is unhealthy")
)

// serverState is the mutable runtime companion of an immutable server
// definition: health bit, last check time, discovered capabilities.
type serverState struct {
	healthy      bool
	lastChecked  time.Time
	capabilities *models.ServerCapabilities
}

// ServerHealth is a read-only health snapshot for one server.
type ServerHealth struct {
	Healthy      bool                       `json:"healthy"`
	LastChecked  time.Time                  `json:"lastChecked"`
	Capabilities *models.ServerCapabilities `json:"capabilities,omitempty"`
}

// ServerRegistry holds the configured MCP servers and tracks their runtime
// health. Definitions are immutable after construction; runtime state is
// mutated only by the coordinator (health checks, dispatch failures).
// Thread-safe.
type ServerRegistry struct {
	servers map[string]config.MCPServerConfig

	mu     sync.RWMutex
	states map[string]*serverState
}

// NewServerRegistry builds a registry from configured servers. Servers start
// healthy with a zero last-check time, so the first discovery always probes
// them.
func NewServerRegistry(servers map[string]config.MCPServerConfig) *ServerRegistry {
	states := make(map[string]*serverState, len(servers))
	for name := range servers {
		states[name] = &serverState{healthy: true}
	}
	return &ServerRegistry{
		servers: servers,
		states:  states,
	}
}

// Get returns the definition for a server.
func (r *ServerRegistry) Get(name string) (config.MCPServerConfig, bool) {
	server, ok := r.servers[name]
	return server, ok
}

// Names returns all configured server names, sorted.
func (r *ServerRegistry) Names() []string {
	names := make([]string, 0, len(r.servers))
	for name := range r.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnabledHealthy returns the names of servers that are enabled and currently
// healthy, sorted for deterministic fan-out.
func (r *ServerRegistry) EnabledHealthy() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, server := range r.servers {
		if !server.IsEnabled() {
			continue
		}
		if state := r.states[name]; state != nil && state.healthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// IsHealthy reports the current health bit for a server.
func (r *ServerRegistry) IsHealthy(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[name]
	return ok && state.healthy
}

// MarkHealthy records a successful probe at the given time.
func (r *ServerRegistry) MarkHealthy(name string, when time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[name]; ok {
		state.healthy = true
		state.lastChecked = when
	}
}

// MarkUnhealthy records a failed probe or transport collapse at the given time.
func (r *ServerRegistry) MarkUnhealthy(name string, when time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[name]; ok {
		state.healthy = false
		state.lastChecked = when
	}
}

// LastChecked returns when the server's health was last probed.
// Zero time when never probed.
func (r *ServerRegistry) LastChecked(name string) time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if state, ok := r.states[name]; ok {
		return state.lastChecked
	}
	return time.Time{}
}

// SetCapabilities replaces the discovered capabilities for a server.
// Capabilities are replaced wholesale, never mutated piecewise.
func (r *ServerRegistry) SetCapabilities(name string, caps *models.ServerCapabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.states[name]; ok {
		state.capabilities = caps
	}
}

// Capabilities returns the discovered capabilities for a server, or false
// when the server has not completed an initialize handshake yet.
func (r *ServerRegistry) Capabilities(name string) (*models.ServerCapabilities, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[name]
	if !ok || state.capabilities == nil {
		return nil, false
	}
	return state.capabilities, true
}

// Health returns a health snapshot for every configured server.
func (r *ServerRegistry) Health() map[string]ServerHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]ServerHealth, len(r.states))
	for name, state := range r.states {
		result[name] = ServerHealth{
			Healthy:      state.healthy,
			LastChecked:  state.lastChecked,
			Capabilities: state.capabilities,
		}
	}
	return result
}
