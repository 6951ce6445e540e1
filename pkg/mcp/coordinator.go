package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/models"
)

// toolCacheTTL is how long a discovery result stays valid, measured against
// the server's last health check.
const toolCacheTTL = 5 * time.Minute

// protocolClient is the slice of the protocol adapter the coordinator uses.
// Satisfied by *Adapter; stubbed in tests.
type protocolClient interface {
	Initialize(ctx context.Context, serverName string, server config.MCPServerConfig) (*models.ServerCapabilities, error)
	ListTools(ctx context.Context, serverName string, server config.MCPServerConfig) ([]models.Tool, error)
	CallTool(ctx context.Context, serverName string, server config.MCPServerConfig, toolName string, arguments map[string]any) (string, error)
	TestConnection(ctx context.Context, serverName string, server config.MCPServerConfig) bool
}

type toolCacheEntry struct {
	tools        []models.Tool
	discoveredAt time.Time
}

// Coordinator owns the tool cache and server capabilities: it fans out tool
// discovery across healthy servers, dispatches tool calls, and runs the
// periodic health check loop. Thread-safe; per-server cache writes are
// last-writer-wins (a rediscovery recomputes the same upstream state).
type Coordinator struct {
	adapter  protocolClient
	registry *ServerRegistry

	cacheTTL      time.Duration
	autoDiscovery bool
	checkInterval time.Duration

	cacheMu sync.RWMutex
	cache   map[string]toolCacheEntry

	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewCoordinator creates a coordinator over the given registry.
func NewCoordinator(adapter *Adapter, registry *ServerRegistry, cfg *config.MCPConfig) *Coordinator {
	return newCoordinator(adapter, registry, cfg)
}

func newCoordinator(adapter protocolClient, registry *ServerRegistry, cfg *config.MCPConfig) *Coordinator {
	return &Coordinator{
		adapter:       adapter,
		registry:      registry,
		cacheTTL:      toolCacheTTL,
		autoDiscovery: cfg.AutoDiscovery(),
		checkInterval: cfg.HealthCheckInterval,
		cache:         make(map[string]toolCacheEntry),
		logger:        slog.Default(),
	}
}

// Start launches the periodic health check loop. Calling Start on an
// already-running coordinator is a no-op.
func (c *Coordinator) Start(ctx context.Context) {
	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go c.loop(ctx)

	c.logger.Info("MCP coordinator started",
		"servers", len(c.registry.Names()),
		"auto_discovery", c.autoDiscovery,
		"check_interval", c.checkInterval)
}

// Stop shuts down the health check loop and waits for it to finish.
func (c *Coordinator) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	c.logger.Info("MCP coordinator stopped")
}

func (c *Coordinator) loop(ctx context.Context) {
	defer close(c.done)

	c.PerformHealthChecks(ctx)

	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.PerformHealthChecks(ctx)
		}
	}
}

// GetAvailableTools discovers tools from every enabled, currently-healthy
// server concurrently. Per-server failures are isolated: they are logged
// and contribute nothing. The aggregate is sorted by (serverName, toolName).
func (c *Coordinator) GetAvailableTools(ctx context.Context) []models.Tool {
	names := c.registry.EnabledHealthy()

	var mu sync.Mutex
	var all []models.Tool

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			tools, err := c.discoverServer(ctx, name)
			if err != nil {
				c.logger.Warn("Tool discovery failed",
					"server", name, "error", err)
				return
			}
			mu.Lock()
			all = append(all, tools...)
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	sort.Slice(all, func(i, j int) bool {
		if all[i].ServerName != all[j].ServerName {
			return all[i].ServerName < all[j].ServerName
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// discoverServer returns the tools for one server, from cache when the
// entry is still covered by the server's last health check, otherwise by
// re-contacting the server (initializing it first when capabilities are
// unknown).
func (c *Coordinator) discoverServer(ctx context.Context, name string) ([]models.Tool, error) {
	server, ok := c.registry.Get(name)
	if !ok {
		return nil, ErrServerNotFound
	}

	c.cacheMu.RLock()
	entry, cached := c.cache[name]
	c.cacheMu.RUnlock()
	if cached && time.Since(c.registry.LastChecked(name)) < c.cacheTTL {
		return entry.tools, nil
	}

	if _, known := c.registry.Capabilities(name); !known {
		caps, err := c.adapter.Initialize(ctx, name, server)
		if err != nil {
			c.registry.MarkUnhealthy(name, time.Now())
			return nil, err
		}
		c.registry.SetCapabilities(name, caps)
		c.registry.MarkHealthy(name, time.Now())
	}

	tools, err := c.adapter.ListTools(ctx, name, server)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.cache[name] = toolCacheEntry{tools: tools, discoveredAt: time.Now()}
	c.cacheMu.Unlock()

	return tools, nil
}

// ExecuteTool dispatches one tool call. Every outcome (pre-dispatch refusal,
// transport failure, protocol error, success) is recorded as an ExecutionStep
// of type mcp_call with wall-clock duration from entry.
func (c *Coordinator) ExecuteTool(ctx context.Context, call models.ToolCall) models.ExecutionStep {
	start := time.Now()

	step := models.ExecutionStep{
		StepID:     uuid.NewString(),
		Type:       models.StepMCPCall,
		Timestamp:  start,
		ServerName: call.ServerName,
		ToolName:   call.ToolName,
		Input:      renderArguments(call),
	}

	server, ok := c.registry.Get(call.ServerName)
	switch {
	case !ok:
		return failStep(step, start, ErrServerNotFound.Error()+": "+call.ServerName)
	case !server.IsEnabled():
		return failStep(step, start, ErrServerDisabled.Error()+": "+call.ServerName)
	case !c.registry.IsHealthy(call.ServerName):
		return failStep(step, start, ErrServerUnhealthy.Error()+": "+call.ServerName)
	}

	output, err := c.adapter.CallTool(ctx, call.ServerName, server, call.ToolName, call.Arguments)
	if err != nil {
		// The step output carries the server's message; the error code
		// stays in the log.
		var perr *ProtocolError
		if errors.As(err, &perr) {
			c.logger.Warn("MCP tool call rejected by server",
				"server", call.ServerName, "tool", call.ToolName,
				"code", perr.Code, "message", perr.Message)
			return failStep(step, start, perr.Message)
		}
		if IsTransportError(err) {
			c.logger.Warn("Marking MCP server unhealthy after transport failure",
				"server", call.ServerName, "tool", call.ToolName, "error", err)
			c.registry.MarkUnhealthy(call.ServerName, time.Now())
		}
		return failStep(step, start, err.Error())
	}

	step.Duration = time.Since(start)
	step.Output = output
	step.Success = true
	return step
}

// TestServerConnection probes one server and updates its health and
// last-check time. A transition to unhealthy purges the server's cache
// entries.
func (c *Coordinator) TestServerConnection(ctx context.Context, name string) (bool, error) {
	server, ok := c.registry.Get(name)
	if !ok {
		return false, ErrServerNotFound
	}

	healthy := c.adapter.TestConnection(ctx, name, server)
	now := time.Now()
	if healthy {
		c.registry.MarkHealthy(name, now)
	} else {
		c.registry.MarkUnhealthy(name, now)
		c.InvalidateToolCache(name)
	}
	return healthy, nil
}

// PerformHealthChecks probes every known server concurrently, then logs the
// aggregate. No-op when auto-discovery is disabled.
func (c *Coordinator) PerformHealthChecks(ctx context.Context) {
	if !c.autoDiscovery {
		return
	}

	names := c.registry.Names()

	var healthy int64
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			ok, err := c.TestServerConnection(gctx, name)
			if err == nil && ok {
				mu.Lock()
				healthy++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Info("MCP health check complete",
		"healthy", healthy, "total", len(names))
}

// InvalidateToolCache purges cache entries for one server, or all entries
// when name is empty.
func (c *Coordinator) InvalidateToolCache(name string) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if name == "" {
		c.cache = make(map[string]toolCacheEntry)
		return
	}
	delete(c.cache, name)
}

// CachedServers returns the server names with live cache entries, sorted.
func (c *Coordinator) CachedServers() []string {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	names := make([]string, 0, len(c.cache))
	for name := range c.cache {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry exposes the server registry for introspection endpoints.
func (c *Coordinator) Registry() *ServerRegistry {
	return c.registry
}

// failStep finalizes a step as failed with an "Error: " output.
func failStep(step models.ExecutionStep, start time.Time, message string) models.ExecutionStep {
	step.Duration = time.Since(start)
	step.Output = "Error: " + message
	step.Success = false
	return step
}

// renderArguments produces a stable string form of the call arguments for
// the step's audit input. encoding/json sorts map keys, so the form is
// deterministic.
func renderArguments(call models.ToolCall) string {
	data, err := json.Marshal(call.Arguments)
	if err != nil || call.Arguments == nil {
		data = []byte("{}")
	}
	return call.ServerName + "." + call.ToolName + "(" + string(data) + ")"
}
