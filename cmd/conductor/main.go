// Conductor server: exposes the orchestration HTTP API, coordinates MCP
// servers, and runs the background health check and session cleanup loops.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/conductor-ai/conductor/pkg/api"
	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/mcp"
	"github.com/conductor-ai/conductor/pkg/orchestrator"
	"github.com/conductor-ai/conductor/pkg/reasoner"
	"github.com/conductor-ai/conductor/pkg/session"
	"github.com/conductor-ai/conductor/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config",
		getEnv("CONDUCTOR_CONFIG", "./conductor.yaml"),
		"Path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	slog.Info("Starting conductor",
		"version", version.Full(),
		"http_port", httpPort,
		"config", *configPath)

	ctx := context.Background()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. MCP infrastructure: protocol adapter, registry, coordinator
	adapter := mcp.NewAdapter(&cfg.MCP)
	registry := mcp.NewServerRegistry(cfg.MCP.Servers)
	coordinator := mcp.NewCoordinator(adapter, registry, &cfg.MCP)
	coordinator.Start(ctx)
	defer coordinator.Stop()

	// 3. Session manager with its cleanup loop
	sessions := session.NewManager(cfg.Context)
	sessions.Start(ctx)
	defer sessions.Stop()

	// 4. Reasoner providers
	selector, err := reasoner.NewSelector(ctx, cfg.LLM)
	if err != nil {
		slog.Error("Failed to configure AI providers", "error", err)
		os.Exit(1)
	}
	providers, defaultProvider := selector.Providers()
	slog.Info("AI providers configured",
		"providers", providers, "default", defaultProvider)

	// 5. Orchestration loop driver
	orch := orchestrator.New(cfg.Orchestration, coordinator, selector, sessions)

	// 6. HTTP server
	httpServer := api.NewServer(orch, coordinator, sessions, cfg).HTTPServer(":" + httpPort)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("Conductor started",
		"servers", len(cfg.MCP.Servers),
		"max_concurrent_requests", cfg.Orchestration.MaxConcurrentRequests)

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 8. Graceful shutdown: stop accepting requests, then the loops.
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
