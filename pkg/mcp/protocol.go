// Package mcp provides the MCP (Model Context Protocol) client
// infrastructure: the JSON-RPC 2.0 HTTP adapter, the server registry with
// health tracking, and the tool cache coordinator that discovers and
// dispatches tools across servers.
package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/version"
)

// ProtocolVersion is the MCP revision sent in the initialize handshake.
const ProtocolVersion = "2024-11-05"

// maxResponseBytes caps the in-memory response body per call.
const maxResponseBytes = 16 << 20 // 16 MiB

// mcpPath is the JSON-RPC endpoint relative to each server's base URL.
const mcpPath = "/mcp"

// JSON-RPC 2.0 wire types.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// ProtocolError is a JSON-RPC error returned by an MCP server. The transport
// worked, so the server stays healthy; the failure belongs to the call.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// Adapter speaks JSON-RPC 2.0 over HTTP POST to the /mcp path of each
// server's base URL. Stateless apart from the per-server HTTP clients it
// builds from the immutable server definitions; safe for concurrent use.
type Adapter struct {
	connectTimeout time.Duration
	readTimeout    time.Duration
	logger         *slog.Logger
}

// NewAdapter creates a protocol adapter. The config-level connection and
// read timeouts bound calls to servers that do not set their own timeout.
func NewAdapter(cfg *config.MCPConfig) *Adapter {
	return &Adapter{
		connectTimeout: time.Duration(cfg.ConnectionTimeout) * time.Millisecond,
		readTimeout:    time.Duration(cfg.ReadTimeout) * time.Millisecond,
		logger:         slog.Default(),
	}
}

// timeoutsFor resolves the bounds for one call: a per-server timeout covers
// both TCP connect and the whole response; without one, the adapter-level
// connect and read timeouts apply separately.
func (a *Adapter) timeoutsFor(server config.MCPServerConfig) (connect, read time.Duration) {
	if server.Timeout > 0 {
		t := time.Duration(server.Timeout) * time.Millisecond
		return t, t
	}
	return a.connectTimeout, a.readTimeout
}

// httpClient builds the per-call HTTP client from the server definition.
func (a *Adapter) httpClient(server config.MCPServerConfig) *http.Client {
	connect, read := a.timeoutsFor(server)
	return &http.Client{
		Timeout: read,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connect}).DialContext,
		},
	}
}

// applyHeaders sets the authorization header derived from the server's auth
// scheme, then merges the server's custom headers as additional defaults.
func applyHeaders(req *http.Request, server config.MCPServerConfig) {
	if auth := server.Auth; auth != nil {
		switch auth.Type {
		case config.AuthBasic:
			cred := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
			req.Header.Set("Authorization", "Basic "+cred)
		case config.AuthBearer:
			req.Header.Set("Authorization", "Bearer "+auth.Token)
		case config.AuthAPIKey:
			header := auth.Header
			if header == "" {
				header = "X-API-Key"
			}
			req.Header.Set(header, auth.Key)
		}
	}
	for k, v := range server.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
}

// call performs one JSON-RPC request/response round trip.
// A JSON-RPC error in the response comes back as *ProtocolError; everything
// else (transport, HTTP status, malformed body) as an ordinary error.
func (a *Adapter) call(ctx context.Context, serverName string, server config.MCPServerConfig, method string, params any) (json.RawMessage, error) {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, server.BaseURL+mcpPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create %s request for %q: %w", method, serverName, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", version.Full())
	applyHeaders(httpReq, server)

	httpResp, err := a.httpClient(server).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request to %q failed: %w", method, serverName, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%s request to %q: HTTP %d", method, serverName, httpResp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response from %q: %w", method, serverName, err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse %s response from %q: %w", method, serverName, err)
	}
	if resp.Error != nil {
		return nil, &ProtocolError{Code: resp.Error.Code, Message: resp.Error.Message}
	}
	return resp.Result, nil
}

// Initialize performs the MCP initialize handshake and returns the server's
// advertised capabilities. Any transport or protocol failure propagates as
// an initialization failure.
func (a *Adapter) Initialize(ctx context.Context, serverName string, server config.MCPServerConfig) (*models.ServerCapabilities, error) {
	result, err := a.call(ctx, serverName, server, "initialize", map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    version.AppName,
			"version": version.GitCommit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize %q: %w", serverName, err)
	}

	var parsed struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      map[string]any `json:"serverInfo"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("parse initialize result from %q: %w", serverName, err)
	}

	caps := &models.ServerCapabilities{
		ProtocolVersion: parsed.ProtocolVersion,
		ServerInfo:      parsed.ServerInfo,
	}
	// Supported features are the non-null capability keys. Known tags and
	// unknown ones alike pass through by key.
	for key, value := range parsed.Capabilities {
		if value == nil {
			continue
		}
		caps.SupportedFeatures = append(caps.SupportedFeatures, key)
	}
	sort.Strings(caps.SupportedFeatures)

	a.logger.Info("MCP server initialized",
		"server", serverName,
		"protocol_version", caps.ProtocolVersion,
		"features", caps.SupportedFeatures)
	return caps, nil
}

// ListTools fetches the server's tool catalog via tools/list. Entries
// missing a name (the only required field) are dropped with a warning.
func (a *Adapter) ListTools(ctx context.Context, serverName string, server config.MCPServerConfig) ([]models.Tool, error) {
	result, err := a.call(ctx, serverName, server, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("list tools from %q: %w", serverName, err)
	}

	var parsed struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("parse tools/list result from %q: %w", serverName, err)
	}

	tools := make([]models.Tool, 0, len(parsed.Tools))
	for _, t := range parsed.Tools {
		if t.Name == "" {
			a.logger.Warn("Dropping tool without a name", "server", serverName)
			continue
		}
		tools = append(tools, models.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			ServerName:  serverName,
		})
	}
	return tools, nil
}

// CallTool invokes a tool via tools/call and renders the result text: all
// content item texts joined by newlines, or the stringified result when
// content is absent. A JSON-RPC error surfaces as *ProtocolError.
func (a *Adapter) CallTool(ctx context.Context, serverName string, server config.MCPServerConfig, toolName string, arguments map[string]any) (string, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}
	result, err := a.call(ctx, serverName, server, "tools/call", map[string]any{
		"name":      toolName,
		"arguments": arguments,
	})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(result, &parsed); err == nil && len(parsed.Content) > 0 {
		out := make([]byte, 0, 256)
		for i, c := range parsed.Content {
			if i > 0 {
				out = append(out, '\n')
			}
			out = append(out, c.Text...)
		}
		return string(out), nil
	}

	// No content array: fall back to the raw result.
	return string(result), nil
}

// TestConnection probes the server: HTTP GET /health first, falling back to
// a full initialize handshake. Any success → true.
func (a *Adapter) TestConnection(ctx context.Context, serverName string, server config.MCPServerConfig) bool {
	if a.healthProbe(ctx, serverName, server) {
		return true
	}
	_, err := a.Initialize(ctx, serverName, server)
	if err != nil {
		a.logger.Debug("Connection test failed", "server", serverName, "error", err)
		return false
	}
	return true
}

func (a *Adapter) healthProbe(ctx context.Context, serverName string, server config.MCPServerConfig) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	applyHeaders(req, server)

	resp, err := a.httpClient(server).Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
