package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/mcp"
	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOrchestrator struct {
	resp    *models.OrchestrationResponse
	lastReq *models.OrchestrationRequest
}

func (f *fakeOrchestrator) Process(_ context.Context, req *models.OrchestrationRequest) *models.OrchestrationResponse {
	f.lastReq = req
	return f.resp
}

func (f *fakeOrchestrator) ActiveRequests() int64 { return 1 }

type fakeCoordinator struct {
	tools       []models.Tool
	registry    *mcp.ServerRegistry
	testHealthy bool
	invalidated []string
}

func (f *fakeCoordinator) GetAvailableTools(_ context.Context) []models.Tool { return f.tools }

func (f *fakeCoordinator) TestServerConnection(_ context.Context, name string) (bool, error) {
	if _, ok := f.registry.Get(name); !ok {
		return false, mcp.ErrServerNotFound
	}
	return f.testHealthy, nil
}

func (f *fakeCoordinator) InvalidateToolCache(name string) {
	f.invalidated = append(f.invalidated, name)
}

func (f *fakeCoordinator) CachedServers() []string { return []string{"db"} }

func (f *fakeCoordinator) Registry() *mcp.ServerRegistry { return f.registry }

func newTestServer() (*Server, *fakeOrchestrator, *fakeCoordinator, *session.Manager) {
	orch := &fakeOrchestrator{
		resp: &models.OrchestrationResponse{
			RequestID: "req-1",
			SessionID: "sess-1",
			Status:    models.StatusSuccess,
			Response:  "done",
		},
	}
	coord := &fakeCoordinator{
		tools: []models.Tool{
			{Name: "query", Description: "Run a query", ServerName: "db"},
			{Name: "search", Description: "Search docs", ServerName: "docs"},
		},
		registry: mcp.NewServerRegistry(map[string]config.MCPServerConfig{
			"db":   {BaseURL: "http://db"},
			"docs": {BaseURL: "http://docs"},
		}),
		testHealthy: true,
	}
	sessions := session.NewManager(config.ContextConfig{
		SessionTimeout:  30 * time.Minute,
		MaxSessions:     100,
		CleanupInterval: time.Minute,
		MaxHistorySize:  100,
	})
	cfg := config.DefaultConfig()
	return NewServer(orch, coord, sessions, cfg), orch, coord, sessions
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestProcessEndpoint(t *testing.T) {
	srv, orch, _, _ := newTestServer()

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/orchestration/process", map[string]any{
		"message":   "hello",
		"sessionId": "sess-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "done", body["response"])
	require.NotNil(t, orch.lastReq)
	assert.Equal(t, "hello", orch.lastReq.Message)
	assert.False(t, orch.lastReq.Timestamp.IsZero(), "missing timestamp is stamped on arrival")
}

func TestProcessEndpointValidation(t *testing.T) {
	srv, _, _, _ := newTestServer()

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/orchestration/process", map[string]any{"sessionId": "s"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orchestration/process", bytes.NewReader([]byte("{not json")))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListToolsEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer()

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/orchestration/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 2, body["count"])
	assert.ElementsMatch(t, []any{"db", "docs"}, body["servers"])
}

func TestServerToolsEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer()

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/orchestration/tools/db", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "db", body["serverName"])
	assert.EqualValues(t, 1, body["count"])
	assert.Contains(t, body, "health")

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/orchestration/tools/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigureEndpoint(t *testing.T) {
	srv, _, _, sessions := newTestServer()

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/orchestration/configure?sessionId=sess-9", map[string]any{
		"responseFormat": "summary",
		"maxSteps":       3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Preferences stick to the session.
	sess, ok := sessions.Get("sess-9")
	require.True(t, ok)
	require.NotNil(t, sess.Preferences)
	assert.Equal(t, "summary", sess.Preferences.ResponseFormat)
	assert.Equal(t, 3, sess.Preferences.StepBudget())

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/orchestration/configure", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer()

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/orchestration/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer()

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/orchestration/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	totals := body["totals"].(map[string]any)
	assert.EqualValues(t, 2, totals["servers"])
	assert.EqualValues(t, 2, totals["healthyServers"])
	assert.EqualValues(t, 1, totals["cachedServers"])

	orchestration := body["orchestration"].(map[string]any)
	assert.EqualValues(t, 1, orchestration["activeRequests"])
	assert.Contains(t, body, "context")
	assert.Contains(t, body, "servers")
}

func TestSessionEndpoints(t *testing.T) {
	srv, _, _, sessions := newTestServer()

	sess := sessions.GetOrCreate("sess-1")
	sess.AddMessage(session.RoleUser, "hi")
	sessions.Update(sess)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/orchestration/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, 1, body["activeSessions"])

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/orchestration/session/sess-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeBody(t, rec)
	assert.Equal(t, "sess-1", info["sessionId"])
	assert.EqualValues(t, 1, info["messageCount"])

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/orchestration/session/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/orchestration/session/sess-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cleared", decodeBody(t, rec)["status"])

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/orchestration/session/sess-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTestServerEndpoint(t *testing.T) {
	srv, _, coord, _ := newTestServer()

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/orchestration/servers/db/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "db", body["serverName"])
	assert.Equal(t, true, body["isHealthy"])

	coord.testHealthy = false
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/orchestration/servers/db/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["isHealthy"])

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/orchestration/servers/ghost/test", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidateCacheEndpoint(t *testing.T) {
	srv, _, coord, _ := newTestServer()

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/orchestration/cache/invalidate?serverName=db", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "invalidated", body["status"])
	assert.Equal(t, "db", body["serverName"])

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/orchestration/cache/invalidate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"db", ""}, coord.invalidated)
}
