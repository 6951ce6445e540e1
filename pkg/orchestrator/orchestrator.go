// Package orchestrator drives the reasoning loop: admit the request,
// alternate LLM analysis with tool execution under a step budget, and
// assemble the response with its execution flow.
package orchestrator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/prompt"
	"github.com/conductor-ai/conductor/pkg/reasoner"
	"github.com/conductor-ai/conductor/pkg/session"
)

// queueFullMessage is the response text when admission times out.
const queueFullMessage = "Request queue is full."

// toolProvider is the slice of the MCP coordinator the loop uses.
type toolProvider interface {
	GetAvailableTools(ctx context.Context) []models.Tool
	ExecuteTool(ctx context.Context, call models.ToolCall) models.ExecutionStep
}

// reasonerPicker selects a reasoner per request. Satisfied by
// *reasoner.Selector.
type reasonerPicker interface {
	Pick(name string) (reasoner.Reasoner, string, error)
}

// Orchestrator runs orchestration requests. Safe for concurrent use; the
// admission semaphore bounds how many run at once.
type Orchestrator struct {
	cfg       config.OrchestrationConfig
	tools     toolProvider
	reasoners reasonerPicker
	sessions  *session.Manager
	prompts   *prompt.Builder

	sem    *semaphore.Weighted
	active atomic.Int64
	logger *slog.Logger
}

// New creates an orchestrator over the given collaborators.
func New(cfg config.OrchestrationConfig, tools toolProvider, reasoners reasonerPicker, sessions *session.Manager) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		tools:     tools,
		reasoners: reasoners,
		sessions:  sessions,
		prompts:   prompt.NewBuilder(),
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
		logger:    slog.Default(),
	}
}

// ActiveRequests reports how many requests currently hold an admission slot.
func (o *Orchestrator) ActiveRequests() int64 {
	return o.active.Load()
}

// Process runs one orchestration request to completion. Failures are
// encoded in the response status; Process itself never fails.
func (o *Orchestrator) Process(ctx context.Context, req *models.OrchestrationRequest) *models.OrchestrationResponse {
	requestID := uuid.NewString()
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	start := time.Now()
	prefs := req.Preferences

	if !o.acquireSlot(ctx, prefs.AdmissionTimeout()) {
		o.logger.Warn("Request rejected at admission",
			"request_id", requestID, "session_id", sessionID)
		return errorResponse(requestID, sessionID, queueFullMessage, nil, start)
	}
	o.active.Add(1)
	defer func() {
		o.active.Add(-1)
		o.sem.Release(1)
	}()

	resp, flow, err := o.run(ctx, requestID, sessionID, req, start)
	if err != nil {
		o.logger.Error("Orchestration failed",
			"request_id", requestID, "session_id", sessionID, "error", err)
		return errorResponse(requestID, sessionID, err.Error(), flow, start)
	}
	return resp
}

// acquireSlot waits up to the admission timeout for a concurrency slot.
// A non-positive timeout takes a free slot or gives up immediately.
func (o *Orchestrator) acquireSlot(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		return o.sem.TryAcquire(1)
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return o.sem.Acquire(waitCtx, 1) == nil
}

func (o *Orchestrator) run(ctx context.Context, requestID, sessionID string, req *models.OrchestrationRequest, start time.Time) (*models.OrchestrationResponse, []models.ExecutionStep, error) {
	prefs := req.Preferences

	sess := o.sessions.GetOrCreate(sessionID)
	sess.AddMessage(session.RoleUser, req.Message)
	// Inline preferences stick to the session; a request without them
	// inherits whatever the session holds (set here earlier or via the
	// configure endpoint).
	if prefs != nil {
		sess.Preferences = prefs
	} else {
		prefs = sess.Preferences
	}

	tools := o.tools.GetAvailableTools(ctx)
	sess.AvailableTools = tools

	llm, providerName, err := o.reasoners.Pick(prefs.Provider())
	if err != nil {
		return nil, nil, err
	}

	remaining := min(prefs.StepBudget(), o.cfg.DefaultMaxSteps)
	currentResponse := req.Message
	var flow []models.ExecutionStep
	terminal := false

	o.logger.Info("Orchestration started",
		"request_id", requestID,
		"session_id", sessionID,
		"provider", providerName,
		"tools_available", len(tools),
		"step_budget", remaining)

	for remaining > 0 {
		analyzeStart := time.Now()
		analysis, err := llm.Analyze(ctx, o.prompts.SystemPrompt(tools), currentResponse, o.prompts.HistoryText(sess), tools, prefs)
		if err != nil {
			return nil, flow, err
		}
		flow = append(flow, models.ExecutionStep{
			StepID:    uuid.NewString(),
			Type:      models.StepAIAnalysis,
			Timestamp: analyzeStart,
			Duration:  time.Since(analyzeStart),
			Input:     currentResponse,
			Output:    analysis.Response,
			Success:   true,
			Metadata: map[string]any{
				"tokensUsed": analysis.TokensUsed,
				"provider":   analysis.ProviderID,
			},
		})

		calls := extractToolCalls(analysis.Response)
		if len(calls) == 0 {
			// Terminal: the reply is the answer.
			sess.AddMessage(session.RoleAssistant, analysis.Response)
			currentResponse = analysis.Response
			terminal = true
			break
		}

		// Execute sequentially in the order given so synthesis sees a
		// deterministic result list.
		results := make([]string, 0, len(calls))
		for _, call := range calls {
			step := o.tools.ExecuteTool(ctx, call)
			flow = append(flow, step)
			sess.ExecutionHistory = append(sess.ExecutionHistory, step)
			if step.Output == "" {
				results = append(results, "No output")
			} else {
				results = append(results, step.Output)
			}
		}

		synthStart := time.Now()
		synthesized, err := llm.Synthesize(ctx, o.prompts.SynthesisPrompt(req.Message, results, prefs), sess, prefs)
		if err != nil {
			return nil, flow, err
		}
		flow = append(flow, models.ExecutionStep{
			StepID:    uuid.NewString(),
			Type:      models.StepSynthesis,
			Timestamp: synthStart,
			Duration:  time.Since(synthStart),
			Input:     currentResponse,
			Output:    synthesized,
			Success:   true,
		})
		currentResponse = synthesized
		remaining--
	}

	o.sessions.Update(sess)

	status := models.StatusPartial
	if terminal {
		status = models.StatusSuccess
	}

	resp := &models.OrchestrationResponse{
		RequestID:     requestID,
		SessionID:     sessionID,
		Status:        status,
		Response:      currentResponse,
		ExecutionFlow: flow,
		Metadata:      buildMetadata(flow, providerName, len(tools), !terminal, start),
	}

	o.logger.Info("Orchestration finished",
		"request_id", requestID,
		"session_id", sessionID,
		"status", status,
		"steps", len(flow),
		"duration", resp.Metadata.TotalDuration)
	return resp, flow, nil
}

func buildMetadata(flow []models.ExecutionStep, providerName string, toolsAvailable int, maxStepsReached bool, start time.Time) models.ResponseMetadata {
	serverSet := map[string]struct{}{}
	toolSet := map[string]struct{}{}
	var servers, toolNames []string
	for _, step := range flow {
		if step.Type != models.StepMCPCall {
			continue
		}
		if _, seen := serverSet[step.ServerName]; !seen && step.ServerName != "" {
			serverSet[step.ServerName] = struct{}{}
			servers = append(servers, step.ServerName)
		}
		if _, seen := toolSet[step.ToolName]; !seen && step.ToolName != "" {
			toolSet[step.ToolName] = struct{}{}
			toolNames = append(toolNames, step.ToolName)
		}
	}

	return models.ResponseMetadata{
		TotalDuration: time.Since(start),
		StepsExecuted: len(flow),
		ServersUsed:   servers,
		ToolsUsed:     toolNames,
		Performance: map[string]any{
			"aiProviderUsed":  providerName,
			"toolsAvailable":  toolsAvailable,
			"maxStepsReached": maxStepsReached,
		},
	}
}

func errorResponse(requestID, sessionID, message string, flow []models.ExecutionStep, start time.Time) *models.OrchestrationResponse {
	return &models.OrchestrationResponse{
		RequestID:     requestID,
		SessionID:     sessionID,
		Status:        models.StatusError,
		Response:      message,
		ExecutionFlow: flow,
		Metadata: models.ResponseMetadata{
			TotalDuration: time.Since(start),
			StepsExecuted: len(flow),
		},
	}
}
