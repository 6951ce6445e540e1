package orchestrator

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/conductor-ai/conductor/pkg/models"
)

// actionToolCall is the envelope action that marks an LLM reply as a tool
// call directive.
const actionToolCall = "tool_call"

type toolCallEnvelope struct {
	Action    string            `json:"action"`
	Reasoning string            `json:"reasoning"`
	ToolCalls []json.RawMessage `json:"tool_calls"`
}

// extractToolCalls parses an LLM reply for the tool-call envelope and
// returns the requested calls. Malformed input never fails: anything that
// does not parse as a well-formed directive yields an empty list, and
// individual malformed entries are skipped with a warning.
func extractToolCalls(text string) []models.ToolCall {
	// Fast reject before attempting any JSON work.
	if !strings.Contains(text, "action") || !strings.Contains(text, actionToolCall) {
		return nil
	}

	// The directive may be wrapped in prose or code fences; take the
	// substring from the first { to the last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}

	var env toolCallEnvelope
	if err := json.Unmarshal([]byte(text[start:end+1]), &env); err != nil {
		return nil
	}
	if env.Action != actionToolCall {
		return nil
	}

	calls := make([]models.ToolCall, 0, len(env.ToolCalls))
	for i, raw := range env.ToolCalls {
		var call models.ToolCall
		if err := json.Unmarshal(raw, &call); err != nil {
			slog.Warn("Skipping malformed tool call entry", "index", i, "error", err)
			continue
		}
		if call.Arguments == nil {
			call.Arguments = map[string]any{}
		}
		calls = append(calls, call)
	}
	return calls
}
