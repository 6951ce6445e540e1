package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToolCalls(t *testing.T) {
	t.Run("plain prose", func(t *testing.T) {
		assert.Empty(t, extractToolCalls("The capital of France is Paris."))
	})

	t.Run("mentions action but no directive", func(t *testing.T) {
		assert.Empty(t, extractToolCalls("No action needed here, the tool_call format is unnecessary."))
	})

	t.Run("valid envelope", func(t *testing.T) {
		calls := extractToolCalls(`{
			"action": "tool_call",
			"reasoning": "need to query the database",
			"tool_calls": [
				{"server_name": "db", "tool_name": "query", "arguments": {"sql": "SELECT 1"}}
			]
		}`)
		require.Len(t, calls, 1)
		assert.Equal(t, "db", calls[0].ServerName)
		assert.Equal(t, "query", calls[0].ToolName)
		assert.Equal(t, "SELECT 1", calls[0].Arguments["sql"])
	})

	t.Run("envelope wrapped in prose and fences", func(t *testing.T) {
		calls := extractToolCalls("I'll query the database.\n```json\n" +
			`{"action": "tool_call", "reasoning": "r", "tool_calls": [{"server_name": "db", "tool_name": "query"}]}` +
			"\n```\nLet me know if you need more.")
		require.Len(t, calls, 1)
		assert.Equal(t, "db", calls[0].ServerName)
	})

	t.Run("missing arguments default to empty map", func(t *testing.T) {
		calls := extractToolCalls(`{"action": "tool_call", "tool_calls": [{"server_name": "s", "tool_name": "t"}]}`)
		require.Len(t, calls, 1)
		require.NotNil(t, calls[0].Arguments)
		assert.Empty(t, calls[0].Arguments)
	})

	t.Run("other action", func(t *testing.T) {
		assert.Empty(t, extractToolCalls(`{"action": "tool_call_plan", "tool_calls": [{"server_name": "s", "tool_name": "t"}]}`))
	})

	t.Run("empty tool_calls array", func(t *testing.T) {
		assert.Empty(t, extractToolCalls(`{"action": "tool_call", "tool_calls": []}`))
	})

	t.Run("malformed JSON", func(t *testing.T) {
		assert.Empty(t, extractToolCalls(`{"action": "tool_call", "tool_calls": [`))
	})

	t.Run("malformed entries skipped, valid kept", func(t *testing.T) {
		calls := extractToolCalls(`{
			"action": "tool_call",
			"tool_calls": [
				"not an object",
				{"server_name": "ok", "tool_name": "fine"},
				{"server_name": 42, "tool_name": "bad-type"}
			]
		}`)
		require.Len(t, calls, 1)
		assert.Equal(t, "ok", calls[0].ServerName)
	})

	t.Run("multiple calls preserve order", func(t *testing.T) {
		calls := extractToolCalls(`{"action": "tool_call", "tool_calls": [
			{"server_name": "a", "tool_name": "first"},
			{"server_name": "b", "tool_name": "second"}
		]}`)
		require.Len(t, calls, 2)
		assert.Equal(t, "first", calls[0].ToolName)
		assert.Equal(t, "second", calls[1].ToolName)
	})
}
