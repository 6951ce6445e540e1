package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/session"
)

func TestSystemPromptToolCatalog(t *testing.T) {
	b := NewBuilder()
	prompt := b.SystemPrompt([]models.Tool{
		{Name: "query", Description: "Run a SQL query", ServerName: "database"},
		{Name: "schema", Description: "Describe a table", ServerName: "database"},
		{Name: "search", Description: "Search documents", ServerName: "docs"},
	})

	assert.Contains(t, prompt, "Server: database\n")
	assert.Contains(t, prompt, "  - query: Run a SQL query\n")
	assert.Contains(t, prompt, "  - schema: Describe a table\n")
	assert.Contains(t, prompt, "Server: docs\n")
	assert.Contains(t, prompt, "  - search: Search documents\n")
	// Each server header appears exactly once.
	assert.Equal(t, 1, strings.Count(prompt, "Server: database"))

	// Envelope directive.
	assert.Contains(t, prompt, `"action": "tool_call"`)
	assert.Contains(t, prompt, `"reasoning"`)
	assert.Contains(t, prompt, `"tool_calls"`)
	assert.Contains(t, prompt, `"server_name"`)
	assert.Contains(t, prompt, `"tool_name"`)
	assert.Contains(t, prompt, "plain prose")
}

func TestSystemPromptNoTools(t *testing.T) {
	b := NewBuilder()
	prompt := b.SystemPrompt(nil)
	assert.Contains(t, prompt, "No tools are currently available")
	assert.NotContains(t, prompt, "Server: ")
}

func TestSynthesisPromptFormats(t *testing.T) {
	b := NewBuilder()
	results := []string{"result one", "result two"}

	strPtr := func(s string) *models.OrchestrationPreferences {
		return &models.OrchestrationPreferences{ResponseFormat: s}
	}

	t.Run("summary", func(t *testing.T) {
		p := b.SynthesisPrompt("what happened?", results, strPtr(models.FormatSummary))
		assert.Contains(t, p, "what happened?")
		assert.Contains(t, p, "- result one\n")
		assert.Contains(t, p, "- result two\n")
		assert.Contains(t, p, "concise summary")
	})

	t.Run("detailed", func(t *testing.T) {
		p := b.SynthesisPrompt("what happened?", results, strPtr(models.FormatDetailed))
		assert.Contains(t, p, "1. result one\n")
		assert.Contains(t, p, "2. result two\n")
		assert.Contains(t, p, "Summary of findings")
		assert.Contains(t, p, "Key insights")
		assert.Contains(t, p, "Recommendations")
		assert.Contains(t, p, "Technical details")
	})

	t.Run("raw", func(t *testing.T) {
		p := b.SynthesisPrompt("what happened?", results, strPtr(models.FormatRaw))
		assert.Contains(t, p, "raw results")
		assert.Contains(t, p, "1. result one\n")
	})

	t.Run("unknown format falls back to neutral", func(t *testing.T) {
		p := b.SynthesisPrompt("what happened?", results, strPtr("xml"))
		assert.Contains(t, p, "answer the user's request")
		assert.NotContains(t, p, "Key insights")
	})

	t.Run("nil preferences default to detailed", func(t *testing.T) {
		p := b.SynthesisPrompt("what happened?", results, nil)
		assert.Contains(t, p, "Summary of findings")
	})
}

func TestHistoryText(t *testing.T) {
	b := NewBuilder()

	t.Run("empty context", func(t *testing.T) {
		assert.Empty(t, b.HistoryText(nil))
		assert.Empty(t, b.HistoryText(&session.ConversationContext{}))
	})

	t.Run("roles capitalized in order", func(t *testing.T) {
		ctx := &session.ConversationContext{}
		ctx.AddMessage(session.RoleUser, "hello")
		ctx.AddMessage(session.RoleAssistant, "hi there")

		assert.Equal(t, "User: hello\nAssistant: hi there", b.HistoryText(ctx))
	})

	t.Run("windowed to last 10", func(t *testing.T) {
		ctx := &session.ConversationContext{}
		for i := 0; i < 15; i++ {
			ctx.AddMessage(session.RoleUser, fmt.Sprintf("msg-%d", i))
		}

		text := b.HistoryText(ctx)
		lines := strings.Split(text, "\n")
		assert.Len(t, lines, 10)
		assert.Equal(t, "User: msg-5", lines[0])
		assert.Equal(t, "User: msg-14", lines[9])
	})
}
