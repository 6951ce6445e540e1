// Package prompt renders the text fed to reasoners: the system prompt
// advertising the tool catalog, the per-format synthesis prompts, and the
// conversation history digest.
package prompt

import (
	"fmt"
	"strings"

	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/session"
)

// historyWindow bounds how many trailing messages the history digest carries.
const historyWindow = 10

// Builder renders prompts. Stateless; safe for concurrent use.
type Builder struct{}

// NewBuilder creates a prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// SystemPrompt renders the role statement, the tool catalog grouped by
// server, and the tool-call envelope directive.
func (b *Builder) SystemPrompt(tools []models.Tool) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant that orchestrates tools exposed by MCP servers to answer user requests.\n\n")

	if len(tools) == 0 {
		sb.WriteString("No tools are currently available. Answer from your own knowledge.\n\n")
	} else {
		sb.WriteString("Available tools:\n\n")
		// Tools arrive sorted by (server, name); emit a header per server group.
		currentServer := ""
		for _, tool := range tools {
			if tool.ServerName != currentServer {
				if currentServer != "" {
					sb.WriteString("\n")
				}
				currentServer = tool.ServerName
				sb.WriteString("Server: " + tool.ServerName + "\n")
			}
			sb.WriteString("  - " + tool.Name + ": " + tool.Description + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`When the request requires tools, reply with ONLY a JSON object of this exact shape:
{
  "action": "tool_call",
  "reasoning": "why these tools are needed",
  "tool_calls": [
    {"server_name": "<server>", "tool_name": "<tool>", "arguments": {}}
  ]
}

When no tools are needed, reply in plain prose with your answer.`)
	return sb.String()
}

// SynthesisPrompt renders the instruction that turns tool results into the
// next response, selected by the requested response format.
func (b *Builder) SynthesisPrompt(originalMessage string, toolResults []string, prefs *models.OrchestrationPreferences) string {
	switch prefs.Format() {
	case models.FormatSummary:
		return fmt.Sprintf(
			"The user asked: %s\n\nTool results:\n%s\nProvide a concise summary answering the user's request. Keep it brief and focus on the key findings.",
			originalMessage, bulleted(toolResults))
	case models.FormatDetailed:
		return fmt.Sprintf(
			"The user asked: %s\n\nTool results:\n%s\nProvide a comprehensive response with these sections:\n1. Summary of findings\n2. Key insights\n3. Recommendations\n4. Technical details\n\nGround every statement in the tool results above.",
			originalMessage, numbered(toolResults))
	case models.FormatRaw:
		return fmt.Sprintf(
			"The user asked: %s\n\nTool results:\n%s\nFormat the raw results for the user without interpretation.",
			originalMessage, numbered(toolResults))
	default:
		return fmt.Sprintf(
			"The user asked: %s\n\nTool results:\n%s\nUse the results to answer the user's request.",
			originalMessage, bulleted(toolResults))
	}
}

// HistoryText renders the trailing conversation window, one line per
// message as "<Role>: <content>" with the role capitalized.
func (b *Builder) HistoryText(ctx *session.ConversationContext) string {
	if ctx == nil || len(ctx.Messages) == 0 {
		return ""
	}

	messages := ctx.Messages
	if len(messages) > historyWindow {
		messages = messages[len(messages)-historyWindow:]
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, capitalize(msg.Role)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func bulleted(results []string) string {
	var sb strings.Builder
	for _, r := range results {
		sb.WriteString("- " + r + "\n")
	}
	return sb.String()
}

func numbered(results []string) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}
	return sb.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
