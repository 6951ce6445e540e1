package reasoner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/session"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

// ClaudeReasoner is the Anthropic-backed reasoner. Safe for concurrent use.
type ClaudeReasoner struct {
	client anthropic.Client
	model  string
}

// NewClaudeReasoner creates a reasoner over the Anthropic API.
func NewClaudeReasoner(cfg config.LLMProviderConfig) (*ClaudeReasoner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("claude: API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}

	return &ClaudeReasoner{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

func (r *ClaudeReasoner) Analyze(ctx context.Context, systemPrompt, userMessage, historyText string, _ []models.Tool, prefs *models.OrchestrationPreferences) (*Analysis, error) {
	text, tokens, err := r.complete(ctx, systemPrompt, userContent(historyText, userMessage), prefs)
	if err != nil {
		return nil, err
	}
	return &Analysis{Response: text, TokensUsed: tokens, ProviderID: "claude"}, nil
}

func (r *ClaudeReasoner) Synthesize(ctx context.Context, prompt string, _ *session.ConversationContext, prefs *models.OrchestrationPreferences) (string, error) {
	text, _, err := r.complete(ctx, "", prompt, prefs)
	return text, err
}

func (r *ClaudeReasoner) complete(ctx context.Context, system, user string, prefs *models.OrchestrationPreferences) (string, int, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: int64(maxTokensFor(prefs)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: system,
			},
		}
	}
	if temp := prefs.TemperatureOrDefault(); temp >= 0 {
		params.Temperature = anthropic.Float(temp)
	}

	msg, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return "", 0, fmt.Errorf("claude: completion failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	tokens := int(msg.Usage.InputTokens + msg.Usage.OutputTokens)
	return sb.String(), tokens, nil
}
