package reasoner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/session"
)

const defaultOpenAIModel = openai.GPT4o

// OpenAIReasoner is the OpenAI-backed reasoner. Safe for concurrent use.
type OpenAIReasoner struct {
	client *openai.Client
	model  string
}

// NewOpenAIReasoner creates a reasoner over the OpenAI chat completions API.
func NewOpenAIReasoner(cfg config.LLMProviderConfig) (*OpenAIReasoner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIReasoner{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (r *OpenAIReasoner) Analyze(ctx context.Context, systemPrompt, userMessage, historyText string, _ []models.Tool, prefs *models.OrchestrationPreferences) (*Analysis, error) {
	text, tokens, err := r.complete(ctx, systemPrompt, userContent(historyText, userMessage), prefs)
	if err != nil {
		return nil, err
	}
	return &Analysis{Response: text, TokensUsed: tokens, ProviderID: "openai"}, nil
}

func (r *OpenAIReasoner) Synthesize(ctx context.Context, prompt string, _ *session.ConversationContext, prefs *models.OrchestrationPreferences) (string, error) {
	text, _, err := r.complete(ctx, "", prompt, prefs)
	return text, err
}

func (r *OpenAIReasoner) complete(ctx context.Context, system, user string, prefs *models.OrchestrationPreferences) (string, int, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	req := openai.ChatCompletionRequest{
		Model:     r.model,
		Messages:  messages,
		MaxTokens: maxTokensFor(prefs),
	}
	if temp := prefs.TemperatureOrDefault(); temp >= 0 {
		req.Temperature = float32(temp)
		if req.Temperature == 0 {
			// The request field carries omitempty, which would drop an
			// explicit 0 from the wire body and let the provider default
			// apply. Send the smallest nonzero value instead.
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("openai: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", 0, errors.New("openai: completion returned no choices")
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}
