package reasoner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/session"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiReasoner is the Google Gemini-backed reasoner. Safe for concurrent use.
type GeminiReasoner struct {
	client *genai.Client
	model  string
}

// NewGeminiReasoner creates a reasoner over the Gemini API.
func NewGeminiReasoner(ctx context.Context, cfg config.LLMProviderConfig) (*GeminiReasoner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiReasoner{client: client, model: model}, nil
}

func (r *GeminiReasoner) Analyze(ctx context.Context, systemPrompt, userMessage, historyText string, _ []models.Tool, prefs *models.OrchestrationPreferences) (*Analysis, error) {
	text, tokens, err := r.complete(ctx, systemPrompt, userContent(historyText, userMessage), prefs)
	if err != nil {
		return nil, err
	}
	return &Analysis{Response: text, TokensUsed: tokens, ProviderID: "gemini"}, nil
}

func (r *GeminiReasoner) Synthesize(ctx context.Context, prompt string, _ *session.ConversationContext, prefs *models.OrchestrationPreferences) (string, error) {
	text, _, err := r.complete(ctx, "", prompt, prefs)
	return text, err
}

func (r *GeminiReasoner) complete(ctx context.Context, system, user string, prefs *models.OrchestrationPreferences) (string, int, error) {
	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: user}},
		},
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokensFor(prefs)),
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if temp := prefs.TemperatureOrDefault(); temp >= 0 {
		t := float32(temp)
		cfg.Temperature = &t
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, cfg)
	if err != nil {
		return "", 0, fmt.Errorf("gemini: completion failed: %w", err)
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return sb.String(), tokens, nil
}
