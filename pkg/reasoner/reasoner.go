// Package reasoner abstracts the LLM providers behind a single interface:
// analyze a user message against the tool catalog, and synthesize tool
// results into a response. Providers are selected per request, falling back
// to the configured default.
package reasoner

import (
	"context"
	"errors"
	"fmt"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/models"
	"github.com/conductor-ai/conductor/pkg/session"
)

// defaultMaxTokens caps generation when the request does not ask for a limit.
const defaultMaxTokens = 4096

// ErrUnknownProvider is returned when a request names a provider that is not
// configured.
var ErrUnknownProvider = errors.New("unknown AI provider")

// Analysis is the result of one analyze turn.
type Analysis struct {
	Response   string
	TokensUsed int
	ProviderID string
}

// Reasoner is one LLM provider. Implementations are opaque to the
// orchestration core; it must not depend on provider-specific fields.
type Reasoner interface {
	// Analyze runs one reasoning turn over the user message with the tool
	// catalog in the system prompt and the conversation digest as context.
	Analyze(ctx context.Context, systemPrompt, userMessage, historyText string, tools []models.Tool, prefs *models.OrchestrationPreferences) (*Analysis, error)

	// Synthesize turns a synthesis prompt into the next response text.
	Synthesize(ctx context.Context, prompt string, sess *session.ConversationContext, prefs *models.OrchestrationPreferences) (string, error)
}

// Selector holds the configured reasoners and picks one per request.
type Selector struct {
	defaultProvider string
	reasoners       map[string]Reasoner
}

// NewSelector builds a reasoner for every configured provider. Provider keys
// must be one of claude, openai, gemini.
func NewSelector(ctx context.Context, cfg config.LLMConfig) (*Selector, error) {
	reasoners := make(map[string]Reasoner, len(cfg.Providers))
	for name, providerCfg := range cfg.Providers {
		var (
			r   Reasoner
			err error
		)
		switch name {
		case "claude":
			r, err = NewClaudeReasoner(providerCfg)
		case "openai":
			r, err = NewOpenAIReasoner(providerCfg)
		case "gemini":
			r, err = NewGeminiReasoner(ctx, providerCfg)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownProvider, name)
		}
		if err != nil {
			return nil, fmt.Errorf("configure provider %q: %w", name, err)
		}
		reasoners[name] = r
	}

	if _, ok := reasoners[cfg.DefaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q is not configured", cfg.DefaultProvider)
	}

	return &Selector{
		defaultProvider: cfg.DefaultProvider,
		reasoners:       reasoners,
	}, nil
}

// Pick returns the reasoner for the named provider, or the default when the
// name is empty.
func (s *Selector) Pick(name string) (Reasoner, string, error) {
	if name == "" {
		name = s.defaultProvider
	}
	r, ok := s.reasoners[name]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return r, name, nil
}

// Providers returns the configured provider names and the default.
func (s *Selector) Providers() (names []string, defaultProvider string) {
	for name := range s.reasoners {
		names = append(names, name)
	}
	return names, s.defaultProvider
}

// userContent folds the conversation digest into the user turn so every
// provider sees the same context regardless of its message model.
func userContent(historyText, userMessage string) string {
	if historyText == "" {
		return userMessage
	}
	return "Conversation so far:\n" + historyText + "\n\n" + userMessage
}

// maxTokensFor resolves the generation cap for a request.
func maxTokensFor(prefs *models.OrchestrationPreferences) int {
	if n := prefs.MaxTokensOrDefault(); n > 0 {
		return n
	}
	return defaultMaxTokens
}
