package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/promptlib/promptlib/internal/models"
)

// MockCompleter is a deterministic Completer that needs no vendor account.
// It stands in for a vendor whose API key is not configured.
type MockCompleter struct {
	provider models.Provider
	model    string
	Err      error
}

// NewMockCompleter creates a mock for provider reporting model.
func NewMockCompleter(provider models.Provider, model string) *MockCompleter {
	return &MockCompleter{provider: provider, model: model}
}

// Provider implements Completer.
func (m *MockCompleter) Provider() models.Provider { return m.provider }

// Model implements Completer.
func (m *MockCompleter) Model() string { return m.model }

// Complete tidies whitespace in the prompt and reports word counts as tokens.
func (m *MockCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}

	original := extractOriginal(req.Prompt)
	if strings.TrimSpace(original) == "" {
		return nil, fmt.Errorf("mock %s: %w", m.provider, ErrEmptyResponse)
	}

	text := strings.Join(strings.Fields(original), " ")
	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "?") {
		text += "."
	}
	text = "Be specific and concise. " + text

	return &Completion{
		Text:         text,
		InputTokens:  len(strings.Fields(req.SystemPrompt)) + len(strings.Fields(req.Prompt)),
		OutputTokens: len(strings.Fields(text)),
		Model:        m.model,
	}, nil
}

// extractOriginal pulls the user's prompt back out of the optimization
// template when present.
func extractOriginal(prompt string) string {
	const open, end = "<prompt>", "</prompt>"
	start := strings.Index(prompt, open)
	stop := strings.LastIndex(prompt, end)
	if start >= 0 && stop > start {
		return prompt[start+len(open) : stop]
	}
	return prompt
}
