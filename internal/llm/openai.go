package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/promptlib/promptlib/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client for model. An empty baseURL uses the public API.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Provider implements Completer.
func (c *OpenAIClient) Provider() models.Provider { return models.ProviderOpenAI }

// Model implements Completer.
func (c *OpenAIClient) Model() string { return c.model }

// Complete implements Completer.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	request := openai.ChatCompletionRequest{
		Model: c.model,
	}

	// Reasoning models reject system messages, so the instruction is folded into the user turn.
	if isReasoningModel(c.model) || req.SystemPrompt == "" {
		content := req.Prompt
		if req.SystemPrompt != "" {
			content = req.SystemPrompt + "\n\n" + req.Prompt
		}
		request.Messages = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: content},
		}
	} else {
		request.Messages = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		}
	}

	if req.MaxOutputTokens > 0 {
		request.MaxCompletionTokens = req.MaxOutputTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}

	return &Completion{
		Text:         text,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        model,
	}, nil
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}
