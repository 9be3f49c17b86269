package llm

import (
	"log/slog"

	"github.com/promptlib/promptlib/internal/config"
	"github.com/promptlib/promptlib/internal/models"
)

// MockModelPrefix marks the model id of a vendor replaced by a MockCompleter.
// Prefixed ids are absent from the price table, so mock calls cost nothing.
const MockModelPrefix = "mock-"

// NewVendors builds the two optimization vendors from configuration. A vendor
// without an API key is replaced by a MockCompleter reporting
// MockModelPrefix plus the configured model.
func NewVendors(cfg config.LLMConfig, logger *slog.Logger) (vendorA, vendorB Completer) {
	if cfg.OpenAIAPIKey != "" {
		vendorA = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	} else {
		logger.Warn("OPENAI_API_KEY not set, using mock completer", "model", cfg.OpenAIModel)
		vendorA = NewMockCompleter(models.ProviderOpenAI, MockModelPrefix+cfg.OpenAIModel)
	}

	if cfg.AnthropicAPIKey != "" {
		vendorB = NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL)
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, using mock completer", "model", cfg.AnthropicModel)
		vendorB = NewMockCompleter(models.ProviderAnthropic, MockModelPrefix+cfg.AnthropicModel)
	}

	return vendorA, vendorB
}
