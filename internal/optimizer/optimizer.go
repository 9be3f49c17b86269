// Package optimizer runs prompt optimizations against the configured LLM
// vendors and records their usage and history.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/promptlib/promptlib/internal/inference"
	"github.com/promptlib/promptlib/internal/llm"
	"github.com/promptlib/promptlib/internal/models"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrAllProvidersFailed is returned when no vendor produced an output.
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrEmptyPrompt is returned when there is no text to optimize.
	ErrEmptyPrompt = errors.New("prompt text is required")
	// ErrUnknownProvider is returned for a provider with no configured vendor.
	ErrUnknownProvider = errors.New("unknown provider")
)

// PromptStore is the part of the prompt repository the orchestrator writes to.
type PromptStore interface {
	IncrementOptimizationCount(ctx context.Context, promptID string) error
}

// HistoryStore persists optimization versions.
type HistoryStore interface {
	Insert(ctx context.Context, v models.OptimizationVersion) error
}

// UsageRecorder records one usage log per vendor call.
type UsageRecorder interface {
	LogCall(ctx context.Context, params inference.CallParams) (models.UsageLog, error)
}

// Config tunes vendor calls.
type Config struct {
	MaxOutputTokens int
	// Timeout bounds each vendor call. Zero leaves the SDK default.
	Timeout time.Duration
}

// Orchestrator fans a prompt out to two vendors and joins the results.
type Orchestrator struct {
	vendorA llm.Completer
	vendorB llm.Completer
	prompts PromptStore
	history HistoryStore
	usage   UsageRecorder
	cfg     Config
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator. vendorA and vendorB must report different providers.
func NewOrchestrator(vendorA, vendorB llm.Completer, prompts PromptStore, history HistoryStore, usage UsageRecorder, cfg Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		vendorA: vendorA,
		vendorB: vendorB,
		prompts: prompts,
		history: history,
		usage:   usage,
		cfg:     cfg,
		logger:  logger,
	}
}

// Comparison is the joined outcome of both legs.
type Comparison struct {
	Version int                         `json:"version"`
	ResultA *models.OptimizationAttempt `json:"resultA"`
	ResultB *models.OptimizationAttempt `json:"resultB"`
}

// Succeeded reports whether at least one leg produced an output.
func (c *Comparison) Succeeded() bool {
	return c.ResultA.Succeeded || c.ResultB.Succeeded
}

// Single is the outcome of a one-vendor optimization.
type Single struct {
	Version int                         `json:"version"`
	Result  *models.OptimizationAttempt `json:"result"`
}

// CompareBoth optimizes promptText with both vendors concurrently. The caller
// must already have verified that userID owns prompt.
//
// A failing leg never cancels its sibling. Each leg's usage log is written as
// soon as that leg finishes. Successful legs are stored as history rows
// sharing one version number. When both legs fail the comparison is still
// returned, together with ErrAllProvidersFailed.
func (o *Orchestrator) CompareBoth(ctx context.Context, prompt models.Prompt, promptText, userID string) (*Comparison, error) {
	if strings.TrimSpace(promptText) == "" {
		return nil, ErrEmptyPrompt
	}

	// Vendor calls outlive the HTTP request.
	ctx = context.WithoutCancel(ctx)
	version := prompt.NextOptimizationVersion()

	results := make([]*models.OptimizationAttempt, 2)
	var g errgroup.Group
	for i, vendor := range []llm.Completer{o.vendorA, o.vendorB} {
		g.Go(func() error {
			results[i] = o.runLeg(ctx, vendor, prompt.ID, promptText, userID)
			return nil
		})
	}
	_ = g.Wait()

	comparison := &Comparison{Version: version, ResultA: results[0], ResultB: results[1]}

	if !comparison.Succeeded() {
		o.logger.Warn("all optimization providers failed",
			"prompt_id", prompt.ID,
			"version", version,
			"error_a", comparison.ResultA.ErrorText(),
			"error_b", comparison.ResultB.ErrorText())
		return comparison, ErrAllProvidersFailed
	}

	o.persist(ctx, prompt.ID, version, userID, comparison.ResultA, comparison.ResultB)

	o.logger.Info("prompt optimization comparison completed",
		"prompt_id", prompt.ID,
		"version", version,
		"succeeded_a", comparison.ResultA.Succeeded,
		"succeeded_b", comparison.ResultB.Succeeded)

	return comparison, nil
}

// Optimize runs a single vendor leg with the same pricing, usage logging and
// history as CompareBoth.
func (o *Orchestrator) Optimize(ctx context.Context, prompt models.Prompt, promptText, userID string, provider models.Provider) (*Single, error) {
	if strings.TrimSpace(promptText) == "" {
		return nil, ErrEmptyPrompt
	}

	vendor := o.vendorFor(provider)
	if vendor == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	ctx = context.WithoutCancel(ctx)
	version := prompt.NextOptimizationVersion()
	result := o.runLeg(ctx, vendor, prompt.ID, promptText, userID)
	single := &Single{Version: version, Result: result}

	if !result.Succeeded {
		return single, fmt.Errorf("%w: %s", ErrAllProvidersFailed, result.ErrorText())
	}

	o.persist(ctx, prompt.ID, version, userID, result)
	return single, nil
}

// Providers lists the configured vendors in leg order.
func (o *Orchestrator) Providers() []models.Provider {
	return []models.Provider{o.vendorA.Provider(), o.vendorB.Provider()}
}

func (o *Orchestrator) vendorFor(provider models.Provider) llm.Completer {
	for _, v := range []llm.Completer{o.vendorA, o.vendorB} {
		if v.Provider() == provider {
			return v
		}
	}
	return nil
}

// runLeg calls one vendor and converts every failure, including panics, into
// an unsuccessful attempt.
func (o *Orchestrator) runLeg(ctx context.Context, vendor llm.Completer, promptID, promptText, userID string) *models.OptimizationAttempt {
	system, user := BuildOptimizationPrompt(promptText)
	req := llm.CompletionRequest{
		SystemPrompt:    system,
		Prompt:          user,
		MaxOutputTokens: o.cfg.MaxOutputTokens,
	}

	callCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := safeComplete(callCtx, vendor, req)
	latency := time.Since(start)

	if err == nil && strings.TrimSpace(completion.Text) == "" {
		err = fmt.Errorf("%s: %w", vendor.Provider(), llm.ErrEmptyResponse)
	}

	model := vendor.Model()
	params := inference.CallParams{
		UserID:    userID,
		PromptID:  promptID,
		Provider:  vendor.Provider(),
		Model:     model,
		Operation: models.OperationOptimize,
		Latency:   latency,
		Err:       err,
	}
	if err == nil {
		if completion.Model != "" {
			model = completion.Model
			params.Model = model
		}
		params.InputTokens = completion.InputTokens
		params.OutputTokens = completion.OutputTokens
	}

	// Store errors are logged by the recorder; the attempt is still returned.
	record, _ := o.usage.LogCall(ctx, params)

	attempt := &models.OptimizationAttempt{
		Provider:  vendor.Provider(),
		Model:     model,
		LatencyMs: record.LatencyMs,
		CostUSD:   record.CostUSD,
	}

	if err != nil {
		o.logger.Error("optimization provider failed",
			"provider", vendor.Provider(),
			"model", model,
			"prompt_id", promptID,
			"latency_ms", record.LatencyMs,
			"error", err)
		msg := err.Error()
		attempt.ErrorMessage = &msg
		return attempt
	}

	text := strings.TrimSpace(completion.Text)
	attempt.Succeeded = true
	attempt.OutputText = &text
	attempt.TokensInput = record.InputTokens
	attempt.TokensOutput = record.OutputTokens
	return attempt
}

func safeComplete(ctx context.Context, vendor llm.Completer, req llm.CompletionRequest) (completion *llm.Completion, err error) {
	defer func() {
		if r := recover(); r != nil {
			completion = nil
			err = fmt.Errorf("%s provider panicked: %v", vendor.Provider(), r)
		}
	}()
	completion, err = vendor.Complete(ctx, req)
	if err == nil && completion == nil {
		err = fmt.Errorf("%s: %w", vendor.Provider(), llm.ErrEmptyResponse)
	}
	return completion, err
}

// persist writes a history row for each successful attempt and bumps the
// prompt's counter. Failures are logged and reflected in HistoryPersisted; the
// attempts themselves are never discarded.
func (o *Orchestrator) persist(ctx context.Context, promptID string, version int, userID string, attempts ...*models.OptimizationAttempt) {
	for _, attempt := range attempts {
		if !attempt.Succeeded {
			continue
		}

		row := models.OptimizationVersion{
			ID:           uuid.NewString(),
			PromptID:     promptID,
			Version:      version,
			Provider:     attempt.Provider,
			Model:        attempt.Model,
			OutputText:   *attempt.OutputText,
			TokensInput:  attempt.TokensInput,
			TokensOutput: attempt.TokensOutput,
			CostUSD:      attempt.CostUSD,
			LatencyMs:    attempt.LatencyMs,
			CreatedBy:    userID,
			CreatedAt:    time.Now().UTC(),
		}

		if err := o.history.Insert(ctx, row); err != nil {
			o.logger.Error("failed to persist optimization version",
				"prompt_id", promptID,
				"version", version,
				"provider", attempt.Provider,
				"error", err)
			continue
		}
		attempt.HistoryPersisted = true
	}

	if err := o.prompts.IncrementOptimizationCount(ctx, promptID); err != nil {
		o.logger.Error("failed to increment optimization count",
			"prompt_id", promptID,
			"version", version,
			"error", err)
	}
}
