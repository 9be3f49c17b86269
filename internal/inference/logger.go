package inference

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/promptlib/promptlib/internal/models"
	"github.com/promptlib/promptlib/internal/pricing"
	"github.com/shopspring/decimal"
)

// UsageStore persists usage records.
type UsageStore interface {
	Insert(ctx context.Context, log models.UsageLog) error
}

// Observer receives one event per LLM call, for metrics.
type Observer interface {
	ObserveCall(provider string, success bool, latency time.Duration, inputTokens, outputTokens int, cost decimal.Decimal)
}

// Logger prices LLM calls and records each one as a usage log.
type Logger struct {
	store      UsageStore
	calculator *pricing.Calculator
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
}

// NewLogger creates a new inference logger. observer may be nil.
func NewLogger(store UsageStore, calculator *pricing.Calculator, observer Observer, logger *slog.Logger) *Logger {
	return &Logger{
		store:      store,
		calculator: calculator,
		observer:   observer,
		logger:     logger,
		now:        time.Now,
	}
}

// CallParams describes one finished LLM call.
type CallParams struct {
	UserID       string
	PromptID     string
	Provider     models.Provider
	Model        string
	Operation    models.OperationType
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
	Err          error
}

// LogCall builds the usage record for a call and stores it synchronously.
// A failed call is recorded with zero tokens and zero cost. The record is
// returned even when storing it fails, together with the store error.
func (l *Logger) LogCall(ctx context.Context, params CallParams) (models.UsageLog, error) {
	record := models.UsageLog{
		ID:            uuid.NewString(),
		UserID:        params.UserID,
		Provider:      params.Provider,
		Model:         params.Model,
		OperationType: params.Operation,
		CostUSD:       decimal.Zero,
		LatencyMs:     int(max(params.Latency.Milliseconds(), 0)),
		Success:       params.Err == nil,
		CreatedAt:     l.now().UTC(),
	}
	if params.PromptID != "" {
		promptID := params.PromptID
		record.PromptID = &promptID
	}

	if params.Err != nil {
		msg := params.Err.Error()
		record.ErrorMessage = &msg
	} else {
		record.InputTokens = max(params.InputTokens, 0)
		record.OutputTokens = max(params.OutputTokens, 0)
		record.CostUSD = l.calculator.Cost(params.Model, record.InputTokens, record.OutputTokens)
	}
	record.TotalTokens = record.InputTokens + record.OutputTokens

	if l.observer != nil {
		l.observer.ObserveCall(string(record.Provider), record.Success, params.Latency,
			record.InputTokens, record.OutputTokens, record.CostUSD)
	}

	if err := l.store.Insert(ctx, record); err != nil {
		l.logger.Error("failed to log inference call",
			"provider", record.Provider,
			"model", record.Model,
			"operation", record.OperationType,
			"error", err)
		return record, err
	}

	l.logger.Debug("inference call logged",
		"provider", record.Provider,
		"model", record.Model,
		"success", record.Success,
		"total_tokens", record.TotalTokens,
		"cost_usd", record.CostUSD.String(),
		"latency_ms", record.LatencyMs)

	return record, nil
}
