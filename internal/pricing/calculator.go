package pricing

import (
	"log/slog"

	"github.com/shopspring/decimal"
)

// Calculator prices LLM calls. It is safe for concurrent use.
type Calculator struct {
	table  *Table
	logger *slog.Logger
}

// NewCalculator creates a calculator over table. A nil table means the built-in one.
func NewCalculator(table *Table, logger *slog.Logger) *Calculator {
	if table == nil {
		table = Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{table: table, logger: logger}
}

// Cost returns inputTokens*inputPrice + outputTokens*outputPrice in USD.
// Unknown models cost zero and are reported with a warning so an unpriced
// model never blocks a user-facing call. Negative counts are treated as zero.
func (c *Calculator) Cost(model string, inputTokens, outputTokens int) decimal.Decimal {
	price, ok := c.table.Lookup(model)
	if !ok {
		c.logger.Warn("no price configured for model, recording zero cost",
			"model", model,
			"input_tokens", inputTokens,
			"output_tokens", outputTokens)
		return decimal.Zero
	}

	in := decimal.NewFromInt(int64(max(inputTokens, 0)))
	out := decimal.NewFromInt(int64(max(outputTokens, 0)))

	return in.Mul(price.InputPerMillion).Add(out.Mul(price.OutputPerMillion)).Shift(-6)
}

// Known reports whether model has a price.
func (c *Calculator) Known(model string) bool {
	_, ok := c.table.Lookup(model)
	return ok
}
