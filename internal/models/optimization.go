package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptimizationVersion is a persisted history row keyed by (PromptID, Version, Provider).
// Both legs of one comparison share the same Version.
type OptimizationVersion struct {
	ID           string          `json:"id"`
	PromptID     string          `json:"promptId"`
	Version      int             `json:"version"`
	Provider     Provider        `json:"provider"`
	Model        string          `json:"model"`
	OutputText   string          `json:"outputText"`
	TokensInput  int             `json:"tokensInput"`
	TokensOutput int             `json:"tokensOutput"`
	CostUSD      decimal.Decimal `json:"costUsd"`
	LatencyMs    int             `json:"latencyMs"`
	CreatedBy    string          `json:"createdBy"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// OptimizationAttempt is the transient outcome of one vendor leg.
type OptimizationAttempt struct {
	Provider         Provider        `json:"provider"`
	Model            string          `json:"model"`
	OutputText       *string         `json:"outputText,omitempty"`
	TokensInput      int             `json:"tokensInput"`
	TokensOutput     int             `json:"tokensOutput"`
	CostUSD          decimal.Decimal `json:"costUsd"`
	LatencyMs        int             `json:"latencyMs"`
	Succeeded        bool            `json:"succeeded"`
	ErrorMessage     *string         `json:"errorMessage,omitempty"`
	HistoryPersisted bool            `json:"historyPersisted"`
}

// ErrorText returns the leg's error message, or "" when it succeeded.
func (a *OptimizationAttempt) ErrorText() string {
	if a == nil || a.ErrorMessage == nil {
		return ""
	}
	return *a.ErrorMessage
}
