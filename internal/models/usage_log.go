package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Valid reports whether p is a supported vendor.
func (p Provider) Valid() bool {
	return p == ProviderOpenAI || p == ProviderAnthropic
}

// OperationType classifies what an LLM call was made for.
type OperationType string

const (
	OperationOptimize OperationType = "optimize"
	OperationGenerate OperationType = "generate"
	OperationAnalyze  OperationType = "analyze"
	OperationChat     OperationType = "chat"
)

// UsageLog is one row per LLM API invocation. Rows are append-only.
//
// TotalTokens always equals InputTokens+OutputTokens, and a failed call has
// zero tokens and zero cost.
type UsageLog struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"userId" db:"user_id"`
	PromptID      *string         `json:"promptId,omitempty" db:"prompt_id"`
	Provider      Provider        `json:"provider" db:"provider"`
	Model         string          `json:"model" db:"model"`
	OperationType OperationType   `json:"operationType" db:"operation_type"`
	InputTokens   int             `json:"inputTokens" db:"input_tokens"`
	OutputTokens  int             `json:"outputTokens" db:"output_tokens"`
	TotalTokens   int             `json:"totalTokens" db:"total_tokens"`
	CostUSD       decimal.Decimal `json:"costUsd" db:"cost_usd"`
	LatencyMs     int             `json:"latencyMs" db:"latency_ms"`
	Success       bool            `json:"success" db:"success"`
	ErrorMessage  *string         `json:"errorMessage,omitempty" db:"error_message"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// UsageLogQuery represents filters for listing usage logs.
type UsageLogQuery struct {
	UserID        string
	Provider      Provider
	OperationType OperationType
	Success       *bool
	Start         *time.Time
	End           *time.Time
	Limit         int
	Offset        int
}

// Granularity is a usage bucket width.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ParseGranularity validates a granularity string.
func ParseGranularity(raw string) (Granularity, bool) {
	switch g := Granularity(raw); g {
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, true
	default:
		return "", false
	}
}

// UsageBucket is one aggregated time window. Buckets are computed on demand
// and never stored.
type UsageBucket struct {
	BucketKey      string          `json:"bucketKey"`
	TotalRequests  int             `json:"totalRequests"`
	FailedRequests int             `json:"failedRequests"`
	TotalCostUSD   decimal.Decimal `json:"totalCostUsd"`
	TotalTokens    int64           `json:"totalTokens"`
	UniqueUsers    int             `json:"uniqueUsers"`
	AvgLatencyMs   float64         `json:"avgLatencyMs"`
}
