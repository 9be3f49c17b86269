package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// LLMCollector records outbound LLM vendor calls.
type LLMCollector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cost     *prometheus.CounterVec
	tokens   *prometheus.CounterVec
}

// NewLLMCollector registers LLM call metrics on registry.
func NewLLMCollector(registry prometheus.Registerer) (*LLMCollector, error) {
	c := &LLMCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "LLM vendor calls by provider and outcome.",
		}, []string{"provider", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Wall-clock latency of LLM vendor calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider"}),
		cost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "cost_usd_total",
			Help:      "Estimated spend on LLM vendor calls in USD.",
		}, []string{"provider"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by LLM vendor calls.",
		}, []string{"provider", "direction"}),
	}

	for _, collector := range []prometheus.Collector{c.requests, c.duration, c.cost, c.tokens} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// ObserveCall records one vendor call.
func (c *LLMCollector) ObserveCall(provider string, success bool, latency time.Duration, inputTokens, outputTokens int, cost decimal.Decimal) {
	status := "success"
	if !success {
		status = "error"
	}

	c.requests.WithLabelValues(provider, status).Inc()
	c.duration.WithLabelValues(provider).Observe(latency.Seconds())

	if success {
		c.cost.WithLabelValues(provider).Add(cost.InexactFloat64())
		c.tokens.WithLabelValues(provider, "input").Add(float64(inputTokens))
		c.tokens.WithLabelValues(provider, "output").Add(float64(outputTokens))
	}
}
