// Package usage rolls usage-log rows up into day, week and month buckets.
//
// All bucketing happens in UTC. Weeks start on Monday and are keyed by that
// Monday's date. Failed calls are counted as requests and contribute latency;
// they carry zero tokens and zero cost, and are also tallied in FailedRequests.
package usage

import (
	"sort"
	"time"

	"github.com/promptlib/promptlib/internal/models"
	"github.com/shopspring/decimal"
)

// Order is the sort direction of aggregated buckets. There is no default:
// callers choose.
type Order int

const (
	Ascending Order = iota
	Descending
)

// ParseOrder maps "asc"/"desc" to an Order.
func ParseOrder(raw string) (Order, bool) {
	switch raw {
	case "asc":
		return Ascending, true
	case "desc":
		return Descending, true
	default:
		return Ascending, false
	}
}

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// BucketKey returns the bucket a timestamp falls into. Unknown granularities
// bucket by day.
func BucketKey(ts time.Time, g models.Granularity) string {
	ts = ts.UTC()
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)

	switch g {
	case models.GranularityMonth:
		return day.Format(monthLayout)
	case models.GranularityWeek:
		sinceMonday := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -sinceMonday).Format(dayLayout)
	default:
		return day.Format(dayLayout)
	}
}

type accumulator struct {
	requests   int
	failed     int
	cost       decimal.Decimal
	tokens     int64
	latencySum int64
	users      map[string]struct{}
}

// Aggregate groups records by bucket and reduces each bucket to its totals.
// The result is never nil.
func Aggregate(records []models.UsageLog, g models.Granularity, order Order) []models.UsageBucket {
	acc := make(map[string]*accumulator)

	for _, r := range records {
		key := BucketKey(r.CreatedAt, g)
		a, ok := acc[key]
		if !ok {
			a = &accumulator{cost: decimal.Zero, users: make(map[string]struct{})}
			acc[key] = a
		}

		a.requests++
		if !r.Success {
			a.failed++
		}
		a.cost = a.cost.Add(r.CostUSD)
		a.tokens += int64(r.TotalTokens)
		a.latencySum += int64(r.LatencyMs)
		a.users[r.UserID] = struct{}{}
	}

	buckets := make([]models.UsageBucket, 0, len(acc))
	for key, a := range acc {
		b := models.UsageBucket{
			BucketKey:      key,
			TotalRequests:  a.requests,
			FailedRequests: a.failed,
			TotalCostUSD:   a.cost,
			TotalTokens:    a.tokens,
			UniqueUsers:    len(a.users),
		}
		if a.requests > 0 {
			b.AvgLatencyMs = float64(a.latencySum) / float64(a.requests)
		}
		buckets = append(buckets, b)
	}

	// Bucket keys are zero-padded, so lexical order is chronological.
	sort.Slice(buckets, func(i, j int) bool {
		if order == Descending {
			return buckets[i].BucketKey > buckets[j].BucketKey
		}
		return buckets[i].BucketKey < buckets[j].BucketKey
	})

	return buckets
}
