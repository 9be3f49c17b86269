package usage

import (
	"testing"
	"time"

	"github.com/promptlib/promptlib/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(user string, at time.Time, cost string, tokens, latency int, success bool) models.UsageLog {
	return models.UsageLog{
		UserID:      user,
		Provider:    models.ProviderOpenAI,
		Model:       "gpt-4o",
		TotalTokens: tokens,
		CostUSD:     decimal.RequireFromString(cost),
		LatencyMs:   latency,
		Success:     success,
		CreatedAt:   at,
	}
}

func at(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return ts
}

func TestAggregateEmpty(t *testing.T) {
	for _, g := range []models.Granularity{models.GranularityDay, models.GranularityWeek, models.GranularityMonth} {
		for _, order := range []Order{Ascending, Descending} {
			buckets := Aggregate(nil, g, order)
			require.NotNil(t, buckets, "granularity %s", g)
			assert.Empty(t, buckets)

			buckets = Aggregate([]models.UsageLog{}, g, order)
			require.NotNil(t, buckets)
			assert.Empty(t, buckets)
		}
	}
}

func TestAggregateSingleDay(t *testing.T) {
	records := []models.UsageLog{
		record("u1", at("2025-01-10T08:00:00Z"), "0.01", 100, 100, true),
		record("u2", at("2025-01-10T12:30:00Z"), "0.02", 200, 200, true),
		record("u1", at("2025-01-10T23:59:59Z"), "0.005", 50, 300, true),
	}

	buckets := Aggregate(records, models.GranularityDay, Ascending)

	require.Len(t, buckets, 1)
	b := buckets[0]
	assert.Equal(t, "2025-01-10", b.BucketKey)
	assert.Equal(t, 3, b.TotalRequests)
	assert.True(t, b.TotalCostUSD.Equal(decimal.RequireFromString("0.035")), "cost %s", b.TotalCostUSD)
	assert.Equal(t, int64(350), b.TotalTokens)
	assert.Equal(t, 200.0, b.AvgLatencyMs)
	assert.Equal(t, 2, b.UniqueUsers, "one user with several records counts once")
	assert.Zero(t, b.FailedRequests)
}

func TestAggregateAverageLatencyPerBucket(t *testing.T) {
	records := []models.UsageLog{
		record("u1", at("2025-01-10T10:00:00Z"), "0", 0, 10, true),
		record("u1", at("2025-01-10T11:00:00Z"), "0", 0, 20, true),
		record("u1", at("2025-01-11T10:00:00Z"), "0", 0, 1000, true),
	}

	buckets := Aggregate(records, models.GranularityDay, Ascending)

	require.Len(t, buckets, 2)
	assert.Equal(t, 15.0, buckets[0].AvgLatencyMs)
	assert.Equal(t, 1000.0, buckets[1].AvgLatencyMs)
}

func TestAggregateIncludesFailedCalls(t *testing.T) {
	records := []models.UsageLog{
		record("u1", at("2025-02-03T10:00:00Z"), "0.01", 100, 400, true),
		record("u2", at("2025-02-03T11:00:00Z"), "0", 0, 200, false),
	}

	buckets := Aggregate(records, models.GranularityDay, Ascending)

	require.Len(t, buckets, 1)
	assert.Equal(t, 2, buckets[0].TotalRequests)
	assert.Equal(t, 1, buckets[0].FailedRequests)
	assert.Equal(t, 2, buckets[0].UniqueUsers)
	assert.Equal(t, 300.0, buckets[0].AvgLatencyMs)
	assert.True(t, buckets[0].TotalCostUSD.Equal(decimal.RequireFromString("0.01")))
}

func TestAggregateOrder(t *testing.T) {
	records := []models.UsageLog{
		record("u1", at("2025-03-02T10:00:00Z"), "0", 0, 0, true),
		record("u1", at("2025-01-15T10:00:00Z"), "0", 0, 0, true),
		record("u1", at("2025-02-20T10:00:00Z"), "0", 0, 0, true),
	}

	asc := Aggregate(records, models.GranularityMonth, Ascending)
	desc := Aggregate(records, models.GranularityMonth, Descending)

	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, keys(asc))
	assert.Equal(t, []string{"2025-03", "2025-02", "2025-01"}, keys(desc))
}

func TestBucketKeyWeekStartsMonday(t *testing.T) {
	tests := []struct {
		ts   string
		want string
	}{
		{"2025-01-06T00:00:00Z", "2025-01-06"}, // Monday
		{"2025-01-08T15:00:00Z", "2025-01-06"}, // Wednesday
		{"2025-01-12T23:59:59Z", "2025-01-06"}, // Sunday belongs to the week before
		{"2025-01-13T00:00:00Z", "2025-01-13"},
		{"2025-01-01T09:00:00Z", "2024-12-30"}, // crosses the year boundary
	}

	for _, tt := range tests {
		t.Run(tt.ts, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketKey(at(tt.ts), models.GranularityWeek))
		})
	}
}

func TestBucketKeyUsesUTC(t *testing.T) {
	tz := time.FixedZone("UTC-8", -8*60*60)
	local := time.Date(2025, 1, 10, 20, 0, 0, 0, tz) // 2025-01-11T04:00Z

	assert.Equal(t, "2025-01-11", BucketKey(local, models.GranularityDay))
	assert.Equal(t, "2025-01", BucketKey(local, models.GranularityMonth))
}

func TestAggregateWeekGroupsAcrossDays(t *testing.T) {
	records := []models.UsageLog{
		record("u1", at("2025-01-06T10:00:00Z"), "0.01", 10, 100, true),
		record("u2", at("2025-01-12T10:00:00Z"), "0.02", 20, 300, true),
		record("u3", at("2025-01-13T10:00:00Z"), "0.03", 30, 500, true),
	}

	buckets := Aggregate(records, models.GranularityWeek, Ascending)

	require.Len(t, buckets, 2)
	assert.Equal(t, "2025-01-06", buckets[0].BucketKey)
	assert.Equal(t, 2, buckets[0].TotalRequests)
	assert.Equal(t, 2, buckets[0].UniqueUsers)
	assert.Equal(t, "2025-01-13", buckets[1].BucketKey)
	assert.Equal(t, 1, buckets[1].TotalRequests)
}

func TestParseOrder(t *testing.T) {
	o, ok := ParseOrder("desc")
	assert.True(t, ok)
	assert.Equal(t, Descending, o)

	o, ok = ParseOrder("asc")
	assert.True(t, ok)
	assert.Equal(t, Ascending, o)

	_, ok = ParseOrder("sideways")
	assert.False(t, ok)
}

func keys(buckets []models.UsageBucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.BucketKey
	}
	return out
}
