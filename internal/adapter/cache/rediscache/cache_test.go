package rediscache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/cache/rediscache"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

func newCache(t *testing.T) (*rediscache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rediscache.New(rdb, time.Hour), mr
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func completedResult(fp string, start, end time.Time) domain.AnalysisResult {
	return domain.AnalysisResult{
		ID:          "res-" + fp,
		Fingerprint: fp,
		Request: domain.AnalysisRequest{
			TimePeriod: domain.TimePeriod{Start: start, End: end, Granularity: domain.GranularityWeekly},
		},
		Currency:   "USD",
		StartValue: decimal.RequireFromString("1000"),
		EndValue:   decimal.RequireFromString("1100"),
		Trend:      domain.TrendIncreasing,
		Status:     domain.AnalysisCompleted,
	}
}

func TestCachePutGetRoundTrip(t *testing.T) {
	t.Parallel()
	cache, _ := newCache(t)
	ctx := context.Background()

	res := completedResult("fp-1", day(2024, 1, 1), day(2024, 2, 1))
	require.NoError(t, cache.Put(ctx, "fp-1", res))

	got, ok, err := cache.Get(ctx, "fp-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.ID, got.ID)
	assert.True(t, got.EndValue.Equal(res.EndValue))
}

func TestCacheGetMiss(t *testing.T) {
	t.Parallel()
	cache, _ := newCache(t)
	_, ok, err := cache.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRejectsNonCompleted(t *testing.T) {
	t.Parallel()
	cache, _ := newCache(t)
	ctx := context.Background()

	res := completedResult("fp-1", day(2024, 1, 1), day(2024, 2, 1))
	res.Status = domain.AnalysisFailed
	require.NoError(t, cache.Put(ctx, "fp-1", res))

	_, ok, err := cache.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.False(t, ok, "failed results must never be cached")
}

func TestCacheEvictOverlapping(t *testing.T) {
	t.Parallel()
	cache, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "jan", completedResult("jan", day(2024, 1, 1), day(2024, 2, 1))))
	require.NoError(t, cache.Put(ctx, "feb", completedResult("feb", day(2024, 2, 1), day(2024, 3, 1))))
	require.NoError(t, cache.Put(ctx, "q1", completedResult("q1", day(2024, 1, 1), day(2024, 4, 1))))

	// New data for mid February invalidates feb and q1, not jan.
	n, err := cache.EvictOverlapping(ctx, day(2024, 2, 10), day(2024, 2, 20))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := cache.Get(ctx, "jan")
	require.NoError(t, err)
	assert.True(t, ok)
	for _, fp := range []string{"feb", "q1"} {
		_, ok, err := cache.Get(ctx, fp)
		require.NoError(t, err)
		assert.False(t, ok, fp)
	}
}

// A cached window ending exactly where the new data begins still covers that
// day, so it must be invalidated.
func TestCacheEvictWindowEndTouchesNewData(t *testing.T) {
	t.Parallel()
	cache, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "jan", completedResult("jan", day(2024, 1, 1), day(2024, 2, 1))))

	n, err := cache.EvictOverlapping(ctx, day(2024, 2, 1), day(2024, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := cache.Get(ctx, "jan")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheEvictPrunesExpiredIndexEntries(t *testing.T) {
	t.Parallel()
	cache, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "fp-1", completedResult("fp-1", day(2024, 1, 1), day(2024, 2, 1))))
	mr.FastForward(2 * time.Hour) // entry expires, index field lingers

	n, err := cache.EvictOverlapping(ctx, day(2024, 1, 10), day(2024, 1, 20))
	require.NoError(t, err)
	assert.Zero(t, n, "expired entries do not count as evictions")
	assert.False(t, mr.Exists("fpma:analysis:index"), "stale index fields are pruned")
}

func TestCacheEvictEmptyIndex(t *testing.T) {
	t.Parallel()
	cache, _ := newCache(t)
	n, err := cache.EvictOverlapping(context.Background(), day(2024, 1, 1), day(2024, 2, 1))
	require.NoError(t, err)
	assert.Zero(t, n)
}
