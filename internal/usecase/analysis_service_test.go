package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/analysis"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain/mocks"
)

// memCache is a thread-safe in-memory ResultCache for service tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string]domain.AnalysisResult
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]domain.AnalysisResult)}
}

func (c *memCache) Get(_ context.Context, fp string) (domain.AnalysisResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[fp]
	return res, ok, nil
}

func (c *memCache) Put(_ context.Context, fp string, res domain.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp] = res
	return nil
}

func (c *memCache) EvictOverlapping(context.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}

func decRequire(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func analysisRecords() []domain.FreightRecord {
	mk := func(date time.Time, charge string) domain.FreightRecord {
		return domain.FreightRecord{
			RecordDate:    date,
			Origin:        "NYC",
			Destination:   "LAX",
			FreightCharge: decRequire(charge),
			CurrencyCode:  "USD",
			TransportMode: domain.ModeRoad,
		}
	}
	return []domain.FreightRecord{
		mk(day(2023, 1, 2), "1000"),
		mk(day(2023, 1, 9), "1100"),
	}
}

func sampleRequest() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		TimePeriod: domain.TimePeriod{
			Start:       day(2023, 1, 1),
			End:         day(2023, 1, 15),
			Granularity: domain.GranularityWeekly,
		},
		Filter: domain.AnalysisFilter{Origins: []string{"NYC"}},
	}
}

func TestAnalyzeCachesAndReplays(t *testing.T) {
	t.Parallel()
	store := mocks.NewRecordStore(t)
	store.On("RangeScan", mock.Anything, mock.Anything).Return(analysisRecords(), nil).Once()
	results := mocks.NewAnalysisResultRepository(t)
	results.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewAnalysisService(analysis.NewEngine(store, mocks.NewRateProvider(t), "USD"), newMemCache(), results, nil)

	first, err := svc.Analyze(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, first.Fingerprint)

	second, err := svc.Analyze(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, second.FromCache)

	// Equal fingerprints return byte-equal payloads apart from the cache
	// marker; ID and CalculatedAt survive the round trip unchanged here
	// because the second response is the cached copy.
	first.FromCache = second.FromCache
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.JSONEq(t, string(a), string(b))
}

func TestAnalyzeSingleFlight(t *testing.T) {
	t.Parallel()
	var scans atomic.Int32
	store := mocks.NewRecordStore(t)
	store.On("RangeScan", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			scans.Add(1)
			time.Sleep(50 * time.Millisecond) // hold the flight open
		}).
		Return(analysisRecords(), nil)
	results := mocks.NewAnalysisResultRepository(t)
	results.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := NewAnalysisService(analysis.NewEngine(store, mocks.NewRateProvider(t), "USD"), newMemCache(), results, nil)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Analyze(context.Background(), sampleRequest())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), scans.Load(), "concurrent identical requests must scan the store once")
}

func TestAnalyzeFailureNotCached(t *testing.T) {
	t.Parallel()
	store := mocks.NewRecordStore(t)
	store.On("RangeScan", mock.Anything, mock.Anything).
		Return(nil, domain.E(domain.KindDataSource, "store unavailable")).Once()
	store.On("RangeScan", mock.Anything, mock.Anything).Return(analysisRecords(), nil).Once()
	results := mocks.NewAnalysisResultRepository(t)
	results.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	cache := newMemCache()
	svc := NewAnalysisService(analysis.NewEngine(store, mocks.NewRateProvider(t), "USD"), cache, results, nil)

	_, err := svc.Analyze(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Empty(t, cache.entries, "failed computations must not enter the cache")

	res, err := svc.Analyze(context.Background(), sampleRequest())
	require.NoError(t, err, "a failed flight must not block the retry")
	assert.False(t, res.FromCache)
}

func TestAnalyzeRejectsInvalidRequest(t *testing.T) {
	t.Parallel()
	svc := NewAnalysisService(analysis.Engine{}, newMemCache(), mocks.NewAnalysisResultRepository(t), nil)

	req := sampleRequest()
	req.TimePeriod.End = req.TimePeriod.Start
	_, err := svc.Analyze(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestGetResult(t *testing.T) {
	t.Parallel()
	results := mocks.NewAnalysisResultRepository(t)
	results.On("Get", mock.Anything, "res-1").
		Return(domain.AnalysisResult{ID: "res-1", Status: domain.AnalysisCompleted}, nil).Once()

	svc := NewAnalysisService(analysis.Engine{}, newMemCache(), results, nil)
	res, err := svc.GetResult(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, "res-1", res.ID)
}
