// Package rediscache implements the analysis result cache on Redis. Results
// are stored per request fingerprint with a TTL; a secondary index hash maps
// each fingerprint to its analysis window so freshly ingested data can evict
// every overlapping entry in one pass.
package rediscache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

const (
	keyPrefix = "fpma:analysis:"
	indexKey  = "fpma:analysis:index"
)

// Cache is a Redis-backed domain.ResultCache.
type Cache struct {
	R   redis.UniversalClient
	TTL time.Duration
}

// New constructs a Cache. A zero ttl means entries only leave via eviction.
func New(r redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{R: r, TTL: ttl}
}

// Get loads a cached result by fingerprint.
func (c *Cache) Get(ctx domain.Context, fingerprint string) (domain.AnalysisResult, bool, error) {
	tracer := otel.Tracer("cache.results")
	ctx, span := tracer.Start(ctx, "cache.Get")
	defer span.End()
	raw, err := c.R.Get(ctx, keyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return domain.AnalysisResult{}, false, nil
	}
	if err != nil {
		return domain.AnalysisResult{}, false, fmt.Errorf("op=cache.get: %w", err)
	}
	var res domain.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.AnalysisResult{}, false, fmt.Errorf("op=cache.get: %w", err)
	}
	return res, true, nil
}

// Put stores a completed result under its fingerprint and registers its
// analysis window in the eviction index. Non-completed results never enter
// the cache.
func (c *Cache) Put(ctx domain.Context, fingerprint string, res domain.AnalysisResult) error {
	if res.Status != domain.AnalysisCompleted {
		return nil
	}
	tracer := otel.Tracer("cache.results")
	ctx, span := tracer.Start(ctx, "cache.Put")
	defer span.End()
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	window := fmt.Sprintf("%d,%d",
		res.Request.TimePeriod.Start.UTC().Unix(),
		res.Request.TimePeriod.End.UTC().Unix())
	pipe := c.R.TxPipeline()
	pipe.Set(ctx, keyPrefix+fingerprint, raw, c.TTL)
	pipe.HSet(ctx, indexKey, fingerprint, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("op=cache.put: %w", err)
	}
	return nil
}

// EvictOverlapping drops every cached result whose closed analysis window
// [start, end] overlaps [min, max] and returns how many entries it removed.
// Index fields whose entry already expired are pruned along the way.
func (c *Cache) EvictOverlapping(ctx domain.Context, min, max time.Time) (int, error) {
	tracer := otel.Tracer("cache.results")
	ctx, span := tracer.Start(ctx, "cache.EvictOverlapping")
	defer span.End()
	index, err := c.R.HGetAll(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("op=cache.evict: %w", err)
	}
	if len(index) == 0 {
		return 0, nil
	}
	var evict, stale []string
	for fp, window := range index {
		start, end, ok := parseWindow(window)
		if !ok {
			stale = append(stale, fp)
			continue
		}
		if !start.After(max) && !end.Before(min) {
			evict = append(evict, fp)
		}
	}
	evicted := 0
	if len(evict) > 0 {
		keys := make([]string, len(evict))
		for i, fp := range evict {
			keys[i] = keyPrefix + fp
		}
		n, err := c.R.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("op=cache.evict: %w", err)
		}
		evicted = int(n)
	}
	if fields := append(evict, stale...); len(fields) > 0 {
		if err := c.R.HDel(ctx, indexKey, fields...).Err(); err != nil {
			return evicted, fmt.Errorf("op=cache.evict: %w", err)
		}
	}
	return evicted, nil
}

func parseWindow(s string) (start, end time.Time, ok bool) {
	a, b, found := strings.Cut(s, ",")
	if !found {
		return time.Time{}, time.Time{}, false
	}
	su, err1 := strconv.ParseInt(a, 10, 64)
	eu, err2 := strconv.ParseInt(b, 10, 64)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return time.Unix(su, 0).UTC(), time.Unix(eu, 0).UTC(), true
}
