package rates

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

type cachedRate struct {
	rate    decimal.Decimal
	fetched time.Time
}

// Cached decorates a RateProvider with an in-process TTL cache keyed by
// (from, to, day). Historical rates are immutable, so only the TTL on
// "latest" lookups really matters; it is applied uniformly for simplicity.
type Cached struct {
	next domain.RateProvider
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]cachedRate
}

// NewCached wraps next with a TTL cache.
func NewCached(next domain.RateProvider, ttl time.Duration) *Cached {
	return &Cached{next: next, ttl: ttl, entries: make(map[string]cachedRate)}
}

// Rate returns a cached rate when fresh, otherwise delegates and stores.
func (c *Cached) Rate(ctx domain.Context, from, to string, on time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	key := cacheKey(from, to, on)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Since(entry.fetched) < c.ttl {
		return entry.rate, nil
	}

	rate, err := c.next.Rate(ctx, from, to, on)
	if err != nil {
		return decimal.Decimal{}, err
	}
	c.mu.Lock()
	c.entries[key] = cachedRate{rate: rate, fetched: time.Now()}
	c.mu.Unlock()
	return rate, nil
}

func cacheKey(from, to string, on time.Time) string {
	day := "latest"
	if !on.IsZero() {
		day = on.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("%s:%s:%s", from, to, day)
}
