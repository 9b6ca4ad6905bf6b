package resilience

import (
	"sync"
	"time"
)

// Registry hands out one breaker per operation name so every caller touching
// the same upstream shares the same circuit. Names follow the
// "connector:<source_id>" convention for data sources.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker

	failureThreshold int
	resetTimeout     time.Duration
}

// NewRegistry creates a registry applying the given thresholds to every
// breaker it creates.
func NewRegistry(failureThreshold int, resetTimeout time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[string]*Breaker),
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// Get returns the breaker for name, creating it closed on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := NewBreaker(name, r.failureThreshold, r.resetTimeout)
	r.breakers[name] = b
	return b
}

// Stats reports every known breaker, keyed by name.
func (r *Registry) Stats() map[string]map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]map[string]any, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Stats()
	}
	return out
}
