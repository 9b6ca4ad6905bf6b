// Package resilience provides the retry executor and circuit breaker that
// guard every external touchpoint (connectors, rate lookups).
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// BreakerState represents the state of a circuit breaker.
type BreakerState int

const (
	// StateClosed indicates the circuit is closed and operations are allowed.
	StateClosed BreakerState = iota
	// StateOpen indicates the circuit is open and operations fail fast until the reset timeout passes.
	StateOpen
	// StateHalfOpen indicates a trial state where a single probe operation tests recovery.
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker implements the circuit breaker pattern with a serialized half-open
// probe: after the reset timeout exactly one in-flight call is admitted, and
// concurrent callers keep failing fast until the probe settles.
type Breaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration

	mu           sync.Mutex
	state        BreakerState
	failureCount int
	openedAt     time.Time
	probing      bool

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, failureThreshold int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// Name returns the breaker's registry key.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// acquire admits or rejects one call. A nil return means the caller must
// report the outcome via settle.
func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		remaining := b.resetTimeout - b.now().Sub(b.openedAt)
		if remaining > 0 {
			return b.openErr(remaining)
		}
		b.state = StateHalfOpen
		b.probing = true
		slog.Info("circuit breaker transitioning to half-open",
			slog.String("name", b.name),
			slog.Duration("reset_timeout", b.resetTimeout))
		return nil
	case StateHalfOpen:
		if b.probing {
			return b.openErr(0)
		}
		b.probing = true
		return nil
	default:
		return b.openErr(0)
	}
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failureCount = 0
		b.probing = false
		if b.state != StateClosed {
			b.state = StateClosed
			slog.Info("circuit breaker closed after successful probe", slog.String("name", b.name))
		}
		return
	}

	// Caller cancellation is not a verdict on the protected service.
	if errors.Is(err, context.Canceled) {
		b.probing = false
		return
	}

	b.failureCount++
	switch b.state {
	case StateClosed:
		if b.failureCount >= b.failureThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
			slog.Warn("circuit breaker opened due to failure threshold",
				slog.String("name", b.name),
				slog.Int("failure_count", b.failureCount),
				slog.Int("failure_threshold", b.failureThreshold))
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.now()
		b.probing = false
		slog.Warn("circuit breaker reopened after failed probe", slog.String("name", b.name))
	}
}

// Execute runs op under the breaker. When the circuit is open the op is not
// invoked and a CIRCUIT_OPEN error carrying the remaining cool-down seconds
// is returned.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := op(ctx)
	b.settle(err)
	return err
}

// Stats reports the breaker's observable state for readiness endpoints.
func (b *Breaker) Stats() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]any{
		"name":              b.name,
		"state":             b.state.String(),
		"failure_count":     b.failureCount,
		"failure_threshold": b.failureThreshold,
		"reset_timeout":     b.resetTimeout.String(),
	}
}

func (b *Breaker) openErr(remaining time.Duration) error {
	secs := int(math.Ceil(remaining.Seconds()))
	if secs < 0 {
		secs = 0
	}
	return domain.Ef(domain.KindCircuitOpen, "circuit %q is open", b.name).
		WithDetail("name", b.name).
		WithDetail("remaining_seconds", secs)
}
