package resilience

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// RetryPolicy bounds the retry executor. Delay before attempt n+1 is
// BackoffFactor * 2^(n-1) seconds.
type RetryPolicy struct {
	MaxAttempts   int
	BackoffFactor float64
}

// DefaultRetryPolicy mirrors the API_RETRY_* configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BackoffFactor: 1.5}
}

// retryableStatus holds the HTTP statuses worth another attempt.
var retryableStatus = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

var transientMarkers = []string{"connection", "timeout", "temporary", "retry"}

// Retryable reports whether err is transient: a DATA_SOURCE or INTEGRATION
// error whose message names a transient condition, or whose status_code
// detail is one of 408, 429, 500, 502, 503, 504. Everything else, including
// validation and circuit-open errors, is permanent.
func Retryable(err error) bool {
	kind := domain.KindOf(err)
	if kind != domain.KindDataSource && kind != domain.KindIntegration {
		return false
	}
	if v, ok := domain.Detail(err, "status_code"); ok {
		if code, ok := asInt(v); ok && retryableStatus[code] {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Retry runs op up to policy.MaxAttempts times, sleeping the exponential
// delay between attempts. Non-retryable errors stop immediately; context
// cancellation interrupts the wait.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = time.Duration(policy.BackoffFactor * float64(time.Second))
	expBackoff.Multiplier = 2
	expBackoff.RandomizationFactor = 0
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.MaxElapsedTime = 0

	operation := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(attempts-1)), ctx))
}

// Execute is the standard guarded scope for connector work: every retry
// attempt passes through the named breaker, so an open circuit turns the
// remaining attempts into an immediate permanent failure.
func Execute(ctx context.Context, reg *Registry, name string, policy RetryPolicy, op func(ctx context.Context) error) error {
	b := reg.Get(name)
	return Retry(ctx, policy, func(ctx context.Context) error {
		return b.Execute(ctx, op)
	})
}
