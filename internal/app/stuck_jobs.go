package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// StuckJobFailer marks jobs stuck in PENDING or RUNNING past a cutoff as
// FAILED and reports how many it touched.
type StuckJobFailer interface {
	FailStuck(ctx context.Context, cutoff time.Time, reason string) (int, error)
}

// StuckJobSweeper periodically fails jobs whose worker died mid-run, so
// clients polling a job id are not left waiting forever.
type StuckJobSweeper struct {
	jobs     StuckJobFailer
	maxAge   time.Duration
	interval time.Duration
}

// NewStuckJobSweeper constructs a sweeper. Returns nil when jobs is nil.
func NewStuckJobSweeper(jobs StuckJobFailer, maxAge, interval time.Duration) *StuckJobSweeper {
	if jobs == nil {
		return nil
	}
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StuckJobSweeper{jobs: jobs, maxAge: maxAge, interval: interval}
}

// Run sweeps until the context is cancelled.
func (s *StuckJobSweeper) Run(ctx context.Context) {
	if s == nil || s.jobs == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("stuck job sweeper stopping")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *StuckJobSweeper) sweepOnce(ctx context.Context) {
	tracer := otel.Tracer("app.sweeper")
	ctx, span := tracer.Start(ctx, "StuckJobSweeper.sweepOnce")
	defer span.End()

	cutoff := time.Now().Add(-s.maxAge)
	reason := fmt.Sprintf("job exceeded maximum processing age %v; failed by sweeper", s.maxAge)
	span.SetAttributes(attribute.Float64("jobs.max_processing_age_seconds", s.maxAge.Seconds()))

	n, err := s.jobs.FailStuck(ctx, cutoff, reason)
	if err != nil {
		span.RecordError(err)
		slog.Error("stuck job sweep failed", slog.Any("error", err))
		return
	}
	span.SetAttributes(attribute.Int("jobs.marked_failed", n))
	if n > 0 {
		slog.Warn("stuck jobs failed by sweeper", slog.Int("count", n))
	}
}
