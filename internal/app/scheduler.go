package app

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/usecase"
)

// Scheduler periodically scans configured sources and enqueues ingestion
// jobs for the ones whose "@every <duration>" schedule is due. Schedule
// expressions in any other form are left for an external scheduler.
type Scheduler struct {
	ingestion usecase.IngestionService
	interval  time.Duration
	now       func() time.Time
}

// NewScheduler constructs a Scheduler ticking at the given interval.
func NewScheduler(ingestion usecase.IngestionService, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{ingestion: ingestion, interval: interval, now: time.Now}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tickOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("ingestion scheduler stopping")
			return
		case <-ticker.C:
			s.tickOnce(ctx)
		}
	}
}

func (s *Scheduler) tickOnce(ctx context.Context) {
	tracer := otel.Tracer("app.scheduler")
	ctx, span := tracer.Start(ctx, "Scheduler.tickOnce")
	defer span.End()

	scheduled, err := s.ingestion.ListScheduled(ctx)
	if err != nil {
		span.RecordError(err)
		slog.Error("scheduler failed to list scheduled sources", slog.Any("error", err))
		return
	}

	enqueued := 0
	for _, cfg := range scheduled {
		every, err := usecase.ParseEvery(cfg.Schedule)
		if err != nil {
			// Anything but "@every <duration>" is left to an external
			// scheduler.
			slog.Debug("skipping non-interval schedule",
				slog.String("source_id", cfg.ID),
				slog.String("schedule", cfg.Schedule))
			continue
		}
		if !s.due(cfg, every) {
			continue
		}
		job, err := s.ingestion.Ingest(ctx, cfg.ID, nil)
		if err != nil {
			slog.Error("scheduler failed to enqueue ingestion",
				slog.String("source_id", cfg.ID), slog.Any("error", err))
			continue
		}
		enqueued++
		slog.Info("scheduled ingestion enqueued",
			slog.String("source_id", cfg.ID),
			slog.String("job_id", job.ID),
			slog.String("schedule", cfg.Schedule))
	}
	span.SetAttributes(
		attribute.Int("scheduler.sources", len(scheduled)),
		attribute.Int("scheduler.enqueued", enqueued),
	)
}

// due reports whether a source's interval schedule has elapsed since its
// last successful ingestion. A source never ingested is due immediately.
func (s *Scheduler) due(cfg domain.DataSourceConfig, every time.Duration) bool {
	if cfg.Status != domain.SourceActive {
		return false
	}
	if cfg.LastIngestedAt == nil {
		return true
	}
	return s.now().Sub(*cfg.LastIngestedAt) >= every
}
