package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/ingest"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/observability"
)

// IngestionService accepts ingestion work: asynchronous jobs handed to the
// worker through the queue, synchronous runs for the worker and scheduler,
// and dry-run previews.
type IngestionService struct {
	Sources  domain.SourceConfigRepository
	Jobs     domain.IngestionJobRepository
	Queue    domain.IngestQueue
	Pipeline ingest.Pipeline
}

// NewIngestionService constructs an IngestionService.
func NewIngestionService(sources domain.SourceConfigRepository, jobs domain.IngestionJobRepository, queue domain.IngestQueue, pipeline ingest.Pipeline) IngestionService {
	return IngestionService{Sources: sources, Jobs: jobs, Queue: queue, Pipeline: pipeline}
}

// Ingest creates a PENDING job and enqueues it for the worker. The returned
// job carries the id the caller polls for completion.
func (s IngestionService) Ingest(ctx context.Context, sourceID string, params map[string]any) (domain.IngestionJob, error) {
	tracer := otel.Tracer("usecase.ingestion")
	ctx, span := tracer.Start(ctx, "ingestion.Ingest")
	defer span.End()

	cfg, err := s.Sources.Get(ctx, sourceID)
	if err != nil {
		return domain.IngestionJob{}, err
	}
	if cfg.Status == domain.SourceInactive {
		return domain.IngestionJob{}, domain.Ef(domain.KindConfiguration, "source %s is inactive", sourceID).
			WithDetail("source_id", sourceID)
	}

	job := domain.IngestionJob{
		SourceID:  sourceID,
		Status:    domain.JobPending,
		StartedAt: time.Now().UTC(),
	}
	id, err := s.Jobs.Create(ctx, job)
	if err != nil {
		return domain.IngestionJob{}, fmt.Errorf("op=ingestion.create_job: %w", err)
	}
	job.ID = id

	payload := domain.IngestTaskPayload{
		JobID:     job.ID,
		SourceID:  sourceID,
		Params:    params,
		RequestID: observability.RequestIDFromContext(ctx),
	}
	if _, err := s.Queue.EnqueueIngest(ctx, payload); err != nil {
		job.Status = domain.JobFailed
		finished := time.Now().UTC()
		job.FinishedAt = &finished
		job.Errors = append(job.Errors, fmt.Sprintf("enqueue: %v", err))
		_ = s.Jobs.Update(ctx, job)
		return domain.IngestionJob{}, fmt.Errorf("op=ingestion.enqueue: %w", err)
	}
	observability.EnqueueJob("ingest")
	return job, nil
}

// RunNow executes the pipeline synchronously for an already created job.
// The worker and the scheduler call this; the HTTP path goes through Ingest.
func (s IngestionService) RunNow(ctx context.Context, jobID, sourceID string, params map[string]any) (domain.IngestionJob, error) {
	return s.Pipeline.Run(ctx, jobID, sourceID, params)
}

// Preview validates up to limit records from the source without persisting.
func (s IngestionService) Preview(ctx context.Context, sourceID string, params map[string]any, limit int) (ingest.PreviewResult, error) {
	return s.Pipeline.Preview(ctx, sourceID, params, limit)
}

// GetJob loads one ingestion job.
func (s IngestionService) GetJob(ctx context.Context, id string) (domain.IngestionJob, error) {
	return s.Jobs.Get(ctx, id)
}

// ListJobs returns the recent jobs of one source.
func (s IngestionService) ListJobs(ctx context.Context, sourceID string, limit int) ([]domain.IngestionJob, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.Jobs.ListBySource(ctx, sourceID, limit)
}

// ListSources returns every configured source.
func (s IngestionService) ListSources(ctx context.Context) ([]domain.DataSourceConfig, error) {
	return s.Sources.List(ctx)
}

// Schedule attaches a schedule expression to a source. Only "@every <dur>"
// is interpreted by the built-in scheduler; other expressions are stored
// opaquely for an external scheduler to act on.
func (s IngestionService) Schedule(ctx context.Context, sourceID, expr string) error {
	if _, err := ParseEvery(expr); err != nil && strings.HasPrefix(expr, "@every") {
		return err
	}
	cfg, err := s.Sources.Get(ctx, sourceID)
	if err != nil {
		return err
	}
	cfg.Schedule = expr
	cfg.UpdatedAt = time.Now().UTC()
	if err := s.Sources.Update(ctx, cfg); err != nil {
		return fmt.Errorf("op=ingestion.schedule: %w", err)
	}
	return nil
}

// CancelSchedule clears a source's schedule.
func (s IngestionService) CancelSchedule(ctx context.Context, sourceID string) error {
	return s.Schedule(ctx, sourceID, "")
}

// ListScheduled returns the sources that carry a schedule expression.
func (s IngestionService) ListScheduled(ctx context.Context) ([]domain.DataSourceConfig, error) {
	all, err := s.Sources.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DataSourceConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.Schedule != "" {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// ParseEvery parses the interval schedule form "@every <duration>".
func ParseEvery(expr string) (time.Duration, error) {
	rest, ok := strings.CutPrefix(expr, "@every ")
	if !ok {
		return 0, domain.Ef(domain.KindConfiguration, "unsupported schedule expression %q", expr).
			WithDetail("expression", expr)
	}
	d, err := time.ParseDuration(strings.TrimSpace(rest))
	if err != nil || d <= 0 {
		return 0, domain.Ef(domain.KindConfiguration, "invalid schedule interval %q", rest).
			WithDetail("expression", expr)
	}
	return d, nil
}
