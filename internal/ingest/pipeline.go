package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/observability"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/resilience"
)

// DefaultBatchSize matches the INGEST_BATCH_SIZE default.
const DefaultBatchSize = 1000

// DefaultPreviewLimit caps preview fetches when the caller does not pick one.
const DefaultPreviewLimit = 10

// Pipeline runs ingestion jobs end to end: load the source, connect and fetch
// under the connector's breaker, validate records, write buffered batches to
// the store, and persist the job outcome.
type Pipeline struct {
	Sources  domain.SourceConfigRepository
	Jobs     domain.IngestionJobRepository
	Store    domain.RecordStore
	Cache    domain.ResultCache
	Factory  domain.DataSourceFactory
	Breakers *resilience.Registry
	Retry    resilience.RetryPolicy

	BatchSize int
}

// NewPipeline wires the pipeline. batchSize <= 0 falls back to DefaultBatchSize.
func NewPipeline(
	sources domain.SourceConfigRepository,
	jobs domain.IngestionJobRepository,
	store domain.RecordStore,
	cache domain.ResultCache,
	factory domain.DataSourceFactory,
	breakers *resilience.Registry,
	retry resilience.RetryPolicy,
	batchSize int,
) Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return Pipeline{
		Sources:   sources,
		Jobs:      jobs,
		Store:     store,
		Cache:     cache,
		Factory:   factory,
		Breakers:  breakers,
		Retry:     retry,
		BatchSize: batchSize,
	}
}

// Run executes one ingestion job. A blank jobID creates the job record here;
// otherwise the record created at enqueue time is claimed. The returned job
// is the final persisted snapshot; a non-nil error reports what aborted the
// run and is already reflected in the job status.
func (p Pipeline) Run(ctx context.Context, jobID, sourceID string, params map[string]any) (domain.IngestionJob, error) {
	tracer := otel.Tracer("ingest.pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	// Bookkeeping and final flushes must land even when ctx dies mid-run.
	bg := context.WithoutCancel(ctx)

	job := domain.IngestionJob{
		ID:        jobID,
		SourceID:  sourceID,
		Status:    domain.JobRunning,
		StartedAt: time.Now().UTC(),
	}
	if jobID == "" {
		id, err := p.Jobs.Create(bg, job)
		if err != nil {
			return job, fmt.Errorf("op=pipeline.create_job: %w", err)
		}
		job.ID = id
	} else {
		existing, err := p.Jobs.Get(bg, jobID)
		if err != nil {
			return job, fmt.Errorf("op=pipeline.claim_job: %w", err)
		}
		job = existing
		job.Status = domain.JobRunning
		job.StartedAt = time.Now().UTC()
		if err := p.Jobs.Update(bg, job); err != nil {
			return job, fmt.Errorf("op=pipeline.claim_job: %w", err)
		}
	}

	lg := observability.LoggerFromContext(ctx).With(
		slog.String("job_id", job.ID),
		slog.String("source_id", sourceID),
	)

	cfg, err := p.Sources.Get(ctx, sourceID)
	if err != nil {
		return p.fail(bg, lg, job, fmt.Errorf("op=pipeline.load_source: %w", err))
	}
	if cfg.Status == domain.SourceInactive {
		return p.fail(bg, lg, job, domain.Ef(domain.KindConfiguration, "source %s is inactive", sourceID).
			WithDetail("source_id", sourceID))
	}

	src, err := p.Factory.New(cfg)
	if err != nil {
		return p.fail(bg, lg, job, err)
	}
	defer func() { _ = src.Disconnect(bg) }()

	stream, err := p.openStream(ctx, cfg, src, params)
	if err != nil {
		_ = p.Sources.SetStatus(bg, sourceID, domain.SourceError)
		return p.fail(bg, lg, job, err)
	}
	defer func() { _ = stream.Close() }()

	dateFormat, _ := cfg.ConnectionParams["date_format"].(string)
	v := NewValidator(cfg.FieldMapping, dateFormat)

	var (
		buf              = make([]domain.FreightRecord, 0, p.BatchSize)
		minDate, maxDate time.Time
		runErr           error
		storeFailed      bool
	)

	flush := func(ctx context.Context) error {
		if len(buf) == 0 {
			return nil
		}
		res, err := p.Store.Append(ctx, buf)
		if err != nil {
			return err
		}
		job.RecordsStored += res.Stored
		if res.Stored > 0 {
			if minDate.IsZero() || res.MinDate.Before(minDate) {
				minDate = res.MinDate
			}
			if res.MaxDate.After(maxDate) {
				maxDate = res.MaxDate
			}
		}
		buf = buf[:0]
		return nil
	}

	for {
		raw, nerr := stream.Next(ctx)
		if errors.Is(nerr, io.EOF) {
			break
		}
		if nerr != nil {
			runErr = nerr
			capture(&job.Errors, fmt.Sprintf("fetch stream: %v", nerr))
			break
		}
		job.RecordsTotal++

		rec, verr := v.ValidateRecord(raw)
		if verr != nil {
			job.RecordsInvalid++
			capture(&job.Errors, fmt.Sprintf("record %d: %v", job.RecordsTotal, verr))
			continue
		}
		rec.SourceSystem = cfg.ID

		switch rec.QualityFlag {
		case domain.QualityWarning:
			job.RecordsWarning++
			for _, reason := range rec.QualityReasons {
				capture(&job.Warnings, fmt.Sprintf("record %d: %s", job.RecordsTotal, reason))
			}
		case domain.QualityInvalid:
			job.RecordsInvalid++
			for _, reason := range rec.QualityReasons {
				capture(&job.Errors, fmt.Sprintf("record %d: %s", job.RecordsTotal, reason))
			}
		default:
			job.RecordsValid++
		}

		buf = append(buf, rec)
		if len(buf) >= p.BatchSize {
			if ferr := flush(ctx); ferr != nil {
				runErr = ferr
				storeFailed = true
				capture(&job.Errors, fmt.Sprintf("store append: %v", ferr))
				break
			}
		}
	}

	// Flush what validated before the run broke, unless the store itself is
	// what broke.
	if !storeFailed {
		if ferr := flush(bg); ferr != nil {
			if runErr == nil {
				runErr = ferr
			}
			capture(&job.Errors, fmt.Sprintf("store append: %v", ferr))
		}
	}

	if job.RecordsStored > 0 {
		if n, cerr := p.Cache.EvictOverlapping(bg, minDate, maxDate); cerr != nil {
			lg.Warn("analysis cache eviction failed", slog.Any("error", cerr))
		} else if n > 0 {
			lg.Info("evicted overlapping analysis results", slog.Int("evicted", n))
		}
	}

	finished := time.Now().UTC()
	job.FinishedAt = &finished
	usable := job.RecordsValid + job.RecordsWarning
	switch {
	case runErr != nil:
		job.Status = domain.JobFailed
	case job.RecordsInvalid == 0 && len(job.Errors) == 0:
		job.Status = domain.JobSuccess
	case usable > 0:
		job.Status = domain.JobPartial
	default:
		job.Status = domain.JobFailed
	}

	if job.Status == domain.JobSuccess || job.Status == domain.JobPartial {
		_ = p.Sources.SetStatus(bg, sourceID, domain.SourceActive)
		_ = p.Sources.MarkIngested(bg, sourceID, finished)
	}

	observability.ObserveIngestedRecords(string(cfg.SourceType), job.RecordsValid, job.RecordsWarning, job.RecordsInvalid)

	if uerr := p.Jobs.Update(bg, job); uerr != nil {
		lg.Error("persist job outcome failed", slog.Any("error", uerr))
		if runErr == nil {
			runErr = fmt.Errorf("op=pipeline.finish_job: %w", uerr)
		}
	}

	lg.Info("ingestion finished",
		slog.String("status", string(job.Status)),
		slog.Int("total", job.RecordsTotal),
		slog.Int("valid", job.RecordsValid),
		slog.Int("warning", job.RecordsWarning),
		slog.Int("invalid", job.RecordsInvalid),
		slog.Int("stored", job.RecordsStored))
	return job, runErr
}

// openStream connects and opens the fetch stream inside the source's breaker
// scope. Stream reads after this point are deliberately unguarded; a broken
// stream cannot resume its offset, so a retry would replay stored pages.
func (p Pipeline) openStream(ctx context.Context, cfg domain.DataSourceConfig, src domain.DataSource, params map[string]any) (domain.RecordStream, error) {
	var stream domain.RecordStream
	start := time.Now()
	err := resilience.Execute(ctx, p.Breakers, "connector:"+cfg.ID, p.Retry, func(ctx context.Context) error {
		if err := src.Connect(ctx); err != nil {
			return err
		}
		s, err := src.Fetch(ctx, params)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	observability.ObserveConnectorRequest(string(cfg.SourceType), "fetch", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// fail finalizes the job as FAILED with the cause captured, keeping whatever
// counts accumulated before the abort.
func (p Pipeline) fail(ctx context.Context, lg *slog.Logger, job domain.IngestionJob, cause error) (domain.IngestionJob, error) {
	capture(&job.Errors, cause.Error())
	finished := time.Now().UTC()
	job.FinishedAt = &finished
	job.Status = domain.JobFailed
	if err := p.Jobs.Update(ctx, job); err != nil {
		lg.Error("persist failed job", slog.Any("error", err))
	}
	lg.Error("ingestion failed", slog.Any("error", cause))
	return job, cause
}

// capture appends msg while the slice is under the cap; counters keep
// counting past it.
func capture(dst *[]string, msg string) {
	if len(*dst) < domain.JobErrorCap {
		*dst = append(*dst, msg)
	}
}

// PreviewResult is the dry-run outcome: validated records and counts, nothing
// persisted.
type PreviewResult struct {
	Records []domain.FreightRecord `json:"records"`
	Total   int                    `json:"total"`
	Valid   int                    `json:"valid"`
	Warning int                    `json:"warning"`
	Invalid int                    `json:"invalid"`
	Errors  []string               `json:"errors,omitempty"`
}

// Preview connects, fetches up to limit records, and validates them without
// touching the store or the job log.
func (p Pipeline) Preview(ctx context.Context, sourceID string, params map[string]any, limit int) (PreviewResult, error) {
	tracer := otel.Tracer("ingest.pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.Preview")
	defer span.End()

	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	var out PreviewResult

	cfg, err := p.Sources.Get(ctx, sourceID)
	if err != nil {
		return out, fmt.Errorf("op=pipeline.load_source: %w", err)
	}
	if cfg.Status == domain.SourceInactive {
		return out, domain.Ef(domain.KindConfiguration, "source %s is inactive", sourceID).
			WithDetail("source_id", sourceID)
	}

	src, err := p.Factory.New(cfg)
	if err != nil {
		return out, err
	}
	defer func() { _ = src.Disconnect(context.WithoutCancel(ctx)) }()

	fetchParams := make(map[string]any, len(params)+1)
	for k, val := range params {
		fetchParams[k] = val
	}
	fetchParams["limit"] = limit

	stream, err := p.openStream(ctx, cfg, src, fetchParams)
	if err != nil {
		return out, err
	}
	defer func() { _ = stream.Close() }()

	dateFormat, _ := cfg.ConnectionParams["date_format"].(string)
	v := NewValidator(cfg.FieldMapping, dateFormat)

	for out.Total < limit {
		raw, nerr := stream.Next(ctx)
		if errors.Is(nerr, io.EOF) {
			break
		}
		if nerr != nil {
			return out, nerr
		}
		out.Total++

		rec, verr := v.ValidateRecord(raw)
		if verr != nil {
			out.Invalid++
			capture(&out.Errors, fmt.Sprintf("record %d: %v", out.Total, verr))
			continue
		}
		rec.SourceSystem = cfg.ID
		switch rec.QualityFlag {
		case domain.QualityWarning:
			out.Warning++
		case domain.QualityInvalid:
			out.Invalid++
		default:
			out.Valid++
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}
