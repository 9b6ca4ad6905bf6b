package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// JobRepo persists ingestion job outcomes in PostgreSQL.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

const jobColumns = `id, source_id, status, records_total, records_valid, records_warning, records_invalid, records_stored, errors, warnings, started_at, finished_at`

// Create inserts a new job and returns its id.
func (r *JobRepo) Create(ctx domain.Context, j domain.IngestionJob) (string, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Create")
	defer span.End()
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO ingestion_jobs (` + jobColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.Pool.Exec(ctx, q, id, j.SourceID, string(j.Status),
		j.RecordsTotal, j.RecordsValid, j.RecordsWarning, j.RecordsInvalid, j.RecordsStored,
		j.Errors, j.Warnings, j.StartedAt.UTC(), j.FinishedAt)
	if err != nil {
		return "", fmt.Errorf("op=job.create: %w", err)
	}
	return id, nil
}

// Update replaces a job's status, counters, and captured messages.
func (r *JobRepo) Update(ctx domain.Context, j domain.IngestionJob) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Update")
	defer span.End()
	q := `UPDATE ingestion_jobs SET status=$2, records_total=$3, records_valid=$4, records_warning=$5, records_invalid=$6, records_stored=$7, errors=$8, warnings=$9, finished_at=$10 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, j.ID, string(j.Status),
		j.RecordsTotal, j.RecordsValid, j.RecordsWarning, j.RecordsInvalid, j.RecordsStored,
		j.Errors, j.Warnings, j.FinishedAt)
	if err != nil {
		return fmt.Errorf("op=job.update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=job.update: %w", domain.ErrNotFound)
	}
	return nil
}

// Get loads a job by id.
func (r *JobRepo) Get(ctx domain.Context, id string) (domain.IngestionJob, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Get")
	defer span.End()
	q := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE id=$1`
	j, err := scanJob(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.IngestionJob{}, fmt.Errorf("op=job.get: %w", domain.ErrNotFound)
		}
		return domain.IngestionJob{}, fmt.Errorf("op=job.get: %w", err)
	}
	return j, nil
}

// ListBySource returns the most recent jobs of one source, newest first.
func (r *JobRepo) ListBySource(ctx domain.Context, sourceID string, limit int) ([]domain.IngestionJob, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.ListBySource")
	defer span.End()
	q := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE source_id=$1 ORDER BY started_at DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=job.list: %w", err)
	}
	defer rows.Close()
	var out []domain.IngestionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("op=job.list: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=job.list: %w", err)
	}
	return out, nil
}

// FailStuck marks PENDING and RUNNING jobs started before cutoff as FAILED
// and returns how many it flipped. The sweeper in internal/app calls this on
// an interval to reap jobs whose worker died mid-run.
func (r *JobRepo) FailStuck(ctx domain.Context, cutoff time.Time, reason string) (int, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.FailStuck")
	defer span.End()
	q := `UPDATE ingestion_jobs
	SET status='FAILED', errors=array_append(errors, $2), finished_at=NOW()
	WHERE status IN ('PENDING','RUNNING') AND started_at < $1`
	tag, err := r.Pool.Exec(ctx, q, cutoff.UTC(), reason)
	if err != nil {
		return 0, fmt.Errorf("op=job.fail_stuck: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanJob(row rowScanner) (domain.IngestionJob, error) {
	var j domain.IngestionJob
	var status string
	if err := row.Scan(&j.ID, &j.SourceID, &status,
		&j.RecordsTotal, &j.RecordsValid, &j.RecordsWarning, &j.RecordsInvalid, &j.RecordsStored,
		&j.Errors, &j.Warnings, &j.StartedAt, &j.FinishedAt); err != nil {
		return domain.IngestionJob{}, err
	}
	j.Status = domain.JobStatus(status)
	return j, nil
}
