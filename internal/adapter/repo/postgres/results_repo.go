package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// ResultRepo persists completed analysis results in PostgreSQL. The full
// result document lives in a JSONB payload column; id, fingerprint, and the
// analysis window are lifted into plain columns for lookups.
type ResultRepo struct{ Pool PgxPool }

// NewResultRepo constructs a ResultRepo with the given pool.
func NewResultRepo(p PgxPool) *ResultRepo { return &ResultRepo{Pool: p} }

// Save inserts or replaces a result by id.
func (r *ResultRepo) Save(ctx domain.Context, res domain.AnalysisResult) error {
	tracer := otel.Tracer("repo.results")
	ctx, span := tracer.Start(ctx, "results.Save")
	defer span.End()
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("op=result.save: %w", err)
	}
	q := `INSERT INTO analysis_results (id, fingerprint, window_start, window_end, payload, created_at)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (id)
	DO UPDATE SET fingerprint=EXCLUDED.fingerprint, window_start=EXCLUDED.window_start, window_end=EXCLUDED.window_end, payload=EXCLUDED.payload`
	_, err = r.Pool.Exec(ctx, q, res.ID, res.Fingerprint,
		res.Request.TimePeriod.Start.UTC(), res.Request.TimePeriod.End.UTC(),
		payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=result.save: %w", err)
	}
	return nil
}

// Get loads a result by its id.
func (r *ResultRepo) Get(ctx domain.Context, id string) (domain.AnalysisResult, error) {
	tracer := otel.Tracer("repo.results")
	ctx, span := tracer.Start(ctx, "results.Get")
	defer span.End()
	q := `SELECT payload FROM analysis_results WHERE id=$1`
	var payload []byte
	if err := r.Pool.QueryRow(ctx, q, id).Scan(&payload); err != nil {
		if err == pgx.ErrNoRows {
			return domain.AnalysisResult{}, fmt.Errorf("op=result.get: %w", domain.ErrNotFound)
		}
		return domain.AnalysisResult{}, fmt.Errorf("op=result.get: %w", err)
	}
	var res domain.AnalysisResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("op=result.get: %w", err)
	}
	return res, nil
}
