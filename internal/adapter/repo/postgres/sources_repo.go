package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// SourceRepo persists data source configurations in PostgreSQL.
// Connection parameters and field mappings live in JSONB columns so new
// connector families need no schema change.
type SourceRepo struct{ Pool PgxPool }

// NewSourceRepo constructs a SourceRepo with the given pool.
func NewSourceRepo(p PgxPool) *SourceRepo { return &SourceRepo{Pool: p} }

const sourceColumns = `id, name, COALESCE(description,''), source_type, connection_params, field_mapping, status, COALESCE(schedule,''), last_ingested_at, created_at, updated_at`

// Create inserts a new source configuration and returns its id.
func (r *SourceRepo) Create(ctx domain.Context, cfg domain.DataSourceConfig) (string, error) {
	tracer := otel.Tracer("repo.sources")
	ctx, span := tracer.Start(ctx, "sources.Create")
	defer span.End()
	params, mapping, err := marshalSourceJSON(cfg)
	if err != nil {
		return "", fmt.Errorf("op=source.create: %w", err)
	}
	q := `INSERT INTO data_sources (id, name, description, source_type, connection_params, field_mapping, status, schedule, last_ingested_at, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	_, err = r.Pool.Exec(ctx, q, cfg.ID, cfg.Name, cfg.Description, string(cfg.SourceType),
		params, mapping, string(cfg.Status), cfg.Schedule, cfg.LastIngestedAt, cfg.CreatedAt, now)
	if err != nil {
		return "", fmt.Errorf("op=source.create: %w", err)
	}
	return cfg.ID, nil
}

// Get loads a source configuration by id.
func (r *SourceRepo) Get(ctx domain.Context, id string) (domain.DataSourceConfig, error) {
	tracer := otel.Tracer("repo.sources")
	ctx, span := tracer.Start(ctx, "sources.Get")
	defer span.End()
	q := `SELECT ` + sourceColumns + ` FROM data_sources WHERE id=$1`
	cfg, err := scanSource(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.DataSourceConfig{}, fmt.Errorf("op=source.get: %w", domain.ErrNotFound)
		}
		return domain.DataSourceConfig{}, fmt.Errorf("op=source.get: %w", err)
	}
	return cfg, nil
}

// List returns all source configurations ordered by creation time.
func (r *SourceRepo) List(ctx domain.Context) ([]domain.DataSourceConfig, error) {
	tracer := otel.Tracer("repo.sources")
	ctx, span := tracer.Start(ctx, "sources.List")
	defer span.End()
	q := `SELECT ` + sourceColumns + ` FROM data_sources ORDER BY created_at ASC`
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=source.list: %w", err)
	}
	defer rows.Close()
	var out []domain.DataSourceConfig
	for rows.Next() {
		cfg, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("op=source.list: %w", err)
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=source.list: %w", err)
	}
	return out, nil
}

// Update replaces the mutable fields of a source configuration.
func (r *SourceRepo) Update(ctx domain.Context, cfg domain.DataSourceConfig) error {
	tracer := otel.Tracer("repo.sources")
	ctx, span := tracer.Start(ctx, "sources.Update")
	defer span.End()
	params, mapping, err := marshalSourceJSON(cfg)
	if err != nil {
		return fmt.Errorf("op=source.update: %w", err)
	}
	q := `UPDATE data_sources SET name=$2, description=$3, connection_params=$4, field_mapping=$5, status=$6, schedule=$7, updated_at=$8 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, cfg.ID, cfg.Name, cfg.Description, params, mapping,
		string(cfg.Status), cfg.Schedule, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=source.update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=source.update: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes a source configuration. Ingested records keep their
// source_system tag and stay queryable.
func (r *SourceRepo) Delete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.sources")
	ctx, span := tracer.Start(ctx, "sources.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM data_sources WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=source.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=source.delete: %w", domain.ErrNotFound)
	}
	return nil
}

// SetStatus flips a source's lifecycle status.
func (r *SourceRepo) SetStatus(ctx domain.Context, id string, status domain.SourceStatus) error {
	tracer := otel.Tracer("repo.sources")
	ctx, span := tracer.Start(ctx, "sources.SetStatus")
	defer span.End()
	q := `UPDATE data_sources SET status=$2, updated_at=$3 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=source.set_status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=source.set_status: %w", domain.ErrNotFound)
	}
	return nil
}

// MarkIngested records when a source last completed an ingestion run.
func (r *SourceRepo) MarkIngested(ctx domain.Context, id string, at time.Time) error {
	tracer := otel.Tracer("repo.sources")
	ctx, span := tracer.Start(ctx, "sources.MarkIngested")
	defer span.End()
	q := `UPDATE data_sources SET last_ingested_at=$2, updated_at=$3 WHERE id=$1`
	_, err := r.Pool.Exec(ctx, q, id, at.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=source.mark_ingested: %w", err)
	}
	return nil
}

func marshalSourceJSON(cfg domain.DataSourceConfig) (params, mapping []byte, err error) {
	params, err = json.Marshal(cfg.ConnectionParams)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal connection_params: %w", err)
	}
	mapping, err = json.Marshal(cfg.FieldMapping)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal field_mapping: %w", err)
	}
	return params, mapping, nil
}

func scanSource(row rowScanner) (domain.DataSourceConfig, error) {
	var cfg domain.DataSourceConfig
	var srcType, status string
	var params, mapping []byte
	if err := row.Scan(&cfg.ID, &cfg.Name, &cfg.Description, &srcType, &params, &mapping,
		&status, &cfg.Schedule, &cfg.LastIngestedAt, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return domain.DataSourceConfig{}, err
	}
	cfg.SourceType = domain.SourceType(srcType)
	cfg.Status = domain.SourceStatus(status)
	if err := json.Unmarshal(params, &cfg.ConnectionParams); err != nil {
		return domain.DataSourceConfig{}, fmt.Errorf("unmarshal connection_params: %w", err)
	}
	if err := json.Unmarshal(mapping, &cfg.FieldMapping); err != nil {
		return domain.DataSourceConfig{}, fmt.Errorf("unmarshal field_mapping: %w", err)
	}
	return cfg, nil
}
