// Package usecase wires the domain ports into the three inbound services:
// data source management, ingestion, and price movement analysis.
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/ingest"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/observability"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/resilience"
)

// DataSourceService manages data source configurations and their lifecycle.
type DataSourceService struct {
	Sources  domain.SourceConfigRepository
	Jobs     domain.IngestionJobRepository
	Factory  domain.DataSourceFactory
	Breakers *resilience.Registry
}

// NewDataSourceService constructs a DataSourceService.
func NewDataSourceService(sources domain.SourceConfigRepository, jobs domain.IngestionJobRepository, factory domain.DataSourceFactory, breakers *resilience.Registry) DataSourceService {
	return DataSourceService{Sources: sources, Jobs: jobs, Factory: factory, Breakers: breakers}
}

// Create validates and persists a new source. New sources start ACTIVE
// unless the caller sets a status explicitly.
func (s DataSourceService) Create(ctx context.Context, cfg domain.DataSourceConfig) (domain.DataSourceConfig, error) {
	if err := ingest.ValidateConfig(cfg); err != nil {
		return domain.DataSourceConfig{}, err
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.Status == "" {
		cfg.Status = domain.SourceActive
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	id, err := s.Sources.Create(ctx, cfg)
	if err != nil {
		return domain.DataSourceConfig{}, fmt.Errorf("op=datasource.create: %w", err)
	}
	cfg.ID = id
	return cfg, nil
}

// Get loads one source configuration.
func (s DataSourceService) Get(ctx context.Context, id string) (domain.DataSourceConfig, error) {
	return s.Sources.Get(ctx, id)
}

// List returns all configured sources.
func (s DataSourceService) List(ctx context.Context) ([]domain.DataSourceConfig, error) {
	return s.Sources.List(ctx)
}

// Update validates and persists changes to an existing source. Identity and
// creation time are immutable.
func (s DataSourceService) Update(ctx context.Context, cfg domain.DataSourceConfig) (domain.DataSourceConfig, error) {
	existing, err := s.Sources.Get(ctx, cfg.ID)
	if err != nil {
		return domain.DataSourceConfig{}, err
	}
	if err := ingest.ValidateConfig(cfg); err != nil {
		return domain.DataSourceConfig{}, err
	}
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now().UTC()
	if cfg.Status == "" {
		cfg.Status = existing.Status
	}
	if err := s.Sources.Update(ctx, cfg); err != nil {
		return domain.DataSourceConfig{}, fmt.Errorf("op=datasource.update: %w", err)
	}
	return cfg, nil
}

// Delete removes a source configuration. Ingested records keep their
// source_system tag and stay queryable.
func (s DataSourceService) Delete(ctx context.Context, id string) error {
	if _, err := s.Sources.Get(ctx, id); err != nil {
		return err
	}
	if err := s.Sources.Delete(ctx, id); err != nil {
		return fmt.Errorf("op=datasource.delete: %w", err)
	}
	return nil
}

// Activate flips a source to ACTIVE.
func (s DataSourceService) Activate(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.SourceActive)
}

// Deactivate flips a source to INACTIVE; the pipeline refuses to ingest it.
func (s DataSourceService) Deactivate(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.SourceInactive)
}

func (s DataSourceService) setStatus(ctx context.Context, id string, status domain.SourceStatus) error {
	if _, err := s.Sources.Get(ctx, id); err != nil {
		return err
	}
	if err := s.Sources.SetStatus(ctx, id, status); err != nil {
		return fmt.Errorf("op=datasource.set_status: %w", err)
	}
	return nil
}

// TestConnection probes the source through its breaker so a flapping
// upstream fails fast here the same way it does during ingestion.
func (s DataSourceService) TestConnection(ctx context.Context, id string) error {
	tracer := otel.Tracer("usecase.datasource")
	ctx, span := tracer.Start(ctx, "datasource.TestConnection")
	defer span.End()

	cfg, err := s.Sources.Get(ctx, id)
	if err != nil {
		return err
	}
	src, err := s.Factory.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = src.Disconnect(context.WithoutCancel(ctx)) }()

	start := time.Now()
	err = s.Breakers.Get("connector:" + cfg.ID).Execute(ctx, src.TestConnection)
	observability.ObserveConnectorRequest(string(cfg.SourceType), "test_connection", time.Since(start), err)
	return err
}

// ListLogs returns the most recent ingestion jobs for a source.
func (s DataSourceService) ListLogs(ctx context.Context, id string, limit int) ([]domain.IngestionJob, error) {
	if _, err := s.Sources.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	return s.Jobs.ListBySource(ctx, id, limit)
}
