package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tx is the transaction surface the cleanup service needs.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner opens transactions. *pgxpool.Pool is adapted via PoolBeginner.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

type poolBeginner struct{ p *pgxpool.Pool }

func (b poolBeginner) Begin(ctx context.Context) (Tx, error) { return b.p.Begin(ctx) }

// PoolBeginner adapts a pgx pool to the Beginner interface.
func PoolBeginner(p *pgxpool.Pool) Beginner { return poolBeginner{p: p} }

// CleanupService enforces data retention: it purges soft-deleted freight
// records, finished ingestion jobs, and stored analysis results once they age
// past the retention window.
type CleanupService struct {
	DB            Beginner
	RetentionDays int
}

// NewCleanupService creates a cleanup service with the given retention.
func NewCleanupService(db Beginner, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &CleanupService{DB: db, RetentionDays: retentionDays}
}

// CleanupOldData removes data older than the retention period.
func (s *CleanupService) CleanupOldData(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.RetentionDays)

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cleanup begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Soft-deleted records are kept for the retention window as an audit
	// trail, then purged for good.
	recTag, err := tx.Exec(ctx, `DELETE FROM freight_records WHERE is_deleted AND created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup records: %w", err)
	}
	jobTag, err := tx.Exec(ctx, `DELETE FROM ingestion_jobs WHERE finished_at IS NOT NULL AND finished_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup jobs: %w", err)
	}
	resTag, err := tx.Exec(ctx, `DELETE FROM analysis_results WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cleanup commit: %w", err)
	}

	slog.Info("data cleanup completed",
		slog.Int64("purged_records", recTag.RowsAffected()),
		slog.Int64("deleted_jobs", jobTag.RowsAffected()),
		slog.Int64("deleted_results", resTag.RowsAffected()),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

// RunPeriodic runs cleanup on an interval until the context is canceled.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
