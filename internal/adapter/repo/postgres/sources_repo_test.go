package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

var sourceCols = []string{
	"id", "name", "description", "source_type", "connection_params",
	"field_mapping", "status", "schedule", "last_ingested_at", "created_at", "updated_at",
}

func TestSourceRepoCreate(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO data_sources").
		WithArgs("src-1", "spot rates", "", "CSV",
			[]byte(`{"file_path":"/data/rates.csv"}`), []byte(`{"price":"freight_charge"}`),
			"ACTIVE", "", (*time.Time)(nil), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := postgres.NewSourceRepo(mock)
	id, err := repo.Create(context.Background(), domain.DataSourceConfig{
		ID:               "src-1",
		Name:             "spot rates",
		SourceType:       domain.SourceCSV,
		ConnectionParams: map[string]any{"file_path": "/data/rates.csv"},
		FieldMapping:     map[string]string{"price": "freight_charge"},
		Status:           domain.SourceActive,
	})
	require.NoError(t, err)
	assert.Equal(t, "src-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceRepoGetRoundTrip(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows(sourceCols).
		AddRow("src-1", "spot rates", "weekly file drop", "CSV",
			[]byte(`{"file_path":"/data/rates.csv"}`), []byte(`{"price":"freight_charge"}`),
			"ACTIVE", "@every 6h", nil, day(2024, 1, 1), day(2024, 1, 2))
	mock.ExpectQuery(`SELECT .+ FROM data_sources WHERE id=\$1`).
		WithArgs("src-1").
		WillReturnRows(rows)

	repo := postgres.NewSourceRepo(mock)
	cfg, err := repo.Get(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceCSV, cfg.SourceType)
	assert.Equal(t, "/data/rates.csv", cfg.ConnectionParams["file_path"])
	assert.Equal(t, "freight_charge", cfg.FieldMapping["price"])
	assert.Equal(t, "@every 6h", cfg.Schedule)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceRepoGetNotFound(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM data_sources WHERE id=\$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	repo := postgres.NewSourceRepo(mock)
	_, err = repo.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceRepoUpdateNotFound(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE data_sources SET").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := postgres.NewSourceRepo(mock)
	err = repo.Update(context.Background(), domain.DataSourceConfig{ID: "missing"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceRepoSetStatus(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE data_sources SET status=\$2, updated_at=\$3 WHERE id=\$1`).
		WithArgs("src-1", "INACTIVE", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := postgres.NewSourceRepo(mock)
	require.NoError(t, repo.SetStatus(context.Background(), "src-1", domain.SourceInactive))
	require.NoError(t, mock.ExpectationsWereMet())
}
