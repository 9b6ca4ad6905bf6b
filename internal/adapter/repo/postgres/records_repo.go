package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// RecordRepo persists freight records in PostgreSQL using a minimal pgx pool.
type RecordRepo struct{ Pool PgxPool }

// NewRecordRepo constructs a RecordRepo with the given pool.
func NewRecordRepo(p PgxPool) *RecordRepo { return &RecordRepo{Pool: p} }

const recordColumns = `id, record_date, origin, destination, COALESCE(carrier,''), freight_charge::text, currency_code, transport_mode, source_system, COALESCE(source_record_id,''), quality_flag, quality_reasons, created_at, is_deleted`

// Append inserts a batch of records. Duplicates on
// (source_system, source_record_id) are skipped, not rewritten, so replayed
// ingestion runs stay idempotent.
func (r *RecordRepo) Append(ctx domain.Context, records []domain.FreightRecord) (domain.AppendResult, error) {
	tracer := otel.Tracer("repo.records")
	ctx, span := tracer.Start(ctx, "records.Append")
	defer span.End()
	if len(records) == 0 {
		return domain.AppendResult{}, nil
	}
	q := `INSERT INTO freight_records
	(id, record_date, origin, destination, carrier, freight_charge, currency_code, transport_mode, source_system, source_record_id, quality_flag, quality_reasons, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (source_system, source_record_id) DO NOTHING`
	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if rec.SourceRecordID == "" {
			// No natural key from the source; the generated id keeps the
			// uniqueness constraint satisfied without ever colliding.
			rec.SourceRecordID = rec.ID
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		batch.Queue(q,
			rec.ID, rec.RecordDate.UTC(), rec.Origin, rec.Destination, rec.Carrier,
			rec.FreightCharge.String(), rec.CurrencyCode, string(rec.TransportMode),
			rec.SourceSystem, rec.SourceRecordID, string(rec.QualityFlag),
			rec.QualityReasons, rec.CreatedAt)
	}
	br := r.Pool.SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()
	var res domain.AppendResult
	for i := range records {
		tag, err := br.Exec()
		if err != nil {
			return domain.AppendResult{}, fmt.Errorf("op=records.append: %w", err)
		}
		if tag.RowsAffected() == 0 {
			res.Skipped++
			continue
		}
		res.Stored++
		d := records[i].RecordDate.UTC()
		if res.MinDate.IsZero() || d.Before(res.MinDate) {
			res.MinDate = d
		}
		if res.MaxDate.IsZero() || d.After(res.MaxDate) {
			res.MaxDate = d
		}
	}
	return res, nil
}

// RangeScan loads records inside the closed window [Start, End] ordered by
// record_date ascending. INVALID and soft-deleted records are excluded unless
// the query opts in.
func (r *RecordRepo) RangeScan(ctx domain.Context, qr domain.RecordQuery) ([]domain.FreightRecord, error) {
	tracer := otel.Tracer("repo.records")
	ctx, span := tracer.Start(ctx, "records.RangeScan")
	defer span.End()
	var b strings.Builder
	b.WriteString(`SELECT ` + recordColumns + ` FROM freight_records WHERE record_date >= $1 AND record_date <= $2`)
	args := []any{qr.Start.UTC(), qr.End.UTC()}
	addAny := func(col string, vals []string) {
		if len(vals) == 0 {
			return
		}
		args = append(args, vals)
		fmt.Fprintf(&b, " AND %s = ANY($%d)", col, len(args))
	}
	addAny("origin", qr.Origins)
	addAny("destination", qr.Destinations)
	addAny("carrier", qr.Carriers)
	if len(qr.Modes) > 0 {
		modes := make([]string, 0, len(qr.Modes))
		for _, m := range qr.Modes {
			modes = append(modes, string(m))
		}
		addAny("transport_mode", modes)
	}
	addAny("source_system", qr.SourceIDs)
	if !qr.IncludeInvalid {
		b.WriteString(" AND quality_flag <> 'INVALID'")
	}
	if !qr.IncludeDeleted {
		b.WriteString(" AND NOT is_deleted")
	}
	b.WriteString(" ORDER BY record_date ASC")

	rows, err := r.Pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("op=records.range_scan: %w", err)
	}
	defer rows.Close()
	var out []domain.FreightRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("op=records.range_scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=records.range_scan: %w", err)
	}
	return out, nil
}

// GetByID loads a single record by id, including soft-deleted ones.
func (r *RecordRepo) GetByID(ctx domain.Context, id string) (domain.FreightRecord, error) {
	tracer := otel.Tracer("repo.records")
	ctx, span := tracer.Start(ctx, "records.GetByID")
	defer span.End()
	q := `SELECT ` + recordColumns + ` FROM freight_records WHERE id=$1`
	rec, err := scanRecord(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.FreightRecord{}, fmt.Errorf("op=records.get: %w", domain.ErrNotFound)
		}
		return domain.FreightRecord{}, fmt.Errorf("op=records.get: %w", err)
	}
	return rec, nil
}

// SoftDelete hides a record from scans without destroying the audit trail.
func (r *RecordRepo) SoftDelete(ctx domain.Context, id string) error {
	tracer := otel.Tracer("repo.records")
	ctx, span := tracer.Start(ctx, "records.SoftDelete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `UPDATE freight_records SET is_deleted=TRUE WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=records.soft_delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=records.soft_delete: %w", domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRecord(row rowScanner) (domain.FreightRecord, error) {
	var rec domain.FreightRecord
	var charge string
	var mode, flag string
	if err := row.Scan(&rec.ID, &rec.RecordDate, &rec.Origin, &rec.Destination, &rec.Carrier,
		&charge, &rec.CurrencyCode, &mode, &rec.SourceSystem, &rec.SourceRecordID,
		&flag, &rec.QualityReasons, &rec.CreatedAt, &rec.IsDeleted); err != nil {
		return domain.FreightRecord{}, err
	}
	dec, err := decimal.NewFromString(charge)
	if err != nil {
		return domain.FreightRecord{}, fmt.Errorf("parse freight_charge: %w", err)
	}
	rec.FreightCharge = dec
	rec.TransportMode = domain.TransportMode(mode)
	rec.QualityFlag = domain.QualityStatus(flag)
	return rec, nil
}
