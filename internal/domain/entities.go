package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SourceType enumerates the supported connector families.
type SourceType string

const (
	SourceCSV         SourceType = "CSV"
	SourceDatabase    SourceType = "DATABASE"
	SourceREST        SourceType = "REST"
	SourceSOAP        SourceType = "SOAP"
	SourceGraphQL     SourceType = "GRAPHQL"
	SourceTMSSAP      SourceType = "TMS_SAP"
	SourceTMSOracle   SourceType = "TMS_ORACLE"
	SourceTMSJDA      SourceType = "TMS_JDA"
	SourceERPSAP      SourceType = "ERP_SAP"
	SourceERPOracle   SourceType = "ERP_ORACLE"
	SourceERPDynamics SourceType = "ERP_DYNAMICS"
)

// SourceStatus is the lifecycle status of a configured data source.
type SourceStatus string

const (
	SourceActive   SourceStatus = "ACTIVE"
	SourceInactive SourceStatus = "INACTIVE"
	SourceError    SourceStatus = "ERROR"
)

// TransportMode enumerates freight transport modes.
type TransportMode string

const (
	ModeOcean      TransportMode = "OCEAN"
	ModeAir        TransportMode = "AIR"
	ModeRoad       TransportMode = "ROAD"
	ModeRail       TransportMode = "RAIL"
	ModeMultimodal TransportMode = "MULTIMODAL"
)

// QualityStatus flags a record's data quality after validation.
// INVALID records are stored but excluded from analysis by default.
type QualityStatus string

const (
	QualityValid   QualityStatus = "VALID"
	QualityWarning QualityStatus = "WARNING"
	QualityInvalid QualityStatus = "INVALID"
)

// FreightRecord is a single observed freight price point.
// Invariants: FreightCharge parsed as exact decimal; RecordDate in UTC;
// CurrencyCode is an ISO-4217 uppercase code once flagged VALID or WARNING.
type FreightRecord struct {
	ID             string          `json:"id"`
	RecordDate     time.Time       `json:"record_date"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	Carrier        string          `json:"carrier,omitempty"`
	FreightCharge  decimal.Decimal `json:"freight_charge"`
	CurrencyCode   string          `json:"currency_code"`
	TransportMode  TransportMode   `json:"transport_mode"`
	SourceSystem   string          `json:"source_system"`
	SourceRecordID string          `json:"source_record_id,omitempty"`
	QualityFlag    QualityStatus   `json:"quality_flag"`
	QualityReasons []string        `json:"quality_reasons,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	IsDeleted      bool            `json:"-"`
}

// DataSourceConfig describes one configured data source.
// ConnectionParams are connector-specific; FieldMapping maps source
// column/field names to canonical field names.
type DataSourceConfig struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	SourceType       SourceType        `json:"source_type"`
	ConnectionParams map[string]any    `json:"connection_params"`
	FieldMapping     map[string]string `json:"field_mapping"`
	Status           SourceStatus      `json:"status"`
	Schedule         string            `json:"schedule,omitempty"`
	LastIngestedAt   *time.Time        `json:"last_ingested_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// JobStatus is the lifecycle status of an ingestion job.
type JobStatus string

const (
	JobPending JobStatus = "PENDING"
	JobRunning JobStatus = "RUNNING"
	JobSuccess JobStatus = "SUCCESS"
	JobPartial JobStatus = "PARTIAL"
	JobFailed  JobStatus = "FAILED"
)

// JobErrorCap bounds the number of captured error and warning messages per
// ingestion job; counters keep counting past the cap.
const JobErrorCap = 100

// IngestionJob is the outcome record of one pipeline run.
type IngestionJob struct {
	ID             string     `json:"id"`
	SourceID       string     `json:"source_id"`
	Status         JobStatus  `json:"status"`
	RecordsTotal   int        `json:"records_total"`
	RecordsValid   int        `json:"records_valid"`
	RecordsWarning int        `json:"records_warning"`
	RecordsInvalid int        `json:"records_invalid"`
	RecordsStored  int        `json:"records_stored"`
	Errors         []string   `json:"errors,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Ports
//go:generate mockery --name=RecordStore --filename=record_store_mock.go
//go:generate mockery --name=SourceConfigRepository --filename=source_config_repository_mock.go
//go:generate mockery --name=IngestionJobRepository --filename=ingestion_job_repository_mock.go
//go:generate mockery --name=AnalysisResultRepository --filename=analysis_result_repository_mock.go
//go:generate mockery --name=RateProvider --filename=rate_provider_mock.go
//go:generate mockery --name=ResultCache --filename=result_cache_mock.go
//go:generate mockery --name=IngestQueue --filename=ingest_queue_mock.go
//go:generate mockery --name=DataSource --filename=data_source_mock.go
//go:generate mockery --name=DataSourceFactory --filename=data_source_factory_mock.go

// RecordQuery selects records for a range scan. The zero value of
// IncludeInvalid excludes INVALID-flagged records, matching analysis defaults.
type RecordQuery struct {
	Start          time.Time
	End            time.Time
	Origins        []string
	Destinations   []string
	Carriers       []string
	Modes          []TransportMode
	SourceIDs      []string
	IncludeInvalid bool
	IncludeDeleted bool
}

// AppendResult reports the effect of a batch append. MinDate/MaxDate bound
// the record dates of the stored batch and drive cache eviction.
type AppendResult struct {
	Stored  int
	Skipped int
	MinDate time.Time
	MaxDate time.Time
}

// RecordStore persists freight records.
// Append is idempotent per (source_system, source_record_id); re-appending an
// already stored record counts as Skipped. RangeScan returns records ordered
// by record_date ascending.
type RecordStore interface {
	Append(ctx Context, records []FreightRecord) (AppendResult, error)
	RangeScan(ctx Context, q RecordQuery) ([]FreightRecord, error)
	GetByID(ctx Context, id string) (FreightRecord, error)
	SoftDelete(ctx Context, id string) error
}

// SourceConfigRepository persists data source configurations.
type SourceConfigRepository interface {
	Create(ctx Context, cfg DataSourceConfig) (string, error)
	Get(ctx Context, id string) (DataSourceConfig, error)
	List(ctx Context) ([]DataSourceConfig, error)
	Update(ctx Context, cfg DataSourceConfig) error
	Delete(ctx Context, id string) error
	SetStatus(ctx Context, id string, status SourceStatus) error
	MarkIngested(ctx Context, id string, at time.Time) error
}

// IngestionJobRepository persists ingestion job outcomes.
type IngestionJobRepository interface {
	Create(ctx Context, job IngestionJob) (string, error)
	Update(ctx Context, job IngestionJob) error
	Get(ctx Context, id string) (IngestionJob, error)
	ListBySource(ctx Context, sourceID string, limit int) ([]IngestionJob, error)
}

// AnalysisResultRepository persists completed analysis results.
type AnalysisResultRepository interface {
	Save(ctx Context, res AnalysisResult) error
	Get(ctx Context, id string) (AnalysisResult, error)
}

// RateProvider resolves exchange rates. A zero `on` time means the latest
// available rate. Same-currency conversions return 1 without any I/O.
type RateProvider interface {
	Rate(ctx Context, from, to string, on time.Time) (decimal.Decimal, error)
}

// ResultCache caches completed analysis results by request fingerprint.
// EvictOverlapping drops every cached entry whose analysis window overlaps
// [min, max].
type ResultCache interface {
	Get(ctx Context, fingerprint string) (AnalysisResult, bool, error)
	Put(ctx Context, fingerprint string, res AnalysisResult) error
	EvictOverlapping(ctx Context, min, max time.Time) (int, error)
}

// IngestTaskPayload is the queued unit of ingestion work.
type IngestTaskPayload struct {
	JobID     string         `json:"job_id"`
	SourceID  string         `json:"source_id"`
	Params    map[string]any `json:"params,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// IngestQueue hands ingestion work to the worker process.
type IngestQueue interface {
	EnqueueIngest(ctx Context, payload IngestTaskPayload) (string, error)
}

// RecordStream yields raw records from a connector one at a time.
// Next returns io.EOF after the last record. Close releases connector-held
// resources for the stream and is safe to call more than once.
type RecordStream interface {
	Next(ctx Context) (map[string]any, error)
	Close() error
}

// DataSource is the connector contract. Fetch from a fresh connector
// implicitly connects. Disconnect is idempotent.
type DataSource interface {
	Type() SourceType
	TestConnection(ctx Context) error
	Connect(ctx Context) error
	Disconnect(ctx Context) error
	Fetch(ctx Context, params map[string]any) (RecordStream, error)
}

// DataSourceFactory builds a connector for a configuration.
type DataSourceFactory interface {
	New(cfg DataSourceConfig) (DataSource, error)
}

// Context is an alias to allow decoupling from std context in domain.
// Adapters and usecases pass context.Context through.
type Context = context.Context
