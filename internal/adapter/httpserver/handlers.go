package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/config"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Sources    usecase.DataSourceService
	Ingestion  usecase.IngestionService
	Analysis   *usecase.AnalysisService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	KafkaCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, sources usecase.DataSourceService, ingestion usecase.IngestionService, analysis *usecase.AnalysisService, dbCheck, redisCheck, kafkaCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:        cfg,
		Sources:    sources,
		Ingestion:  ingestion,
		Analysis:   analysis,
		DBCheck:    dbCheck,
		RedisCheck: redisCheck,
		KafkaCheck: kafkaCheck,
	}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

func decodeValid(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Wrap(domain.KindValidation, "invalid json body", err)
	}
	if err := getValidator().Struct(dst); err != nil {
		verr := domain.E(domain.KindValidation, "validation failed")
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verr.WithDetail(strings.ToLower(fe.Field()), fe.Tag())
			}
		}
		return verr
	}
	return nil
}

type sourceRequest struct {
	Name             string            `json:"name" validate:"required,max=200"`
	Description      string            `json:"description" validate:"max=2000"`
	SourceType       string            `json:"source_type" validate:"required"`
	ConnectionParams map[string]any    `json:"connection_params" validate:"required"`
	FieldMapping     map[string]string `json:"field_mapping" validate:"required"`
	Schedule         string            `json:"schedule"`
}

func (req sourceRequest) toConfig() domain.DataSourceConfig {
	return domain.DataSourceConfig{
		Name:             req.Name,
		Description:      req.Description,
		SourceType:       domain.SourceType(strings.ToUpper(req.SourceType)),
		ConnectionParams: req.ConnectionParams,
		FieldMapping:     req.FieldMapping,
		Schedule:         req.Schedule,
	}
}

// CreateSourceHandler registers a new data source.
func (s *Server) CreateSourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sourceRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		cfg, err := s.Sources.Create(r.Context(), req.toConfig())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, cfg)
	}
}

// ListSourcesHandler lists all configured data sources.
func (s *Server) ListSourcesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.Sources.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
	}
}

// GetSourceHandler returns one data source configuration.
func (s *Server) GetSourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := s.Sources.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

// UpdateSourceHandler replaces the mutable fields of a data source.
func (s *Server) UpdateSourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sourceRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		cfg := req.toConfig()
		cfg.ID = chi.URLParam(r, "id")
		updated, err := s.Sources.Update(r.Context(), cfg)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// DeleteSourceHandler removes a data source configuration.
func (s *Server) DeleteSourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Sources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ActivateSourceHandler flips a source to ACTIVE.
func (s *Server) ActivateSourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Sources.Activate(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.SourceActive)})
	}
}

// DeactivateSourceHandler flips a source to INACTIVE.
func (s *Server) DeactivateSourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Sources.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.SourceInactive)})
	}
}

// TestSourceHandler probes connectivity of a configured source.
func (s *Server) TestSourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Sources.TestConnection(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// SourceLogsHandler returns recent ingestion jobs of a source.
func (s *Server) SourceLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := s.Sources.ListLogs(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 0))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": logs})
	}
}

type ingestRequest struct {
	Params map[string]any `json:"params"`
}

// IngestHandler enqueues an ingestion job and replies 202 with the job.
func (s *Server) IngestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ingestRequest
		if r.ContentLength > 0 {
			if err := decodeValid(r, &req); err != nil {
				writeError(w, r, err)
				return
			}
		}
		job, err := s.Ingestion.Ingest(r.Context(), chi.URLParam(r, "id"), req.Params)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, job)
	}
}

// PreviewHandler fetches and validates a sample of records without storing
// anything.
func (s *Server) PreviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ingestRequest
		if r.ContentLength > 0 {
			if err := decodeValid(r, &req); err != nil {
				writeError(w, r, err)
				return
			}
		}
		preview, err := s.Ingestion.Preview(r.Context(), chi.URLParam(r, "id"), req.Params, queryInt(r, "limit", 0))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, preview)
	}
}

type scheduleRequest struct {
	Schedule string `json:"schedule" validate:"required"`
}

// ScheduleHandler sets a source's recurring ingestion schedule.
func (s *Server) ScheduleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduleRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.Ingestion.Schedule(r.Context(), chi.URLParam(r, "id"), req.Schedule); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"schedule": req.Schedule})
	}
}

// CancelScheduleHandler clears a source's recurring ingestion schedule.
func (s *Server) CancelScheduleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Ingestion.CancelSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetJobHandler returns one ingestion job.
func (s *Server) GetJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.Ingestion.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

// ListJobsHandler lists recent jobs of a source given by query parameter.
func (s *Server) ListJobsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceID := r.URL.Query().Get("source_id")
		if sourceID == "" {
			writeError(w, r, domain.E(domain.KindValidation, "source_id query parameter is required"))
			return
		}
		jobs, err := s.Ingestion.ListJobs(r.Context(), sourceID, queryInt(r, "limit", 0))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
	}
}

type timePeriodDTO struct {
	Start              string `json:"start" validate:"required"`
	End                string `json:"end" validate:"required"`
	Granularity        string `json:"granularity" validate:"required"`
	CustomIntervalDays int    `json:"custom_interval_days"`
}

type baselineDTO struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

type analysisOptionsDTO struct {
	TargetCurrency    string       `json:"target_currency"`
	IncludeTimeSeries bool         `json:"include_time_series"`
	IncludeAggregates bool         `json:"include_aggregates"`
	Baseline          *baselineDTO `json:"baseline"`
	Format            string       `json:"format"`
}

type analyzeRequest struct {
	TimePeriod timePeriodDTO         `json:"time_period" validate:"required"`
	Filter     domain.AnalysisFilter `json:"filter"`
	Options    analysisOptionsDTO    `json:"options"`
}

func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, domain.Ef(domain.KindValidation, "invalid date %q, want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

func (req analyzeRequest) toDomain() (domain.AnalysisRequest, error) {
	start, err := parseDay(req.TimePeriod.Start)
	if err != nil {
		return domain.AnalysisRequest{}, err
	}
	end, err := parseDay(req.TimePeriod.End)
	if err != nil {
		return domain.AnalysisRequest{}, err
	}
	out := domain.AnalysisRequest{
		TimePeriod: domain.TimePeriod{
			Start:              start,
			End:                end,
			Granularity:        domain.Granularity(strings.ToUpper(req.TimePeriod.Granularity)),
			CustomIntervalDays: req.TimePeriod.CustomIntervalDays,
		},
		Filter: req.Filter,
		Options: domain.AnalysisOptions{
			TargetCurrency:    strings.ToUpper(req.Options.TargetCurrency),
			IncludeTimeSeries: req.Options.IncludeTimeSeries,
			IncludeAggregates: req.Options.IncludeAggregates,
			Format:            domain.OutputFormat(strings.ToUpper(req.Options.Format)),
		},
	}
	if req.Options.Baseline != nil {
		bStart, err := parseDay(req.Options.Baseline.Start)
		if err != nil {
			return domain.AnalysisRequest{}, err
		}
		bEnd, err := parseDay(req.Options.Baseline.End)
		if err != nil {
			return domain.AnalysisRequest{}, err
		}
		out.Options.Baseline = &domain.TimePeriod{
			Start:       bStart,
			End:         bEnd,
			Granularity: out.TimePeriod.Granularity,
		}
	}
	return out, nil
}

// AnalyzeHandler computes a price movement analysis, serving repeated
// requests from cache.
func (s *Server) AnalyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		dreq, err := req.toDomain()
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.Analysis.Analyze(r.Context(), dreq)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.renderResult(w, r, res, dreq.Options.Format)
	}
}

// GetAnalysisHandler returns a stored analysis result, optionally rendered
// via the format query parameter.
func (s *Server) GetAnalysisHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.Analysis.GetResult(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		format := domain.OutputFormat(strings.ToUpper(r.URL.Query().Get("format")))
		s.renderResult(w, r, res, format)
	}
}

func (s *Server) renderResult(w http.ResponseWriter, r *http.Request, res domain.AnalysisResult, format domain.OutputFormat) {
	if format == "" || format == domain.FormatJSON {
		writeJSON(w, http.StatusOK, res)
		return
	}
	b, contentType, err := s.Analysis.Render(res, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// ReadyzHandler probes the database, Redis, and the Kafka brokers.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 3)
		run := func(name string, fn func(ctx context.Context) error) {
			if fn == nil {
				return
			}
			if err := fn(ctx); err != nil {
				checks = append(checks, check{Name: name, OK: false, Details: err.Error()})
				return
			}
			checks = append(checks, check{Name: name, OK: true})
		}
		run("db", s.DBCheck)
		run("redis", s.RedisCheck)
		run("kafka", s.KafkaCheck)
		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
