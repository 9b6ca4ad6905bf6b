package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/singleflight"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/analysis"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/observability"
)

// AnalysisService serves price movement analyses through the result cache.
// Identical concurrent requests collapse into one computation; failed
// computations are never cached, so the next caller retries cleanly.
type AnalysisService struct {
	Engine   analysis.Engine
	Cache    domain.ResultCache
	Results  domain.AnalysisResultRepository
	Renderer domain.Renderer

	flights *singleflight.Group
}

// NewAnalysisService constructs an AnalysisService.
func NewAnalysisService(engine analysis.Engine, cache domain.ResultCache, results domain.AnalysisResultRepository, renderer domain.Renderer) *AnalysisService {
	return &AnalysisService{
		Engine:   engine,
		Cache:    cache,
		Results:  results,
		Renderer: renderer,
		flights:  &singleflight.Group{},
	}
}

// Analyze returns the cached result for the request fingerprint or computes,
// persists, and caches a fresh one.
func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	tracer := otel.Tracer("usecase.analysis")
	ctx, span := tracer.Start(ctx, "analysis.Analyze")
	defer span.End()

	if err := analysis.ValidateRequest(req); err != nil {
		return domain.AnalysisResult{}, err
	}
	fp := req.Fingerprint()

	if res, ok, err := s.Cache.Get(ctx, fp); err != nil {
		observability.LoggerFromContext(ctx).Warn("analysis cache read failed", slog.Any("error", err))
	} else if ok {
		observability.CacheHit()
		res.FromCache = true
		return res, nil
	}
	observability.CacheMiss()

	v, err, _ := s.flights.Do(fp, func() (any, error) {
		// A concurrent flight may have landed between our miss and here.
		if res, ok, _ := s.Cache.Get(ctx, fp); ok {
			return res, nil
		}
		start := time.Now()
		res, err := s.Engine.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
		res.ID = uuid.New().String()
		res.Fingerprint = fp
		res.Status = domain.AnalysisCompleted

		if err := s.Cache.Put(ctx, fp, res); err != nil {
			observability.LoggerFromContext(ctx).Warn("analysis cache write failed", slog.Any("error", err))
		}
		if err := s.Results.Save(ctx, res); err != nil {
			observability.LoggerFromContext(ctx).Warn("analysis result persist failed", slog.Any("error", err))
		}

		var pct *float64
		if res.PercentageChange != nil {
			f, _ := res.PercentageChange.Float64()
			pct = &f
		}
		observability.ObserveAnalysis(time.Since(start), pct)
		return res, nil
	})
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return v.(domain.AnalysisResult), nil
}

// GetResult loads a previously computed result by id.
func (s *AnalysisService) GetResult(ctx context.Context, id string) (domain.AnalysisResult, error) {
	return s.Results.Get(ctx, id)
}

// Render formats a result in the requested output format. An empty format
// falls back to the format the request asked for, then to JSON.
func (s *AnalysisService) Render(res domain.AnalysisResult, format domain.OutputFormat) ([]byte, string, error) {
	if format == "" {
		format = res.Request.Options.Format
	}
	if format == "" {
		format = domain.FormatJSON
	}
	b, contentType, err := s.Renderer.Render(res, format)
	if err != nil {
		return nil, "", fmt.Errorf("op=analysis.render: %w", err)
	}
	return b, contentType, nil
}
