package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// Engine computes price movement analyses over the record store. It holds no
// caching state; the usecase layer owns the result cache and single-flight.
type Engine struct {
	Store           domain.RecordStore
	Rates           domain.RateProvider
	DefaultCurrency string
}

// NewEngine wires the engine.
func NewEngine(store domain.RecordStore, rates domain.RateProvider, defaultCurrency string) Engine {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return Engine{Store: store, Rates: rates, DefaultCurrency: defaultCurrency}
}

// ValidateRequest rejects structurally impossible analysis requests before
// any I/O happens.
func ValidateRequest(req domain.AnalysisRequest) error {
	if err := validatePeriod(req.TimePeriod); err != nil {
		return err
	}
	if b := req.Options.Baseline; b != nil {
		if err := validatePeriod(*b); err != nil {
			return domain.Wrap(domain.KindValidation, "baseline period invalid", err)
		}
	}
	switch req.Options.Format {
	case "", domain.FormatJSON, domain.FormatCSV, domain.FormatText:
	default:
		return domain.Ef(domain.KindValidation, "unknown output format %q", req.Options.Format).
			WithDetail("format", string(req.Options.Format))
	}
	return nil
}

func validatePeriod(p domain.TimePeriod) error {
	if p.Start.IsZero() || p.End.IsZero() {
		return domain.E(domain.KindValidation, "time period start and end are required")
	}
	if !p.Start.Before(p.End) {
		return domain.E(domain.KindValidation, "time period start must be before end").
			WithDetail("start", p.Start.UTC().Format(time.RFC3339)).
			WithDetail("end", p.End.UTC().Format(time.RFC3339))
	}
	switch p.Granularity {
	case domain.GranularityDaily, domain.GranularityWeekly, domain.GranularityMonthly, domain.GranularityQuarterly:
	case domain.GranularityCustom:
		if p.CustomIntervalDays <= 0 {
			return domain.E(domain.KindValidation, "custom granularity requires custom_interval_days > 0")
		}
	default:
		return domain.Ef(domain.KindValidation, "unknown granularity %q", p.Granularity).
			WithDetail("granularity", string(p.Granularity))
	}
	return nil
}

// Analyze runs one full analysis: scan, convert, bucket, movement math,
// aggregates, series, and the optional baseline sub-analysis. The returned
// result carries no ID or fingerprint; the caller stamps those.
func (e Engine) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	tracer := otel.Tracer("analysis.engine")
	ctx, span := tracer.Start(ctx, "engine.Analyze")
	defer span.End()

	if err := ValidateRequest(req); err != nil {
		return domain.AnalysisResult{}, err
	}

	res, err := e.analyzePeriod(ctx, req.TimePeriod, req.Filter, req.Options)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	res.Request = req

	if b := req.Options.Baseline; b != nil {
		baseOpts := req.Options
		baseOpts.Baseline = nil // no nesting
		baseOpts.IncludeAggregates = false
		baseOpts.IncludeTimeSeries = false
		base, err := e.analyzePeriod(ctx, *b, req.Filter, baseOpts)
		if err != nil {
			return domain.AnalysisResult{}, domain.Wrap(domain.KindAnalysis, "baseline analysis failed", err)
		}
		res.Baseline = compareToBaseline(res, base, *b)
	}
	return res, nil
}

// analyzePeriod computes the movement for one period. Steps 4-11 of the
// analysis flow; baseline handling sits in Analyze.
func (e Engine) analyzePeriod(ctx context.Context, period domain.TimePeriod, filter domain.AnalysisFilter, opts domain.AnalysisOptions) (domain.AnalysisResult, error) {
	records, err := e.Store.RangeScan(ctx, domain.RecordQuery{
		Start:        period.Start,
		End:          period.End,
		Origins:      filter.Origins,
		Destinations: filter.Destinations,
		Carriers:     filter.Carriers,
		Modes:        filter.Modes,
		SourceIDs:    filter.Sources,
	})
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("op=engine.range_scan: %w", err)
	}

	currency := opts.TargetCurrency
	if currency == "" {
		currency = e.DefaultCurrency
	}
	charges, err := e.convertCharges(ctx, records, opts.TargetCurrency)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	buckets := Buckets(period)
	grouped := make(map[time.Time][]decimal.Decimal, len(buckets))
	for i, r := range records {
		b := BucketStart(r.RecordDate, period.Granularity, period.CustomIntervalDays)
		grouped[b] = append(grouped[b], charges[i])
	}

	var startBucket, endBucket time.Time
	for _, b := range buckets {
		if len(grouped[b]) == 0 {
			continue
		}
		if startBucket.IsZero() {
			startBucket = b
		}
		endBucket = b
	}
	if startBucket.IsZero() {
		return domain.AnalysisResult{}, domain.E(domain.KindAnalysis, "no data in window").
			WithDetail("start", period.Start.UTC().Format(time.RFC3339)).
			WithDetail("end", period.End.UTC().Format(time.RFC3339))
	}

	startValue := Mean(grouped[startBucket])
	endValue := Mean(grouped[endBucket])
	absChange := endValue.Sub(startValue)
	pctChange := PercentageChange(startValue, endValue)

	res := domain.AnalysisResult{
		Currency:         currency,
		RecordCount:      len(records),
		StartValue:       startValue.Round(moneyScale),
		EndValue:         endValue.Round(moneyScale),
		AbsoluteChange:   absChange.Round(moneyScale),
		PercentageChange: roundPtr(pctChange),
		Trend:            Trend(pctChange, endValue),
		Status:           domain.AnalysisCompleted,
		CalculatedAt:     time.Now().UTC(),
	}

	if opts.IncludeAggregates {
		res.Aggregates = &domain.Aggregates{
			StartPeriod: Aggregate(grouped[startBucket]),
			EndPeriod:   Aggregate(grouped[endBucket]),
			Overall:     Aggregate(charges),
		}
	}
	if opts.IncludeTimeSeries {
		series := make([]domain.TimeSeriesPoint, 0, len(buckets))
		for _, b := range buckets {
			vals := grouped[b]
			point := domain.TimeSeriesPoint{BucketStart: b, Count: len(vals)}
			if len(vals) > 0 {
				agg := Aggregate(vals)
				point.Average = &agg.Average
				point.Minimum = &agg.Minimum
				point.Maximum = &agg.Maximum
			}
			series = append(series, point)
		}
		res.TimeSeries = series
	}
	return res, nil
}

// convertCharges normalizes every charge into the target currency using the
// per-record date, batching rate lookups by distinct (currency, day). An
// empty target skips conversion. Any failed lookup fails the analysis; a
// partially converted window would be silently wrong.
func (e Engine) convertCharges(ctx context.Context, records []domain.FreightRecord, target string) ([]decimal.Decimal, error) {
	charges := make([]decimal.Decimal, len(records))
	if target == "" {
		for i, r := range records {
			charges[i] = r.FreightCharge
		}
		return charges, nil
	}

	type rateKey struct {
		ccy string
		day time.Time
	}
	rates := make(map[rateKey]decimal.Decimal)
	for i, r := range records {
		if r.CurrencyCode == target {
			charges[i] = r.FreightCharge
			continue
		}
		key := rateKey{ccy: r.CurrencyCode, day: r.RecordDate.UTC().Truncate(24 * time.Hour)}
		rate, ok := rates[key]
		if !ok {
			var err error
			rate, err = e.Rates.Rate(ctx, key.ccy, target, key.day)
			if err != nil {
				return nil, domain.Wrap(domain.KindIntegration,
					fmt.Sprintf("rate lookup %s->%s failed", key.ccy, target), err)
			}
			rates[key] = rate
		}
		charges[i] = r.FreightCharge.Mul(rate).Round(internalScale)
	}
	return charges, nil
}

// compareToBaseline derives the baseline block: the baseline's own movement
// plus the current-minus-baseline deltas. Lower percentage change is better;
// freight cost going down is favorable.
func compareToBaseline(current, base domain.AnalysisResult, period domain.TimePeriod) *domain.BaselineComparison {
	cmp := &domain.BaselineComparison{
		Period:             period,
		StartValue:         base.StartValue,
		EndValue:           base.EndValue,
		AbsoluteChange:     base.AbsoluteChange,
		PercentageChange:   base.PercentageChange,
		Trend:              base.Trend,
		AbsoluteDifference: current.AbsoluteChange.Sub(base.AbsoluteChange).Round(moneyScale),
	}
	if current.PercentageChange == nil || base.PercentageChange == nil {
		cmp.Verdict = domain.ComparisonUndefined
		return cmp
	}
	diff := current.PercentageChange.Sub(*base.PercentageChange).Round(moneyScale)
	cmp.PercentageDifference = &diff
	switch {
	case diff.IsNegative():
		cmp.Verdict = domain.ComparisonBetter
	case diff.IsPositive():
		cmp.Verdict = domain.ComparisonWorse
	default:
		cmp.Verdict = domain.ComparisonSame
	}
	return cmp
}
