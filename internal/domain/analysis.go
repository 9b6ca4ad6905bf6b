package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Granularity selects how a time period is bucketed.
type Granularity string

const (
	GranularityDaily     Granularity = "DAILY"
	GranularityWeekly    Granularity = "WEEKLY"
	GranularityMonthly   Granularity = "MONTHLY"
	GranularityQuarterly Granularity = "QUARTERLY"
	GranularityCustom    Granularity = "CUSTOM"
)

// TimePeriod is a closed UTC window [Start, End] with a bucketing
// granularity. Records dated exactly End belong to the window.
// CustomIntervalDays is required iff Granularity is CUSTOM.
type TimePeriod struct {
	Start              time.Time   `json:"start"`
	End                time.Time   `json:"end"`
	Granularity        Granularity `json:"granularity"`
	CustomIntervalDays int         `json:"custom_interval_days,omitempty"`
}

// AnalysisFilter narrows the record set an analysis runs over. Empty slices
// mean no restriction on that dimension.
type AnalysisFilter struct {
	Origins      []string        `json:"origins,omitempty"`
	Destinations []string        `json:"destinations,omitempty"`
	Carriers     []string        `json:"carriers,omitempty"`
	Modes        []TransportMode `json:"modes,omitempty"`
	Sources      []string        `json:"sources,omitempty"`
}

// OutputFormat selects the rendering of an analysis result.
type OutputFormat string

const (
	FormatJSON OutputFormat = "JSON"
	FormatCSV  OutputFormat = "CSV"
	FormatText OutputFormat = "TEXT"
)

// AnalysisOptions tune what an analysis computes and returns.
type AnalysisOptions struct {
	TargetCurrency    string       `json:"target_currency,omitempty"`
	IncludeTimeSeries bool         `json:"include_time_series,omitempty"`
	IncludeAggregates bool         `json:"include_aggregates,omitempty"`
	Baseline          *TimePeriod  `json:"baseline,omitempty"`
	Format            OutputFormat `json:"format,omitempty"`
}

// AnalysisRequest is the full input of one price movement analysis.
type AnalysisRequest struct {
	TimePeriod TimePeriod      `json:"time_period"`
	Filter     AnalysisFilter  `json:"filter,omitempty"`
	Options    AnalysisOptions `json:"options,omitempty"`
}

// TrendDirection summarizes the direction of a price movement.
// INCREASING when the change exceeds +1%, DECREASING below -1%, STABLE
// otherwise.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "INCREASING"
	TrendDecreasing TrendDirection = "DECREASING"
	TrendStable     TrendDirection = "STABLE"
)

// AnalysisStatus is the lifecycle status of an analysis computation. Only
// COMPLETED results enter the cache.
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "PENDING"
	AnalysisRunning   AnalysisStatus = "RUNNING"
	AnalysisCompleted AnalysisStatus = "COMPLETED"
	AnalysisFailed    AnalysisStatus = "FAILED"
)

// TimeSeriesPoint is one bucket of the analysis time series. Empty buckets
// are preserved with Count 0 and null values.
type TimeSeriesPoint struct {
	BucketStart time.Time        `json:"bucket_start"`
	Average     *decimal.Decimal `json:"average"`
	Minimum     *decimal.Decimal `json:"minimum"`
	Maximum     *decimal.Decimal `json:"maximum"`
	Count       int              `json:"count"`
}

// AggregateSet summarizes the charges of one record span.
type AggregateSet struct {
	Average decimal.Decimal `json:"average"`
	Minimum decimal.Decimal `json:"minimum"`
	Maximum decimal.Decimal `json:"maximum"`
	Count   int             `json:"count"`
}

// Aggregates cover the start bucket, the end bucket, and the whole window.
type Aggregates struct {
	StartPeriod AggregateSet `json:"start_period"`
	EndPeriod   AggregateSet `json:"end_period"`
	Overall     AggregateSet `json:"overall"`
}

// ComparisonVerdict relates the current period to the baseline. Lower
// percentage change is better; the verdict is undefined when either side's
// percentage change is undefined.
type ComparisonVerdict string

const (
	ComparisonBetter    ComparisonVerdict = "better"
	ComparisonWorse     ComparisonVerdict = "worse"
	ComparisonSame      ComparisonVerdict = "same"
	ComparisonUndefined ComparisonVerdict = "undefined"
)

// BaselineComparison carries the baseline period's own movement plus the
// deltas against the current period. Differences are current minus baseline.
type BaselineComparison struct {
	Period               TimePeriod       `json:"period"`
	StartValue           decimal.Decimal  `json:"start_value"`
	EndValue             decimal.Decimal  `json:"end_value"`
	AbsoluteChange       decimal.Decimal  `json:"absolute_change"`
	PercentageChange     *decimal.Decimal `json:"percentage_change"`
	Trend                TrendDirection   `json:"trend"`
	AbsoluteDifference   decimal.Decimal  `json:"absolute_difference"`
	PercentageDifference *decimal.Decimal `json:"percentage_difference"`
	Verdict              ComparisonVerdict `json:"verdict"`
}

// Renderer formats a completed analysis result. It returns the rendered
// bytes and the matching content type.
type Renderer interface {
	Render(res AnalysisResult, format OutputFormat) ([]byte, string, error)
}

// AnalysisResult is the outcome of one analysis. PercentageChange is nil when
// undefined (start value zero, end value non-zero). Monetary values and
// percentages are rounded to 2 decimal places.
type AnalysisResult struct {
	ID               string              `json:"id"`
	Fingerprint      string              `json:"fingerprint"`
	Request          AnalysisRequest     `json:"request"`
	Currency         string              `json:"currency"`
	RecordCount      int                 `json:"record_count"`
	StartValue       decimal.Decimal     `json:"start_value"`
	EndValue         decimal.Decimal     `json:"end_value"`
	AbsoluteChange   decimal.Decimal     `json:"absolute_change"`
	PercentageChange *decimal.Decimal    `json:"percentage_change"`
	Trend            TrendDirection      `json:"trend"`
	Aggregates       *Aggregates         `json:"aggregates,omitempty"`
	TimeSeries       []TimeSeriesPoint   `json:"time_series,omitempty"`
	Baseline         *BaselineComparison `json:"baseline,omitempty"`
	Status           AnalysisStatus      `json:"status"`
	CalculatedAt     time.Time           `json:"calculated_at"`
	FromCache        bool                `json:"cached"`
}
