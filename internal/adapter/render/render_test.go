package render_test

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/adapter/render"
	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleResult() domain.AnalysisResult {
	pct := decimal.RequireFromString("10.00")
	avg := decimal.RequireFromString("1050.00")
	return domain.AnalysisResult{
		ID: "res-1",
		Request: domain.AnalysisRequest{
			TimePeriod: domain.TimePeriod{
				Start:       day(2024, 1, 1),
				End:         day(2024, 2, 1),
				Granularity: domain.GranularityWeekly,
			},
		},
		Currency:         "USD",
		RecordCount:      12,
		StartValue:       decimal.RequireFromString("1000.00"),
		EndValue:         decimal.RequireFromString("1100.00"),
		AbsoluteChange:   decimal.RequireFromString("100.00"),
		PercentageChange: &pct,
		Trend:            domain.TrendIncreasing,
		TimeSeries: []domain.TimeSeriesPoint{
			{BucketStart: day(2024, 1, 1), Average: &avg, Minimum: &avg, Maximum: &avg, Count: 12},
			{BucketStart: day(2024, 1, 8), Count: 0},
		},
		Status: domain.AnalysisCompleted,
	}
}

func TestRenderJSON(t *testing.T) {
	t.Parallel()
	b, ct, err := render.New().Render(sampleResult(), domain.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", ct)

	var back domain.AnalysisResult
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "res-1", back.ID)
	assert.Equal(t, domain.TrendIncreasing, back.Trend)
}

func TestRenderDefaultsToJSON(t *testing.T) {
	t.Parallel()
	_, ct, err := render.New().Render(sampleResult(), "")
	require.NoError(t, err)
	assert.Equal(t, "application/json", ct)
}

func TestRenderCSV(t *testing.T) {
	t.Parallel()
	b, ct, err := render.New().Render(sampleResult(), domain.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", ct)

	r := csv.NewReader(strings.NewReader(string(b)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5, "header, summary, series header, two buckets")
	assert.Equal(t, "percentage_change", rows[0][8])
	assert.Equal(t, "10.00%", rows[1][8])
	assert.Equal(t, "INCREASING", rows[1][9])
	assert.Equal(t, "2024-01-08", rows[4][0])
	assert.Equal(t, "0", rows[4][4], "empty buckets survive the export")
}

func TestRenderText(t *testing.T) {
	t.Parallel()
	res := sampleResult()
	res.PercentageChange = nil // undefined movement
	b, ct, err := render.New().Render(res, domain.FormatText)
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", ct)

	out := string(b)
	assert.Contains(t, out, "Percentage change: N/A")
	assert.Contains(t, out, "Trend:             INCREASING")
	assert.Contains(t, out, "(no data)")
}

func TestRenderUnknownFormat(t *testing.T) {
	t.Parallel()
	_, _, err := render.New().Render(sampleResult(), "XML")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
