// Package render formats analysis results into the supported output formats:
// JSON for API clients, CSV for spreadsheet export, and plain text for
// terminals and log attachments.
package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// Renderer implements domain.Renderer.
type Renderer struct{}

// New constructs a Renderer.
func New() *Renderer { return &Renderer{} }

// Render serializes res in the requested format. An empty format defaults to
// JSON; unknown formats are validation errors.
func (Renderer) Render(res domain.AnalysisResult, format domain.OutputFormat) ([]byte, string, error) {
	switch format {
	case domain.FormatJSON, "":
		b, err := json.Marshal(res)
		if err != nil {
			return nil, "", domain.Wrap(domain.KindAnalysis, "render json", err)
		}
		return b, "application/json", nil
	case domain.FormatCSV:
		b, err := renderCSV(res)
		if err != nil {
			return nil, "", domain.Wrap(domain.KindAnalysis, "render csv", err)
		}
		return b, "text/csv", nil
	case domain.FormatText:
		return renderText(res), "text/plain; charset=utf-8", nil
	default:
		return nil, "", domain.Ef(domain.KindValidation, "unsupported output format %q", format)
	}
}

func renderCSV(res domain.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{
		"period_start", "period_end", "granularity", "currency", "record_count",
		"start_value", "end_value", "absolute_change", "percentage_change", "trend",
	}); err != nil {
		return nil, err
	}
	tp := res.Request.TimePeriod
	if err := w.Write([]string{
		tp.Start.UTC().Format("2006-01-02"),
		tp.End.UTC().Format("2006-01-02"),
		string(tp.Granularity),
		res.Currency,
		fmt.Sprintf("%d", res.RecordCount),
		res.StartValue.String(),
		res.EndValue.String(),
		res.AbsoluteChange.String(),
		pctString(res.PercentageChange),
		string(res.Trend),
	}); err != nil {
		return nil, err
	}
	if len(res.TimeSeries) > 0 {
		if err := w.Write([]string{"bucket_start", "average", "minimum", "maximum", "count"}); err != nil {
			return nil, err
		}
		for _, p := range res.TimeSeries {
			if err := w.Write([]string{
				p.BucketStart.UTC().Format("2006-01-02"),
				decString(p.Average),
				decString(p.Minimum),
				decString(p.Maximum),
				fmt.Sprintf("%d", p.Count),
			}); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func renderText(res domain.AnalysisResult) []byte {
	tp := res.Request.TimePeriod
	var b strings.Builder
	fmt.Fprintf(&b, "Freight Price Movement Analysis\n")
	fmt.Fprintf(&b, "Period:            %s to %s (%s)\n",
		tp.Start.UTC().Format("2006-01-02"), tp.End.UTC().Format("2006-01-02"), tp.Granularity)
	fmt.Fprintf(&b, "Records analyzed:  %d\n", res.RecordCount)
	fmt.Fprintf(&b, "Currency:          %s\n", res.Currency)
	fmt.Fprintf(&b, "Start value:       %s\n", res.StartValue.StringFixed(2))
	fmt.Fprintf(&b, "End value:         %s\n", res.EndValue.StringFixed(2))
	fmt.Fprintf(&b, "Absolute change:   %s\n", res.AbsoluteChange.StringFixed(2))
	fmt.Fprintf(&b, "Percentage change: %s\n", pctString(res.PercentageChange))
	fmt.Fprintf(&b, "Trend:             %s\n", res.Trend)
	if res.Baseline != nil {
		fmt.Fprintf(&b, "Baseline period:   %s to %s\n",
			res.Baseline.Period.Start.UTC().Format("2006-01-02"),
			res.Baseline.Period.End.UTC().Format("2006-01-02"))
		fmt.Fprintf(&b, "Baseline change:   %s\n", pctString(res.Baseline.PercentageChange))
		fmt.Fprintf(&b, "Versus baseline:   %s\n", res.Baseline.Verdict)
	}
	if len(res.TimeSeries) > 0 {
		fmt.Fprintf(&b, "\nTime series:\n")
		for _, p := range res.TimeSeries {
			if p.Count == 0 {
				fmt.Fprintf(&b, "  %s  (no data)\n", p.BucketStart.UTC().Format("2006-01-02"))
				continue
			}
			fmt.Fprintf(&b, "  %s  avg=%s min=%s max=%s n=%d\n",
				p.BucketStart.UTC().Format("2006-01-02"),
				decString(p.Average), decString(p.Minimum), decString(p.Maximum), p.Count)
		}
	}
	return []byte(b.String())
}

func pctString(p *decimal.Decimal) string {
	if p == nil {
		return "N/A"
	}
	return p.StringFixed(2) + "%"
}

func decString(p *decimal.Decimal) string {
	if p == nil {
		return ""
	}
	return p.String()
}
