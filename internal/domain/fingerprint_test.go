package domain

import (
	"testing"
	"time"
)

func baseRequest() AnalysisRequest {
	return AnalysisRequest{
		TimePeriod: TimePeriod{
			Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:         time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			Granularity: GranularityWeekly,
		},
		Filter: AnalysisFilter{
			Origins:      []string{"SHA", "SIN"},
			Destinations: []string{"RTM"},
			Modes:        []TransportMode{ModeOcean},
		},
		Options: AnalysisOptions{TargetCurrency: "USD"},
	}
}

func TestFingerprintStable(t *testing.T) {
	a := baseRequest()
	b := baseRequest()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("identical requests must share a fingerprint")
	}
}

func TestFingerprintIgnoresFilterOrder(t *testing.T) {
	a := baseRequest()
	b := baseRequest()
	b.Filter.Origins = []string{"SIN", "SHA"}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("filter list order must not change the fingerprint")
	}
}

func TestFingerprintIgnoresTimezoneSpelling(t *testing.T) {
	a := baseRequest()
	b := baseRequest()
	loc := time.FixedZone("UTC+8", 8*3600)
	b.TimePeriod.Start = time.Date(2024, 1, 1, 8, 0, 0, 0, loc)
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("the same instant in another zone must not change the fingerprint")
	}
}

func TestFingerprintIgnoresOutputFormat(t *testing.T) {
	a := baseRequest()
	b := baseRequest()
	b.Options.Format = FormatCSV
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("output format is a rendering concern and must not change the fingerprint")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := baseRequest().Fingerprint()

	tests := []struct {
		name   string
		mutate func(*AnalysisRequest)
	}{
		{"different end", func(r *AnalysisRequest) { r.TimePeriod.End = r.TimePeriod.End.AddDate(0, 0, 1) }},
		{"different granularity", func(r *AnalysisRequest) { r.TimePeriod.Granularity = GranularityMonthly }},
		{"different origin filter", func(r *AnalysisRequest) { r.Filter.Origins = []string{"SHA"} }},
		{"different currency", func(r *AnalysisRequest) { r.Options.TargetCurrency = "EUR" }},
		{"time series toggled", func(r *AnalysisRequest) { r.Options.IncludeTimeSeries = true }},
		{"baseline added", func(r *AnalysisRequest) {
			r.Options.Baseline = &TimePeriod{
				Start:       time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				End:         time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC),
				Granularity: GranularityWeekly,
			}
		}},
		{"custom interval", func(r *AnalysisRequest) {
			r.TimePeriod.Granularity = GranularityCustom
			r.TimePeriod.CustomIntervalDays = 14
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := baseRequest()
			tt.mutate(&r)
			if r.Fingerprint() == base {
				t.Error("request change did not change the fingerprint")
			}
		})
	}
}
