package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// canonicalRequest is the fixed-order serialization form behind Fingerprint.
// Field order is load-bearing: changing it changes every fingerprint.
type canonicalRequest struct {
	Start              string   `json:"start"`
	End                string   `json:"end"`
	Granularity        string   `json:"granularity"`
	CustomIntervalDays int      `json:"custom_interval_days"`
	Origins            []string `json:"origins"`
	Destinations       []string `json:"destinations"`
	Carriers           []string `json:"carriers"`
	Modes              []string `json:"modes"`
	Sources            []string `json:"sources"`
	TargetCurrency     string   `json:"target_currency"`
	IncludeTimeSeries  bool     `json:"include_time_series"`
	IncludeAggregates  bool     `json:"include_aggregates"`
	Baseline           *struct {
		Start              string `json:"start"`
		End                string `json:"end"`
		Granularity        string `json:"granularity"`
		CustomIntervalDays int    `json:"custom_interval_days"`
	} `json:"baseline"`
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

// Fingerprint derives the cache key for this request: sha256 over a canonical
// serialization with UTC instants and sorted filter lists. Two requests that
// describe the same analysis produce the same fingerprint. The output format
// is excluded; rendering never changes what is computed.
func (r AnalysisRequest) Fingerprint() string {
	modes := make([]string, 0, len(r.Filter.Modes))
	for _, m := range r.Filter.Modes {
		modes = append(modes, string(m))
	}
	sort.Strings(modes)

	c := canonicalRequest{
		Start:              r.TimePeriod.Start.UTC().Format(time.RFC3339),
		End:                r.TimePeriod.End.UTC().Format(time.RFC3339),
		Granularity:        string(r.TimePeriod.Granularity),
		CustomIntervalDays: r.TimePeriod.CustomIntervalDays,
		Origins:            sortedCopy(r.Filter.Origins),
		Destinations:       sortedCopy(r.Filter.Destinations),
		Carriers:           sortedCopy(r.Filter.Carriers),
		Modes:              modes,
		Sources:            sortedCopy(r.Filter.Sources),
		TargetCurrency:     r.Options.TargetCurrency,
		IncludeTimeSeries:  r.Options.IncludeTimeSeries,
		IncludeAggregates:  r.Options.IncludeAggregates,
	}
	if b := r.Options.Baseline; b != nil {
		c.Baseline = &struct {
			Start              string `json:"start"`
			End                string `json:"end"`
			Granularity        string `json:"granularity"`
			CustomIntervalDays int    `json:"custom_interval_days"`
		}{
			Start:              b.Start.UTC().Format(time.RFC3339),
			End:                b.End.UTC().Format(time.RFC3339),
			Granularity:        string(b.Granularity),
			CustomIntervalDays: b.CustomIntervalDays,
		}
	}
	raw, _ := json.Marshal(c)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
