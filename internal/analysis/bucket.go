// Package analysis implements the price movement analysis engine: time
// bucketing, aggregate math, and the movement calculation over a record
// window. Everything here is CPU-bound; I/O stays in the callers.
package analysis

import (
	"time"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// customEpoch anchors CUSTOM-granularity buckets: day zero is 1970-01-01 UTC.
var customEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// BucketStart maps an instant to the start of its bucket in UTC civil time.
// DAILY buckets start at midnight, WEEKLY on the Monday of the ISO week,
// MONTHLY on the first of the month, QUARTERLY on the first of months
// 1/4/7/10, and CUSTOM on a customDays grid counted from 1970-01-01.
func BucketStart(t time.Time, g domain.Granularity, customDays int) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch g {
	case domain.GranularityWeekly:
		// Monday = 0 offset.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.GranularityMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case domain.GranularityQuarterly:
		qm := time.Month(((int(m)-1)/3)*3 + 1)
		return time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
	case domain.GranularityCustom:
		if customDays <= 0 {
			customDays = 1
		}
		days := int(day.Sub(customEpoch) / (24 * time.Hour))
		idx := days / customDays
		if days < 0 && days%customDays != 0 {
			idx--
		}
		return customEpoch.AddDate(0, 0, idx*customDays)
	default: // DAILY
		return day
	}
}

// nextBucket returns the start of the bucket after start.
func nextBucket(start time.Time, g domain.Granularity, customDays int) time.Time {
	switch g {
	case domain.GranularityWeekly:
		return start.AddDate(0, 0, 7)
	case domain.GranularityMonthly:
		return start.AddDate(0, 1, 0)
	case domain.GranularityQuarterly:
		return start.AddDate(0, 3, 0)
	case domain.GranularityCustom:
		if customDays <= 0 {
			customDays = 1
		}
		return start.AddDate(0, 0, customDays)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// Buckets enumerates every bucket start whose bucket intersects the closed
// period [Start, End], in ascending order. The first bucket may start before
// period.Start when the window opens mid-bucket, and the last bucket is the
// one containing period.End; callers keep empty buckets as zero-count series
// entries.
func Buckets(p domain.TimePeriod) []time.Time {
	if !p.Start.Before(p.End) {
		return nil
	}
	last := BucketStart(p.End, p.Granularity, p.CustomIntervalDays)
	var out []time.Time
	for b := BucketStart(p.Start, p.Granularity, p.CustomIntervalDays); !b.After(last); b = nextBucket(b, p.Granularity, p.CustomIntervalDays) {
		out = append(out, b)
	}
	return out
}
