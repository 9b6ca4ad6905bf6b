package analysis

import (
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// internalScale is the precision kept during intermediate division; outputs
// round to moneyScale at the end.
const (
	internalScale = 4
	moneyScale    = 2
)

var (
	hundred        = decimal.NewFromInt(100)
	trendThreshold = decimal.NewFromInt(1)
	zero           = decimal.Zero
)

// Mean averages charges at internal precision. Returns zero for an empty
// slice; callers guard against empty buckets before calling.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return zero
	}
	sum := zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(values))), internalScale)
}

// PercentageChange computes (end-start)/start*100 at internal precision.
// Undefined (nil) when start is zero and end is not; zero when both are zero.
func PercentageChange(start, end decimal.Decimal) *decimal.Decimal {
	if start.IsZero() {
		if end.IsZero() {
			return &zero
		}
		return nil
	}
	pct := end.Sub(start).DivRound(start, internalScale).Mul(hundred)
	return &pct
}

// Trend classifies a movement: INCREASING above +1%, DECREASING below -1%,
// STABLE inside the band. An undefined percentage follows the sign of the
// end value.
func Trend(pct *decimal.Decimal, end decimal.Decimal) domain.TrendDirection {
	if pct == nil {
		switch {
		case end.IsPositive():
			return domain.TrendIncreasing
		case end.IsNegative():
			return domain.TrendDecreasing
		default:
			return domain.TrendStable
		}
	}
	switch {
	case pct.GreaterThan(trendThreshold):
		return domain.TrendIncreasing
	case pct.LessThan(trendThreshold.Neg()):
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// Aggregate summarizes a non-empty charge slice.
func Aggregate(values []decimal.Decimal) domain.AggregateSet {
	if len(values) == 0 {
		return domain.AggregateSet{}
	}
	min, max := values[0], values[0]
	sum := zero
	for _, v := range values {
		if v.LessThan(min) {
			min = v
		}
		if v.GreaterThan(max) {
			max = v
		}
		sum = sum.Add(v)
	}
	return domain.AggregateSet{
		Average: sum.DivRound(decimal.NewFromInt(int64(len(values))), internalScale).Round(moneyScale),
		Minimum: min.Round(moneyScale),
		Maximum: max.Round(moneyScale),
		Count:   len(values),
	}
}

// roundPtr rounds a nullable decimal to money scale.
func roundPtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(moneyScale)
	return &r
}
