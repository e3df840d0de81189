// Package stats aggregates test and coverage records into the derived values
// shown by the dashboard. Every function is pure and never mutates its input.
package stats

import (
	"cmp"
	"math/bits"
	"slices"
	"strings"

	"github.com/dsablic/weathertop/internal/model"
)

const (
	GoodThreshold    = 90.0
	WarningThreshold = 80.0
)

// ComputeTotals sums the counts of every unit in one pass and derives the
// overall pass rate. Only the final rate is rounded.
func ComputeTotals(units []model.UnitRecord) model.AggregateTotals {
	totals := model.AggregateTotals{TotalUnits: len(units)}
	for _, u := range units {
		totals.TotalTests += u.TestsTotal
		totals.TotalPassed += u.TestsPassed
		totals.TotalFailed += u.TestsFailed
	}
	totals.PassRate = percent(totals.TotalPassed, totals.TotalTests)
	return totals
}

// PassRate returns the unit's passed/total percentage, or 0 when it has no tests.
func PassRate(u model.UnitRecord) float64 {
	return percent(u.TestsPassed, u.TestsTotal)
}

// Classify maps a pass rate to a severity.
func Classify(rate float64) model.Severity {
	switch {
	case rate >= GoodThreshold:
		return model.SeverityGood
	case rate >= WarningThreshold:
		return model.SeverityWarning
	default:
		return model.SeverityCritical
	}
}

// Summarize pairs each unit with its pass rate and severity, keeping order.
func Summarize(units []model.UnitRecord) []model.UnitSummary {
	out := make([]model.UnitSummary, len(units))
	for i, u := range units {
		rate := PassRate(u)
		out[i] = model.UnitSummary{UnitRecord: u, PassRate: rate, Severity: Classify(rate)}
	}
	return out
}

// SortByPassRate returns a copy of units ordered by pass rate, highest
// first. Units with equal rates keep their relative order.
func SortByPassRate(units []model.UnitRecord) []model.UnitRecord {
	sorted := slices.Clone(units)
	slices.SortStableFunc(sorted, func(a, b model.UnitRecord) int {
		return cmp.Compare(PassRate(b), PassRate(a))
	})
	return sorted
}

// FilterByName keeps units whose display name contains query, ignoring case.
// An empty query returns units unchanged.
func FilterByName(units []model.UnitRecord, query string) []model.UnitRecord {
	if query == "" {
		return units
	}
	q := strings.ToLower(query)
	out := make([]model.UnitRecord, 0, len(units))
	for _, u := range units {
		if strings.Contains(strings.ToLower(u.DisplayName()), q) {
			out = append(out, u)
		}
	}
	return out
}

// Select looks a unit up by ID. The boolean is false when no unit matches.
func Select(units []model.UnitRecord, id string) (model.UnitRecord, bool) {
	for _, u := range units {
		if u.ID == id {
			return u, true
		}
	}
	return model.UnitRecord{}, false
}

// percent returns part/total as a percentage rounded half-up to two
// decimals, clamped to [0, 100]. The rounding is done on integers so exact
// ties such as 23/160 = 14.375 round up.
func percent(part, total int64) float64 {
	if total <= 0 || part <= 0 {
		return 0
	}
	if part >= total {
		return 100
	}
	return float64(hundredths(uint64(part), uint64(total))) / 100
}

// hundredths computes round(part*10000/total) half-up as
// (part*20000 + total) / (2*total), in 128 bits. part < total keeps the
// quotient below 10001, so Div64 cannot overflow.
func hundredths(part, total uint64) uint64 {
	hi, lo := bits.Mul64(part, 20000)
	lo, carry := bits.Add64(lo, total, 0)
	hi += carry
	q, _ := bits.Div64(hi, lo, 2*total)
	return q
}
