// internal/stats/details.go
package stats

import (
	"cmp"
	"slices"

	"github.com/dsablic/weathertop/internal/model"
)

// Detail sort keys.
const (
	SortNone  = ""
	SortFound = "found"
	SortTags  = "tags"
)

// DetailFilter selects a subset of a unit's detail records. An empty Tag
// disables tag filtering.
type DetailFilter struct {
	MissingOnly bool
	Tag         string
}

// FilterDetails keeps the records matching every active filter, preserving
// their relative order. The result is never nil.
func FilterDetails(details []model.DetailRecord, f DetailFilter) []model.DetailRecord {
	out := make([]model.DetailRecord, 0, len(details))
	for _, d := range details {
		if f.MissingOnly && d.Found {
			continue
		}
		if f.Tag != "" && !slices.Contains(d.Tags, f.Tag) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// DistinctTags returns every tag used by details in first-seen order.
func DistinctTags(details []model.DetailRecord) []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, d := range details {
		for _, t := range d.Tags {
			if seen[t] {
				continue
			}
			seen[t] = true
			tags = append(tags, t)
		}
	}
	return tags
}

// SortDetails returns a stably sorted copy of details. SortFound puts found
// records first; SortTags orders by tag count, most first. Any other key
// returns the records in their original order.
func SortDetails(details []model.DetailRecord, by string) []model.DetailRecord {
	sorted := slices.Clone(details)
	switch by {
	case SortFound:
		slices.SortStableFunc(sorted, func(a, b model.DetailRecord) int {
			return cmp.Compare(foundRank(a), foundRank(b))
		})
	case SortTags:
		slices.SortStableFunc(sorted, func(a, b model.DetailRecord) int {
			return cmp.Compare(len(b.Tags), len(a.Tags))
		})
	}
	return sorted
}

// CoverageTotals counts found and missing records.
func CoverageTotals(details []model.DetailRecord) model.CoverageTotals {
	var t model.CoverageTotals
	for _, d := range details {
		t.Operations++
		if d.Found {
			t.Found++
		}
	}
	t.Missing = t.Operations - t.Found
	t.Percent = percent(t.Found, t.Operations)
	return t
}

// UnitCoverage derives coverage totals from unit counts, where passed means
// an example was found.
func UnitCoverage(units []model.UnitRecord) model.CoverageTotals {
	totals := ComputeTotals(units)
	missing := totals.TotalTests - totals.TotalPassed
	if missing < 0 {
		missing = 0
	}
	return model.CoverageTotals{
		Operations: totals.TotalTests,
		Found:      totals.TotalPassed,
		Missing:    missing,
		Percent:    totals.PassRate,
	}
}

func foundRank(d model.DetailRecord) int {
	if d.Found {
		return 0
	}
	return 1
}
