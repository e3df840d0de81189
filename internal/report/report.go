// Package report assembles the reports shared by the CLI and the API server
// from fetched units and details.
package report

import (
	"time"

	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/stats"
)

func timestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}

// Stats builds the SDK test report. With validate set, inconsistent units
// are listed alongside the totals.
func Stats(units []model.UnitRecord, source string, validate bool, now time.Time) model.StatsReport {
	r := model.StatsReport{
		GeneratedAt: timestamp(now),
		Source:      source,
		Totals:      stats.ComputeTotals(units),
		Breakdown:   stats.Summarize(units),
	}
	if validate {
		r.Inconsistencies = stats.Validate(units)
	}
	return r
}

// Coverage builds a coverage report. Services matching query are listed by
// coverage, highest first; totals always cover the whole collection.
func Coverage(units []model.UnitRecord, source, query string, now time.Time) model.CoverageReport {
	return model.CoverageReport{
		GeneratedAt: timestamp(now),
		Source:      source,
		Query:       query,
		Totals:      stats.ComputeTotals(units),
		Coverage:    stats.UnitCoverage(units),
		Services:    stats.Summarize(stats.SortByPassRate(stats.FilterByName(units, query))),
	}
}

// Detail builds the drill-down of one unit. Tags and totals describe every
// detail; Details holds only the filtered, sorted subset.
func Detail(unit model.UnitRecord, details []model.DetailRecord, f model.DetailFilter) model.DetailReport {
	unit.Details = nil
	filtered := stats.FilterDetails(details, stats.DetailFilter{MissingOnly: f.MissingOnly, Tag: f.Tag})
	return model.DetailReport{
		Unit:    stats.Summarize([]model.UnitRecord{unit})[0],
		Details: stats.SortDetails(filtered, f.SortBy),
		Tags:    stats.DistinctTags(details),
		Totals:  stats.CoverageTotals(details),
		Filter:  f,
	}
}

// NoTests builds the report of services without tests.
func NoTests(gaps []model.LanguageGap, source string, now time.Time) model.NoTestsReport {
	if gaps == nil {
		gaps = []model.LanguageGap{}
	}
	return model.NoTestsReport{GeneratedAt: timestamp(now), Source: source, Languages: gaps}
}
