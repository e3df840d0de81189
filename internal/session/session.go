// Package session holds the state of one drill-down: the unit collection,
// the name query, the selected unit and its details. A Session is not safe
// for concurrent use; fetches run elsewhere and report back through Apply.
package session

import (
	"slices"

	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/stats"
)

// Request identifies one detail fetch. Only the most recent request issued
// by Select is current.
type Request struct {
	UnitID string
	Seq    uint64
}

// Session is the mutable drill-down state.
type Session struct {
	units    []model.UnitRecord
	query    string
	filter   stats.DetailFilter
	selected string
	details  []model.DetailRecord
	loaded   bool
	current  Request
	seq      uint64
}

// New returns a session over units.
func New(units []model.UnitRecord) *Session {
	return &Session{units: units}
}

// Replace swaps the whole unit collection. A selection that no longer exists
// is cleared.
func (s *Session) Replace(units []model.UnitRecord) {
	s.units = units
	if s.selected == "" {
		return
	}
	if _, ok := stats.Select(units, s.selected); !ok {
		s.Clear()
	}
}

// SetQuery sets the name filter.
func (s *Session) SetQuery(q string) {
	s.query = q
}

// SetFilter sets the detail filter.
func (s *Session) SetFilter(f stats.DetailFilter) {
	s.filter = f
}

// Filter returns the current detail filter.
func (s *Session) Filter() stats.DetailFilter {
	return s.filter
}

// Select makes id the selected unit, drops the details held for the previous
// selection and returns the request a fetch should carry. The bool is false
// when id is not in the collection, in which case the selection is cleared.
func (s *Session) Select(id string) (Request, bool) {
	s.seq++
	s.details = nil
	s.loaded = false
	s.filter = stats.DetailFilter{}

	if _, ok := stats.Select(s.units, id); !ok {
		s.selected = ""
		s.current = Request{Seq: s.seq}
		return Request{}, false
	}

	s.selected = id
	s.current = Request{UnitID: id, Seq: s.seq}
	return s.current, true
}

// Clear drops the selection. Results for outstanding requests will be
// discarded.
func (s *Session) Clear() {
	s.seq++
	s.selected = ""
	s.details = nil
	s.loaded = false
	s.filter = stats.DetailFilter{}
	s.current = Request{Seq: s.seq}
}

// Current reports whether req is the latest request issued.
func (s *Session) Current(req Request) bool {
	return req.UnitID != "" && req == s.current
}

// Apply installs details fetched for req. A result for any request other
// than the current one is dropped and Apply returns false.
func (s *Session) Apply(req Request, details []model.DetailRecord) bool {
	if !s.Current(req) {
		return false
	}
	s.details = details
	s.loaded = true
	return true
}

// Snapshot is an immutable view of a session.
type Snapshot struct {
	Units    []model.UnitRecord
	Visible  []model.UnitRecord
	Query    string
	Selected *model.UnitRecord
	Loaded   bool
	Details  []model.DetailRecord
	Filtered []model.DetailRecord
	Tags     []string
	Filter   stats.DetailFilter
	Totals   model.AggregateTotals
}

// Snapshot copies the current state and runs the aggregator over it.
func (s *Session) Snapshot() Snapshot {
	units := slices.Clone(s.units)
	snap := Snapshot{
		Units:   units,
		Visible: stats.SortByPassRate(stats.FilterByName(units, s.query)),
		Query:   s.query,
		Loaded:  s.loaded,
		Filter:  s.filter,
		Totals:  stats.ComputeTotals(units),
	}

	if s.selected != "" {
		if u, ok := stats.Select(units, s.selected); ok {
			u.Details = slices.Clone(s.details)
			snap.Selected = &u
			snap.Details = u.Details
			snap.Filtered = stats.FilterDetails(u.Details, s.filter)
			snap.Tags = stats.DistinctTags(u.Details)
		}
	}
	return snap
}
