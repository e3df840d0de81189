// internal/stats/stats_test.go
package stats_test

import (
	"math"
	"slices"
	"testing"

	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/stats"
)

func sampleUnits() []model.UnitRecord {
	return []model.UnitRecord{
		{ID: "java", Name: "Java", TestsTotal: 442, TestsPassed: 432, TestsFailed: 10},
		{ID: "python", Name: "Python", TestsTotal: 500, TestsPassed: 450, TestsFailed: 50},
	}
}

func TestComputeTotalsScenario(t *testing.T) {
	got := stats.ComputeTotals(sampleUnits())
	want := model.AggregateTotals{TotalUnits: 2, TotalTests: 942, TotalPassed: 882, TotalFailed: 60, PassRate: 93.63}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	for _, units := range [][]model.UnitRecord{nil, {}} {
		got := stats.ComputeTotals(units)
		if got != (model.AggregateTotals{}) {
			t.Errorf("expected zero totals, got %+v", got)
		}
	}
}

func TestComputeTotalsZeroTests(t *testing.T) {
	got := stats.ComputeTotals([]model.UnitRecord{{ID: "empty"}, {ID: "also-empty"}})
	if got.TotalUnits != 2 {
		t.Errorf("expected 2 units, got %d", got.TotalUnits)
	}
	if got.PassRate != 0 || math.IsNaN(got.PassRate) {
		t.Errorf("expected pass rate 0, got %v", got.PassRate)
	}
}

func TestComputeTotalsAdditive(t *testing.T) {
	a := sampleUnits()
	b := []model.UnitRecord{
		{ID: "kotlin", TestsTotal: 120, TestsPassed: 100, TestsFailed: 20},
		{ID: "rust", TestsTotal: 80, TestsPassed: 79, TestsFailed: 1},
	}

	ta, tb := stats.ComputeTotals(a), stats.ComputeTotals(b)
	all := stats.ComputeTotals(append(slices.Clone(a), b...))

	if all.TotalTests != ta.TotalTests+tb.TotalTests {
		t.Errorf("tests not additive: %d != %d + %d", all.TotalTests, ta.TotalTests, tb.TotalTests)
	}
	if all.TotalPassed != ta.TotalPassed+tb.TotalPassed {
		t.Errorf("passed not additive: %d != %d + %d", all.TotalPassed, ta.TotalPassed, tb.TotalPassed)
	}
	if all.TotalFailed != ta.TotalFailed+tb.TotalFailed {
		t.Errorf("failed not additive: %d != %d + %d", all.TotalFailed, ta.TotalFailed, tb.TotalFailed)
	}
	if all.TotalUnits != 4 {
		t.Errorf("expected 4 units, got %d", all.TotalUnits)
	}
}

func TestComputeTotalsPassRateBounds(t *testing.T) {
	tests := []struct {
		name  string
		units []model.UnitRecord
	}{
		{"all passed", []model.UnitRecord{{ID: "a", TestsTotal: 10, TestsPassed: 10}}},
		{"none passed", []model.UnitRecord{{ID: "a", TestsTotal: 10, TestsFailed: 10}}},
		{"passed exceeds total", []model.UnitRecord{{ID: "a", TestsTotal: 5, TestsPassed: 9}}},
		{"negative passed", []model.UnitRecord{{ID: "a", TestsTotal: 5, TestsPassed: -3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate := stats.ComputeTotals(tt.units).PassRate
			if rate < 0 || rate > 100 {
				t.Errorf("pass rate %v out of bounds", rate)
			}
		})
	}
}

func TestComputeTotalsReportsCountsAsGiven(t *testing.T) {
	got := stats.ComputeTotals([]model.UnitRecord{{ID: "odd", TestsTotal: 3, TestsPassed: 5, TestsFailed: 2}})
	if got.TotalTests != 3 || got.TotalPassed != 5 || got.TotalFailed != 2 {
		t.Errorf("expected counts as given, got %+v", got)
	}
}

func TestPassRateRounding(t *testing.T) {
	tests := []struct {
		passed, total int64
		want          float64
	}{
		{432, 442, 97.74},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{23, 160, 14.38},
		{41, 160, 25.63},
		{17999, 20000, 90},
		{35997, 40000, 89.99},
		{1, 40000, 0},
		{1, 20000, 0.01},
		{0, 0, 0},
		{7, 7, 100},
		{math.MaxInt64 - 1, math.MaxInt64, 100},
		{math.MaxInt64 / 3, math.MaxInt64, 33.33},
	}

	for _, tt := range tests {
		got := stats.PassRate(model.UnitRecord{TestsPassed: tt.passed, TestsTotal: tt.total})
		if got != tt.want {
			t.Errorf("PassRate(%d/%d) = %v, want %v", tt.passed, tt.total, got, tt.want)
		}
	}
}

func TestClassifyRoundedTie(t *testing.T) {
	// 17999/20000 is exactly 89.995 and rounds up into the good band.
	totals := stats.ComputeTotals([]model.UnitRecord{{ID: "java", TestsTotal: 20000, TestsPassed: 17999, TestsFailed: 1}})
	if totals.PassRate != 90 {
		t.Fatalf("expected 90, got %v", totals.PassRate)
	}
	if got := stats.Classify(totals.PassRate); got != model.SeverityGood {
		t.Errorf("expected good, got %s", got)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		rate     float64
		expected model.Severity
	}{
		{100, model.SeverityGood},
		{90, model.SeverityGood},
		{89.99, model.SeverityWarning},
		{80, model.SeverityWarning},
		{79.99, model.SeverityCritical},
		{0, model.SeverityCritical},
	}

	for _, tt := range tests {
		if got := stats.Classify(tt.rate); got != tt.expected {
			t.Errorf("Classify(%v) = %s, want %s", tt.rate, got, tt.expected)
		}
	}
}

func TestSummarize(t *testing.T) {
	summaries := stats.Summarize(sampleUnits())
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].PassRate != 97.74 || summaries[0].Severity != model.SeverityGood {
		t.Errorf("unexpected java summary: %+v", summaries[0])
	}
	if summaries[1].PassRate != 90 || summaries[1].Severity != model.SeverityGood {
		t.Errorf("unexpected python summary: %+v", summaries[1])
	}
}

func ids(units []model.UnitRecord) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}

func TestSortByPassRateStable(t *testing.T) {
	units := []model.UnitRecord{
		{ID: "a", TestsTotal: 2, TestsPassed: 1},
		{ID: "b", TestsTotal: 4, TestsPassed: 2},
		{ID: "c", TestsTotal: 10, TestsPassed: 9},
	}

	got := ids(stats.SortByPassRate(units))
	want := []string{"c", "a", "b"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if !slices.Equal(ids(units), []string{"a", "b", "c"}) {
		t.Error("input slice was reordered")
	}
}

func TestSortByPassRateManyTies(t *testing.T) {
	var units []model.UnitRecord
	var want []string
	for _, id := range []string{"s3", "ec2", "sqs", "sns", "iam", "kms", "ecs", "rds"} {
		units = append(units, model.UnitRecord{ID: id, TestsTotal: 5, TestsPassed: 5})
		want = append(want, id)
	}
	units = append(units, model.UnitRecord{ID: "low", TestsTotal: 5, TestsPassed: 1})
	want = append(want, "low")

	if got := ids(stats.SortByPassRate(units)); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilterByName(t *testing.T) {
	units := []model.UnitRecord{
		{ID: "s3", Name: "Amazon S3"},
		{ID: "s3control", Name: "S3 Control"},
		{ID: "ec2", Name: "Amazon EC2"},
		{ID: "glacier"},
	}

	got := ids(stats.FilterByName(units, "s3"))
	if !slices.Equal(got, []string{"s3", "s3control"}) {
		t.Errorf("expected s3 matches, got %v", got)
	}

	if got := ids(stats.FilterByName(units, "GLAC")); !slices.Equal(got, []string{"glacier"}) {
		t.Errorf("expected ID fallback match, got %v", got)
	}

	if got := stats.FilterByName(units, "nothing"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", ids(got))
	}
}

func TestFilterByNameEmptyQuery(t *testing.T) {
	units := sampleUnits()
	got := stats.FilterByName(units, "")
	if len(got) != len(units) || &got[0] != &units[0] {
		t.Error("expected empty query to return the input unchanged")
	}
}

func TestFilterByNameIdempotent(t *testing.T) {
	units := []model.UnitRecord{
		{ID: "s3", Name: "Amazon S3"},
		{ID: "ec2", Name: "Amazon EC2"},
		{ID: "s3-outposts", Name: "S3 on Outposts"},
	}
	once := stats.FilterByName(units, "s3")
	twice := stats.FilterByName(once, "s3")
	if !slices.Equal(ids(once), ids(twice)) {
		t.Errorf("filter not idempotent: %v vs %v", ids(once), ids(twice))
	}
}

func TestSelectRoundTrip(t *testing.T) {
	units := sampleUnits()
	for _, u := range units {
		got, ok := stats.Select(units, u.ID)
		if !ok {
			t.Fatalf("expected %s to be found", u.ID)
		}
		if got.ID != u.ID || got.TestsTotal != u.TestsTotal || got.TestsPassed != u.TestsPassed || got.TestsFailed != u.TestsFailed {
			t.Errorf("expected %+v, got %+v", u, got)
		}
	}
}

func TestSelectNotFound(t *testing.T) {
	got, ok := stats.Select([]model.UnitRecord{{ID: "java", TestsTotal: 1}}, "kotlin")
	if ok {
		t.Fatal("expected kotlin not to be found")
	}
	if got.ID != "" {
		t.Errorf("expected zero record, got %+v", got)
	}

	if _, ok := stats.Select(nil, "java"); ok {
		t.Error("expected lookup in empty collection to miss")
	}
}

func TestValidate(t *testing.T) {
	units := []model.UnitRecord{
		{ID: "ok", TestsTotal: 10, TestsPassed: 8, TestsFailed: 2},
		{ID: "over", TestsTotal: 5, TestsPassed: 4, TestsFailed: 3},
		{ID: "neg", TestsTotal: 5, TestsPassed: -1},
		{ID: "ok", TestsTotal: 1, TestsPassed: 1},
	}

	issues := stats.Validate(units)
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %+v", len(issues), issues)
	}
	if issues[0].UnitID != "over" {
		t.Errorf("expected first issue for over, got %s", issues[0].UnitID)
	}
	if issues[1].UnitID != "neg" || issues[1].Reason != "negative count" {
		t.Errorf("unexpected second issue: %+v", issues[1])
	}
	if issues[2].UnitID != "ok" || issues[2].Reason != "duplicate id" {
		t.Errorf("unexpected third issue: %+v", issues[2])
	}
}

func TestValidateClean(t *testing.T) {
	if issues := stats.Validate(sampleUnits()); len(issues) != 0 {
		t.Errorf("expected no issues, got %+v", issues)
	}
}
