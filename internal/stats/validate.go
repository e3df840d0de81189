// internal/stats/validate.go
package stats

import (
	"fmt"

	"github.com/dsablic/weathertop/internal/model"
)

// Validate reports units whose counts are inconsistent. It is an opt-in
// check; none of the aggregation functions depend on it.
func Validate(units []model.UnitRecord) []model.Inconsistency {
	var issues []model.Inconsistency
	seen := map[string]bool{}

	for _, u := range units {
		if seen[u.ID] {
			issues = append(issues, model.Inconsistency{UnitID: u.ID, Reason: "duplicate id"})
		}
		seen[u.ID] = true

		if u.TestsTotal < 0 || u.TestsPassed < 0 || u.TestsFailed < 0 {
			issues = append(issues, model.Inconsistency{UnitID: u.ID, Reason: "negative count"})
			continue
		}
		if u.TestsPassed+u.TestsFailed > u.TestsTotal {
			issues = append(issues, model.Inconsistency{
				UnitID: u.ID,
				Reason: fmt.Sprintf("passed (%d) + failed (%d) exceeds total (%d)", u.TestsPassed, u.TestsFailed, u.TestsTotal),
			})
		}
	}

	return issues
}
