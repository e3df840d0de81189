// Package output renders reports as JSON or GitHub-flavored markdown.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dsablic/weathertop/internal/model"
)

const missing = "—"

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

func cell(s string) string {
	return strings.ReplaceAll(orMissing(s), "|", `\|`)
}

// WriteStatsMarkdown writes an SDK test report.
func WriteStatsMarkdown(w io.Writer, report model.StatsReport) error {
	fmt.Fprintf(w, "# SDK Test Report\n\n")
	fmt.Fprintf(w, "**Source:** %s\n", report.Source)
	fmt.Fprintf(w, "**Generated:** %s\n\n", report.GeneratedAt)

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Metric | Value |\n")
	fmt.Fprintf(w, "|--------|-------|\n")
	fmt.Fprintf(w, "| Languages | %d |\n", report.Totals.TotalUnits)
	fmt.Fprintf(w, "| Tests | %d |\n", report.Totals.TotalTests)
	fmt.Fprintf(w, "| Passed | %d |\n", report.Totals.TotalPassed)
	fmt.Fprintf(w, "| Failed | %d |\n", report.Totals.TotalFailed)
	fmt.Fprintf(w, "| Ignored | %d |\n", report.Ignored)
	fmt.Fprintf(w, "| Pass rate | %.2f%% |\n\n", report.Totals.PassRate)

	fmt.Fprintf(w, "## Languages\n\n")
	writeUnitTable(w, "Language", "Tests", "Passed", "Failed", report.Breakdown)

	if len(report.Inconsistencies) > 0 {
		fmt.Fprintf(w, "## Inconsistencies\n\n")
		for _, i := range report.Inconsistencies {
			fmt.Fprintf(w, "- **%s**: %s\n", i.UnitID, i.Reason)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteCoverageMarkdown writes a coverage report and, when a service is
// selected, its operations.
func WriteCoverageMarkdown(w io.Writer, report model.CoverageReport) error {
	fmt.Fprintf(w, "# Code Example Coverage\n\n")
	fmt.Fprintf(w, "**Source:** %s\n", report.Source)
	if report.Query != "" {
		fmt.Fprintf(w, "**Filter:** %s\n", report.Query)
	}
	fmt.Fprintf(w, "**Generated:** %s\n\n", report.GeneratedAt)

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Metric | Value |\n")
	fmt.Fprintf(w, "|--------|-------|\n")
	fmt.Fprintf(w, "| Services | %d |\n", report.Totals.TotalUnits)
	fmt.Fprintf(w, "| Operations | %d |\n", report.Coverage.Operations)
	fmt.Fprintf(w, "| With examples | %d |\n", report.Coverage.Found)
	fmt.Fprintf(w, "| Missing | %d |\n", report.Coverage.Missing)
	fmt.Fprintf(w, "| Coverage | %.2f%% |\n\n", report.Coverage.Percent)

	fmt.Fprintf(w, "## Services\n\n")
	writeUnitTable(w, "Service", "Operations", "Found", "Missing", report.Services)

	if report.Selected != nil {
		writeDetailReport(w, *report.Selected)
	}
	return nil
}

func writeUnitTable(w io.Writer, unit, total, passed, failed string, rows []model.UnitSummary) {
	fmt.Fprintf(w, "| %s | %s | %s | %s | Rate | Status |\n", unit, total, passed, failed)
	fmt.Fprintf(w, "|------|------:|------:|------:|-----:|--------|\n")
	for _, r := range rows {
		fmt.Fprintf(w, "| %s | %d | %d | %d | %.2f%% | %s |\n",
			cell(r.DisplayName()), r.TestsTotal, r.TestsPassed, r.TestsFailed, r.PassRate, r.Severity)
	}
	fmt.Fprintln(w)
}

func writeDetailReport(w io.Writer, d model.DetailReport) {
	fmt.Fprintf(w, "## %s\n\n", d.Unit.DisplayName())
	fmt.Fprintf(w, "%d of %d operations have examples (%.2f%%).\n", d.Totals.Found, d.Totals.Operations, d.Totals.Percent)

	var filters []string
	if d.Filter.MissingOnly {
		filters = append(filters, "missing only")
	}
	if d.Filter.Tag != "" {
		filters = append(filters, "tag "+d.Filter.Tag)
	}
	if d.Filter.SortBy != "" {
		filters = append(filters, "sorted by "+d.Filter.SortBy)
	}
	if len(filters) > 0 {
		fmt.Fprintf(w, "Showing %s.\n", strings.Join(filters, ", "))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "| Operation | Found | Languages |\n")
	fmt.Fprintf(w, "|-----------|:-----:|-----------|\n")
	for _, op := range d.Details {
		found := "no"
		if op.Found {
			found = "yes"
		}
		fmt.Fprintf(w, "| %s | %s | %s |\n", cell(op.Name), found, cell(strings.Join(op.Tags, ", ")))
	}
	fmt.Fprintln(w)
}

// WriteNoTestsMarkdown writes the services without tests, per language.
func WriteNoTestsMarkdown(w io.Writer, report model.NoTestsReport) error {
	fmt.Fprintf(w, "# Services Without Tests\n\n")
	fmt.Fprintf(w, "**Source:** %s\n", report.Source)
	fmt.Fprintf(w, "**Generated:** %s\n\n", report.GeneratedAt)

	fmt.Fprintf(w, "| Language | Count | Services |\n")
	fmt.Fprintf(w, "|----------|------:|----------|\n")
	for _, g := range report.Languages {
		fmt.Fprintf(w, "| %s | %d | %s |\n", cell(g.Language), len(g.Services), cell(strings.Join(g.Services, ", ")))
	}
	fmt.Fprintln(w)
	return nil
}

// WriteInspectionMarkdown writes the state of a scheduled Fargate task.
func WriteInspectionMarkdown(w io.Writer, in model.TaskInspection) error {
	td := in.TaskDefinition
	fmt.Fprintf(w, "# Fargate Task: %s\n\n", in.Family)

	fmt.Fprintf(w, "## Task Definition\n\n")
	fmt.Fprintf(w, "| Field | Value |\n")
	fmt.Fprintf(w, "|-------|-------|\n")
	fmt.Fprintf(w, "| ARN | %s |\n", cell(td.Arn))
	fmt.Fprintf(w, "| Task role | %s |\n", cell(td.TaskRoleArn))
	fmt.Fprintf(w, "| Execution role | %s |\n", cell(td.ExecutionRoleArn))
	fmt.Fprintf(w, "| Network mode | %s |\n", cell(td.NetworkMode))
	fmt.Fprintf(w, "| CPU | %s |\n", cell(td.CPU))
	fmt.Fprintf(w, "| Memory | %s |\n\n", cell(td.Memory))

	fmt.Fprintf(w, "## Cluster\n\n")
	fmt.Fprintf(w, "**ARN:** %s\n\n", orMissing(in.ClusterArn))
	if in.RunningTasks == 0 {
		fmt.Fprintf(w, "No ECS tasks running.\n\n")
	} else {
		fmt.Fprintf(w, "%d ECS tasks running.\n\n", in.RunningTasks)
	}

	fmt.Fprintf(w, "## Schedules\n\n")
	if len(in.Rules) == 0 {
		fmt.Fprintf(w, "No EventBridge rules found.\n\n")
		return nil
	}
	for _, r := range in.Rules {
		fmt.Fprintf(w, "### %s\n\n", r.Name)
		fmt.Fprintf(w, "| Field | Value |\n")
		fmt.Fprintf(w, "|-------|-------|\n")
		fmt.Fprintf(w, "| Expression | `%s` |\n", r.Expression)
		fmt.Fprintf(w, "| Schedule | %s |\n", cell(r.ScheduleText))
		if r.NextRun != nil {
			fmt.Fprintf(w, "| Next run | %s |\n", r.NextRun.Format("2006-01-02 15:04 MST"))
		}
		fmt.Fprintf(w, "| State | %s |\n", cell(r.State))
		fmt.Fprintf(w, "| Description | %s |\n", cell(r.Description))
		for _, t := range r.Targets {
			fmt.Fprintf(w, "| Target | %s |\n", cell(t.ID))
			fmt.Fprintf(w, "| Target ARN | %s |\n", cell(t.Arn))
			fmt.Fprintf(w, "| Task definition | %s |\n", cell(t.TaskDefinitionArn))
			fmt.Fprintf(w, "| Launch type | %s |\n", cell(t.LaunchType))
			fmt.Fprintf(w, "| Subnets | %s |\n", cell(strings.Join(t.Subnets, ", ")))
			fmt.Fprintf(w, "| Security groups | %s |\n", cell(strings.Join(t.SecurityGroups, ", ")))
			fmt.Fprintf(w, "| Public IP | %s |\n", cell(t.AssignPublicIP))
		}
		fmt.Fprintln(w)
	}
	return nil
}
