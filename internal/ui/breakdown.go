// internal/ui/breakdown.go
package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/stats"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff1a1a"))
)

var severityColors = map[model.Severity]string{
	model.SeverityGood:     "#39ff14",
	model.SeverityWarning:  "#ffa500",
	model.SeverityCritical: "#ff1a1a",
}

// SeverityStyle returns the style pass rates of severity s render with.
func SeverityStyle(s model.Severity) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(severityColors[s]))
	if s != model.SeverityGood {
		style = style.Bold(true)
	}
	return style
}

// RenderTotals renders the headline of a report: the title, the counts and
// the overall pass rate.
func RenderTotals(title string, t model.AggregateTotals) string {
	rate := SeverityStyle(stats.Classify(t.PassRate)).Render(fmt.Sprintf("%.2f%%", t.PassRate))
	counts := infoStyle.Render(fmt.Sprintf("%d units  %d tests  %d passed  %d failed",
		t.TotalUnits, t.TotalTests, t.TotalPassed, t.TotalFailed))
	return titleStyle.Render(title) + "\n" + counts + "  " + rate
}

// RenderCoverage renders found and missing operation counts.
func RenderCoverage(c model.CoverageTotals) string {
	rate := SeverityStyle(stats.Classify(c.Percent)).Render(fmt.Sprintf("%.2f%%", c.Percent))
	return infoStyle.Render(fmt.Sprintf("%d operations  %d found  %d missing", c.Operations, c.Found, c.Missing)) + "  " + rate
}

// RenderBreakdown draws one row per unit with its counts, pass rate and a
// bar colored by severity. width is the terminal width the table should fit.
func RenderBreakdown(rows []model.UnitSummary, width int) string {
	barWidth := min(max(width-70, 10), 30)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(infoStyle).
		Headers("Name", "Tests", "Passed", "Failed", "Pass rate", "", "Severity").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 4 || col == 6 {
				return cellStyle.Inherit(SeverityStyle(rows[row].Severity))
			}
			return cellStyle
		})

	for _, r := range rows {
		bar := progress.New(
			progress.WithSolidFill(severityColors[r.Severity]),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		)
		t.Row(
			r.DisplayName(),
			strconv.FormatInt(r.TestsTotal, 10),
			strconv.FormatInt(r.TestsPassed, 10),
			strconv.FormatInt(r.TestsFailed, 10),
			fmt.Sprintf("%.2f%%", r.PassRate),
			bar.ViewAs(r.PassRate/100),
			string(r.Severity),
		)
	}
	return t.Render()
}

// RenderGaps draws the services without tests, one row per language.
func RenderGaps(gaps []model.LanguageGap) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(infoStyle).
		Headers("Language", "Services", "Missing tests").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, g := range gaps {
		names := "-"
		if len(g.Services) > 0 {
			names = joinWrapped(g.Services, 60)
		}
		t.Row(g.Language, strconv.Itoa(len(g.Services)), names)
	}
	return t.Render()
}

// joinWrapped joins items with ", " and breaks lines before they exceed
// width.
func joinWrapped(items []string, width int) string {
	var out string
	line := 0
	for i, it := range items {
		if i > 0 {
			out += ","
			line++
			if line+len(it)+1 > width {
				out += "\n"
				line = 0
			} else {
				out += " "
				line++
			}
		}
		out += it
		line += len(it)
	}
	return out
}

// RenderDetails draws the drill-down of one unit: its coverage and the
// operations left after filtering.
func RenderDetails(d model.DetailReport) string {
	head := titleStyle.Render(d.Unit.DisplayName()) + "\n" + RenderCoverage(d.Totals)
	if len(d.Details) == 0 {
		return head + "\n" + infoStyle.Render("No operations match.")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(infoStyle).
		Headers("Operation", "Found", "Tags").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				if d.Details[row].Found {
					return cellStyle.Inherit(SeverityStyle(model.SeverityGood))
				}
				return cellStyle.Inherit(SeverityStyle(model.SeverityCritical))
			}
			return cellStyle
		})
	for _, op := range d.Details {
		found := "no"
		if op.Found {
			found = "yes"
		}
		tags := "-"
		if len(op.Tags) > 0 {
			tags = joinWrapped(op.Tags, 40)
		}
		t.Row(op.Name, found, tags)
	}
	return head + "\n" + t.Render()
}
