// internal/ui/browse.go
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/session"
	"github.com/dsablic/weathertop/internal/stats"
)

// FetchDetails loads the detail records of one unit.
type FetchDetails func(ctx context.Context, unitID string) ([]model.DetailRecord, error)

// DetailsMsg carries the result of a detail fetch back to the browser.
type DetailsMsg struct {
	Req     session.Request
	Details []model.DetailRecord
	Err     error
}

type view int

const (
	listView view = iota
	detailView
)

// Browser is the interactive drill-down: a filterable unit table and, for the
// selected unit, its detail records.
type Browser struct {
	ctx     context.Context
	title   string
	sess    *session.Session
	fetch   FetchDetails
	view    view
	query   textinput.Model
	units   table.Model
	details table.Model
	spinner spinner.Model
	visible []model.UnitRecord
	err     error
}

// NewBrowser returns a browser over units. fetch may be nil when units carry
// no details.
func NewBrowser(ctx context.Context, title string, units []model.UnitRecord, fetch FetchDetails) Browser {
	query := textinput.New()
	query.Placeholder = "filter by name"
	query.Prompt = "/ "
	query.Focus()

	b := Browser{
		ctx:   ctx,
		title: title,
		sess:  session.New(units),
		fetch: fetch,
		query: query,
		units: table.New(
			table.WithColumns([]table.Column{
				{Title: "Name", Width: 32},
				{Title: "Tests", Width: 8},
				{Title: "Passed", Width: 8},
				{Title: "Failed", Width: 8},
				{Title: "Pass rate", Width: 10},
				{Title: "Severity", Width: 9},
			}),
			table.WithFocused(true),
			table.WithHeight(15),
		),
		details: table.New(
			table.WithColumns([]table.Column{
				{Title: "Name", Width: 40},
				{Title: "Found", Width: 6},
				{Title: "Tags", Width: 40},
			}),
			table.WithFocused(true),
			table.WithHeight(15),
		),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle)),
	}
	b.refreshUnits()
	return b
}

func (b Browser) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, b.spinner.Tick)
}

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return b, tea.Quit
		}
		if b.view == detailView {
			return b.updateDetail(msg)
		}
		return b.updateList(msg)

	case DetailsMsg:
		if !b.sess.Current(msg.Req) {
			slog.Debug("dropping stale details", "unit", msg.Req.UnitID, "seq", msg.Req.Seq)
			return b, nil
		}
		if msg.Err != nil {
			b.err = msg.Err
			b.sess.Apply(msg.Req, nil)
		} else {
			b.sess.Apply(msg.Req, msg.Details)
		}
		b.refreshDetails()
		return b, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		return b, cmd
	}

	var cmd tea.Cmd
	b.query, cmd = b.query.Update(msg)
	return b, cmd
}

func (b Browser) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if b.query.Value() == "" {
			return b, tea.Quit
		}
		b.query.SetValue("")
		b.sess.SetQuery("")
		b.refreshUnits()
		return b, nil

	case tea.KeyEnter:
		if len(b.visible) == 0 {
			return b, nil
		}
		return b.open(b.visible[b.units.Cursor()].ID)

	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown, tea.KeyHome, tea.KeyEnd:
		var cmd tea.Cmd
		b.units, cmd = b.units.Update(msg)
		return b, cmd
	}

	var cmd tea.Cmd
	prev := b.query.Value()
	b.query, cmd = b.query.Update(msg)
	if b.query.Value() != prev {
		b.sess.SetQuery(b.query.Value())
		b.refreshUnits()
	}
	return b, cmd
}

func (b Browser) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		b.sess.Clear()
		b.err = nil
		b.view = listView
		return b, nil

	case "m":
		f := b.sess.Filter()
		f.MissingOnly = !f.MissingOnly
		b.sess.SetFilter(f)
		b.refreshDetails()
		return b, nil

	case "t":
		f := b.sess.Filter()
		f.Tag = nextTag(b.sess.Snapshot().Tags, f.Tag)
		b.sess.SetFilter(f)
		b.refreshDetails()
		return b, nil

	case "q":
		return b, tea.Quit
	}

	var cmd tea.Cmd
	b.details, cmd = b.details.Update(msg)
	return b, cmd
}

// open selects id and, when it has no details yet, starts fetching them.
func (b Browser) open(id string) (tea.Model, tea.Cmd) {
	req, ok := b.sess.Select(id)
	if !ok {
		return b, nil
	}
	b.err = nil
	b.view = detailView

	if held := unitDetails(b.sess.Snapshot().Units, id); b.fetch == nil || len(held) > 0 {
		b.sess.Apply(req, held)
		b.refreshDetails()
		return b, nil
	}
	b.refreshDetails()

	ctx, fetch := b.ctx, b.fetch
	return b, func() tea.Msg {
		details, err := fetch(ctx, req.UnitID)
		return DetailsMsg{Req: req, Details: details, Err: err}
	}
}

func unitDetails(units []model.UnitRecord, id string) []model.DetailRecord {
	u, _ := stats.Select(units, id)
	return u.Details
}

// nextTag cycles through tags, returning to no filter after the last one.
func nextTag(tags []string, current string) string {
	if current == "" {
		if len(tags) == 0 {
			return ""
		}
		return tags[0]
	}
	for i, t := range tags {
		if t == current && i+1 < len(tags) {
			return tags[i+1]
		}
	}
	return ""
}

func (b *Browser) refreshUnits() {
	b.visible = b.sess.Snapshot().Visible
	summaries := stats.Summarize(b.visible)
	rows := make([]table.Row, 0, len(summaries))
	for _, u := range summaries {
		rows = append(rows, table.Row{
			u.DisplayName(),
			strconv.FormatInt(u.TestsTotal, 10),
			strconv.FormatInt(u.TestsPassed, 10),
			strconv.FormatInt(u.TestsFailed, 10),
			fmt.Sprintf("%.2f%%", u.PassRate),
			string(u.Severity),
		})
	}
	b.units.SetRows(rows)
	b.units.SetCursor(0)
}

func (b *Browser) refreshDetails() {
	snap := b.sess.Snapshot()
	rows := make([]table.Row, 0, len(snap.Filtered))
	for _, d := range snap.Filtered {
		found := "no"
		if d.Found {
			found = "yes"
		}
		rows = append(rows, table.Row{d.Name, found, strings.Join(d.Tags, ", ")})
	}
	b.details.SetRows(rows)
	b.details.SetCursor(0)
}

func (b Browser) View() string {
	snap := b.sess.Snapshot()
	var s strings.Builder
	s.WriteString("\n")

	if b.view == listView || snap.Selected == nil {
		s.WriteString(RenderTotals(b.title, snap.Totals))
		s.WriteString("\n\n")
		s.WriteString(b.query.View())
		s.WriteString("\n\n")
		if len(b.visible) == 0 {
			s.WriteString(infoStyle.Render("No units match."))
		} else {
			s.WriteString(b.units.View())
		}
		s.WriteString("\n\n")
		s.WriteString(infoStyle.Render("type to filter • ↑/↓ move • enter open • esc quit"))
		s.WriteString("\n")
		return s.String()
	}

	unit := stats.Summarize([]model.UnitRecord{*snap.Selected})[0]
	s.WriteString(titleStyle.Render(unit.DisplayName()))
	s.WriteString("  ")
	s.WriteString(SeverityStyle(unit.Severity).Render(fmt.Sprintf("%.2f%%", unit.PassRate)))
	s.WriteString("\n")

	switch {
	case b.err != nil:
		s.WriteString(errorStyle.Render("Error: " + b.err.Error()))
	case !snap.Loaded:
		s.WriteString(b.spinner.View() + " Loading details...")
	default:
		s.WriteString(RenderCoverage(stats.CoverageTotals(snap.Details)))
		s.WriteString("\n")
		s.WriteString(infoStyle.Render(filterLine(snap.Filter, len(snap.Filtered), len(snap.Details))))
		s.WriteString("\n\n")
		if len(snap.Filtered) == 0 {
			s.WriteString(infoStyle.Render("No operations match."))
		} else {
			s.WriteString(b.details.View())
		}
	}
	s.WriteString("\n\n")
	s.WriteString(infoStyle.Render("m missing only • t cycle tag • esc back • q quit"))
	s.WriteString("\n")
	return s.String()
}

func filterLine(f stats.DetailFilter, shown, total int) string {
	tag := "all"
	if f.Tag != "" {
		tag = f.Tag
	}
	missing := "off"
	if f.MissingOnly {
		missing = "on"
	}
	return fmt.Sprintf("showing %d of %d  missing only: %s  tag: %s", shown, total, missing, tag)
}

// RunBrowser runs b full screen on stderr so stdout stays clean.
func RunBrowser(b Browser) error {
	p := tea.NewProgram(b, tea.WithOutput(os.Stderr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
