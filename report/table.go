package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"ormbench/stats"
	"ormbench/util"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	fastestStyle = cellStyle.Foreground(lipgloss.Color("6"))
	failedStyle  = cellStyle.Foreground(lipgloss.Color("1"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TableHeaders are the columns of the console table.
var TableHeaders = []string{
	"Operation", "Adapter", "Mean(ms)", "Error(ms)", "StdDev(ms)", "Median(ms)", "P95(ms)",
	"Ratio", "Rank", "N", "Failed",
}

// TableSink prints one row per operation and adapter.
type TableSink struct {
	Out io.Writer
}

func (s *TableSink) Name() string {
	return "table"
}

func (s *TableSink) Write(_ context.Context, r *Report) error {
	_, err := io.WriteString(s.Out, RenderTable(r))
	return err
}

// TableRows returns the rows of the console table, in group order.
func TableRows(r *Report) [][]string {
	rows := [][]string{}
	for _, g := range r.Groups {
		for _, e := range g.Entries {
			rows = append(rows, entryRow(g.Operation, e))
		}
		for _, adapter := range g.Skipped {
			rows = append(rows, []string{g.Operation, adapter, "skipped", "", "", "", "", "", "", "", ""})
		}
	}
	return rows
}

func entryRow(operation string, e *stats.Entry) []string {
	s := e.Summary
	if !s.Measured() {
		return []string{operation, e.Adapter, "-", "-", "-", "-", "-", "-", "-", "0", strconv.Itoa(s.Failed)}
	}
	return []string{
		operation,
		e.Adapter,
		ms(s.Mean),
		ms(s.Error),
		ms(s.StdDev),
		ms(s.Median),
		ms(s.P95),
		fmt.Sprintf("%.2f", e.Ratio),
		strconv.Itoa(e.Rank),
		strconv.Itoa(s.N),
		strconv.Itoa(s.Failed),
	}
}

func ms(seconds float64) string {
	return fmt.Sprintf("%.3f", util.Millis(seconds))
}

// RenderTable renders the whole report as a console table.
func RenderTable(r *Report) string {
	rows := TableRows(r)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(TableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(rows) {
				return cellStyle
			}
			switch {
			case rows[row][len(rows[row])-1] != "0" && rows[row][len(rows[row])-1] != "":
				return failedStyle
			case rows[row][8] == "1":
				return fastestStyle
			}
			return cellStyle
		})

	b := strings.Builder{}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Run %s (%s)", r.RunID, r.Settings.Dialect)))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "warmup: %d, iterations: %d, baseline: %s\n",
		r.Settings.Warmup, r.Settings.Iterations, r.Settings.Baseline)
	fmt.Fprintf(&b, "rows before: %d/%d/%d/%d, after: %d/%d/%d/%d (olympics/sports/teams/players)\n",
		r.RowsBefore.Olympics, r.RowsBefore.Sports, r.RowsBefore.Teams, r.RowsBefore.Players,
		r.RowsAfter.Olympics, r.RowsAfter.Sports, r.RowsAfter.Teams, r.RowsAfter.Players)
	fmt.Fprintf(&b, "size before: %d bytes, after: %d bytes\n", r.SizeBefore, r.SizeAfter)
	return b.String()
}
