package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Delta is the change of one operation × adapter pair between two runs.
type Delta struct {
	Operation string
	Adapter   string
	PrevMean  float64
	CurrMean  float64
	// percentage change of the mean latency; positive is slower
	Change     float64
	Regression bool
}

// Compare matches the pairs measured in both runs, in the order of curr. A pair
// whose mean grew by more than threshold percent is a regression.
func Compare(prev, curr *Report, threshold float64) []Delta {
	deltas := []Delta{}
	for _, g := range curr.Groups {
		pg := prev.Group(g.Operation)
		if pg == nil {
			continue
		}
		before := map[string]float64{}
		for _, e := range pg.Entries {
			if e.Summary.Measured() {
				before[e.Adapter] = e.Summary.Mean
			}
		}
		for _, e := range g.Entries {
			p, ok := before[e.Adapter]
			if !ok || !e.Summary.Measured() || p <= 0 {
				continue
			}
			d := Delta{
				Operation: g.Operation,
				Adapter:   e.Adapter,
				PrevMean:  p,
				CurrMean:  e.Summary.Mean,
				Change:    (e.Summary.Mean - p) / p * 100,
			}
			d.Regression = d.Change > threshold
			deltas = append(deltas, d)
		}
	}
	return deltas
}

// Regressions counts the regressed pairs.
func Regressions(deltas []Delta) int {
	n := 0
	for _, d := range deltas {
		if d.Regression {
			n++
		}
	}
	return n
}

var (
	fasterStyle    = cellStyle.Foreground(lipgloss.Color("2"))
	regressedStyle = cellStyle.Foreground(lipgloss.Color("1")).Bold(true)
)

// RenderComparison renders the deltas as a console table.
func RenderComparison(prevID, currID string, deltas []Delta) string {
	rows := make([][]string, len(deltas))
	for i, d := range deltas {
		mark := ""
		if d.Regression {
			mark = "regression"
		}
		rows[i] = []string{
			d.Operation,
			d.Adapter,
			ms(d.PrevMean),
			ms(d.CurrMean),
			fmt.Sprintf("%+.2f%%", d.Change),
			mark,
		}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Operation", "Adapter", "Before(ms)", "After(ms)", "Change", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row < 0 || row >= len(deltas):
				return cellStyle
			case deltas[row].Regression:
				return regressedStyle
			case deltas[row].Change < 0:
				return fasterStyle
			}
			return cellStyle
		})

	b := strings.Builder{}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s -> %s", prevID, currID)))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "pairs: %d, regressions: %d, mean change: %+.2f%%\n",
		len(deltas), Regressions(deltas), meanChange(deltas))
	return b.String()
}

func meanChange(deltas []Delta) float64 {
	if len(deltas) == 0 {
		return 0
	}
	total := 0.
	for _, d := range deltas {
		total += d.Change
	}
	return total / float64(len(deltas))
}
