package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ormbench/stats"
)

func TestCompare(t *testing.T) {
	prev := sampleReport()
	curr := sampleReport()
	curr.RunID = "run-2"
	reads := curr.Group("GetPlayerById")
	reads.Entries[0].Summary.Mean = 0.0011 // sql, 10% slower
	reads.Entries[1].Summary.Mean = 0.001  // gorm, 50% faster
	curr.Groups = append(curr.Groups, &Group{
		Operation: "CreateOlympiad",
		Entries:   []*stats.Entry{{Adapter: "sql", Summary: stats.Summary{N: 1, Mean: 1}}},
	})

	deltas := Compare(prev, curr, 5)
	require.Len(t, deltas, 3) // pgx was not measured and CreateOlympiad is new

	assert.Equal(t, "sql", deltas[0].Adapter)
	assert.InDelta(t, 10.0, deltas[0].Change, 1e-9)
	assert.True(t, deltas[0].Regression)
	assert.InDelta(t, -50.0, deltas[1].Change, 1e-9)
	assert.False(t, deltas[1].Regression)
	assert.Equal(t, "DeleteOlympiad", deltas[2].Operation)
	assert.Zero(t, deltas[2].Change)
	assert.Equal(t, 1, Regressions(deltas))

	assert.Zero(t, Regressions(Compare(prev, curr, 15)))
}

func TestRenderComparison(t *testing.T) {
	deltas := []Delta{
		{Operation: "GetPlayerById", Adapter: "sql", PrevMean: 0.001, CurrMean: 0.002, Change: 100, Regression: true},
		{Operation: "GetPlayerById", Adapter: "gorm", PrevMean: 0.002, CurrMean: 0.001, Change: -50},
	}
	text := RenderComparison("a", "b", deltas)
	assert.Contains(t, text, "a -> b")
	assert.Contains(t, text, "+100.00%")
	assert.Contains(t, text, "-50.00%")
	assert.Contains(t, text, "regression")
	assert.Contains(t, text, "regressions: 1, mean change: +25.00%")
}
