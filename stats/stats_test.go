package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{0.004, 0.001, 0.003, 0.002}, 1, false)
	assert.Equal(t, 4, s.N)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 0.0025, s.Mean, 1e-12)
	assert.InDelta(t, 0.001, s.Min, 1e-12)
	assert.InDelta(t, 0.004, s.Max, 1e-12)
	assert.GreaterOrEqual(t, s.Median, 0.002)
	assert.LessOrEqual(t, s.Median, 0.003)
	// sample standard deviation of 1,2,3,4 (ms)
	assert.InDelta(t, 0.0012909944, s.StdDev, 1e-9)
	assert.InDelta(t, s.StdDev/2, s.StdErr, 1e-12)
	assert.Greater(t, s.Error, s.StdErr)
	assert.InDelta(t, 400, s.OpsPerSec, 1e-6)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 20, true)
	assert.False(t, s.Measured())
	assert.Equal(t, Summary{Failed: 20}, s)
}

func TestSummarizeSingleSample(t *testing.T) {
	s := Summarize([]float64{0.5}, 0, true)
	assert.Equal(t, 1, s.N)
	assert.Equal(t, 0.5, s.Mean)
	assert.Zero(t, s.StdDev)
	assert.Zero(t, s.Error)
}

func TestSummarizeDoesNotReorderInput(t *testing.T) {
	samples := []float64{3, 1, 2}
	Summarize(samples, 0, true)
	assert.Equal(t, []float64{3, 1, 2}, samples)
}

func TestRemoveUpperOutliers(t *testing.T) {
	kept, removed := RemoveUpperOutliers([]float64{1, 1, 1, 1, 1, 1, 1, 1, 100})
	assert.Equal(t, 1, removed)
	assert.Len(t, kept, 8)

	s := Summarize([]float64{100, 1, 1, 1, 1, 1, 1, 1, 1}, 0, true)
	assert.Equal(t, 1, s.Outliers)
	assert.Equal(t, 1.0, s.Max)

	kept, removed = RemoveUpperOutliers([]float64{1, 2, 100})
	assert.Zero(t, removed)
	assert.Len(t, kept, 3)
}

func TestSummaryInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		samples := rapid.SliceOfN(rapid.Float64Range(1e-6, 10), 1, 200).Draw(t, "samples")
		removeOutliers := rapid.Bool().Draw(t, "removeOutliers")
		s := Summarize(samples, 0, removeOutliers)

		if s.N+s.Outliers != len(samples) {
			t.Fatalf("n %d + outliers %d != %d samples", s.N, s.Outliers, len(samples))
		}
		if s.Mean < s.Min || s.Mean > s.Max {
			t.Fatalf("mean %v outside [%v, %v]", s.Mean, s.Min, s.Max)
		}
		if s.Median < s.Min || s.Median > s.Max || s.P95 < s.Median {
			t.Fatalf("bad quantiles: %+v", s)
		}
		if s.StdDev < 0 || s.Error < 0 {
			t.Fatalf("negative spread: %+v", s)
		}
	})
}

func TestRank(t *testing.T) {
	entries := []*Entry{
		{Adapter: "gorm", Summary: Summary{N: 5, Mean: 3}},
		{Adapter: "sql", Summary: Summary{N: 5, Mean: 1}},
		{Adapter: "sqlx", Summary: Summary{N: 5, Mean: 1}},
		{Adapter: "pgx", Summary: Summary{Failed: 5}},
		{Adapter: "gorm-raw", Summary: Summary{N: 5, Mean: 2}},
	}
	base := Rank(entries, "sql")
	assert.Equal(t, "sql", base)

	ranks := map[string]int{}
	ratios := map[string]float64{}
	for _, e := range entries {
		ranks[e.Adapter] = e.Rank
		ratios[e.Adapter] = e.Ratio
	}
	assert.Equal(t, map[string]int{"sql": 1, "sqlx": 1, "gorm-raw": 2, "gorm": 3, "pgx": 0}, ranks)
	assert.InDelta(t, 3.0, ratios["gorm"], 1e-12)
	assert.InDelta(t, 1.0, ratios["sqlx"], 1e-12)
	assert.Zero(t, ratios["pgx"])
}

func TestRankFallsBackToFirstMeasured(t *testing.T) {
	entries := []*Entry{
		{Adapter: "sql", Summary: Summary{Failed: 3}},
		{Adapter: "gorm", Summary: Summary{N: 3, Mean: 4}},
		{Adapter: "sqlx", Summary: Summary{N: 3, Mean: 2}},
	}
	assert.Equal(t, "gorm", Rank(entries, "sql"))
	assert.InDelta(t, 0.5, entries[2].Ratio, 1e-12)

	assert.Equal(t, "", Rank([]*Entry{{Adapter: "sql"}}, "sql"))
}

func TestRanksAreDense(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		means := rapid.SliceOfN(rapid.IntRange(1, 5), 1, 10).Draw(t, "means")
		entries := make([]*Entry, len(means))
		for i, m := range means {
			entries[i] = &Entry{Adapter: string(rune('a' + i)), Summary: Summary{N: 1, Mean: float64(m)}}
		}
		Rank(entries, "a")

		seen := map[int]bool{}
		maxRank := 0
		for _, e := range entries {
			seen[e.Rank] = true
			if e.Rank > maxRank {
				maxRank = e.Rank
			}
		}
		for r := 1; r <= maxRank; r++ {
			if !seen[r] {
				t.Fatalf("rank %d missing, ranks are not dense", r)
			}
		}
		if !seen[1] {
			t.Fatal("no entry ranked first")
		}
	})
}
