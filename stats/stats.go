// Package stats turns latency samples into summaries and compares the adapters of a
// comparison group against each other.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Confidence of the interval whose half-width is reported as Error.
const Confidence = 0.999

// Summary describes the samples of one adapter × operation pair. Times are in seconds.
type Summary struct {
	N         int     `json:"n" yaml:"n"`
	Failed    int     `json:"failed" yaml:"failed"`
	Outliers  int     `json:"outliers" yaml:"outliers"`
	Mean      float64 `json:"mean" yaml:"mean"`
	StdDev    float64 `json:"stdDev" yaml:"stdDev"`
	StdErr    float64 `json:"stdErr" yaml:"stdErr"`
	Error     float64 `json:"error" yaml:"error"`
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`
	Median    float64 `json:"median" yaml:"median"`
	P95       float64 `json:"p95" yaml:"p95"`
	OpsPerSec float64 `json:"opsPerSec" yaml:"opsPerSec"`
}

// Measured reports whether at least one sample succeeded.
func (s Summary) Measured() bool {
	return s.N > 0
}

// RemoveUpperOutliers drops the samples above the Tukey upper fence, q3 + 1.5 * iqr.
// sorted must be in ascending order.
func RemoveUpperOutliers(sorted []float64) (kept []float64, removed int) {
	if len(sorted) < 4 {
		return sorted, 0
	}
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	fence := q3 + 1.5*(q3-q1)

	n := sort.Search(len(sorted), func(i int) bool { return sorted[i] > fence })
	return sorted[:n], len(sorted) - n
}

// Summarize computes the summary of the successful samples; failed is the number of
// iterations that did not produce one.
func Summarize(samples []float64, failed int, removeOutliers bool) Summary {
	s := Summary{Failed: failed}
	if len(samples) == 0 {
		return s
	}

	x := make([]float64, len(samples))
	copy(x, samples)
	sort.Float64s(x)
	if removeOutliers {
		x, s.Outliers = RemoveUpperOutliers(x)
	}

	s.N = len(x)
	s.Min = floats.Min(x)
	s.Max = floats.Max(x)
	s.Median = stat.Quantile(0.5, stat.LinInterp, x, nil)
	s.P95 = stat.Quantile(0.95, stat.LinInterp, x, nil)

	if s.N == 1 {
		s.Mean = x[0]
	} else {
		s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
		s.StdErr = stat.StdErr(s.StdDev, float64(s.N))
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(s.N - 1)}
		s.Error = t.Quantile(1-(1-Confidence)/2) * s.StdErr
	}
	// the mean can not leave [min, max], rounding aside
	s.Mean = math.Max(s.Min, math.Min(s.Max, s.Mean))
	if s.Mean > 0 {
		s.OpsPerSec = 1 / s.Mean
	}
	return s
}
