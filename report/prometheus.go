package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusFile is the name of the textfile-collector export inside the report dir.
const PrometheusFile = "ormbench.prom"

// Registry returns a registry holding the gauges of one report.
func Registry(r *Report) (*prometheus.Registry, error) {
	constLabels := prometheus.Labels{"dialect": r.Settings.Dialect}
	latency := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "ormbench_latency_seconds",
		Help:        "Latency statistics of one operation per adapter.",
		ConstLabels: constLabels,
	}, []string{"operation", "adapter", "stat"})
	rank := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "ormbench_rank",
		Help:        "Rank of the adapter within the operation, 1 is the fastest, 0 is not measured.",
		ConstLabels: constLabels,
	}, []string{"operation", "adapter"})
	failures := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "ormbench_failures_total",
		Help:        "Measured iterations that failed.",
		ConstLabels: constLabels,
	}, []string{"operation", "adapter"})
	ops := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "ormbench_ops_per_second",
		Help:        "Inverse of the mean latency.",
		ConstLabels: constLabels,
	}, []string{"operation", "adapter"})

	registry := prometheus.NewRegistry()
	for _, c := range []prometheus.Collector{latency, rank, failures, ops} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	for _, g := range r.Groups {
		for _, e := range g.Entries {
			s := e.Summary
			rank.WithLabelValues(g.Operation, e.Adapter).Set(float64(e.Rank))
			failures.WithLabelValues(g.Operation, e.Adapter).Set(float64(s.Failed))
			if !s.Measured() {
				continue
			}
			ops.WithLabelValues(g.Operation, e.Adapter).Set(s.OpsPerSec)
			for stat, v := range map[string]float64{
				"mean":   s.Mean,
				"error":  s.Error,
				"stddev": s.StdDev,
				"min":    s.Min,
				"max":    s.Max,
				"median": s.Median,
				"p95":    s.P95,
			} {
				latency.WithLabelValues(g.Operation, e.Adapter, stat).Set(v)
			}
		}
	}
	return registry, nil
}

// PrometheusSink writes the report in the node exporter textfile format.
type PrometheusSink struct {
	Dir string
}

func (s *PrometheusSink) Name() string {
	return "prometheus"
}

func (s *PrometheusSink) Write(_ context.Context, r *Report) error {
	registry, err := Registry(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	return prometheus.WriteToTextfile(filepath.Join(s.Dir, PrometheusFile), registry)
}
