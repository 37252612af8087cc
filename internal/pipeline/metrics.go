// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/benchprom/benchprom/benchdiag"
)

// Metrics describes the pipeline itself, as opposed to the benchmarks
// it reads.
type Metrics struct {
	Runs        prometheus.Counter
	Artifacts   prometheus.Counter
	Samples     prometheus.Counter
	Diagnostics *prometheus.CounterVec
	Entries     prometheus.Gauge
	LastRun     prometheus.Gauge
	Duration    prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "benchprom",
			Name:      "runs_total",
			Help:      "Number of completed pipeline runs.",
		}),
		Artifacts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "benchprom",
			Name:      "artifacts_total",
			Help:      "Number of benchmark output files read.",
		}),
		Samples: f.NewCounter(prometheus.CounterOpts{
			Namespace: "benchprom",
			Name:      "samples_total",
			Help:      "Number of statistics extracted, before filtering.",
		}),
		Diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "benchprom",
			Name:      "diagnostics_total",
			Help:      "Number of diagnostics, by kind.",
		}, []string{"kind"}),
		Entries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "benchprom",
			Name:      "report_entries",
			Help:      "Number of entries in the most recent report.",
		}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "benchprom",
			Name:      "last_run_timestamp_seconds",
			Help:      "Time the most recent run completed.",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "benchprom",
			Name:      "run_duration_seconds",
			Help:      "Time taken by each pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

func (m *Metrics) observe(res *Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Runs.Inc()
	m.Artifacts.Add(float64(res.Artifacts))
	m.Samples.Add(float64(res.Samples))
	for _, k := range []benchdiag.Kind{
		benchdiag.MissingInputDirectory,
		benchdiag.UnparseableArtifact,
		benchdiag.FieldCountMismatch,
		benchdiag.SerializationFailure,
	} {
		// Touch every kind so the series exist from the first run.
		m.Diagnostics.WithLabelValues(k.String()).Add(float64(res.Count(k)))
	}
	m.Entries.Set(float64(len(res.Report)))
	m.LastRun.SetToCurrentTime()
	m.Duration.Observe(elapsed.Seconds())
}
