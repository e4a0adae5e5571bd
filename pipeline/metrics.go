package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapsight_probes_total",
		Help: "Probe outcomes by provider, pipeline and result.",
	}, []string{"provider", "pipeline", "result"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapsight_fetch_runs_total",
		Help: "Completed fetch runs by provider, pipeline and outcome.",
	}, []string{"provider", "pipeline", "outcome"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapsight_fetch_run_duration_seconds",
		Help:    "Wall time of fetch runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"provider", "pipeline"})
)
