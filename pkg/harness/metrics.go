package harness

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var scenarioDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: "harness",
		Name:      "scenario_duration_seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	},
	[]string{"scenario"},
)

var scenarioResults = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: "harness",
		Name:      "scenario_results_total",
	},
	[]string{"scenario", "result"},
)
