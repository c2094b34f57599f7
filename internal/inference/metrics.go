package inference

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelconsole",
			Subsystem: "inference",
			Name:      "runs_total",
			Help:      "Inference runs by outcome (success or error kind)",
		},
		[]string{"outcome"},
	)

	fallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "modelconsole",
			Subsystem: "inference",
			Name:      "fallbacks_total",
			Help:      "Runs that switched to the fallback transport",
		},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelconsole",
			Subsystem: "inference",
			Name:      "duration_seconds",
			Help:      "Duration of successful inference runs by transport",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"transport", "streaming"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, fallbacksTotal, runDuration)
}
