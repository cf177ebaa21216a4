package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	evalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "promptrun",
			Subsystem: "runner",
			Name:      "evaluations_total",
			Help:      "Total evaluated (prompt, model) pairs",
		},
		[]string{"model", "status"},
	)

	evalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "promptrun",
			Subsystem: "runner",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall-clock duration of single evaluations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(evalsTotal, evalDuration)
}

func observeEval(model string, failed bool, seconds float64) {
	status := "ok"
	if failed {
		status = "error"
	}
	evalsTotal.WithLabelValues(model, status).Inc()
	evalDuration.WithLabelValues(model).Observe(seconds)
}
