package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hierarchy",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Total number of hierarchy reconciliations broken down by mode and result.",
	}, []string{"mode", "result"})

	reconcileOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hierarchy",
		Subsystem: "reconcile",
		Name:      "store_calls_total",
		Help:      "Total number of designation store calls issued by reconciliations broken down by operation and result.",
	}, []string{"op", "result"})

	reconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hierarchy",
		Subsystem: "reconcile",
		Name:      "duration_seconds",
		Help:      "Duration of hierarchy reconciliations.",
		Buckets: []float64{
			0.005, 0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10, 30,
		},
	}, []string{"mode", "result"})
)

func recordStoreCall(op Operation, err error, timedOut bool) {
	result := "ok"
	switch {
	case timedOut:
		result = "timeout"
	case err != nil:
		result = "error"
	}
	reconcileOperations.WithLabelValues(string(op), result).Inc()
}

func recordRun(mode string, err error, seconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	reconcileRuns.WithLabelValues(mode, result).Inc()
	reconcileDuration.WithLabelValues(mode, result).Observe(seconds)
}
