package controllers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hierarchyAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hierarchy",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of Hierarchy API requests broken down by endpoint and result.",
	}, []string{"endpoint", "result"})

	hierarchyAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hierarchy",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for Hierarchy API requests.",
		Buckets: []float64{
			0.001, 0.002, 0.005,
			0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10,
		},
	}, []string{"endpoint", "result"})
)

type statusRecordingResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecordingResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecordingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecordingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func resultLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

func instrumentAPI(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecordingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		result := resultLabel(rec.status)
		hierarchyAPIRequests.WithLabelValues(endpoint, result).Inc()
		hierarchyAPILatency.WithLabelValues(endpoint, result).Observe(time.Since(start).Seconds())
	}
}
