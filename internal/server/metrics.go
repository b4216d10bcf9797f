package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"intake-go/internal/intake"
)

var (
	// uploadsTotal counts ingested uploads by the status they landed on
	// after the initial parse and dedup pass.
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intake",
		Subsystem: "uploads",
		Name:      "ingested_total",
		Help:      "Uploads ingested, by post-ingest status",
	}, []string{"status"})

	// dedupOutcomes counts dedup decisions by outcome.
	dedupOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "intake",
		Subsystem: "dedup",
		Name:      "outcomes_total",
		Help:      "Dedup outcomes decided, by outcome",
	}, []string{"outcome"})

	// requestDuration measures HTTP request latency.
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "intake",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method, route and status code",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route", "status"})
)

// recordIngest records the landing status of a completed ingest call.
func recordIngest(status string) {
	uploadsTotal.WithLabelValues(status).Inc()
}

// recordOutcomes folds a run summary into the dedup outcome counters.
func recordOutcomes(summary *intake.RunSummary) {
	if summary == nil {
		return
	}
	add := func(outcome string, n int) {
		if n > 0 {
			dedupOutcomes.WithLabelValues(outcome).Add(float64(n))
		}
	}
	add("duplicate", summary.Duplicates)
	add("new_version", summary.NewVersions)
	add("new_project", summary.NewProjects)
	add("ask", summary.Asks)
	add("skipped", summary.Skipped)
	add("failed", summary.Failed)
}

// metricsMiddleware observes request latency per route. Unmatched routes
// share one label value so 404 scans cannot blow up cardinality.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
