package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jolt_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jolt_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jolt_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	rateLimitRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jolt_rate_limit_rejects_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
	)

	panicRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jolt_panic_recoveries_total",
			Help: "Total number of panics recovered in HTTP handlers",
		},
	)

	filesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jolt_files_scanned_total",
			Help: "Total number of files examined by largest-file scans",
		},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jolt_scan_duration_seconds",
			Help:    "Duration of largest-file scans",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"outcome"},
	)
)

// metricsMiddleware records request rate, errors and duration.
func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := newResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		path := r.Pattern
		if path == "" {
			path = r.URL.Path
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	}
}

// scanProgress converts the cumulative totals reported during a scan into counter increments.
// Reports may arrive from the progress goroutine and from the handler, in any order.
type scanProgress struct {
	mu       sync.Mutex
	reported int64
}

func (p *scanProgress) advance(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if total <= p.reported {
		return
	}

	filesScanned.Add(float64(total - p.reported))
	p.reported = total
}
