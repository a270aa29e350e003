package restapi

import (
	"net/http"
	"strconv"
	"time"

	"inspector.onebusaway.org/internal/metrics"
)

// MetricsHandler records request counts and latencies by route pattern.
// A nil m yields a pass-through middleware. It must sit directly around the
// ServeMux so that r.Pattern is visible after the request is served.
func MetricsHandler(m *metrics.Metrics) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusWriter(w)

			next.ServeHTTP(wrapped, r)

			// patterns, not paths, keep snapshot ids out of the label set
			path := r.Pattern
			if path == "" {
				path = "unmatched"
			}

			status := strconv.Itoa(wrapped.statusCode)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}
