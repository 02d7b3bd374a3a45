package middleware

import (
	"net/http"
	"time"

	"github.com/garala-cf/garala/internal/platform/metrics"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Metrics records request count and latency per route pattern.
func Metrics(m *metrics.MetricsManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			m.ObserveRequest(r.Method, routePattern(r), ww.Status(), time.Since(startTime).Seconds())
		})
	}
}
