package middleware

import (
	"net/http"
	"strconv"
	"time"

	"todo-backend/pkg/observability"

	"github.com/go-chi/chi/v5/middleware"
)

// Metrics records request counts and latency per route pattern.
func Metrics(collector *observability.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routePattern(r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			collector.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			collector.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
