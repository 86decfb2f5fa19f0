package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/metrics"
)

const unmatchedRoute = "unmatched"

// accessLog пишет одну строку на запрос и обновляет HTTP-метрики.
func accessLog(logger *log.Entry, m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			if m != nil {
				m.Observe(r.Method, route, status, elapsed)
			}

			entry := logger.WithFields(log.Fields{
				"method":     r.Method,
				"route":      route,
				"status":     status,
				"duration":   elapsed.String(),
				"request_id": middleware.GetReqID(r.Context()),
			})
			if status >= http.StatusInternalServerError {
				entry.Error("request failed")
				return
			}
			entry.Debug("request served")
		})
	}
}
