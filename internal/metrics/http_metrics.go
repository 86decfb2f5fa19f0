package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics собирает метрики входящих HTTP-запросов API.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics регистрирует метрики HTTP в переданном реестре (nil означает реестр по умолчанию).
func NewHTTPMetrics(registerer prometheus.Registerer) *HTTPMetrics {
	return &HTTPMetrics{
		requests: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coffee_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"method", "route", "code"}), "coffee_http_requests_total"),
		duration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coffee_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"method", "route"}), "coffee_http_request_duration_seconds"),
	}
}

// Observe фиксирует завершённый запрос.
func (m *HTTPMetrics) Observe(method, route string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
