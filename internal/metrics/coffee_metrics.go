package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CoffeeMetrics содержит счётчики жизненного цикла заказов кофейни.
type CoffeeMetrics struct {
	ordersCreated   prometheus.Counter
	ordersDelivered prometheus.Counter

	timelineEvents prometheus.Counter
	outboxEvents   *prometheus.CounterVec
}

// NewCoffeeMetrics регистрирует метрики в реестре по умолчанию.
func NewCoffeeMetrics() *CoffeeMetrics {
	return NewCoffeeMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCoffeeMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewCoffeeMetricsWithRegisterer(registerer prometheus.Registerer) *CoffeeMetrics {
	return &CoffeeMetrics{
		ordersCreated: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coffee_orders_created_total",
			Help: "Total number of coffee orders created",
		}), "coffee_orders_created_total"),
		ordersDelivered: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coffee_orders_delivered_total",
			Help: "Total number of coffee orders delivered",
		}), "coffee_orders_delivered_total"),
		timelineEvents: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coffee_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}), "coffee_timeline_events_total"),
		outboxEvents: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coffee_outbox_events_total",
			Help: "Total number of order lifecycle events enqueued to the outbox",
		}, []string{"event_type"}), "coffee_outbox_events_total"),
	}
}

// OrderCreated увеличивает счётчик созданных заказов.
func (m *CoffeeMetrics) OrderCreated() {
	m.ordersCreated.Inc()
}

// OrderDelivered увеличивает счётчик выданных заказов.
func (m *CoffeeMetrics) OrderDelivered() {
	m.ordersDelivered.Inc()
}

// RecordTimelineEvent увеличивает счётчик событий истории.
func (m *CoffeeMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent учитывает событие, поставленное в outbox.
func (m *CoffeeMetrics) RecordOutboxEvent(eventType string) {
	m.outboxEvents.WithLabelValues(eventType).Inc()
}
