package ordersvc

import (
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// OrderEvent описывает полезную нагрузку событий жизненного цикла заказа в outbox.
type OrderEvent struct {
	EventType      string             `json:"event_type"`
	OrderID        int64              `json:"order_id"`
	CustomerName   string             `json:"customer_name"`
	Drink          string             `json:"drink"`
	Quantity       int                `json:"quantity"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previous_status,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func newOrderEvent(eventType string, order domain.Order, previous domain.OrderStatus, at time.Time) OrderEvent {
	return OrderEvent{
		EventType:      eventType,
		OrderID:        order.ID,
		CustomerName:   order.CustomerName,
		Drink:          order.Drink,
		Quantity:       order.Quantity,
		Status:         order.Status,
		PreviousStatus: previous,
		OccurredAt:     at,
	}
}
