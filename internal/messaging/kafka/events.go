package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "cafe.order.events"
	TopicDeadLetterQueue = "cafe.dlq"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)

// Envelope описывает формат сообщения в топике событий заказов.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope упаковывает outbox-сообщение.
func NewEnvelope(msg domain.OutboxMessage, publishedAt time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   publishedAt.UTC(),
	}
}

func messageKey(msg domain.OutboxMessage) string {
	if msg.AggregateID != "" {
		return msg.AggregateID
	}
	return msg.ID
}

func messageHeaders(msg domain.OutboxMessage) map[string]string {
	return map[string]string{
		HeaderEventType:     msg.EventType,
		HeaderAggregateType: msg.AggregateType,
		HeaderOutboxID:      msg.ID,
	}
}
