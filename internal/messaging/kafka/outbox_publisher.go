package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Topic возвращает целевой топик.
func (p *OutboxTopicPublisher) Topic() string {
	return p.topic
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	body, err := json.Marshal(NewEnvelope(event, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return p.producer.Send(p.topic, messageKey(event), body, messageHeaders(event))
}

// LogPublisher пишет события в лог; используется, когда брокеры не настроены.
type LogPublisher struct {
	logger *log.Entry
}

// NewLogPublisher создаёт паблишер без внешнего брокера.
func NewLogPublisher(logger *log.Entry) *LogPublisher {
	if logger == nil {
		logger = log.WithField("component", "outbox-log-publisher")
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"outbox_id":    event.ID,
		"aggregate_id": event.AggregateID,
		"event_type":   event.EventType,
		"payload":      string(event.Payload),
	}).Info("order event")
	return nil
}

var (
	_ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
	_ domain.OutboxPublisher = (*LogPublisher)(nil)
)
