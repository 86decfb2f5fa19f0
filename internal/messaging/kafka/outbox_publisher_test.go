package kafka

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var env Envelope
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}
		if env.ID != "outbox-1" || env.EventType != domain.EventOrderStatusChanged {
			return fmt.Errorf("unexpected envelope: %+v", env)
		}
		return nil
	})

	producer := NewProducerWithSyncProducer(mockProducer, log.WithField("component", "kafka-outbox-publisher-test"))
	publisher := NewOutboxPublisher(producer, "")
	if publisher.Topic() != TopicOrderEvents {
		t.Fatalf("expected default topic, got %s", publisher.Topic())
	}

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: domain.AggregateOrder,
		AggregateID:   "123",
		EventType:     domain.EventOrderStatusChanged,
		Payload:       []byte(`{"status":"READY"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewOutboxPublisher(NewProducerWithSyncProducer(mockProducer, nil), TopicDeadLetterQueue)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: domain.AggregateOrder,
		AggregateID:   "234",
		EventType:     domain.EventOrderDeleted,
		Payload:       []byte(`{}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicOrderEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}

func TestLogPublisher_NeverFails(t *testing.T) {
	t.Parallel()

	publisher := NewLogPublisher(nil)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-4", EventType: domain.EventOrderCreated}); err != nil {
		t.Fatalf("log publisher must not fail: %v", err)
	}
}
