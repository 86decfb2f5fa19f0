package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

func TestProducer_Send(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"hello":"cafe"}` {
			t.Errorf("unexpected value: %s", val)
		}
		return nil
	})

	producer := NewProducerWithSyncProducer(mockProducer, log.WithField("component", "kafka-producer-test"))
	if err := producer.Send(TopicOrderEvents, "42", []byte(`{"hello":"cafe"}`), map[string]string{HeaderEventType: "x"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := producer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_Send_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewProducerWithSyncProducer(mockProducer, nil)
	if err := producer.Send(TopicOrderEvents, "42", []byte("{}"), nil); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := producer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewProducerConfig(t *testing.T) {
	cfg := newProducerConfig()
	if !cfg.Producer.Idempotent || cfg.Net.MaxOpenRequests != 1 {
		t.Fatal("idempotent producer requires a single in-flight request")
	}
	if cfg.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatalf("unexpected acks: %v", cfg.Producer.RequiredAcks)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("producer config must be valid: %v", err)
	}
}

func TestNewEnvelope(t *testing.T) {
	published := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	env := NewEnvelope(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: domain.AggregateOrder,
		AggregateID:   "7",
		EventType:     domain.EventOrderCreated,
		Payload:       []byte(`{"order_id":7}`),
	}, published)

	if env.PublishedAt.Location() != time.UTC {
		t.Errorf("published_at must be UTC, got %v", env.PublishedAt.Location())
	}

	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	payload, ok := decoded["payload"].(map[string]any)
	if !ok || payload["order_id"] != float64(7) {
		t.Errorf("payload must be embedded as JSON object, got %v", decoded["payload"])
	}

	empty := NewEnvelope(domain.OutboxMessage{ID: "outbox-2"}, published)
	if string(empty.Payload) != "null" {
		t.Errorf("empty payload must encode as null, got %s", empty.Payload)
	}
}

func TestMessageKey(t *testing.T) {
	if key := messageKey(domain.OutboxMessage{ID: "a", AggregateID: "7"}); key != "7" {
		t.Errorf("expected aggregate id as key, got %s", key)
	}
	if key := messageKey(domain.OutboxMessage{ID: "a"}); key != "a" {
		t.Errorf("expected outbox id as fallback key, got %s", key)
	}
}
