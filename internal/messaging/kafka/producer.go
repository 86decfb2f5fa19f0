package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// Producer публикует сообщения в Kafka синхронно.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer создает новый Kafka producer
func NewProducer(brokers []string) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, newProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducerWithSyncProducer(producer, nil), nil
}

// NewProducerWithSyncProducer оборачивает готовый sarama.SyncProducer.
func NewProducerWithSyncProducer(producer sarama.SyncProducer, logger *log.Entry) *Producer {
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{producer: producer, logger: logger}
}

func newProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// Send публикует готовое тело сообщения с заголовками.
func (p *Producer) Send(topic, key string, value []byte, headers map[string]string) error {
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now(),
	}
	for name, v := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(name), Value: []byte(v)})
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
