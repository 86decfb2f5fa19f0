package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/messaging/kafka"
)

// eventPublishers определяет, куда outbox relay отправляет события заказов.
type eventPublishers struct {
	events   domain.OutboxPublisher
	dlq      domain.OutboxPublisher
	producer *kafka.Producer
}

// initPublishers подключает Kafka, если заданы брокеры.
// При ошибке подключения сервис продолжает работу с публикацией в лог.
func initPublishers(cfg Config, logger *log.Entry) eventPublishers {
	fallback := eventPublishers{
		events: kafka.NewLogPublisher(logger.WithField("component", "outbox-log-publisher")),
	}

	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil || producer == nil {
		return fallback
	}

	return eventPublishers{
		events:   kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		dlq:      kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic),
		producer: producer,
	}
}

// initKafkaProducer возвращает nil, nil для пустого списка брокеров.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
