package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafe/internal/messaging/kafka"
)

func TestInitKafkaProducer_EmptyBrokers(t *testing.T) {
	producer, err := initKafkaProducer(nil, log.WithField("test", "kafka"))
	require.NoError(t, err)
	require.Nil(t, producer)
}

func TestInitKafkaProducer_UnreachableBrokers(t *testing.T) {
	producer, err := initKafkaProducer([]string{"127.0.0.1:1"}, log.WithField("test", "kafka"))
	require.Error(t, err)
	require.Nil(t, producer)
}

func TestInitPublishers_FallsBackToLog(t *testing.T) {
	cfg := DefaultConfig()
	pubs := initPublishers(cfg, log.WithField("test", "kafka"))

	require.IsType(t, &kafka.LogPublisher{}, pubs.events)
	require.Nil(t, pubs.dlq)
	require.Nil(t, pubs.producer)

	cfg.KafkaBrokers = []string{"127.0.0.1:1"}
	pubs = initPublishers(cfg, log.WithField("test", "kafka"))
	require.IsType(t, &kafka.LogPublisher{}, pubs.events)
}

func TestCloseKafka_NilProducer(t *testing.T) {
	closeKafka(nil, log.WithField("test", "kafka"))
}
