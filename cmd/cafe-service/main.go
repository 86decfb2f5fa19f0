package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/app"
	"github.com/vladislavdragonenkov/cafe/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level log.Level) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)
}

func main() {
	setupLogger(log.InfoLevel)

	cfg, err := app.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka_enabled":  len(cfg.KafkaBrokers) > 0,
		"version":        version.GetVersion(),
	}).Info("запускаем cafe-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("cafe-service остановлен")
}
