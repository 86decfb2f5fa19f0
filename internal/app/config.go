package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Переменные окружения сервиса.
const (
	EnvHTTPAddr            = "CAFE_HTTP_ADDR"
	EnvMetricsAddr         = "CAFE_METRICS_ADDR"
	EnvStorageDriver       = "CAFE_STORAGE_DRIVER"
	EnvPostgresDSN         = "CAFE_POSTGRES_DSN"
	EnvPostgresAutoMigrate = "CAFE_POSTGRES_AUTO_MIGRATE"
	EnvKafkaBrokers        = "CAFE_KAFKA_BROKERS"
	EnvKafkaTopic          = "CAFE_KAFKA_TOPIC"
	EnvKafkaDLQTopic       = "CAFE_KAFKA_DLQ_TOPIC"
	EnvOutboxPollInterval  = "CAFE_OUTBOX_POLL_INTERVAL"
	EnvOutboxBatchSize     = "CAFE_OUTBOX_BATCH_SIZE"
	EnvOutboxMaxAttempts   = "CAFE_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxRetryDelay    = "CAFE_OUTBOX_RETRY_DELAY"
	EnvIdempotencyTTL      = "CAFE_IDEMPOTENCY_TTL"
	EnvIdempotencyCleanup  = "CAFE_IDEMPOTENCY_CLEANUP_INTERVAL"
	EnvShutdownTimeout     = "CAFE_SHUTDOWN_TIMEOUT"
	EnvLogLevel            = "CAFE_LOG_LEVEL"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// Если KafkaBrokers пуст, события пишутся в лог.
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	// IdempotencyTTL задаёт, сколько хранится ответ на POST /api/orders с Idempotency-Key.
	IdempotencyTTL             time.Duration
	IdempotencyCleanupInterval time.Duration

	ShutdownTimeout time.Duration
	LogLevel        log.Level
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		KafkaTopic:          "cafe.order.events",
		KafkaDLQTopic:       "cafe.dlq",
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,

		IdempotencyTTL:             24 * time.Hour,
		IdempotencyCleanupInterval: 10 * time.Minute,

		ShutdownTimeout: 10 * time.Second,
		LogLevel:        log.InfoLevel,
	}
}

// LoadConfigFromEnv накладывает переменные окружения на DefaultConfig.
// lookup обычно os.LookupEnv. Все ошибки разбора возвращаются разом.
func LoadConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	var errs []error

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvHTTPAddr); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := get(EnvMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := get(EnvStorageDriver); ok {
		cfg.StorageDriver = StorageDriver(strings.ToLower(v))
	}
	if v, ok := get(EnvPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := get(EnvPostgresAutoMigrate); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvPostgresAutoMigrate, err))
		}
		cfg.PostgresAutoMigrate = b
	}
	if v, ok := get(EnvKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}
	if v, ok := get(EnvKafkaTopic); ok {
		cfg.KafkaTopic = v
	}
	if v, ok := get(EnvKafkaDLQTopic); ok {
		cfg.KafkaDLQTopic = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvOutboxPollInterval, &cfg.OutboxPollInterval},
		{EnvOutboxRetryDelay, &cfg.OutboxRetryDelay},
		{EnvIdempotencyTTL, &cfg.IdempotencyTTL},
		{EnvIdempotencyCleanup, &cfg.IdempotencyCleanupInterval},
		{EnvShutdownTimeout, &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if v, ok := get(d.key); ok {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
				continue
			}
			*d.dst = parsed
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvOutboxBatchSize, &cfg.OutboxBatchSize},
		{EnvOutboxMaxAttempts, &cfg.OutboxMaxAttempts},
	}
	for _, i := range ints {
		if v, ok := get(i.key); ok {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", i.key, err))
				continue
			}
			*i.dst = parsed
		}
	}

	if v, ok := get(EnvLogLevel); ok {
		level, err := log.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvLogLevel, err))
		} else {
			cfg.LogLevel = level
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("%s is required for postgres storage", EnvPostgresDSN))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", EnvHTTPAddr))
	}
	if c.OutboxPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvOutboxPollInterval))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvOutboxBatchSize))
	}
	if c.OutboxMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvOutboxMaxAttempts))
	}
	if c.OutboxRetryDelay < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", EnvOutboxRetryDelay))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvIdempotencyTTL))
	}
	if c.IdempotencyCleanupInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvIdempotencyCleanup))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvShutdownTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
