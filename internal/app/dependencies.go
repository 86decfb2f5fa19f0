package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/cafe/internal/health"
	"github.com/vladislavdragonenkov/cafe/internal/storage/memory"
	"github.com/vladislavdragonenkov/cafe/internal/storage/postgres"
)

const storageCheckTimeout = 2 * time.Second

// runtimeDependencies содержит репозитории выбранного хранилища.
type runtimeDependencies struct {
	clients  domain.ClientRepository
	products domain.ProductRepository
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	tx       domain.TxManager

	idempotency domain.IdempotencyRepository

	// storageChecker nil для in-memory хранилища.
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		logger.Info("используем in-memory хранилище")
		return &runtimeDependencies{
			clients:  memory.NewClientRepository(),
			products: memory.NewProductRepository(),
			orders:   memory.NewOrderRepository(),
			timeline: memory.NewTimelineRepository(),
			outbox:   memory.NewOutboxRepository(),
			tx:       memory.NewTxManager(),

			idempotency: memory.NewIdempotencyRepository(),
			closeFn:     func() error { return nil },
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres dsn is required for storage driver %q", StorageDriverPostgres)
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			_ = store.Close()
			return nil, err
		}
		status, err := store.MigrationStatus(ctx)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.WithFields(log.Fields{
			"version": status.Version,
			"dirty":   status.Dirty,
		}).Info("миграции PostgreSQL применены")
	}

	logger.Info("используем PostgreSQL хранилище")
	return &runtimeDependencies{
		clients:        postgres.NewClientRepository(store),
		products:       postgres.NewProductRepository(store),
		orders:         postgres.NewOrderRepository(store),
		timeline:       postgres.NewTimelineRepository(store),
		outbox:         postgres.NewOutboxRepository(store),
		tx:             store.TxManager(),
		idempotency:    postgres.NewIdempotencyRepository(store),
		storageChecker: healthcheck.NewPingChecker("postgres", storageCheckTimeout, store.Ping),
		closeFn:        store.Close,
	}, nil
}
