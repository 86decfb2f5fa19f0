package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxConns        = 25
	defaultMinConns        = 2
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	opTimeout = 5 * time.Second

	uniqueViolationCode = "23505"
)

// Store оборачивает пул подключений к PostgreSQL и менеджер транзакций.
type Store struct {
	pool *pgxpool.Pool
	tx   *manager.Manager
	dsn  string
}

// Open открывает пул подключений к PostgreSQL и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = defaultMaxConns
	cfg.MinConns = defaultMinConns
	cfg.MaxConnLifetime = defaultConnMaxLifetime
	cfg.MaxConnIdleTime = defaultConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{
		pool: pool,
		tx:   manager.Must(trmpgx.NewDefaultFactory(pool)),
		dsn:  dsn,
	}, nil
}

// Pool возвращает пул, когда нужен низкоуровневый доступ.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// TxManager возвращает менеджер транзакций; репозитории хранилища подхватывают
// открытую им транзакцию из контекста.
func (s *Store) TxManager() domain.TxManager {
	return s.tx
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.pool.Ping(pingCtx)
}

// Close закрывает пул подключений.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// conn возвращает текущую транзакцию из контекста или пул.
func (s *Store) conn(ctx context.Context) trmpgx.Tr {
	return trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, s.pool)
}

// translateUniqueViolation превращает нарушение уникального индекса в доменную ошибку.
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}
	switch pgErr.ConstraintName {
	case "clients_document_number_key":
		return domain.ErrDuplicateDocument
	case "clients_full_name_key":
		return domain.ErrDuplicateClientName
	case "products_name_key":
		return domain.ErrDuplicateProductName
	}
	return err
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
