package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	migrationsDir   = "sql/migrations"
	migrationsTable = "schema_migrations"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus описывает текущее состояние схемы.
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

// MigrateUp применяет up-миграции.
// steps=0 означает "применить все доступные".
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.withMigrate(ctx, func(m *migrate.Migrate) error {
		if steps <= 0 {
			return m.Up()
		}
		return m.Steps(steps)
	})
}

// MigrateDown откатывает миграции.
// steps<=0 интерпретируется как 1 шаг; steps больше числа применённых откатывает всё.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.withMigrate(ctx, func(m *migrate.Migrate) error {
		return m.Steps(-steps)
	})
}

// MigrationStatus возвращает версию схемы; 0 означает, что миграции не применялись.
func (s *Store) MigrationStatus(ctx context.Context) (MigrationStatus, error) {
	var status MigrationStatus
	err := s.withMigrate(ctx, func(m *migrate.Migrate) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return err
		}
		status = MigrationStatus{Version: version, Dirty: dirty}
		return nil
	})
	return status, err
}

// withMigrate открывает отдельное database/sql подключение: драйвер миграций закрывает его сам.
func (s *Store) withMigrate(ctx context.Context, fn func(m *migrate.Migrate) error) error {
	if s == nil || s.dsn == "" {
		return fmt.Errorf("postgres store is not initialized")
	}

	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}
	src, err := migrationSource()
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	err = fn(m)
	var short migrate.ErrShortLimit
	if err == nil || errors.Is(err, migrate.ErrNoChange) || errors.As(err, &short) {
		return nil
	}
	return fmt.Errorf("run migrations: %w", err)
}

func migrationSource() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}
	return src, nil
}
