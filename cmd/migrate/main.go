package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "CAFE_POSTGRES_DSN"
)

type options struct {
	direction string
	steps     int
	dsn       string
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, opts.dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	if err := run(ctx, store, opts, os.Stdout); err != nil {
		fail("%v", err)
	}
}

func parseFlags(args []string, getenv func(string) string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.direction, "direction", "up", "migration direction: up|down|status")
	fs.IntVar(&opts.steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	fs.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.direction = strings.ToLower(strings.TrimSpace(opts.direction))
	switch opts.direction {
	case "up", "down", "status":
	default:
		return options{}, fmt.Errorf("unsupported direction: %s (use up|down|status)", opts.direction)
	}

	opts.dsn = strings.TrimSpace(opts.dsn)
	if opts.dsn == "" {
		opts.dsn = strings.TrimSpace(getenv(envPostgresDSN))
	}
	if opts.dsn == "" {
		return options{}, fmt.Errorf("%s (or -dsn) is required", envPostgresDSN)
	}
	return opts, nil
}

// migrator описывает операции Store, нужные CLI.
type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationStatus(ctx context.Context) (postgres.MigrationStatus, error)
}

func run(ctx context.Context, m migrator, opts options, out io.Writer) error {
	switch opts.direction {
	case "up":
		if err := m.MigrateUp(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
	case "down":
		if err := m.MigrateDown(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
	}

	status, err := m.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, err = fmt.Fprintf(out, "migrate %s ok: version=%d dirty=%t\n", opts.direction, status.Version, status.Dirty)
	return err
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
