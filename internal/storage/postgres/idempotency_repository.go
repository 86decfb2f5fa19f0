package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const defaultIdempotencyTTL = 24 * time.Hour

type idempotencyRepository struct {
	store *Store
}

// NewIdempotencyRepository создаёт PostgreSQL-реализацию IdempotencyRepository.
func NewIdempotencyRepository(store *Store) domain.IdempotencyRepository {
	return &idempotencyRepository{store: store}
}

// CreateProcessing вставляет ключ; просроченную запись с тем же ключом перезаписывает.
func (r *idempotencyRepository) CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (domain.IdempotencyRecord, error) {
	key = strings.TrimSpace(key)
	requestHash = strings.TrimSpace(requestHash)
	if key == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyRequired
	}
	if requestHash == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyRequestHashRequired
	}

	now := nowUTC()
	if ttlAt.IsZero() {
		ttlAt = now.Add(defaultIdempotencyTTL)
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	record := domain.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      domain.IdempotencyStatusProcessing,
		TTLAt:       ttlAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var inserted string
	err := r.store.conn(opCtx).QueryRow(opCtx, `
		INSERT INTO idempotency_keys (
			key, request_hash, response_body, http_status, status, ttl_at, created_at, updated_at
		) VALUES ($1,$2,NULL,NULL,$3,$4,$5,$5)
		ON CONFLICT (key) DO UPDATE
		SET request_hash = EXCLUDED.request_hash,
		    response_body = NULL,
		    http_status = NULL,
		    status = EXCLUDED.status,
		    ttl_at = EXCLUDED.ttl_at,
		    created_at = EXCLUDED.created_at,
		    updated_at = EXCLUDED.updated_at
		WHERE idempotency_keys.ttl_at <= EXCLUDED.created_at
		RETURNING key
	`, key, requestHash, string(record.Status), record.TTLAt, now).Scan(&inserted)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.IdempotencyRecord{}, fmt.Errorf("create idempotency record: %w", err)
	}

	// Ключ занят живой записью.
	existing, getErr := r.Get(ctx, key)
	if getErr != nil {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyAlreadyExists
	}
	if existing.RequestHash != requestHash {
		return existing, domain.ErrIdempotencyHashMismatch
	}
	return existing, domain.ErrIdempotencyKeyAlreadyExists
}

func (r *idempotencyRepository) Get(ctx context.Context, key string) (domain.IdempotencyRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		record     domain.IdempotencyRecord
		statusRaw  string
		httpStatus *int32
	)
	err := r.store.conn(ctx).QueryRow(ctx, `
		SELECT key, request_hash, response_body, http_status, status, ttl_at, created_at, updated_at
		FROM idempotency_keys
		WHERE key = $1
	`, key).Scan(
		&record.Key,
		&record.RequestHash,
		&record.ResponseBody,
		&httpStatus,
		&statusRaw,
		&record.TTLAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
		}
		return domain.IdempotencyRecord{}, fmt.Errorf("get idempotency record: %w", err)
	}

	record.Status = domain.IdempotencyStatus(statusRaw)
	if !record.Status.Valid() {
		return domain.IdempotencyRecord{}, fmt.Errorf("invalid idempotency status %q for key %s", statusRaw, key)
	}
	if httpStatus != nil {
		record.HTTPStatus = int(*httpStatus)
	}
	record.TTLAt = record.TTLAt.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func (r *idempotencyRepository) MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error {
	return r.markStatus(ctx, key, domain.IdempotencyStatusDone, responseBody, httpStatus)
}

func (r *idempotencyRepository) MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error {
	return r.markStatus(ctx, key, domain.IdempotencyStatusFailed, responseBody, httpStatus)
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = nowUTC()
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `DELETE FROM idempotency_keys WHERE ttl_at <= $1`
	args := []any{before}
	if limit > 0 {
		query = `
			DELETE FROM idempotency_keys
			WHERE key IN (
				SELECT key
				FROM idempotency_keys
				WHERE ttl_at <= $1
				ORDER BY ttl_at ASC
				LIMIT $2
			)`
		args = append(args, limit)
	}

	tag, err := r.store.conn(ctx).Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *idempotencyRepository) markStatus(ctx context.Context, key string, status domain.IdempotencyStatus, responseBody []byte, httpStatus int) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrIdempotencyKeyRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := r.store.conn(ctx).Exec(ctx, `
		UPDATE idempotency_keys
		SET response_body = $1,
		    http_status = $2,
		    status = $3,
		    updated_at = $4
		WHERE key = $5
	`, responseBody, httpStatus, string(status), nowUTC(), key)
	if err != nil {
		return fmt.Errorf("mark idempotency key status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIdempotencyKeyNotFound
	}
	return nil
}

var _ domain.IdempotencyRepository = (*idempotencyRepository)(nil)
