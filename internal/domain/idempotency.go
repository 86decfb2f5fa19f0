package domain

import (
	"context"
	"errors"
	"time"
)

// IdempotencyStatus описывает жизненный цикл ключа идемпотентности.
type IdempotencyStatus string

const (
	// IdempotencyStatusProcessing означает, что запрос принят и ещё обрабатывается.
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	// IdempotencyStatusDone означает, что заказ создан и ответ сохранён.
	IdempotencyStatusDone IdempotencyStatus = "done"
	// IdempotencyStatusFailed означает, что запрос отклонён; ответ с ошибкой тоже сохранён.
	IdempotencyStatusFailed IdempotencyStatus = "failed"
)

var (
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch: ключ уже использован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key is already used with a different request")
	// ErrIdempotencyInProgress: запрос с тем же ключом ещё выполняется.
	ErrIdempotencyInProgress = errors.New("request with the same idempotency key is still processing")
)

// IdempotencyRecord хранит состояние обработки запроса с Idempotency-Key.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseBody []byte
	HTTPStatus   int
	Status       IdempotencyStatus
	TTLAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	default:
		return false
	}
}

// IdempotencyRepository хранит ответы на запросы создания заказа по Idempotency-Key.
type IdempotencyRepository interface {
	// CreateProcessing резервирует ключ. Для занятого ключа возвращает существующую
	// запись вместе с ErrIdempotencyKeyAlreadyExists или ErrIdempotencyHashMismatch.
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	// DeleteExpired удаляет записи с ttl <= before; limit <= 0 снимает ограничение.
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
