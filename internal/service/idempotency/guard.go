package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// DefaultTTL задаёт, сколько хранится ответ на запрос с Idempotency-Key.
const DefaultTTL = 24 * time.Hour

var idempotencyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "coffee_idempotency_requests_total",
	Help: "Requests carrying an idempotency key grouped by outcome.",
}, []string{"outcome"})

// panicResponse сохраняется для ключа, чей обработчик завершился паникой.
var panicResponse = Response{
	StatusCode: http.StatusInternalServerError,
	Body:       []byte(`{"code":500,"message":"internal server error"}`),
}

// Response хранит сохранённый HTTP-ответ.
type Response struct {
	StatusCode int
	Body       []byte
}

// Guard выполняет обработчик не более одного раза на ключ и повторяет сохранённый ответ.
type Guard struct {
	repo       domain.IdempotencyRepository
	ttl        time.Duration
	sweepBatch int
	logger     *log.Entry
	now        func() time.Time
}

// NewGuard создаёт Guard. ttl <= 0 заменяется на DefaultTTL.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.WithField("component", "idempotency")
	}
	return &Guard{
		repo:       repo,
		ttl:        ttl,
		sweepBatch: defaultSweepBatch,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RequestHash строит отпечаток запроса из его частей (метод, путь, тело).
func RequestHash(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = h.Write(p)
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Execute запускает handler для нового ключа и сохраняет его ответ.
// Для уже обработанного ключа возвращает сохранённый ответ и replayed == true.
// Ответы 2xx сохраняются как done, остальные как failed; оба повторяются без повторного вызова handler.
// Паника handler помечает ключ failed с ответом 500 и пробрасывается дальше.
func (g *Guard) Execute(ctx context.Context, key, requestHash string, handler func(context.Context) Response) (resp Response, replayed bool, err error) {
	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().Add(g.ttl))
	if err != nil {
		return g.replay(record, err)
	}

	defer func() {
		if p := recover(); p != nil {
			if markErr := g.repo.MarkFailed(context.WithoutCancel(ctx), key, panicResponse.Body, panicResponse.StatusCode); markErr != nil {
				g.logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to release idempotency key after panic")
			}
			idempotencyRequestsTotal.WithLabelValues("panic").Inc()
			panic(p)
		}
	}()

	resp = handler(ctx)
	mark := g.repo.MarkDone
	outcome := "done"
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		mark = g.repo.MarkFailed
		outcome = "failed"
	}
	if markErr := mark(ctx, key, resp.Body, resp.StatusCode); markErr != nil {
		g.logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to store idempotent response")
	}
	idempotencyRequestsTotal.WithLabelValues(outcome).Inc()
	return resp, false, nil
}

func (g *Guard) replay(record domain.IdempotencyRecord, createErr error) (Response, bool, error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		idempotencyRequestsTotal.WithLabelValues("mismatch").Inc()
		return Response{}, false, createErr
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
		switch record.Status {
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			idempotencyRequestsTotal.WithLabelValues("replayed").Inc()
			return Response{StatusCode: record.HTTPStatus, Body: record.ResponseBody}, true, nil
		case domain.IdempotencyStatusProcessing:
			idempotencyRequestsTotal.WithLabelValues("in_progress").Inc()
			return Response{}, false, domain.ErrIdempotencyInProgress
		default:
			return Response{}, false, fmt.Errorf("unknown idempotency status %q", record.Status)
		}
	default:
		return Response{}, false, fmt.Errorf("reserve idempotency key: %w", createErr)
	}
}
