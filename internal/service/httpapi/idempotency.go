package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/service/idempotency"
)

const (
	// IdempotencyKeyHeader позволяет клиенту безопасно повторить POST /api/orders.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader выставляется, когда ответ взят из сохранённых.
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
)

// IdempotencyGuard хранит ответы по Idempotency-Key.
type IdempotencyGuard interface {
	Execute(ctx context.Context, key, requestHash string, handler func(context.Context) idempotency.Response) (idempotency.Response, bool, error)
}

// idempotent оборачивает обработчик: запрос без ключа проходит как есть,
// повтор с тем же ключом и телом получает сохранённый ответ.
func idempotent(guard IdempotencyGuard, logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if guard == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				writeError(w, violation(IdempotencyKeyHeader, "must be at most 128 characters"))
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				writeError(w, violation("body", "unreadable request body: "+err.Error()))
				return
			}
			hash := idempotency.RequestHash([]byte(r.Method), []byte(r.URL.Path), body)

			resp, replayed, err := guard.Execute(r.Context(), key, hash, func(ctx context.Context) idempotency.Response {
				rec := &capturedResponse{header: make(http.Header)}
				req := r.WithContext(ctx)
				req.Body = io.NopCloser(bytes.NewReader(body))
				next.ServeHTTP(rec, req)
				return rec.response()
			})
			if err != nil {
				logger.WithError(err).WithField("idempotency_key", key).Warn("idempotent request rejected")
				writeError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			if replayed {
				w.Header().Set(IdempotentReplayHeader, "true")
			}
			w.WriteHeader(resp.StatusCode)
			_, _ = w.Write(resp.Body)
		})
	}
}

// capturedResponse буферизует ответ обработчика, чтобы его можно было сохранить.
type capturedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (c *capturedResponse) Header() http.Header { return c.header }

func (c *capturedResponse) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
}

func (c *capturedResponse) Write(p []byte) (int, error) {
	c.WriteHeader(http.StatusOK)
	return c.body.Write(p)
}

func (c *capturedResponse) response() idempotency.Response {
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	return idempotency.Response{StatusCode: status, Body: c.body.Bytes()}
}
