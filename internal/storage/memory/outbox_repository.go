package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	seq        int64
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	updatedAt  time.Time
}

// outboxRepositoryInMemory хранит transactional outbox в памяти.
type outboxRepositoryInMemory struct {
	mu      sync.RWMutex
	seq     int64
	records map[string]*outboxRecord
}

// NewOutboxRepository создаёт in-memory реализацию outbox.
func NewOutboxRepository() *outboxRepositoryInMemory {
	return &outboxRepositoryInMemory{records: make(map[string]*outboxRecord)}
}

// Enqueue сохраняет событие со статусом `pending` и возвращает его с идентификатором.
// Внутри единицы работы сообщение становится видимым воркеру только после фиксации.
func (r *outboxRepositoryInMemory) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}

	insert := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seq++
		r.records[msg.ID] = &outboxRecord{
			seq:       r.seq,
			msg:       msg,
			status:    outboxStatusPending,
			updatedAt: now,
		}
	}
	if !afterCommit(ctx, insert) {
		insert()
	}
	return msg, nil
}

// PullPending возвращает до limit сообщений со статусом `pending` в порядке постановки.
func (r *outboxRepositoryInMemory) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	pending := r.pendingRecords()
	if len(pending) > limit {
		pending = pending[:limit]
	}

	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result, nil
}

// Stats возвращает размер backlog и время самого старого события.
func (r *outboxRepositoryInMemory) Stats(_ context.Context) (domain.OutboxStats, error) {
	pending := r.pendingRecords()
	stats := domain.OutboxStats{PendingCount: len(pending)}
	if len(pending) > 0 {
		stats.OldestPendingAt = pending[0].msg.CreatedAt
	}
	return stats, nil
}

// MarkSent обновляет статус события после успешной публикации.
func (r *outboxRepositoryInMemory) MarkSent(_ context.Context, id string) error {
	return r.mark(id, outboxStatusSent)
}

// MarkFailed фиксирует окончательную ошибку публикации.
func (r *outboxRepositoryInMemory) MarkFailed(_ context.Context, id string) error {
	return r.mark(id, outboxStatusFailed)
}

func (r *outboxRepositoryInMemory) mark(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	record.status = status
	record.attemptCnt++
	record.updatedAt = time.Now().UTC()
	return nil
}

// AllPending возвращает копию всех сообщений со статусом `pending` (используется в тестах).
func (r *outboxRepositoryInMemory) AllPending() []domain.OutboxMessage {
	pending := r.pendingRecords()
	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result
}

func (r *outboxRepositoryInMemory) pendingRecords() []*outboxRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*outboxRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rec.status == outboxStatusPending {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
