package domain

import (
	"context"
	"time"
)

// TxManager выполняет функцию в рамках одной единицы работы.
// Вложенные вызовы используют уже открытую транзакцию из контекста.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderMetrics описывает счётчики жизненного цикла заказов.
type OrderMetrics interface {
	OrderCreated()
	OrderDelivered()
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	// Enqueue пишет событие в той же транзакции, что и изменение заказа.
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// TimelineRepository хранит историю заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID int64) ([]TimelineEvent, error)
}

// Типы событий жизненного цикла заказа.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)

// AggregateOrder задаёт тип агрегата для событий заказа.
const AggregateOrder = "order"

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
