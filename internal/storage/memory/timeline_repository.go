package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// timelineRepositoryInMemory хранит историю заказов в памяти.
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[int64][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{events: make(map[int64][]domain.TimelineEvent)}
}

// Append добавляет событие, сохраняя хронологический порядок.
func (r *timelineRepositoryInMemory) Append(ctx context.Context, event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.events[event.OrderID]
	restoreOnRollback(ctx, &r.mu, r.events, event.OrderID)
	events := make([]domain.TimelineEvent, 0, len(current)+1)
	events = append(append(events, current...), event)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Occurred.Before(events[j].Occurred)
	})
	r.events[event.OrderID] = events
	return nil
}

// List возвращает события заказа в хронологическом порядке.
func (r *timelineRepositoryInMemory) List(_ context.Context, orderID int64) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[orderID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
