package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// orderRepositoryInMemory реализует OrderRepository в памяти.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[int64]domain.Order),
	}
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (r *orderRepositoryInMemory) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.Match(order) {
			result = append(result, order)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *orderRepositoryInMemory) Count(_ context.Context, filter domain.OrderFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, order := range r.items {
		if filter.Match(order) {
			n++
		}
	}
	return n, nil
}

// Save создаёт заказ (ID == 0) или перезаписывает существующий.
func (r *orderRepositoryInMemory) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == 0 {
		r.nextID++
		order.ID = r.nextID
		if order.CreatedAt.IsZero() {
			order.CreatedAt = time.Now().UTC()
		}
	} else {
		current, ok := r.items[order.ID]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order.CreatedAt = current.CreatedAt
	}
	restoreOnRollback(ctx, &r.mu, r.items, order.ID)
	r.items[order.ID] = *order
	return nil
}

func (r *orderRepositoryInMemory) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrOrderNotFound
	}
	restoreOnRollback(ctx, &r.mu, r.items, id)
	delete(r.items, id)
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
