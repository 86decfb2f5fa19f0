package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// clientRepositoryInMemory реализует ClientRepository в памяти.
type clientRepositoryInMemory struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Client
	now    func() time.Time
}

// NewClientRepository возвращает in-memory репозиторий клиентов.
func NewClientRepository() domain.ClientRepository {
	return NewClientRepositoryWithClock(nil)
}

// NewClientRepositoryWithClock задаёт источник времени для CreatedAt/UpdatedAt.
func NewClientRepositoryWithClock(now func() time.Time) domain.ClientRepository {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &clientRepositoryInMemory{items: make(map[int64]domain.Client), now: now}
}

func (r *clientRepositoryInMemory) Get(_ context.Context, id int64) (domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.items[id]
	if !ok {
		return domain.Client{}, domain.ErrClientNotFound
	}
	return client, nil
}

func (r *clientRepositoryInMemory) List(_ context.Context, filter domain.ClientFilter) ([]domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Client, 0, len(r.items))
	for _, c := range r.items {
		if filter.Match(c) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *clientRepositoryInMemory) Count(_ context.Context, filter domain.ClientFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.items {
		if filter.Match(c) {
			n++
		}
	}
	return n, nil
}

func (r *clientRepositoryInMemory) ExistsByDocument(_ context.Context, documentNumber string, excludeID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.items {
		if id != excludeID && c.DocumentNumber == documentNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *clientRepositoryInMemory) ExistsByName(_ context.Context, firstName, lastName string, excludeID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.items {
		if id != excludeID && c.SameName(firstName, lastName) {
			return true, nil
		}
	}
	return false, nil
}

// Save вставляет нового клиента или перезаписывает существующего.
func (r *clientRepositoryInMemory) Save(ctx context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if client.ID == 0 {
		r.nextID++
		client.ID = r.nextID
		client.CreatedAt = now
	} else {
		current, ok := r.items[client.ID]
		if !ok {
			return domain.ErrClientNotFound
		}
		client.CreatedAt = current.CreatedAt
	}
	client.UpdatedAt = now
	restoreOnRollback(ctx, &r.mu, r.items, client.ID)
	r.items[client.ID] = *client
	return nil
}

func (r *clientRepositoryInMemory) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrClientNotFound
	}
	restoreOnRollback(ctx, &r.mu, r.items, id)
	delete(r.items, id)
	return nil
}

var _ domain.ClientRepository = (*clientRepositoryInMemory)(nil)
