package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// productRepositoryInMemory хранит каталог товаров в памяти.
type productRepositoryInMemory struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]domain.Product
	now    func() time.Time
}

// NewProductRepository возвращает in-memory репозиторий каталога.
func NewProductRepository() domain.ProductRepository {
	return NewProductRepositoryWithClock(nil)
}

// NewProductRepositoryWithClock задаёт источник времени для CreatedAt/UpdatedAt.
func NewProductRepositoryWithClock(now func() time.Time) domain.ProductRepository {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &productRepositoryInMemory{items: make(map[int64]domain.Product), now: now}
}

func (r *productRepositoryInMemory) Get(_ context.Context, id int64) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *productRepositoryInMemory) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, p := range r.items {
		if filter.Match(p) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *productRepositoryInMemory) Count(_ context.Context, filter domain.ProductFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.items {
		if filter.Match(p) {
			n++
		}
	}
	return n, nil
}

func (r *productRepositoryInMemory) ExistsByName(_ context.Context, name string, excludeID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, p := range r.items {
		if id != excludeID && strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *productRepositoryInMemory) Save(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if product.ID == 0 {
		r.nextID++
		product.ID = r.nextID
		product.CreatedAt = now
	} else {
		current, ok := r.items[product.ID]
		if !ok {
			return domain.ErrProductNotFound
		}
		product.CreatedAt = current.CreatedAt
	}
	product.UpdatedAt = now
	restoreOnRollback(ctx, &r.mu, r.items, product.ID)
	r.items[product.ID] = *product
	return nil
}

func (r *productRepositoryInMemory) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	restoreOnRollback(ctx, &r.mu, r.items, id)
	delete(r.items, id)
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
