package productsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// Input содержит данные товара для создания и обновления.
// Available учитывается только в Update: новый товар всегда доступен.
type Input struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    domain.ProductCategory
	Available   bool
}

// Service ведёт каталог товаров.
type Service struct {
	products domain.ProductRepository
	tx       domain.TxManager
	logger   *log.Entry
}

// NewService конструирует сервис каталога.
func NewService(products domain.ProductRepository, tx domain.TxManager, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "product-service")
	}
	return &Service{products: products, tx: tx, logger: logger}
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Product, error) {
	return s.list(ctx, domain.ProductFilter{})
}

func (s *Service) ListAvailable(ctx context.Context) ([]domain.Product, error) {
	return s.list(ctx, domain.ProductFilter{AvailableOnly: true})
}

func (s *Service) ListByCategory(ctx context.Context, category domain.ProductCategory) ([]domain.Product, error) {
	return s.list(ctx, domain.ProductFilter{Category: &category})
}

// ListAvailableByCategory возвращает товары категории, доступные к заказу.
func (s *Service) ListAvailableByCategory(ctx context.Context, category domain.ProductCategory) ([]domain.Product, error) {
	return s.list(ctx, domain.ProductFilter{Category: &category, AvailableOnly: true})
}

// SearchByName ищет по подстроке названия без учёта регистра.
func (s *Service) SearchByName(ctx context.Context, fragment string) ([]domain.Product, error) {
	return s.list(ctx, domain.ProductFilter{NameContains: fragment})
}

// SearchByPriceRange возвращает товары с ценой в [minPrice, maxPrice].
func (s *Service) SearchByPriceRange(ctx context.Context, minPrice, maxPrice decimal.Decimal) ([]domain.Product, error) {
	if minPrice.GreaterThan(maxPrice) {
		var v domain.ValidationErrors
		v.Add("minPrice", "must not be greater than maxPrice")
		return nil, v
	}
	return s.list(ctx, domain.ProductFilter{MinPrice: &minPrice, MaxPrice: &maxPrice})
}

// Stats собирает сводку по каталогу.
func (s *Service) Stats(ctx context.Context) (domain.ProductStats, error) {
	total, err := s.products.Count(ctx, domain.ProductFilter{})
	if err != nil {
		return domain.ProductStats{}, fmt.Errorf("count products: %w", err)
	}
	available, err := s.products.Count(ctx, domain.ProductFilter{AvailableOnly: true})
	if err != nil {
		return domain.ProductStats{}, fmt.Errorf("count available products: %w", err)
	}

	stats := domain.ProductStats{
		Total:      total,
		Available:  available,
		ByCategory: make(map[domain.ProductCategory]int, len(domain.ProductCategories)),
	}
	for _, c := range domain.ProductCategories {
		category := c
		n, err := s.products.Count(ctx, domain.ProductFilter{Category: &category})
		if err != nil {
			return domain.ProductStats{}, fmt.Errorf("count products in %s: %w", c, err)
		}
		stats.ByCategory[c] = n
	}
	return stats, nil
}

// Get возвращает товар; found == false, если записи нет.
func (s *Service) Get(ctx context.Context, id int64) (domain.Product, bool, error) {
	product, err := s.products.Get(ctx, id)
	if domain.IsNotFound(err) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("get product %d: %w", id, err)
	}
	return product, true, nil
}

// Create добавляет товар, если название свободно.
func (s *Service) Create(ctx context.Context, in Input) (domain.Product, error) {
	var product domain.Product
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.ensureNameFree(ctx, in.Name, 0); err != nil {
			return err
		}
		product = domain.Product{
			Name:        in.Name,
			Description: in.Description,
			Price:       in.Price,
			Category:    in.Category,
			Available:   true,
		}
		return s.products.Save(ctx, &product)
	})
	if err != nil {
		return domain.Product{}, s.reject("create product", err)
	}

	s.logger.WithFields(log.Fields{
		"product_id": product.ID,
		"category":   product.Category,
	}).Info("product created")
	return product, nil
}

// Update перезаписывает все поля товара. Название проверяется, только если оно изменилось.
func (s *Service) Update(ctx context.Context, id int64, in Input) (domain.Product, error) {
	var product domain.Product
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		current, err := s.products.Get(ctx, id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(current.Name, in.Name) {
			if err := s.ensureNameFree(ctx, in.Name, id); err != nil {
				return err
			}
		}

		current.Name = in.Name
		current.Description = in.Description
		current.Price = in.Price
		current.Category = in.Category
		current.Available = in.Available
		if err := s.products.Save(ctx, &current); err != nil {
			return err
		}
		product = current
		return nil
	})
	if err != nil {
		return domain.Product{}, s.reject("update product", err)
	}
	return product, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return s.reject("delete product", err)
	}
	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

// ToggleAvailability инвертирует доступность товара.
func (s *Service) ToggleAvailability(ctx context.Context, id int64) (domain.Product, error) {
	var product domain.Product
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		current, err := s.products.Get(ctx, id)
		if err != nil {
			return err
		}
		current.Available = !current.Available
		if err := s.products.Save(ctx, &current); err != nil {
			return err
		}
		product = current
		return nil
	})
	if err != nil {
		return domain.Product{}, s.reject("toggle product", err)
	}
	return product, nil
}

func (s *Service) list(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, excludeID int64) error {
	exists, err := s.products.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("check product name: %w", err)
	}
	if exists {
		return domain.ErrDuplicateProductName
	}
	return nil
}

func (s *Service) reject(op string, err error) error {
	entry := s.logger.WithError(err).WithField("op", op)
	if domain.IsNotFound(err) || domain.IsDuplicate(err) {
		entry.Warn("product operation rejected")
	} else {
		entry.Error("product operation failed")
	}
	return fmt.Errorf("%s: %w", op, err)
}
