package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductCategory задаёт категорию позиции меню.
type ProductCategory string

const (
	CategoryCoffee   ProductCategory = "COFFEE"
	CategoryTea      ProductCategory = "TEA"
	CategoryPastry   ProductCategory = "PASTRY"
	CategorySandwich ProductCategory = "SANDWICH"
	CategoryBeverage ProductCategory = "BEVERAGE"
	CategoryDessert  ProductCategory = "DESSERT"
)

// ProductCategories перечисляет категории в порядке отображения.
var ProductCategories = []ProductCategory{
	CategoryCoffee,
	CategoryTea,
	CategoryPastry,
	CategorySandwich,
	CategoryBeverage,
	CategoryDessert,
}

// categoryDisplayNames хранит человекочитаемые названия категорий.
var categoryDisplayNames = map[ProductCategory]string{
	CategoryCoffee:   "Coffee",
	CategoryTea:      "Tea",
	CategoryPastry:   "Pastry",
	CategorySandwich: "Sandwich",
	CategoryBeverage: "Beverage",
	CategoryDessert:  "Dessert",
}

// CategoryDisplayName возвращает название категории для интерфейса.
func CategoryDisplayName(c ProductCategory) string {
	if name, ok := categoryDisplayNames[c]; ok {
		return name
	}
	return string(c)
}

// Valid сообщает, входит ли значение в перечисление.
func (c ProductCategory) Valid() bool {
	_, ok := categoryDisplayNames[c]
	return ok
}

// ParseProductCategory разбирает категорию без учёта регистра.
func ParseProductCategory(s string) (ProductCategory, error) {
	c := ProductCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown product category %q", s)
	}
	return c, nil
}

// Product описывает позицию каталога.
type Product struct {
	ID          int64
	Name        string
	Description string
	// Price хранится с двумя знаками после запятой.
	Price     decimal.Decimal
	Category  ProductCategory
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProductFilter задаёт выборку товаров. Нулевые поля не ограничивают выборку.
type ProductFilter struct {
	Category      *ProductCategory
	AvailableOnly bool
	NameContains  string
	// MinPrice и MaxPrice включаются в диапазон.
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Match проверяет товар на соответствие фильтру.
func (f ProductFilter) Match(p Product) bool {
	if f.Category != nil && p.Category != *f.Category {
		return false
	}
	if f.AvailableOnly && !p.Available {
		return false
	}
	if f.NameContains != "" && !ContainsFold(p.Name, f.NameContains) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// ProductStats содержит сводку по каталогу.
type ProductStats struct {
	Total      int
	Available  int
	ByCategory map[ProductCategory]int
}
