package httpapi

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	clientsvc "github.com/vladislavdragonenkov/cafe/internal/service/client"
	ordersvc "github.com/vladislavdragonenkov/cafe/internal/service/order"
	productsvc "github.com/vladislavdragonenkov/cafe/internal/service/product"
)

const (
	nameMinLen        = 2
	nameMaxLen        = 100
	documentMinLen    = 8
	documentMaxLen    = 10
	descriptionMaxLen = 500
	priceMaxIntDigits = 8
	priceMaxScale     = 2
)

var (
	priceMin      = decimal.New(1, -priceMaxScale)
	priceIntLimit = decimal.New(1, priceMaxIntDigits)
)

// validateClient проверяет запрос клиента и возвращает нормализованный ввод.
func validateClient(req clientRequest, now time.Time) (clientsvc.Input, error) {
	var v domain.ValidationErrors

	in := clientsvc.Input{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		Active:         req.Active == nil || *req.Active,
	}

	checkName(&v, "firstName", in.FirstName)
	checkName(&v, "lastName", in.LastName)

	switch n := utf8.RuneCountInString(in.DocumentNumber); {
	case n == 0:
		v.Add("documentNumber", "is required")
	case n < documentMinLen || n > documentMaxLen:
		v.Add("documentNumber", "must be between 8 and 10 characters")
	}

	if strings.TrimSpace(req.BirthDate) == "" {
		v.Add("birthDate", "is required")
	} else if birth, err := time.Parse(domain.DateLayout, strings.TrimSpace(req.BirthDate)); err != nil {
		v.Add("birthDate", "must be a date in YYYY-MM-DD format")
	} else if birth.After(now) {
		v.Add("birthDate", "must not be in the future")
	} else {
		in.BirthDate = birth
	}

	return in, v.Err()
}

// validateProduct проверяет запрос товара.
func validateProduct(req productRequest) (productsvc.Input, error) {
	var v domain.ValidationErrors

	in := productsvc.Input{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Available:   req.Available == nil || *req.Available,
	}

	checkName(&v, "name", in.Name)
	if utf8.RuneCountInString(in.Description) > descriptionMaxLen {
		v.Add("description", "must be at most 500 characters")
	}

	if req.Price == nil {
		v.Add("price", "is required")
	} else if msg := checkPrice(*req.Price); msg != "" {
		v.Add("price", msg)
	} else {
		in.Price = req.Price.Round(priceMaxScale)
	}

	if strings.TrimSpace(req.Category) == "" {
		v.Add("category", "is required")
	} else if c, err := domain.ParseProductCategory(req.Category); err != nil {
		v.Add("category", "must be one of COFFEE, TEA, PASTRY, SANDWICH, BEVERAGE, DESSERT")
	} else {
		in.Category = c
	}

	return in, v.Err()
}

// validateOrder проверяет запрос заказа.
func validateOrder(req orderRequest) (ordersvc.CreateInput, error) {
	var v domain.ValidationErrors

	in := ordersvc.CreateInput{
		CustomerName: strings.TrimSpace(req.CustomerName),
		Drink:        strings.TrimSpace(req.Drink),
		Quantity:     req.Quantity,
	}
	checkRequired(&v, "customerName", in.CustomerName)
	checkRequired(&v, "drink", in.Drink)
	if in.Quantity < 1 {
		v.Add("quantity", "must be at least 1")
	}
	return in, v.Err()
}

// parsePriceBound разбирает границу ценового диапазона из query.
func parsePriceBound(v *domain.ValidationErrors, field, raw string) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		v.Add(field, "is required")
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		v.Add(field, "must be a decimal number")
		return decimal.Zero
	}
	return d
}

func checkPrice(d decimal.Decimal) string {
	switch {
	case d.LessThan(priceMin):
		return "must be at least 0.01"
	case d.GreaterThanOrEqual(priceIntLimit):
		return "must have at most 8 integer digits"
	case d.Exponent() < -priceMaxScale && !d.Equal(d.Round(priceMaxScale)):
		return "must have at most 2 fraction digits"
	}
	return ""
}

func checkName(v *domain.ValidationErrors, field, value string) {
	switch n := utf8.RuneCountInString(value); {
	case n == 0:
		v.Add(field, "must not be blank")
	case n < nameMinLen || n > nameMaxLen:
		v.Add(field, "must be between 2 and 100 characters")
	}
}

func checkRequired(v *domain.ValidationErrors, field, value string) {
	switch n := utf8.RuneCountInString(value); {
	case n == 0:
		v.Add(field, "must not be blank")
	case n > nameMaxLen:
		v.Add(field, "must be at most 100 characters")
	}
}
