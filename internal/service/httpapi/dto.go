package httpapi

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

type clientRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	DocumentNumber string `json:"documentNumber"`
	BirthDate      string `json:"birthDate"`
	// Active по умолчанию true.
	Active *bool `json:"active"`
}

type clientResponse struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	DocumentNumber string    `json:"documentNumber"`
	BirthDate      string    `json:"birthDate"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toClientResponse(c domain.Client) clientResponse {
	return clientResponse{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		DocumentNumber: c.DocumentNumber,
		BirthDate:      c.BirthDate.Format(domain.DateLayout),
		Active:         c.Active,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toClientResponses(cs []domain.Client) []clientResponse {
	out := make([]clientResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toClientResponse(c))
	}
	return out
}

type productRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    string           `json:"category"`
	// Available по умолчанию true.
	Available *bool `json:"available"`
}

type productResponse struct {
	ID                  int64       `json:"id"`
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	Price               json.Number `json:"price"`
	Category            string      `json:"category"`
	CategoryDisplayName string      `json:"categoryDisplayName"`
	Available           bool        `json:"available"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		Price:               json.Number(p.Price.StringFixed(2)),
		Category:            string(p.Category),
		CategoryDisplayName: domain.CategoryDisplayName(p.Category),
		Available:           p.Available,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func toProductResponses(ps []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResponse(p))
	}
	return out
}

type productStatsResponse struct {
	Total      int            `json:"total"`
	Available  int            `json:"available"`
	ByCategory map[string]int `json:"byCategory"`
}

type orderRequest struct {
	CustomerName string `json:"customerName"`
	Drink        string `json:"drink"`
	Quantity     int    `json:"quantity"`
}

type orderResponse struct {
	ID                int64     `json:"id"`
	CustomerName      string    `json:"customerName"`
	Drink             string    `json:"drink"`
	Quantity          int       `json:"quantity"`
	Status            string    `json:"status"`
	StatusDisplayName string    `json:"statusDisplayName"`
	CreatedAt         time.Time `json:"createdAt"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:                o.ID,
		CustomerName:      o.CustomerName,
		Drink:             o.Drink,
		Quantity:          o.Quantity,
		Status:            string(o.Status),
		StatusDisplayName: domain.StatusDisplayName(o.Status),
		CreatedAt:         o.CreatedAt,
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

type orderStatsResponse struct {
	ByStatus   map[string]int `json:"byStatus"`
	HasPending bool           `json:"hasPending"`
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Status   string    `json:"status"`
	Occurred time.Time `json:"occurred"`
}

type countResponse struct {
	Count int `json:"count"`
}
