package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	productsvc "github.com/vladislavdragonenkov/cafe/internal/service/product"
)

// ProductService описывает операции каталога, доступные через API.
type ProductService interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	ListAvailable(ctx context.Context) ([]domain.Product, error)
	ListByCategory(ctx context.Context, category domain.ProductCategory) ([]domain.Product, error)
	ListAvailableByCategory(ctx context.Context, category domain.ProductCategory) ([]domain.Product, error)
	SearchByName(ctx context.Context, fragment string) ([]domain.Product, error)
	SearchByPriceRange(ctx context.Context, minPrice, maxPrice decimal.Decimal) ([]domain.Product, error)
	Stats(ctx context.Context) (domain.ProductStats, error)
	Get(ctx context.Context, id int64) (domain.Product, bool, error)
	Create(ctx context.Context, in productsvc.Input) (domain.Product, error)
	Update(ctx context.Context, id int64, in productsvc.Input) (domain.Product, error)
	Delete(ctx context.Context, id int64) error
	ToggleAvailability(ctx context.Context, id int64) (domain.Product, error)
}

// ProductHandler обслуживает /api/products.
type ProductHandler struct {
	products ProductService
	logger   *log.Entry
}

func NewProductHandler(products ProductService, logger *log.Entry) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListAll(r.Context())
	h.respondList(w, products, err)
}

func (h *ProductHandler) listAvailable(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListAvailable(r.Context())
	h.respondList(w, products, err)
}

// listByCategory поддерживает ?available=true для выборки только доступных товаров.
func (h *ProductHandler) listByCategory(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseProductCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, violation("category", "unknown product category"))
		return
	}

	availableOnly := false
	if raw := r.URL.Query().Get("available"); raw != "" {
		availableOnly, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, violation("available", "must be a boolean"))
			return
		}
	}

	var products []domain.Product
	if availableOnly {
		products, err = h.products.ListAvailableByCategory(r.Context(), category)
	} else {
		products, err = h.products.ListByCategory(r.Context(), category)
	}
	h.respondList(w, products, err)
}

func (h *ProductHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("name") {
		writeError(w, violation("name", "query parameter is required"))
		return
	}
	products, err := h.products.SearchByName(r.Context(), q.Get("name"))
	h.respondList(w, products, err)
}

func (h *ProductHandler) priceRange(w http.ResponseWriter, r *http.Request) {
	var v domain.ValidationErrors
	q := r.URL.Query()
	minPrice := parsePriceBound(&v, "minPrice", q.Get("minPrice"))
	maxPrice := parsePriceBound(&v, "maxPrice", q.Get("maxPrice"))
	if err := v.Err(); err != nil {
		writeError(w, err)
		return
	}
	products, err := h.products.SearchByPriceRange(r.Context(), minPrice, maxPrice)
	h.respondList(w, products, err)
}

func (h *ProductHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.products.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := productStatsResponse{
		Total:      stats.Total,
		Available:  stats.Available,
		ByCategory: make(map[string]int, len(stats.ByCategory)),
	}
	for c, n := range stats.ByCategory {
		resp.ByCategory[string(c)] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeText(w, "Product service is running")
}

func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	product, found, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, domain.ErrProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(w, r)
	if err != nil {
		h.logger.WithError(err).Warn("invalid product request")
		writeError(w, err)
		return
	}
	product, err := h.products.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := h.decode(w, r)
	if err != nil {
		h.logger.WithError(err).Warn("invalid product request")
		writeError(w, err)
		return
	}
	product, err := h.products.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *ProductHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) toggle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	product, err := h.products.ToggleAvailability(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *ProductHandler) decode(w http.ResponseWriter, r *http.Request) (productsvc.Input, error) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return productsvc.Input{}, err
	}
	return validateProduct(req)
}

func (h *ProductHandler) respondList(w http.ResponseWriter, products []domain.Product, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}
