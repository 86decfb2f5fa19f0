package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
)

// Deps собирает зависимости HTTP API.
type Deps struct {
	Clients  ClientService
	Products ProductService
	Orders   OrderService
	// Idempotency включает Idempotency-Key для POST /api/orders; nil отключает.
	Idempotency IdempotencyGuard
	// Metrics опционален.
	Metrics *metrics.HTTPMetrics
	Logger  *log.Entry
}

// NewRouter собирает таблицу маршрутов API.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger, deps.Metrics))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, domain.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Code:    http.StatusMethodNotAllowed,
			Message: "method not allowed",
		})
	})

	clients := NewClientHandler(deps.Clients, logger)
	products := NewProductHandler(deps.Products, logger)
	orders := NewOrderHandler(deps.Orders, logger)

	r.Route("/api", func(api chi.Router) {
		registerClientRoutes(api, clients)
		registerProductRoutes(api, products)
		registerOrderRoutes(api, orders, idempotent(deps.Idempotency, logger))
	})
	return r
}

func registerClientRoutes(router chi.Router, h *ClientHandler) {
	router.Route("/clients", func(cr chi.Router) {
		cr.Get("/", h.list)
		cr.Post("/", h.create)
		cr.Get("/active", h.listActive)
		cr.Get("/search", h.search)
		cr.Get("/stats", h.stats)
		cr.Get("/health", h.health)
		cr.Get("/{id}", h.get)
		cr.Put("/{id}", h.update)
		cr.Delete("/{id}", h.delete)
		cr.Patch("/{id}/toggle-availability", h.toggle)
	})
}

func registerProductRoutes(router chi.Router, h *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", h.list)
		pr.Post("/", h.create)
		pr.Get("/available", h.listAvailable)
		pr.Get("/category/{category}", h.listByCategory)
		pr.Get("/search", h.search)
		pr.Get("/price-range", h.priceRange)
		pr.Get("/stats", h.stats)
		pr.Get("/health", h.health)
		pr.Get("/{id}", h.get)
		pr.Put("/{id}", h.update)
		pr.Delete("/{id}", h.delete)
		pr.Patch("/{id}/toggle-availability", h.toggle)
	})
}

func registerOrderRoutes(router chi.Router, h *OrderHandler, createGuard func(http.Handler) http.Handler) {
	router.Route("/orders", func(or chi.Router) {
		or.Get("/", h.list)
		or.With(createGuard).Post("/", h.create)
		or.Get("/search", h.search)
		or.Get("/stats", h.stats)
		or.Get("/{id}", h.get)
		or.Get("/{id}/timeline", h.timeline)
		or.Patch("/{id}/status/{status}", h.transition)
		or.Delete("/{id}", h.delete)
	})
}
