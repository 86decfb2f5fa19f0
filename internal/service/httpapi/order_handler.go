package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	ordersvc "github.com/vladislavdragonenkov/cafe/internal/service/order"
)

// OrderService описывает операции над заказами, доступные через API.
type OrderService interface {
	Create(ctx context.Context, in ordersvc.CreateInput) (domain.Order, error)
	Transition(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (domain.Order, bool, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	SearchByCustomer(ctx context.Context, fragment string) ([]domain.Order, error)
	Stats(ctx context.Context) (domain.OrderStats, error)
	Timeline(ctx context.Context, id int64) ([]domain.TimelineEvent, error)
}

// OrderHandler обслуживает /api/orders.
type OrderHandler struct {
	orders OrderService
	logger *log.Entry
}

func NewOrderHandler(orders OrderService, logger *log.Entry) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := validateOrder(req)
	if err != nil {
		h.logger.WithError(err).Warn("invalid order request")
		writeError(w, err)
		return
	}
	order, err := h.orders.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// list поддерживает фильтр ?status=.
func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		orders []domain.Order
		err    error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, perr := domain.ParseOrderStatus(raw)
		if perr != nil {
			writeError(w, violation("status", "unknown order status"))
			return
		}
		orders, err = h.orders.ListByStatus(r.Context(), status)
	} else {
		orders, err = h.orders.ListAll(r.Context())
	}
	h.respondList(w, orders, err)
}

func (h *OrderHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("customerName") {
		writeError(w, violation("customerName", "query parameter is required"))
		return
	}
	orders, err := h.orders.SearchByCustomer(r.Context(), q.Get("customerName"))
	h.respondList(w, orders, err)
}

func (h *OrderHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := orderStatsResponse{
		ByStatus:   make(map[string]int, len(stats.ByStatus)),
		HasPending: stats.HasPending,
	}
	for st, n := range stats.ByStatus {
		resp.ByStatus[string(st)] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	order, found, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, domain.ErrOrderNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) timeline(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := h.orders.Timeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := make([]timelineEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, timelineEventResponse{Type: e.Type, Status: string(e.Status), Occurred: e.Occurred})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := domain.ParseOrderStatus(chi.URLParam(r, "status"))
	if err != nil {
		writeError(w, violation("status", "unknown order status"))
		return
	}
	order, err := h.orders.Transition(r.Context(), id, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) respondList(w http.ResponseWriter, orders []domain.Order, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}
