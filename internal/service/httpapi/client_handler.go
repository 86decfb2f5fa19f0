package httpapi

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	clientsvc "github.com/vladislavdragonenkov/cafe/internal/service/client"
)

// ClientService описывает операции над клиентами, доступные через API.
type ClientService interface {
	ListAll(ctx context.Context) ([]domain.Client, error)
	ListActive(ctx context.Context) ([]domain.Client, error)
	SearchByFirstName(ctx context.Context, fragment string) ([]domain.Client, error)
	SearchByLastName(ctx context.Context, fragment string) ([]domain.Client, error)
	CountActive(ctx context.Context) (int, error)
	Get(ctx context.Context, id int64) (domain.Client, bool, error)
	Create(ctx context.Context, in clientsvc.Input) (domain.Client, error)
	Update(ctx context.Context, id int64, in clientsvc.Input) (domain.Client, error)
	Delete(ctx context.Context, id int64) error
	ToggleActive(ctx context.Context, id int64) (domain.Client, error)
}

// ClientHandler обслуживает /api/clients.
type ClientHandler struct {
	clients ClientService
	logger  *log.Entry
	now     func() time.Time
}

func NewClientHandler(clients ClientService, logger *log.Entry) *ClientHandler {
	return &ClientHandler{clients: clients, logger: logger, now: time.Now}
}

func (h *ClientHandler) list(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.ListAll(r.Context())
	h.respondList(w, clients, err)
}

func (h *ClientHandler) listActive(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.ListActive(r.Context())
	h.respondList(w, clients, err)
}

// search принимает один из параметров firstName или lastName.
// Пустое значение допустимо и совпадает со всеми клиентами.
func (h *ClientHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		clients []domain.Client
		err     error
	)
	switch {
	case q.Has("firstName"):
		clients, err = h.clients.SearchByFirstName(r.Context(), q.Get("firstName"))
	case q.Has("lastName"):
		clients, err = h.clients.SearchByLastName(r.Context(), q.Get("lastName"))
	default:
		writeError(w, violation("firstName", "firstName or lastName query parameter is required"))
		return
	}
	h.respondList(w, clients, err)
}

func (h *ClientHandler) stats(w http.ResponseWriter, r *http.Request) {
	n, err := h.clients.CountActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *ClientHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeText(w, "Client service is running")
}

func (h *ClientHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	client, found, err := h.clients.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, domain.ErrClientNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(client))
}

func (h *ClientHandler) create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decode(w, r)
	if err != nil {
		h.logger.WithError(err).Warn("invalid client request")
		writeError(w, err)
		return
	}
	client, err := h.clients.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientResponse(client))
}

func (h *ClientHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	in, err := h.decode(w, r)
	if err != nil {
		h.logger.WithError(err).Warn("invalid client request")
		writeError(w, err)
		return
	}
	client, err := h.clients.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(client))
}

func (h *ClientHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.clients.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientHandler) toggle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	client, err := h.clients.ToggleActive(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(client))
}

func (h *ClientHandler) decode(w http.ResponseWriter, r *http.Request) (clientsvc.Input, error) {
	var req clientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return clientsvc.Input{}, err
	}
	return validateClient(req, h.now())
}

func (h *ClientHandler) respondList(w http.ResponseWriter, clients []domain.Client, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponses(clients))
}
