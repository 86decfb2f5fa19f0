package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const maxBodyBytes = 1 << 20

// ErrorResponse описывает тело ответа с ошибкой.
type ErrorResponse struct {
	Code       int                     `json:"code"`
	Message    string                  `json:"message"`
	Violations []domain.FieldViolation `json:"violations,omitempty"`
}

// toHTTPResponse сопоставляет доменную ошибку HTTP-статусу и сообщению.
func toHTTPResponse(err error) ErrorResponse {
	switch {
	case domain.IsValidation(err):
		return ErrorResponse{
			Code:       http.StatusBadRequest,
			Message:    domain.ErrValidation.Error(),
			Violations: domain.Violations(err),
		}
	case errors.Is(err, domain.ErrDuplicateDocument):
		return ErrorResponse{Code: http.StatusBadRequest, Message: domain.ErrDuplicateDocument.Error()}
	case errors.Is(err, domain.ErrDuplicateClientName):
		return ErrorResponse{Code: http.StatusBadRequest, Message: domain.ErrDuplicateClientName.Error()}
	case errors.Is(err, domain.ErrDuplicateProductName):
		return ErrorResponse{Code: http.StatusBadRequest, Message: domain.ErrDuplicateProductName.Error()}
	case errors.Is(err, domain.ErrClientNotFound):
		return ErrorResponse{Code: http.StatusNotFound, Message: domain.ErrClientNotFound.Error()}
	case errors.Is(err, domain.ErrProductNotFound):
		return ErrorResponse{Code: http.StatusNotFound, Message: domain.ErrProductNotFound.Error()}
	case errors.Is(err, domain.ErrOrderNotFound):
		return ErrorResponse{Code: http.StatusNotFound, Message: domain.ErrOrderNotFound.Error()}
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return ErrorResponse{Code: http.StatusUnprocessableEntity, Message: domain.ErrIdempotencyHashMismatch.Error()}
	case errors.Is(err, domain.ErrIdempotencyInProgress):
		return ErrorResponse{Code: http.StatusConflict, Message: domain.ErrIdempotencyInProgress.Error()}
	case domain.IsNotFound(err):
		return ErrorResponse{Code: http.StatusNotFound, Message: domain.ErrNotFound.Error()}
	default:
		return ErrorResponse{Code: http.StatusInternalServerError, Message: "internal server error"}
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := toHTTPResponse(err)
	writeJSON(w, resp.Code, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

// decodeJSON читает тело запроса; некорректный JSON превращается в ошибку валидации поля body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var v domain.ValidationErrors
		v.Add("body", "malformed JSON: "+err.Error())
		return v
	}
	return nil
}

// pathID извлекает положительный идентификатор из пути.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		var v domain.ValidationErrors
		v.Add("id", "must be a positive integer")
		return 0, v
	}
	return id, nil
}

func violation(field, message string) error {
	var v domain.ValidationErrors
	v.Add(field, message)
	return v
}
