package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound служит общим признаком отсутствующей записи.
	ErrNotFound = errors.New("not found")
	// ErrClientNotFound возвращается, если клиент не найден в хранилище.
	ErrClientNotFound = fmt.Errorf("client %w", ErrNotFound)
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)

	// ErrDuplicateDocument: номер документа уже принадлежит другому клиенту.
	ErrDuplicateDocument = errors.New("client with this document number already exists")
	// ErrDuplicateName служит общим признаком конфликта имени.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrDuplicateClientName: пара имя/фамилия уже занята (без учёта регистра).
	ErrDuplicateClientName = fmt.Errorf("client with this first and last name already exists: %w", ErrDuplicateName)
	// ErrDuplicateProductName: товар с таким названием уже есть (без учёта регистра).
	ErrDuplicateProductName = fmt.Errorf("product with this name already exists: %w", ErrDuplicateName)

	// ErrValidation возвращается, если входные данные не прошли проверку.
	ErrValidation = errors.New("validation failed")

	// ErrOutboxPublish возвращается при ошибке публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, относится ли ошибка к отсутствующей записи.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate проверяет конфликт уникальности (документ или имя).
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateDocument) || errors.Is(err, ErrDuplicateName)
}

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// FieldViolation описывает нарушение ограничения одного поля.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors содержит нарушения, собранные за одну проверку.
type ValidationErrors []FieldViolation

// Add добавляет нарушение для поля.
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldViolation{Field: field, Message: message})
}

// Err возвращает nil, если нарушений нет.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fv := range v {
		parts = append(parts, fv.Field+": "+fv.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

// Violations извлекает список нарушений из ошибки, если он есть.
func Violations(err error) ValidationErrors {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v
	}
	return nil
}
