package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus описывает стадию приготовления заказа.
type OrderStatus string

const (
	// OrderStatusNew: заказ принят, начальный статус.
	OrderStatusNew OrderStatus = "NEW"
	// OrderStatusPreparing: бариста готовит напиток.
	OrderStatusPreparing OrderStatus = "PREPARING"
	// OrderStatusReady: заказ ждёт выдачи.
	OrderStatusReady OrderStatus = "READY"
	// OrderStatusDelivered: заказ выдан гостю, учитывается в счётчике выдачи.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCanceled: заказ отменён.
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// OrderStatuses перечисляет статусы в порядке жизненного цикла.
var OrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCanceled,
}

var statusDisplayNames = map[OrderStatus]string{
	OrderStatusNew:       "New",
	OrderStatusPreparing: "Preparing",
	OrderStatusReady:     "Ready",
	OrderStatusDelivered: "Delivered",
	OrderStatusCanceled:  "Canceled",
}

// StatusDisplayName возвращает название статуса для интерфейса.
func StatusDisplayName(s OrderStatus) string {
	if name, ok := statusDisplayNames[s]; ok {
		return name
	}
	return string(s)
}

// Valid сообщает, входит ли значение в перечисление.
func (s OrderStatus) Valid() bool {
	_, ok := statusDisplayNames[s]
	return ok
}

// Pending сообщает, что заказ ещё не выдан и не отменён.
func (s OrderStatus) Pending() bool {
	return s != OrderStatusDelivered && s != OrderStatusCanceled
}

// ParseOrderStatus разбирает статус без учёта регистра.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

// Order описывает заказ напитка.
type Order struct {
	ID           int64
	CustomerName string
	Drink        string
	Quantity     int
	Status       OrderStatus
	CreatedAt    time.Time
}

// OrderFilter задаёт выборку заказов.
type OrderFilter struct {
	Status           *OrderStatus
	CustomerContains string
}

// Match проверяет заказ на соответствие фильтру.
func (f OrderFilter) Match(o Order) bool {
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.CustomerContains != "" && !ContainsFold(o.CustomerName, f.CustomerContains) {
		return false
	}
	return true
}

// OrderStats содержит количество заказов по статусам.
type OrderStats struct {
	ByStatus   map[OrderStatus]int
	HasPending bool
}
