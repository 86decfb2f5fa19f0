package ordersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// Metrics описывает счётчики, которые обновляет сервис заказов.
type Metrics interface {
	domain.OrderMetrics
	RecordTimelineEvent()
	RecordOutboxEvent(eventType string)
}

// CreateInput содержит данные нового заказа.
type CreateInput struct {
	CustomerName string
	Drink        string
	Quantity     int
}

// Service управляет жизненным циклом заказов.
type Service struct {
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	tx       domain.TxManager
	metrics  Metrics
	logger   *log.Entry
	now      func() time.Time
}

// Deps собирает зависимости сервиса заказов.
type Deps struct {
	Orders   domain.OrderRepository
	Timeline domain.TimelineRepository
	Outbox   domain.OutboxRepository
	Tx       domain.TxManager
	Metrics  Metrics
	Logger   *log.Entry
}

// NewService конструирует сервис заказов.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		orders:   deps.Orders,
		timeline: deps.Timeline,
		outbox:   deps.Outbox,
		tx:       deps.Tx,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create принимает заказ в статусе NEW.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Order, error) {
	order := domain.Order{
		CustomerName: in.CustomerName,
		Drink:        in.Drink,
		Quantity:     in.Quantity,
		Status:       domain.OrderStatusNew,
		CreatedAt:    s.now(),
	}

	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.orders.Save(ctx, &order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		return s.record(ctx, domain.EventOrderCreated, order, "")
	})
	if err != nil {
		s.logger.WithError(err).Error("order creation failed")
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.metrics.OrderCreated()
	s.countRecorded(domain.EventOrderCreated)
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"drink":    order.Drink,
	}).Info("order created")
	return order, nil
}

// Transition переводит заказ в любой статус; граф переходов не проверяется.
// Каждый переход в DELIVERED учитывается в счётчике выдачи, включая повторные.
func (s *Service) Transition(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	var order domain.Order
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		current, err := s.orders.Get(ctx, id)
		if err != nil {
			return err
		}
		previous := current.Status
		current.Status = status
		if err := s.orders.Save(ctx, &current); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		order = current
		return s.record(ctx, domain.EventOrderStatusChanged, current, previous)
	})
	if err != nil {
		entry := s.logger.WithError(err).WithField("order_id", id)
		if domain.IsNotFound(err) {
			entry.Warn("order transition rejected")
		} else {
			entry.Error("order transition failed")
		}
		return domain.Order{}, fmt.Errorf("transition order %d: %w", id, err)
	}

	s.countRecorded(domain.EventOrderStatusChanged)
	if status == domain.OrderStatusDelivered {
		s.metrics.OrderDelivered()
	}
	s.logger.WithFields(log.Fields{
		"order_id": id,
		"status":   status,
	}).Info("order status changed")
	return order, nil
}

// Delete удаляет заказ. Отсутствующий заказ не считается ошибкой.
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted := false
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		current, err := s.orders.Get(ctx, id)
		if domain.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.orders.Delete(ctx, id); err != nil {
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		}
		if err := s.enqueue(ctx, domain.EventOrderDeleted, current, ""); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", id).Error("order deletion failed")
		return fmt.Errorf("delete order %d: %w", id, err)
	}
	if deleted {
		s.metrics.RecordOutboxEvent(domain.EventOrderDeleted)
		s.logger.WithField("order_id", id).Info("order deleted")
	}
	return nil
}

// Get возвращает заказ; found == false, если записи нет.
func (s *Service) Get(ctx context.Context, id int64) (domain.Order, bool, error) {
	order, err := s.orders.Get(ctx, id)
	if domain.IsNotFound(err) {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("get order %d: %w", id, err)
	}
	return order, true, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.list(ctx, domain.OrderFilter{})
}

func (s *Service) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return s.list(ctx, domain.OrderFilter{Status: &status})
}

// SearchByCustomer ищет по подстроке имени гостя без учёта регистра.
func (s *Service) SearchByCustomer(ctx context.Context, fragment string) ([]domain.Order, error) {
	return s.list(ctx, domain.OrderFilter{CustomerContains: fragment})
}

// Stats считает заказы по статусам.
func (s *Service) Stats(ctx context.Context) (domain.OrderStats, error) {
	stats := domain.OrderStats{ByStatus: make(map[domain.OrderStatus]int, len(domain.OrderStatuses))}
	for _, st := range domain.OrderStatuses {
		status := st
		n, err := s.orders.Count(ctx, domain.OrderFilter{Status: &status})
		if err != nil {
			return domain.OrderStats{}, fmt.Errorf("count %s orders: %w", st, err)
		}
		stats.ByStatus[st] = n
		if n > 0 && st.Pending() {
			stats.HasPending = true
		}
	}
	return stats, nil
}

// Timeline возвращает историю заказа или ErrOrderNotFound.
func (s *Service) Timeline(ctx context.Context, id int64) ([]domain.TimelineEvent, error) {
	if _, err := s.orders.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("order timeline %d: %w", id, err)
	}
	events, err := s.timeline.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order timeline %d: %w", id, err)
	}
	return events, nil
}

func (s *Service) list(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// record пишет событие в историю заказа и в outbox в рамках текущей транзакции.
func (s *Service) record(ctx context.Context, eventType string, order domain.Order, previous domain.OrderStatus) error {
	if err := s.timeline.Append(ctx, domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     eventType,
		Status:   order.Status,
		Occurred: s.now(),
	}); err != nil {
		return fmt.Errorf("append timeline: %w", err)
	}
	return s.enqueue(ctx, eventType, order, previous)
}

func (s *Service) enqueue(ctx context.Context, eventType string, order domain.Order, previous domain.OrderStatus) error {
	payload, err := json.Marshal(newOrderEvent(eventType, order, previous, s.now()))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if _, err := s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue %s event: %w", eventType, err)
	}
	return nil
}

// countRecorded учитывает запись из record. Вызывается только после фиксации транзакции.
func (s *Service) countRecorded(eventType string) {
	s.metrics.RecordTimelineEvent()
	s.metrics.RecordOutboxEvent(eventType)
}
