package integration

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/metrics"
	ordersvc "github.com/vladislavdragonenkov/cafe/internal/service/order"
	"github.com/vladislavdragonenkov/cafe/internal/service/outbox"
	"github.com/vladislavdragonenkov/cafe/internal/storage/memory"
)

// OrderLifecycleTestSuite проверяет путь заказа от приёма до публикации событий.
type OrderLifecycleTestSuite struct {
	suite.Suite
	orders    *ordersvc.Service
	timeline  domain.TimelineRepository
	outbox    domain.OutboxRepository
	relay     *outbox.Relay
	published *recordingPublisher
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	s.timeline = memory.NewTimelineRepository()
	s.outbox = memory.NewOutboxRepository()
	s.published = &recordingPublisher{}

	s.orders = ordersvc.NewService(ordersvc.Deps{
		Orders:   memory.NewOrderRepository(),
		Timeline: s.timeline,
		Outbox:   s.outbox,
		Tx:       memory.NewTxManager(),
		Metrics:  metrics.NewCoffeeMetricsWithRegisterer(prometheus.NewRegistry()),
		Logger:   logger,
	})
	s.relay = outbox.NewRelay(s.outbox, s.published, nil, outbox.Config{}, logger)
}

func (s *OrderLifecycleTestSuite) TestHappyPathPublishesEveryTransition() {
	ctx := context.Background()

	order, err := s.orders.Create(ctx, ordersvc.CreateInput{CustomerName: "Anna", Drink: "Cappuccino", Quantity: 2})
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusNew, order.Status)

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusPreparing,
		domain.OrderStatusReady,
		domain.OrderStatusDelivered,
	} {
		updated, err := s.orders.Transition(ctx, order.ID, status)
		s.Require().NoError(err)
		s.Require().Equal(status, updated.Status)
	}

	history, err := s.orders.Timeline(ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 4)
	s.Require().Equal(domain.EventOrderCreated, history[0].Type)
	s.Require().Equal(domain.OrderStatusDelivered, history[3].Status)

	report := s.relay.Drain(ctx)
	s.Require().Equal(outbox.Report{Sent: 4}, report)

	events := s.published.events()
	s.Require().Len(events, 4)
	var last ordersvc.OrderEvent
	s.Require().NoError(json.Unmarshal(events[3].Payload, &last))
	s.Require().Equal(order.ID, last.OrderID)
	s.Require().Equal(domain.OrderStatusDelivered, last.Status)
	s.Require().Equal(domain.OrderStatusReady, last.PreviousStatus)

	stats, err := s.orders.Stats(ctx)
	s.Require().NoError(err)
	s.Require().False(stats.HasPending)
	s.Require().Equal(1, stats.ByStatus[domain.OrderStatusDelivered])
}

func (s *OrderLifecycleTestSuite) TestCancelAndDeleteLeaveNoPendingOrders() {
	ctx := context.Background()

	kept, err := s.orders.Create(ctx, ordersvc.CreateInput{CustomerName: "Bob", Drink: "Espresso", Quantity: 1})
	s.Require().NoError(err)
	dropped, err := s.orders.Create(ctx, ordersvc.CreateInput{CustomerName: "Carl", Drink: "Mocha", Quantity: 3})
	s.Require().NoError(err)

	_, err = s.orders.Transition(ctx, kept.ID, domain.OrderStatusCanceled)
	s.Require().NoError(err)
	s.Require().NoError(s.orders.Delete(ctx, dropped.ID))
	s.Require().NoError(s.orders.Delete(ctx, dropped.ID), "repeated delete is a no-op")

	stats, err := s.orders.Stats(ctx)
	s.Require().NoError(err)
	s.Require().False(stats.HasPending)

	_, found, err := s.orders.Get(ctx, dropped.ID)
	s.Require().NoError(err)
	s.Require().False(found)

	s.relay.Drain(ctx)
	types := make([]string, 0)
	for _, ev := range s.published.events() {
		types = append(types, ev.EventType)
	}
	s.Require().Equal([]string{
		domain.EventOrderCreated,
		domain.EventOrderCreated,
		domain.EventOrderStatusChanged,
		domain.EventOrderDeleted,
	}, types)
}

func (s *OrderLifecycleTestSuite) TestConcurrentOrdersGetUniqueIDs() {
	ctx := context.Background()
	const workers = 20

	var wg sync.WaitGroup
	ids := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := s.orders.Create(ctx, ordersvc.CreateInput{CustomerName: "Queue", Drink: "Latte", Quantity: 1})
			if err == nil {
				ids <- order.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, workers)
	for id := range ids {
		_, dup := seen[id]
		s.Require().False(dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	s.Require().Len(seen, workers)

	backlog, err := s.outbox.Stats(ctx)
	s.Require().NoError(err)
	s.Require().Equal(workers, backlog.PendingCount)
}

func TestOrderLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}

func TestOrderLifecycle_TimelineOfUnknownOrder(t *testing.T) {
	svc := ordersvc.NewService(ordersvc.Deps{
		Orders:   memory.NewOrderRepository(),
		Timeline: memory.NewTimelineRepository(),
		Outbox:   memory.NewOutboxRepository(),
		Tx:       memory.NewTxManager(),
		Metrics:  metrics.NewCoffeeMetricsWithRegisterer(prometheus.NewRegistry()),
	})

	_, err := svc.Timeline(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []domain.OutboxMessage
}

func (p *recordingPublisher) Publish(msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func (p *recordingPublisher) events() []domain.OutboxMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OutboxMessage(nil), p.sent...)
}
