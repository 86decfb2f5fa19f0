package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

func TestTxManager_NestedCallReusesLock(t *testing.T) {
	tx := NewTxManager()

	calls := 0
	err := tx.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return tx.Do(ctx, func(context.Context) error {
			calls++
			return nil
		})
	})
	if err != nil {
		t.Fatalf("nested Do failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both functions to run, got %d", calls)
	}
}

func TestTxManager_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := NewTxManager().Do(context.Background(), func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestTxManager_SerializesUnitsOfWork(t *testing.T) {
	tx := NewTxManager()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tx.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("units of work overlapped: max concurrent %d", maxSeen)
	}
}

func TestTxManager_RollsBackWritesOnError(t *testing.T) {
	ctx := context.Background()
	tx := NewTxManager()
	clients := NewClientRepository()
	timeline := NewTimelineRepository()

	kept := domain.Client{FirstName: "Anna", LastName: "Smith", DocumentNumber: "AB123456", Active: true}
	if err := clients.Save(ctx, &kept); err != nil {
		t.Fatalf("seed client: %v", err)
	}

	boom := errors.New("boom")
	err := tx.Do(ctx, func(ctx context.Context) error {
		fresh := domain.Client{FirstName: "Bob", LastName: "Stone", DocumentNumber: "CD123456"}
		if err := clients.Save(ctx, &fresh); err != nil {
			return err
		}
		changed := kept
		changed.Active = false
		if err := clients.Save(ctx, &changed); err != nil {
			return err
		}
		if err := timeline.Append(ctx, domain.TimelineEvent{OrderID: 7, Type: domain.EventOrderCreated, Occurred: time.Now()}); err != nil {
			return err
		}
		if err := clients.Delete(ctx, kept.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	all, _ := clients.List(ctx, domain.ClientFilter{})
	if len(all) != 1 || all[0].ID != kept.ID || !all[0].Active {
		t.Fatalf("expected only the seeded active client after rollback, got %+v", all)
	}
	events, _ := timeline.List(ctx, 7)
	if len(events) != 0 {
		t.Fatalf("expected timeline rollback, got %d events", len(events))
	}
}

func TestTxManager_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	tx := NewTxManager()
	orders := NewOrderRepository()

	func() {
		defer func() { _ = recover() }()
		_ = tx.Do(ctx, func(ctx context.Context) error {
			order := domain.Order{CustomerName: "Anna", Drink: "Latte", Quantity: 1, Status: domain.OrderStatusNew}
			if err := orders.Save(ctx, &order); err != nil {
				return err
			}
			panic("handler crashed")
		})
	}()

	all, _ := orders.List(ctx, domain.OrderFilter{})
	if len(all) != 0 {
		t.Fatalf("expected no orders after panic, got %d", len(all))
	}
	// Блокировка освобождена.
	if err := tx.Do(ctx, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("tx manager unusable after panic: %v", err)
	}
}

func TestTxManager_OutboxVisibleAfterCommit(t *testing.T) {
	ctx := context.Background()
	tx := NewTxManager()
	outbox := NewOutboxRepository()

	err := tx.Do(ctx, func(ctx context.Context) error {
		if _, err := outbox.Enqueue(ctx, domain.OutboxMessage{EventType: domain.EventOrderCreated, Payload: []byte(`{}`)}); err != nil {
			return err
		}
		if n := len(outbox.AllPending()); n != 0 {
			t.Errorf("uncommitted message visible: %d pending", n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if n := len(outbox.AllPending()); n != 1 {
		t.Fatalf("expected 1 pending message after commit, got %d", n)
	}

	_ = tx.Do(ctx, func(ctx context.Context) error {
		_, _ = outbox.Enqueue(ctx, domain.OutboxMessage{EventType: domain.EventOrderDeleted, Payload: []byte(`{}`)})
		return errors.New("rollback")
	})
	if n := len(outbox.AllPending()); n != 1 {
		t.Fatalf("rolled back message leaked: %d pending", n)
	}
}
