package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

func TestClientRepository_PostgresLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewClientRepository(store)
	ctx := context.Background()

	anna := domain.Client{
		FirstName:      "Anna",
		LastName:       "Smith",
		DocumentNumber: "AB1234567",
		BirthDate:      time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Active:         true,
	}
	if err := repo.Save(ctx, &anna); err != nil {
		t.Fatalf("insert client: %v", err)
	}
	if anna.ID != 1 || anna.CreatedAt.IsZero() {
		t.Fatalf("expected assigned id and timestamps, got %+v", anna)
	}

	bob := domain.Client{
		FirstName:      "Bob",
		LastName:       "Stone",
		DocumentNumber: "CD7654321",
		BirthDate:      time.Date(1985, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Save(ctx, &bob); err != nil {
		t.Fatalf("insert second client: %v", err)
	}

	got, err := repo.Get(ctx, anna.ID)
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	if !got.BirthDate.Equal(anna.BirthDate) || got.DocumentNumber != anna.DocumentNumber {
		t.Fatalf("unexpected client payload: %+v", got)
	}

	active, err := repo.List(ctx, domain.ClientFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != anna.ID {
		t.Fatalf("unexpected active clients: %+v", active)
	}

	byLast, err := repo.List(ctx, domain.ClientFilter{LastNameContains: "ST"})
	if err != nil {
		t.Fatalf("search by last name: %v", err)
	}
	if len(byLast) != 1 || byLast[0].ID != bob.ID {
		t.Fatalf("unexpected search result: %+v", byLast)
	}

	n, err := repo.Count(ctx, domain.ClientFilter{})
	if err != nil || n != 2 {
		t.Fatalf("count clients: n=%d err=%v", n, err)
	}

	exists, err := repo.ExistsByDocument(ctx, "AB1234567", 0)
	if err != nil || !exists {
		t.Fatalf("document must exist: exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsByDocument(ctx, "AB1234567", anna.ID)
	if err != nil || exists {
		t.Fatalf("own document must be excluded: exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsByName(ctx, "anna", "SMITH", 0)
	if err != nil || !exists {
		t.Fatalf("name must match case-insensitively: exists=%v err=%v", exists, err)
	}

	dup := domain.Client{
		FirstName:      "Carl",
		LastName:       "Bright",
		DocumentNumber: "AB1234567",
		BirthDate:      time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Save(ctx, &dup); !errors.Is(err, domain.ErrDuplicateDocument) {
		t.Fatalf("expected duplicate document, got %v", err)
	}

	bob.Active = true
	bob.FirstName = "Robert"
	if err := repo.Save(ctx, &bob); err != nil {
		t.Fatalf("update client: %v", err)
	}
	if bob.UpdatedAt.Before(bob.CreatedAt) {
		t.Fatalf("updated_at must not precede created_at: %+v", bob)
	}

	missing := domain.Client{ID: 999, FirstName: "X", LastName: "Y", DocumentNumber: "ZZ0000000"}
	if err := repo.Save(ctx, &missing); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}

	if err := repo.Delete(ctx, anna.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}
	if err := repo.Delete(ctx, anna.ID); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := repo.Get(ctx, anna.ID); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestProductRepository_PostgresFiltersAndPrices(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewProductRepository(store)
	ctx := context.Background()

	products := []domain.Product{
		{Name: "Espresso", Price: decimal.RequireFromString("2.50"), Category: domain.CategoryCoffee, Available: true},
		{Name: "Iced Latte", Price: decimal.RequireFromString("4.20"), Category: domain.CategoryCoffee, Available: false},
		{Name: "Croissant", Description: "butter", Price: decimal.RequireFromString("3.00"), Category: domain.CategoryPastry, Available: true},
	}
	for i := range products {
		if err := repo.Save(ctx, &products[i]); err != nil {
			t.Fatalf("insert product %s: %v", products[i].Name, err)
		}
	}

	got, err := repo.Get(ctx, products[0].ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !got.Price.Equal(decimal.RequireFromString("2.5")) || got.Category != domain.CategoryCoffee {
		t.Fatalf("unexpected product payload: %+v", got)
	}

	coffee := domain.CategoryCoffee
	listed, err := repo.List(ctx, domain.ProductFilter{Category: &coffee, AvailableOnly: true})
	if err != nil {
		t.Fatalf("list available coffee: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "Espresso" {
		t.Fatalf("unexpected available coffee: %+v", listed)
	}

	minPrice := decimal.RequireFromString("2.50")
	maxPrice := decimal.RequireFromString("3.00")
	inRange, err := repo.List(ctx, domain.ProductFilter{MinPrice: &minPrice, MaxPrice: &maxPrice})
	if err != nil {
		t.Fatalf("list by price range: %v", err)
	}
	if len(inRange) != 2 {
		t.Fatalf("price bounds must be inclusive, got %+v", inRange)
	}

	byName, err := repo.List(ctx, domain.ProductFilter{NameContains: "LATTE"})
	if err != nil || len(byName) != 1 {
		t.Fatalf("search by name: %+v err=%v", byName, err)
	}

	n, err := repo.Count(ctx, domain.ProductFilter{AvailableOnly: true})
	if err != nil || n != 2 {
		t.Fatalf("count available: n=%d err=%v", n, err)
	}

	dup := domain.Product{Name: "espresso", Price: decimal.RequireFromString("1.00"), Category: domain.CategoryCoffee}
	if err := repo.Save(ctx, &dup); !errors.Is(err, domain.ErrDuplicateProductName) {
		t.Fatalf("expected duplicate product name, got %v", err)
	}

	if err := repo.Delete(ctx, 999); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}

func TestOrderRepository_PostgresSaveListAndDelete(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOrderRepository(store)
	ctx := context.Background()

	first := domain.Order{CustomerName: "Anna", Drink: "Latte", Quantity: 2, Status: domain.OrderStatusNew}
	second := domain.Order{CustomerName: "Bob", Drink: "Mocha", Quantity: 1, Status: domain.OrderStatusNew}
	for _, o := range []*domain.Order{&first, &second} {
		if err := repo.Save(ctx, o); err != nil {
			t.Fatalf("insert order: %v", err)
		}
	}
	created := first.CreatedAt

	first.Status = domain.OrderStatusReady
	if err := repo.Save(ctx, &first); err != nil {
		t.Fatalf("update order: %v", err)
	}
	if !first.CreatedAt.Equal(created) {
		t.Fatalf("created_at must survive update: before=%v after=%v", created, first.CreatedAt)
	}

	ready := domain.OrderStatusReady
	listed, err := repo.List(ctx, domain.OrderFilter{Status: &ready})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != first.ID {
		t.Fatalf("unexpected ready orders: %+v", listed)
	}

	byCustomer, err := repo.List(ctx, domain.OrderFilter{CustomerContains: "bo"})
	if err != nil || len(byCustomer) != 1 || byCustomer[0].ID != second.ID {
		t.Fatalf("search by customer: %+v err=%v", byCustomer, err)
	}

	n, err := repo.Count(ctx, domain.OrderFilter{})
	if err != nil || n != 2 {
		t.Fatalf("count orders: n=%d err=%v", n, err)
	}

	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if _, err := repo.Get(ctx, first.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestTimelineAndOutbox_PostgresRoundTrip(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	timeline := NewTimelineRepository(store)
	outbox := NewOutboxRepository(store)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	events := []domain.TimelineEvent{
		{OrderID: 7, Type: domain.EventOrderCreated, Status: domain.OrderStatusNew, Occurred: base},
		{OrderID: 7, Type: domain.EventOrderStatusChanged, Status: domain.OrderStatusReady, Occurred: base.Add(time.Second)},
		{OrderID: 8, Type: domain.EventOrderCreated, Status: domain.OrderStatusNew, Occurred: base},
	}
	for _, ev := range events {
		if err := timeline.Append(ctx, ev); err != nil {
			t.Fatalf("append timeline event: %v", err)
		}
	}
	history, err := timeline.List(ctx, 7)
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	if len(history) != 2 || history[1].Status != domain.OrderStatusReady {
		t.Fatalf("unexpected timeline: %+v", history)
	}

	first, err := outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   "7",
		EventType:     domain.EventOrderCreated,
		Payload:       []byte(`{"order_id":7}`),
		CreatedAt:     base,
	})
	if err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated outbox id")
	}
	second, err := outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   "7",
		EventType:     domain.EventOrderStatusChanged,
		Payload:       []byte(`{"order_id":7}`),
		CreatedAt:     base.Add(time.Second),
	})
	if err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	stats, err := outbox.Stats(ctx)
	if err != nil {
		t.Fatalf("outbox stats: %v", err)
	}
	if stats.PendingCount != 2 || !stats.OldestPendingAt.Equal(base) {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	pending, err := outbox.PullPending(ctx, 1)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("expected oldest message first, got %+v", pending)
	}

	if err := outbox.MarkSent(ctx, first.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := outbox.MarkFailed(ctx, second.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := outbox.MarkSent(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected publish error for unknown id, got %v", err)
	}

	stats, err = outbox.Stats(ctx)
	if err != nil {
		t.Fatalf("outbox stats after marks: %v", err)
	}
	if stats.PendingCount != 0 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("expected empty backlog, got %+v", stats)
	}
}

func TestIdempotencyRepository_PostgresLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)
	ctx := context.Background()
	now := time.Now().UTC()

	created, err := repo.CreateProcessing(ctx, "order-key", "hash-a", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create processing: %v", err)
	}
	if created.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("unexpected status %s", created.Status)
	}

	existing, err := repo.CreateProcessing(ctx, "order-key", "hash-a", now.Add(time.Hour))
	if !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	if existing.HTTPStatus != 0 || existing.ResponseBody != nil {
		t.Fatalf("processing record must have no response: %+v", existing)
	}
	if _, err := repo.CreateProcessing(ctx, "order-key", "hash-b", now.Add(time.Hour)); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected hash mismatch, got %v", err)
	}

	if err := repo.MarkDone(ctx, "order-key", []byte(`{"id":7}`), 201); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	done, err := repo.Get(ctx, "order-key")
	if err != nil {
		t.Fatalf("get done: %v", err)
	}
	if done.Status != domain.IdempotencyStatusDone || done.HTTPStatus != 201 || string(done.ResponseBody) != `{"id":7}` {
		t.Fatalf("unexpected done record: %+v", done)
	}
	if err := repo.MarkFailed(ctx, "missing", nil, 400); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := repo.CreateProcessing(ctx, "stale-key", "hash-old", now.Add(-time.Minute)); err != nil {
		t.Fatalf("create stale: %v", err)
	}
	reused, err := repo.CreateProcessing(ctx, "stale-key", "hash-new", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("expired key must be reusable: %v", err)
	}
	if reused.RequestHash != "hash-new" {
		t.Fatalf("unexpected reused record: %+v", reused)
	}

	if _, err := repo.CreateProcessing(ctx, "expired-key", "hash", now.Add(-time.Minute)); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	removed, err := repo.DeleteExpired(ctx, now, 10)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one expired record, got %d", removed)
	}
	if _, err := repo.Get(ctx, "expired-key"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected expired key to be gone, got %v", err)
	}
}
