package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

func newClient(first, last, doc string, active bool) *domain.Client {
	return &domain.Client{
		FirstName:      first,
		LastName:       last,
		DocumentNumber: doc,
		BirthDate:      time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Active:         active,
	}
}

func TestClientRepository_SaveAssignsIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewClientRepository()

	first := newClient("Anna", "Smith", "AB123456", true)
	second := newClient("Bob", "Stone", "CD123456", false)
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("unexpected ids %d, %d", first.ID, second.ID)
	}
	if first.CreatedAt.IsZero() || first.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	got, err := repo.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DocumentNumber != "AB123456" {
		t.Fatalf("unexpected client %+v", got)
	}

	if _, err := repo.Get(ctx, 42); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestClientRepository_UpdateMissing(t *testing.T) {
	repo := NewClientRepository()
	c := newClient("Anna", "Smith", "AB123456", true)
	c.ID = 7
	if err := repo.Save(context.Background(), c); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
}

func TestClientRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewClientRepository()
	for _, c := range []*domain.Client{
		newClient("Anna", "Smith", "AB000001", true),
		newClient("Joanna", "Brown", "AB000002", false),
		newClient("Mark", "Smithson", "AB000003", true),
	} {
		if err := repo.Save(ctx, c); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	all, err := repo.List(ctx, domain.ClientFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != 1 || all[2].ID != 3 {
		t.Fatalf("expected three clients ordered by id, got %+v", all)
	}

	byFirst, _ := repo.List(ctx, domain.ClientFilter{FirstNameContains: "ANN"})
	if len(byFirst) != 2 {
		t.Fatalf("expected 2 matches by first name, got %d", len(byFirst))
	}

	active, err := repo.Count(ctx, domain.ClientFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 2 {
		t.Fatalf("expected 2 active clients, got %d", active)
	}
}

func TestClientRepository_Exists(t *testing.T) {
	ctx := context.Background()
	repo := NewClientRepository()
	c := newClient("Anna", "Smith", "AB123456", true)
	if err := repo.Save(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}

	cases := []struct {
		name string
		fn   func() (bool, error)
		want bool
	}{
		{"document taken", func() (bool, error) { return repo.ExistsByDocument(ctx, "AB123456", 0) }, true},
		{"document excluded self", func() (bool, error) { return repo.ExistsByDocument(ctx, "AB123456", c.ID) }, false},
		{"document free", func() (bool, error) { return repo.ExistsByDocument(ctx, "ZZ999999", 0) }, false},
		{"name case-insensitive", func() (bool, error) { return repo.ExistsByName(ctx, "anna", "SMITH", 0) }, true},
		{"name excluded self", func() (bool, error) { return repo.ExistsByName(ctx, "Anna", "Smith", c.ID) }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.fn()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClientRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewClientRepository()
	c := newClient("Anna", "Smith", "AB123456", true)
	if err := repo.Save(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, c.ID); !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound on second delete, got %v", err)
	}
}
