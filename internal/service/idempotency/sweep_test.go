package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/storage/memory"
)

func TestSweep_RemovesOnlyExpiredKeys(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	now := time.Now().UTC()
	for _, key := range []string{"a", "b", "c"} {
		_, err := repo.CreateProcessing(ctx, key, "hash", now.Add(-time.Minute))
		require.NoError(t, err)
	}
	_, err := repo.CreateProcessing(ctx, "live", "hash", now.Add(time.Hour))
	require.NoError(t, err)

	guard := NewGuard(repo, time.Hour, nil)
	guard.sweepBatch = 2

	deleted, err := guard.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, deleted)

	_, err = repo.Get(ctx, "live")
	require.NoError(t, err)
	_, err = repo.Get(ctx, "a")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
}

func TestSweep_LoopsUntilShortBatch(t *testing.T) {
	repo := &sweepRepo{results: []int{2, 2, 1}}
	guard := NewGuard(repo, time.Hour, nil)
	guard.sweepBatch = 2

	deleted, err := guard.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, deleted)
	require.Equal(t, 3, repo.calls())
}

func TestSweep_StopsOnError(t *testing.T) {
	repo := &sweepRepo{results: []int{2}, err: errors.New("boom")}
	guard := NewGuard(repo, time.Hour, nil)
	guard.sweepBatch = 2

	deleted, err := guard.Sweep(context.Background())
	require.EqualError(t, err, "boom")
	require.Equal(t, 2, deleted)
}

func TestSweep_CanceledContext(t *testing.T) {
	repo := &sweepRepo{results: []int{10}}
	guard := NewGuard(repo, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := guard.Sweep(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, repo.calls())
}

func TestRunSweeper_StopsOnContextCancel(t *testing.T) {
	repo := &sweepRepo{}
	guard := NewGuard(repo, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		guard.RunSweeper(ctx, 5*time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
	require.Positive(t, repo.calls())
}

// sweepRepo отдаёт заранее заданные результаты DeleteExpired, затем err.
type sweepRepo struct {
	domain.IdempotencyRepository

	mu        sync.Mutex
	results   []int
	err       error
	callCount int
}

func (s *sweepRepo) DeleteExpired(context.Context, time.Time, int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if len(s.results) == 0 {
		return 0, s.err
	}
	n := s.results[0]
	s.results = s.results[1:]
	return n, nil
}

func (s *sweepRepo) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}
