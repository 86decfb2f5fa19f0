package idempotency

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultSweepBatch    = 500
	defaultSweepInterval = 10 * time.Minute
)

var expiredKeysDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "coffee_idempotency_expired_keys_deleted_total",
	Help: "Expired order idempotency keys removed by the sweeper.",
})

// Sweep удаляет ключи, чей ttl истёк к моменту вызова, порциями по sweepBatch.
func (g *Guard) Sweep(ctx context.Context) (int, error) {
	cutoff := g.now()
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := g.repo.DeleteExpired(ctx, cutoff, g.sweepBatch)
		if err != nil {
			return total, err
		}
		total += n
		expiredKeysDeleted.Add(float64(n))
		if n < g.sweepBatch {
			return total, nil
		}
	}
}

// RunSweeper вызывает Sweep сразу и затем каждые interval до отмены ctx.
func (g *Guard) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		switch n, err := g.Sweep(ctx); {
		case err != nil && ctx.Err() == nil:
			g.logger.WithError(err).Warn("idempotency sweep failed")
		case n > 0:
			g.logger.WithField("deleted", n).Info("expired idempotency keys removed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
