package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

// maxRetryDelay ограничивает паузу между попытками доставки одного события.
const maxRetryDelay = 5 * time.Second

var (
	relayDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coffee_order_events_delivered_total",
		Help: "Order lifecycle events handled by the outbox relay grouped by event type and result.",
	}, []string{"event_type", "result"})
	relayBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coffee_order_events_backlog",
		Help: "Order lifecycle events waiting in the outbox.",
	})
	relayBacklogAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coffee_order_events_backlog_age_seconds",
		Help: "Age of the oldest order lifecycle event waiting in the outbox.",
	})
)

// Config задаёт параметры доставки событий заказов.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// RetryDelay удваивается с каждой попыткой; 0 отключает паузу.
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	return c
}

// Report подводит итог одного прохода по outbox.
type Report struct {
	Sent         int
	DeadLettered int
	// Deferred: события заказа, чьё более раннее событие в этом проходе не доставлено.
	Deferred int
}

// Relay доставляет события заказов из outbox в брокер.
// События одного заказа уходят строго в порядке постановки: если событие заказа
// не доставлено, его последующие события ждут следующего прохода.
type Relay struct {
	repo        domain.OutboxRepository
	events      domain.OutboxPublisher
	deadLetters domain.OutboxPublisher
	cfg         Config
	logger      *log.Entry
	now         func() time.Time
}

// NewRelay создаёт ретранслятор. deadLetters может быть nil: тогда недоставленное
// событие только помечается failed.
func NewRelay(repo domain.OutboxRepository, events, deadLetters domain.OutboxPublisher, cfg Config, logger *log.Entry) *Relay {
	if logger == nil {
		logger = log.WithField("component", "outbox-relay")
	}
	return &Relay{
		repo:        repo,
		events:      events,
		deadLetters: deadLetters,
		cfg:         cfg.withDefaults(),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run опрашивает outbox каждые PollInterval до отмены ctx.
func (r *Relay) Run(ctx context.Context) {
	if r.repo == nil || r.events == nil {
		r.logger.Warn("outbox relay disabled: no repository or publisher")
		return
	}

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if report := r.Drain(ctx); report.DeadLettered > 0 || report.Deferred > 0 {
			r.logger.WithFields(log.Fields{
				"sent":          report.Sent,
				"dead_lettered": report.DeadLettered,
				"deferred":      report.Deferred,
			}).Warn("order events not fully delivered")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Drain доставляет одну пачку ожидающих событий.
func (r *Relay) Drain(ctx context.Context) Report {
	var report Report
	if ctx.Err() != nil {
		return report
	}

	batch, err := r.repo.PullPending(ctx, r.cfg.BatchSize)
	if err != nil {
		r.logger.WithError(err).Warn("failed to pull order events")
		return report
	}

	held := make(map[string]struct{})
	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		entry := r.logger.WithFields(log.Fields{
			"outbox_id":  msg.ID,
			"order_id":   msg.AggregateID,
			"event_type": msg.EventType,
		})

		if _, blocked := held[msg.AggregateID]; blocked {
			relayDeliveries.WithLabelValues(msg.EventType, "deferred").Inc()
			report.Deferred++
			continue
		}

		attempts, err := r.deliver(ctx, msg)
		if err == nil {
			relayDeliveries.WithLabelValues(msg.EventType, "sent").Inc()
			report.Sent++
			if markErr := r.repo.MarkSent(ctx, msg.ID); markErr != nil {
				entry.WithError(markErr).Warn("failed to mark order event as sent")
			}
			continue
		}
		if ctx.Err() != nil {
			break
		}

		held[msg.AggregateID] = struct{}{}
		entry.WithError(err).WithField("attempts", attempts).Error("order event undeliverable")
		relayDeliveries.WithLabelValues(msg.EventType, "dead_lettered").Inc()
		report.DeadLettered++
		if dlqErr := r.deadLetter(msg, attempts, err); dlqErr != nil {
			entry.WithError(dlqErr).Warn("failed to publish dead letter")
		}
		if markErr := r.repo.MarkFailed(ctx, msg.ID); markErr != nil {
			entry.WithError(markErr).Warn("failed to mark order event as failed")
		}
	}

	r.observeBacklog(ctx)
	return report
}

// deliver публикует событие, повторяя попытки с удвоением паузы.
func (r *Relay) deliver(ctx context.Context, msg domain.OutboxMessage) (int, error) {
	var err error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err = r.events.Publish(msg); err == nil {
			return attempt, nil
		}
		if attempt == r.cfg.MaxAttempts {
			return attempt, err
		}
		if waitErr := sleep(ctx, retryDelay(r.cfg.RetryDelay, attempt)); waitErr != nil {
			return attempt, waitErr
		}
	}
	return r.cfg.MaxAttempts, err
}

// retryDelay возвращает паузу после попытки attempt: base, 2*base, 4*base... не больше maxRetryDelay.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// deadLetter описывает событие заказа, которое не удалось доставить.
type deadLetter struct {
	OutboxID  string          `json:"outbox_id"`
	OrderID   string          `json:"order_id"`
	EventType string          `json:"event_type"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error"`
	Event     json.RawMessage `json:"event,omitempty"`
	FailedAt  time.Time       `json:"failed_at"`
}

func (r *Relay) deadLetter(msg domain.OutboxMessage, attempts int, cause error) error {
	if r.deadLetters == nil {
		return nil
	}
	payload, err := json.Marshal(deadLetter{
		OutboxID:  msg.ID,
		OrderID:   msg.AggregateID,
		EventType: msg.EventType,
		Attempts:  attempts,
		Error:     cause.Error(),
		Event:     json.RawMessage(msg.Payload),
		FailedAt:  r.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	letter := msg
	letter.Payload = payload
	return r.deadLetters.Publish(letter)
}

func (r *Relay) observeBacklog(ctx context.Context) {
	stats, err := r.repo.Stats(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("failed to read outbox backlog")
		return
	}
	relayBacklog.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		relayBacklogAge.Set(0)
		return
	}
	relayBacklogAge.Set(max(r.now().Sub(stats.OldestPendingAt).Seconds(), 0))
}
