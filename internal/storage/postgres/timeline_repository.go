package postgres

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

type timelineRepository struct {
	store *Store
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{store: store}
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = nowUTC()
	}

	if _, err := r.store.conn(ctx).Exec(ctx, `
		INSERT INTO order_timeline_events (order_id, event_type, status, occurred_at)
		VALUES ($1,$2,$3,$4)
	`, event.OrderID, event.Type, string(event.Status), event.Occurred); err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}
	return nil
}

func (r *timelineRepository) List(ctx context.Context, orderID int64) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.conn(ctx).Query(ctx, `
		SELECT order_id, event_type, status, occurred_at
		FROM order_timeline_events
		WHERE order_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var (
			event  domain.TimelineEvent
			status string
		)
		if err := rows.Scan(&event.OrderID, &event.Type, &status, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		event.Status = domain.OrderStatus(status)
		event.Occurred = event.Occurred.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline events: %w", err)
	}
	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
