package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
)

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

func (r *PaymentRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM payment_outbox WHERE NOT processed ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	events := []*OutboxEvent{}
	for rows.Next() {
		var ev OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func (r *PaymentRepository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payment_outbox SET processed = TRUE, processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event processed: %w", err)
	}
	return nil
}

// GetUnpurgedPayments returns successful payments whose cart lines were never
// confirmed deleted and that have been settled for at least grace.
func (r *PaymentRepository) GetUnpurgedPayments(ctx context.Context, grace time.Duration, limit int) ([]*domain.PaymentRecord, error) {
	return r.list(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE status = 'success' AND cart_purged_at IS NULL
		   AND updated_at < NOW() - make_interval(secs => $1)
		 ORDER BY updated_at LIMIT $2`,
		grace.Seconds(), limit)
}
