package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bakery-service/internal/orders"
)

func insertEvent(ctx context.Context, tx *sql.Tx, e orders.Event) error {
	const q = `INSERT INTO outbox (id, event_type, aggregate_id, payload, created_at)
	VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, q, e.ID, e.Type, e.OrderID, e.Payload, e.CreatedAt); err != nil {
		return fmt.Errorf("queueing %s event: %w", e.Type, err)
	}
	return nil
}

// PendingEvents returns up to limit unpublished outbox events, oldest first.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]orders.Event, error) {
	const q = `SELECT id, event_type, aggregate_id, payload, created_at FROM outbox
	WHERE published_at IS NULL ORDER BY created_at LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("reading outbox: %w", err)
	}
	defer rows.Close()

	var out []orders.Event
	for rows.Next() {
		var e orders.Event
		if err := rows.Scan(&e.ID, &e.Type, &e.OrderID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning outbox row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET published_at = $2 WHERE id = ANY($1)`, ids, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("marking outbox published: %w", err)
	}
	return nil
}
