package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attaboy/ledger/internal/domain"
)

// PostgresOutbox stages events in a `ledger_outbox` table. Each Stage is
// its own statement on the pool, issued after the entity's event-log
// append; it does not share a database transaction with that append.
type PostgresOutbox struct {
	pool *pgxpool.Pool
}

// NewPostgresOutbox creates a Postgres-backed outbox.
func NewPostgresOutbox(pool *pgxpool.Pool) *PostgresOutbox {
	return &PostgresOutbox{pool: pool}
}

// Stage implements Outbox.
func (o *PostgresOutbox) Stage(ctx context.Context, event domain.DomainEvent) error {
	_, err := o.pool.Exec(ctx, `
		INSERT INTO ledger_outbox (event_id, aggregate_id, aggregate_class, event_type, payload, occurred_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL)`,
		event.ID, event.AggregateID, event.AggregateClass, event.Type, []byte(event.Payload), event.Timestamp)
	if err != nil {
		return fmt.Errorf("stage outbox event: %w", err)
	}
	return nil
}

// PendingBatch implements Outbox.
func (o *PostgresOutbox) PendingBatch(ctx context.Context, limit int) ([]domain.DomainEvent, error) {
	rows, err := o.pool.Query(ctx, `
		SELECT event_id, aggregate_id, aggregate_class, event_type, payload, occurred_at
		FROM ledger_outbox
		WHERE published_at IS NULL
		ORDER BY occurred_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var events []domain.DomainEvent
	for rows.Next() {
		var e domain.DomainEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateClass, &e.Type, &payload, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkPublished implements Outbox.
func (o *PostgresOutbox) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	_, err := o.pool.Exec(ctx, `UPDATE ledger_outbox SET published_at = $2 WHERE event_id = $1`, eventID, time.Now())
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
