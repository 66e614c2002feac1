package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attaboy/ledger/internal/domain"
)

// PostgresStore is a Store backed by an append-only event_log table, with
// optimistic concurrency enforced by a per-aggregate version column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed event store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Append implements Store.
func (s *PostgresStore) Append(ctx context.Context, aggregateID string, expectedVersion int64, events []domain.DomainEvent) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var currentVersion int64
	err = tx.QueryRow(ctx, `SELECT version FROM event_streams WHERE aggregate_id = $1 FOR UPDATE`, aggregateID).Scan(&currentVersion)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		currentVersion = -1
	case err != nil:
		return 0, fmt.Errorf("lock stream: %w", err)
	}

	if currentVersion != expectedVersion {
		return 0, &ErrVersionConflict{AggregateID: aggregateID, Expected: expectedVersion, Actual: currentVersion}
	}

	newVersion := currentVersion
	now := time.Now()
	for _, e := range events {
		newVersion++
		if _, err := tx.Exec(ctx, `
			INSERT INTO event_log (event_id, aggregate_id, aggregate_class, stream_version, event_type, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, aggregateID, e.AggregateClass, newVersion, e.Type, []byte(e.Payload), e.Timestamp); err != nil {
			return 0, fmt.Errorf("insert event: %w", err)
		}
	}

	if currentVersion == -1 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO event_streams (aggregate_id, version, created_at, updated_at) VALUES ($1, $2, $3, $3)`,
			aggregateID, newVersion, now); err != nil {
			return 0, fmt.Errorf("create stream: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx, `
			UPDATE event_streams SET version = $2, updated_at = $3 WHERE aggregate_id = $1`,
			aggregateID, newVersion, now); err != nil {
			return 0, fmt.Errorf("update stream: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return newVersion, nil
}

// Read implements Store.
func (s *PostgresStore) Read(ctx context.Context, aggregateID string) (domain.EventStream, error) {
	var stream domain.EventStream
	stream.AggregateID = aggregateID

	err := s.pool.QueryRow(ctx, `SELECT version, created_at, updated_at FROM event_streams WHERE aggregate_id = $1`, aggregateID).
		Scan(&stream.Version, &stream.CreatedAt, &stream.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EventStream{}, domain.ErrNotFound("eventStream", aggregateID)
	}
	if err != nil {
		return domain.EventStream{}, fmt.Errorf("read stream: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT event_id, aggregate_class, event_type, payload, occurred_at
		FROM event_log WHERE aggregate_id = $1 ORDER BY stream_version ASC`, aggregateID)
	if err != nil {
		return domain.EventStream{}, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.DomainEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AggregateClass, &e.Type, &payload, &e.Timestamp); err != nil {
			return domain.EventStream{}, fmt.Errorf("scan event: %w", err)
		}
		e.AggregateID = aggregateID
		e.Payload = json.RawMessage(payload)
		stream.Events = append(stream.Events, e)
	}
	return stream, rows.Err()
}

// Exists implements Store.
func (s *PostgresStore) Exists(ctx context.Context, aggregateID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM event_streams WHERE aggregate_id = $1)`, aggregateID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return exists, nil
}
