// Package broker publishes domain events to Kafka, at-least-once, via an
// outbox table so a publish failure never loses an event that already
// committed to Postgres.
package broker

import (
	"context"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/domain"
)

// Publisher sends a domain event to the broker under its topic (§4.10).
type Publisher interface {
	Publish(ctx context.Context, topicPrefix string, event domain.DomainEvent) error
	Close() error
}

// Outbox is the staging area a publisher drains from: entities stage
// each event here right after appending it to their event stream, and
// the Forwarder (separate from the write path) retries delivery until
// Kafka acknowledges it.
type Outbox interface {
	// Stage records an event as pending publication. It is called after
	// the event-log append and is not atomic with it.
	Stage(ctx context.Context, event domain.DomainEvent) error

	// PendingBatch returns up to limit unpublished events, oldest first.
	PendingBatch(ctx context.Context, limit int) ([]domain.DomainEvent, error)

	// MarkPublished records that an event was successfully delivered.
	MarkPublished(ctx context.Context, eventID uuid.UUID) error
}
