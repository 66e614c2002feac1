// Package eventlog provides the append-only, versioned per-aggregate
// event stream every entity type appends its domain events to.
package eventlog

import (
	"context"

	"github.com/attaboy/ledger/internal/domain"
)

// Store is the append-only event stream backend. Append is optimistic:
// callers pass the version they last observed, and a mismatch means
// another writer raced them and the caller must re-read and retry.
type Store interface {
	// Append adds events to aggregateID's stream if its current version
	// equals expectedVersion, returning the stream's new version.
	// expectedVersion -1 means "create a new stream; it must not exist".
	Append(ctx context.Context, aggregateID string, expectedVersion int64, events []domain.DomainEvent) (int64, error)

	// Read returns the full stream for aggregateID, or
	// domain.ErrNotFound if it has never been appended to.
	Read(ctx context.Context, aggregateID string) (domain.EventStream, error)

	// Exists reports whether aggregateID has any appended events.
	Exists(ctx context.Context, aggregateID string) (bool, error)
}

// ErrVersionConflict is returned by Append when expectedVersion does not
// match the stream's actual version.
type ErrVersionConflict struct {
	AggregateID string
	Expected    int64
	Actual      int64
}

func (e *ErrVersionConflict) Error() string {
	return "eventlog: version conflict for " + e.AggregateID
}
