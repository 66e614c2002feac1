package broker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/domain"
)

// MemoryOutbox is an in-process Outbox for tests and single-process runs
// where no Postgres-backed durability is required.
type MemoryOutbox struct {
	mu        sync.Mutex
	pending   []domain.DomainEvent
	published map[uuid.UUID]bool
}

// NewMemoryOutbox creates an empty in-memory outbox.
func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{published: make(map[uuid.UUID]bool)}
}

// Stage implements Outbox.
func (o *MemoryOutbox) Stage(ctx context.Context, event domain.DomainEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, event)
	return nil
}

// PendingBatch implements Outbox.
func (o *MemoryOutbox) PendingBatch(ctx context.Context, limit int) ([]domain.DomainEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []domain.DomainEvent
	for _, e := range o.pending {
		if o.published[e.ID] {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MarkPublished implements Outbox.
func (o *MemoryOutbox) MarkPublished(ctx context.Context, eventID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.published[eventID] = true
	return nil
}
