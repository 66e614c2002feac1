package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/attaboy/ledger/internal/domain"
)

// MemoryStore is an in-process Store backed by a mutex-guarded map,
// suitable for tests and for single-process deployments that don't need
// durability across restarts.
type MemoryStore struct {
	mu      sync.Mutex
	streams map[string]*domain.EventStream
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{streams: make(map[string]*domain.EventStream)}
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, aggregateID string, expectedVersion int64, events []domain.DomainEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stream, ok := s.streams[aggregateID]
	if !ok {
		if expectedVersion != -1 {
			return 0, &ErrVersionConflict{AggregateID: aggregateID, Expected: expectedVersion, Actual: -1}
		}
		stream = &domain.EventStream{AggregateID: aggregateID, CreatedAt: now}
		s.streams[aggregateID] = stream
	} else if stream.Version != expectedVersion {
		return 0, &ErrVersionConflict{AggregateID: aggregateID, Expected: expectedVersion, Actual: stream.Version}
	}

	stream.Events = append(stream.Events, events...)
	stream.Version += int64(len(events))
	stream.UpdatedAt = now
	return stream.Version, nil
}

// Read implements Store.
func (s *MemoryStore) Read(ctx context.Context, aggregateID string) (domain.EventStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.streams[aggregateID]
	if !ok {
		return domain.EventStream{}, domain.ErrNotFound("eventStream", aggregateID)
	}
	cp := *stream
	cp.Events = append([]domain.DomainEvent(nil), stream.Events...)
	return cp, nil
}

// Exists implements Store.
func (s *MemoryStore) Exists(ctx context.Context, aggregateID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.streams[aggregateID]
	return ok, nil
}
