package broker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attaboy/ledger/internal/domain"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.DomainEvent
	fail      bool
}

func (f *fakePublisher) Publish(ctx context.Context, prefix string, event domain.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return assertErr{}
	}
	f.published = append(f.published, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type assertErr struct{}

func (assertErr) Error() string { return "publish failed" }

func TestForwarderPublishesAndMarksPending(t *testing.T) {
	outbox := NewMemoryOutbox()
	pub := &fakePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	event := domain.DomainEvent{
		ID:             uuid.New(),
		Timestamp:      time.Now(),
		AggregateID:    "bet-1",
		AggregateClass: domain.AggregateBet,
		Type:           domain.EventBetPlacedEvent,
		Payload:        []byte(`{}`),
	}
	require.NoError(t, outbox.Stage(context.Background(), event))

	fwd := NewForwarder(outbox, pub, "ledger", logger)
	require.NoError(t, fwd.forwardOnce(context.Background()))

	pub.mu.Lock()
	assert.Len(t, pub.published, 1)
	pub.mu.Unlock()

	pending, err := outbox.PendingBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestForwarderRetriesOnPublishFailure(t *testing.T) {
	outbox := NewMemoryOutbox()
	pub := &fakePublisher{fail: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	event := domain.DomainEvent{ID: uuid.New(), AggregateID: "bet-2", Timestamp: time.Now(), Payload: []byte(`{}`)}
	require.NoError(t, outbox.Stage(context.Background(), event))

	fwd := NewForwarder(outbox, pub, "ledger", logger)
	require.NoError(t, fwd.forwardOnce(context.Background()))

	pending, err := outbox.PendingBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "failed publish must stay pending for the next tick")
}
