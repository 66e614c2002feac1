package odds

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

func newTestService() *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := actor.NewRegistry(logger)
	store := eventlog.NewMemoryStore()
	outbox := broker.NewMemoryOutbox()
	return NewService(registry, store, outbox)
}

func TestInitializeMarketSetsCurrentPrices(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()

	snap, err := s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{
		"home": decimal.NewFromFloat(1.80),
		"away": decimal.NewFromFloat(2.10),
	}, "trader")
	require.NoError(t, err)
	assert.True(t, snap.Selections["home"].Decimal.Equal(decimal.NewFromFloat(1.80)))
	assert.True(t, snap.Selections["away"].Decimal.Equal(decimal.NewFromFloat(2.10)))
	assert.False(t, snap.IsSuspended)
}

func TestInitializeMarketFailsOnSecondCall(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()

	_, err := s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.80)}, "trader")
	require.NoError(t, err)

	_, err = s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.90)}, "trader")
	require.Error(t, err)
}

func TestInitializeMarketRejectsNonPositiveOdds(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()

	_, err := s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.Zero}, "trader")
	require.Error(t, err)
}

func TestUpdateOddsFailsBeforeInitialization(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()

	_, err := s.UpdateOdds(ctx, marketID, domain.UpdateOddsRequest{
		MarketID:      marketID,
		SelectionOdds: map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.80)},
		Source:        "trader",
	})
	require.Error(t, err)
}

func TestUpdateOddsRejectsNonPositivePrice(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()

	_, err := s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.80)}, "trader")
	require.NoError(t, err)

	_, err = s.UpdateOdds(ctx, marketID, domain.UpdateOddsRequest{
		MarketID:      marketID,
		SelectionOdds: map[string]decimal.Decimal{"home": decimal.NewFromFloat(-1)},
		Source:        "trader",
	})
	require.Error(t, err)
}

func TestUpdateOddsFailsWhenSuspended(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()

	_, err := s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.80)}, "trader")
	require.NoError(t, err)

	_, err = s.Suspend(ctx, marketID, "investigation")
	require.NoError(t, err)

	_, err = s.UpdateOdds(ctx, marketID, domain.UpdateOddsRequest{
		MarketID:      marketID,
		SelectionOdds: map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.90)},
		Source:        "trader",
	})
	require.Error(t, err)
}

func TestUpdateOddsAutoSuspendsOnVolatilityBreach(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()

	_, err := s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.50)}, "trader")
	require.NoError(t, err)

	// A huge swing in a single update should push volatility past the
	// extreme threshold and trigger an automatic suspension.
	snap, err := s.UpdateOdds(ctx, marketID, domain.UpdateOddsRequest{
		MarketID:      marketID,
		SelectionOdds: map[string]decimal.Decimal{"home": decimal.NewFromFloat(15.00)},
		Source:        "trader",
	})
	require.NoError(t, err)
	assert.True(t, snap.IsSuspended)
	assert.Equal(t, domain.VolatilityExtreme, snap.VolatilityLevel)
}

func TestManualSuspendAndResume(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()

	_, err := s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.90)}, "trader")
	require.NoError(t, err)

	snap, err := s.Suspend(ctx, marketID, "trader request")
	require.NoError(t, err)
	assert.True(t, snap.IsSuspended)
	assert.Equal(t, "trader request", snap.SuspensionReason)

	// Resuming an already-resumed market is a precondition failure.
	_, err = s.Resume(ctx, marketID, "back online")
	require.NoError(t, err)

	_, err = s.Resume(ctx, marketID, "again")
	require.Error(t, err)
}

func TestLockAndUnlockSelection(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()
	betID := uuid.New()

	_, err := s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.95)}, "trader")
	require.NoError(t, err)

	odds, err := s.LockSelection(ctx, marketID, "home", betID)
	require.NoError(t, err)
	assert.True(t, odds.Decimal.Equal(decimal.NewFromFloat(1.95)))

	err = s.UnlockSelection(ctx, marketID, "home", betID)
	require.NoError(t, err)

	_, err = s.LockSelection(ctx, marketID, "unknown-selection", betID)
	require.Error(t, err)
}

func TestLockSelectionFailsWhenSuspended(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	marketID := uuid.New().String()
	betID := uuid.New()

	_, err := s.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.95)}, "trader")
	require.NoError(t, err)

	_, err = s.Suspend(ctx, marketID, "investigation")
	require.NoError(t, err)

	_, err = s.LockSelection(ctx, marketID, "home", betID)
	require.Error(t, err)
}

func TestOddsActivationReplaysEventStream(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := eventlog.NewMemoryStore()
	outbox := broker.NewMemoryOutbox()
	marketID := uuid.New().String()
	ctx := context.Background()

	registry1 := actor.NewRegistry(logger)
	s1 := NewService(registry1, store, outbox)
	_, err := s1.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.20)}, "trader")
	require.NoError(t, err)
	registry1.Close()

	registry2 := actor.NewRegistry(logger)
	s2 := NewService(registry2, store, outbox)
	defer registry2.Close()

	snap, err := s2.GetSnapshot(ctx, marketID)
	require.NoError(t, err)
	assert.True(t, snap.Selections["home"].Decimal.Equal(decimal.NewFromFloat(2.20)), "fresh activation must replay persisted events")
}
