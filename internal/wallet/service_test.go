package wallet

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
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

func TestWalletDepositAndWithdraw(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	result, err := s.Deposit(ctx, userID, domain.DepositParams{Amount: domain.MustMoney(10000, "USD"), ReferenceID: "dep-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), result.Snapshot.Balance.Amount())
	assert.False(t, result.Idempotent)

	result, err = s.Withdraw(ctx, userID, domain.WithdrawParams{Amount: domain.MustMoney(4000, "USD"), ReferenceID: "wd-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), result.Snapshot.Balance.Amount())
}

func TestWalletWithdrawInsufficientFunds(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	_, err := s.Deposit(ctx, userID, domain.DepositParams{Amount: domain.MustMoney(1000, "USD"), ReferenceID: "dep-1"})
	require.NoError(t, err)

	_, err = s.Withdraw(ctx, userID, domain.WithdrawParams{Amount: domain.MustMoney(5000, "USD"), ReferenceID: "wd-1"})
	require.Error(t, err)
}

func TestWalletDepositIsIdempotent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	first, err := s.Deposit(ctx, userID, domain.DepositParams{Amount: domain.MustMoney(1000, "USD"), ReferenceID: "dep-1"})
	require.NoError(t, err)
	assert.False(t, first.Idempotent)

	second, err := s.Deposit(ctx, userID, domain.DepositParams{Amount: domain.MustMoney(1000, "USD"), ReferenceID: "dep-1"})
	require.NoError(t, err)
	assert.True(t, second.Idempotent)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)

	snap, err := s.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), snap.Balance.Amount(), "idempotent replay must not double-apply")
}

func TestWalletReserveCommitRelease(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	userID := uuid.New()
	betID := uuid.New()

	_, err := s.Deposit(ctx, userID, domain.DepositParams{Amount: domain.MustMoney(10000, "USD"), ReferenceID: "dep-1"})
	require.NoError(t, err)

	result, err := s.Reserve(ctx, userID, domain.ReserveParams{Amount: domain.MustMoney(3000, "USD"), BetID: betID, ReferenceID: "res-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), result.Snapshot.Reserved.Amount())
	assert.Equal(t, int64(7000), result.Snapshot.Available.Amount())

	// Duplicate reservation for the same bet must fail.
	_, err = s.Reserve(ctx, userID, domain.ReserveParams{Amount: domain.MustMoney(1000, "USD"), BetID: betID, ReferenceID: "res-2"})
	require.Error(t, err)

	result, err = s.CommitReservation(ctx, userID, domain.CommitReservationParams{BetID: betID, ReferenceID: "commit-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Snapshot.Reserved.Amount())
	assert.Equal(t, int64(7000), result.Snapshot.Balance.Amount())
}

func TestWalletReleaseReservation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	userID := uuid.New()
	betID := uuid.New()

	_, err := s.Deposit(ctx, userID, domain.DepositParams{Amount: domain.MustMoney(10000, "USD"), ReferenceID: "dep-1"})
	require.NoError(t, err)

	_, err = s.Reserve(ctx, userID, domain.ReserveParams{Amount: domain.MustMoney(3000, "USD"), BetID: betID, ReferenceID: "res-1"})
	require.NoError(t, err)

	result, err := s.ReleaseReservation(ctx, userID, domain.ReleaseReservationParams{BetID: betID, ReferenceID: "rel-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Snapshot.Reserved.Amount())
	assert.Equal(t, int64(10000), result.Snapshot.Balance.Amount())
}

func TestWalletPayoutAndReversalIdempotentBySagaAndBet(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	userID := uuid.New()
	betID := uuid.New()
	sagaID := uuid.New()

	result, err := s.ProcessPayout(ctx, userID, domain.ProcessPayoutParams{Amount: domain.MustMoney(5000, "USD"), BetID: betID, SagaID: sagaID})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), result.Snapshot.Balance.Amount())

	// Saga retry with same (betId, sagaId) must not double-pay.
	result, err = s.ProcessPayout(ctx, userID, domain.ProcessPayoutParams{Amount: domain.MustMoney(5000, "USD"), BetID: betID, SagaID: sagaID})
	require.NoError(t, err)
	assert.True(t, result.Idempotent)
	assert.Equal(t, int64(5000), result.Snapshot.Balance.Amount())

	result, err = s.ReversePayout(ctx, userID, domain.ReversePayoutParams{Amount: domain.MustMoney(5000, "USD"), BetID: betID, SagaID: sagaID, Reason: "compensation"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Snapshot.Balance.Amount())
}

func TestWalletActivationReplaysEventStream(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := eventlog.NewMemoryStore()
	outbox := broker.NewMemoryOutbox()
	userID := uuid.New()
	ctx := context.Background()

	registry1 := actor.NewRegistry(logger)
	s1 := NewService(registry1, store, outbox)
	_, err := s1.Deposit(ctx, userID, domain.DepositParams{Amount: domain.MustMoney(2500, "USD"), ReferenceID: "dep-1"})
	require.NoError(t, err)
	registry1.Close()

	registry2 := actor.NewRegistry(logger)
	s2 := NewService(registry2, store, outbox)
	defer registry2.Close()

	snap, err := s2.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), snap.Balance.Amount(), "fresh activation must replay persisted events")
}
