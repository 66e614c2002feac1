package bet

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
	"github.com/attaboy/ledger/internal/odds"
	"github.com/attaboy/ledger/internal/wallet"
)

type harness struct {
	registry *actor.Registry
	wallet   *wallet.Service
	odds     *odds.Service
	bet      *Service
	index    *IndexService
}

func newHarness() *harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := actor.NewRegistry(logger)
	store := eventlog.NewMemoryStore()
	outbox := broker.NewMemoryOutbox()

	walletSvc := wallet.NewService(registry, store, outbox)
	oddsSvc := odds.NewService(registry, store, outbox)
	betSvc := NewService(registry, store, outbox, walletSvc, oddsSvc)
	indexSvc := NewIndexService(registry, store, outbox, betSvc)
	return &harness{registry: registry, wallet: walletSvc, odds: oddsSvc, bet: betSvc, index: indexSvc}
}

func (h *harness) fundUser(t *testing.T, ctx context.Context, userID uuid.UUID, cents int64) {
	t.Helper()
	_, err := h.wallet.Deposit(ctx, userID, domain.DepositParams{Amount: domain.MustMoney(cents, "USD"), ReferenceID: "seed-" + userID.String()})
	require.NoError(t, err)
}

// initMarket performs the mandatory first odds call for marketID (§4.5).
func (h *harness) initMarket(t *testing.T, ctx context.Context, marketID, selection string, price float64) {
	t.Helper()
	_, err := h.odds.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{selection: decimal.NewFromFloat(price)}, "trader")
	require.NoError(t, err)
}

// priceMarket moves selection's price on an already-initialized market.
func (h *harness) priceMarket(t *testing.T, ctx context.Context, marketID, selection string, price float64) {
	t.Helper()
	_, err := h.odds.UpdateOdds(ctx, marketID, domain.UpdateOddsRequest{
		MarketID:      marketID,
		SelectionOdds: map[string]decimal.Decimal{selection: decimal.NewFromFloat(price)},
		Source:        "trader",
	})
	require.NoError(t, err)
}

func newPlaceRequest(userID uuid.UUID, marketID, selection string, stakeCents int64, acceptableOdds float64) (uuid.UUID, domain.PlaceBetRequest) {
	betID := uuid.New()
	req := domain.PlaceBetRequest{
		BetID:          betID,
		UserID:         userID,
		EventID:        uuid.New(),
		MarketID:       uuid.MustParse(marketID),
		SelectionID:    selection,
		Amount:         domain.MustMoney(stakeCents, "USD"),
		AcceptableOdds: decimal.NewFromFloat(acceptableOdds),
		Type:           domain.BetTypeSingle,
	}
	return betID, req
}

func TestPlaceBetAcceptsWhenOddsWithinTolerance(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()

	h.fundUser(t, ctx, userID, 10000)
	h.initMarket(t, ctx, marketID, "home", 2.00)

	betID, req := newPlaceRequest(userID, marketID, "home", 3000, 1.80)
	result, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.Idempotent)
	assert.Equal(t, domain.BetStatusAccepted, result.Bet.Status)
	assert.True(t, result.Bet.Odds.Equal(decimal.NewFromFloat(2.00)))

	snap, err := h.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), snap.Available.Amount())

	bet, err := h.bet.GetBet(ctx, betID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusAccepted, bet.Status)
}

func TestPlaceBetRejectsWhenOddsMovedPastAcceptable(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()

	h.fundUser(t, ctx, userID, 10000)
	h.initMarket(t, ctx, marketID, "home", 1.50)

	_, req := newPlaceRequest(userID, marketID, "home", 3000, 1.80)
	result, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusRejected, result.Bet.Status)
	assert.Equal(t, "oddsChanged", result.Bet.RejectionReason)

	// Funds must not remain reserved after a rejected placement.
	snap, err := h.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), snap.Available.Amount())
}

func TestPlaceBetRejectsOnInsufficientFunds(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()

	h.initMarket(t, ctx, marketID, "home", 2.00)

	_, req := newPlaceRequest(userID, marketID, "home", 3000, 1.80)
	result, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusRejected, result.Bet.Status)
	assert.Equal(t, "insufficientFunds", result.Bet.RejectionReason)
}

func TestPlaceBetIsIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()

	h.fundUser(t, ctx, userID, 10000)
	h.initMarket(t, ctx, marketID, "home", 2.00)

	_, req := newPlaceRequest(userID, marketID, "home", 3000, 1.80)
	first, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)

	second, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Idempotent)
	assert.Equal(t, first.Bet.Status, second.Bet.Status)

	snap, err := h.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), snap.Available.Amount(), "replayed placement must not reserve twice")
}

func TestVoidBetReleasesReservation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()

	h.fundUser(t, ctx, userID, 10000)
	h.initMarket(t, ctx, marketID, "home", 2.00)
	betID, req := newPlaceRequest(userID, marketID, "home", 3000, 1.80)
	_, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)

	voided, err := h.bet.VoidBet(ctx, betID, "trader cancelled market")
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusVoid, voided.Status)
	assert.True(t, voided.IsSettled())

	snap, err := h.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), snap.Balance.Amount())
	assert.Equal(t, int64(0), snap.Reserved.Amount())
}

func TestCashOutAppliesHouseFee(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()

	h.fundUser(t, ctx, userID, 10000)
	h.initMarket(t, ctx, marketID, "home", 2.00)
	betID, req := newPlaceRequest(userID, marketID, "home", 3000, 1.80)
	_, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)

	// Odds drift before cash-out; cash-out value uses the current price.
	h.priceMarket(t, ctx, marketID, "home", 2.50)

	result, err := h.bet.CashOut(ctx, betID)
	require.NoError(t, err)
	// gross = 3000 * 2.50 = 7500; fee = 5% = 375; net = 7125.
	assert.Equal(t, int64(7125), result.Payout.Amount())
	assert.Equal(t, int64(375), result.Fees.Amount())

	bet, err := h.bet.GetBet(ctx, betID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusCashedOut, bet.Status)

	snap, err := h.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	// 10000 - 3000 stake spent + 7125 payout = 14125.
	assert.Equal(t, int64(14125), snap.Balance.Amount())
}

func TestSettleBetWonCreditsPayoutAndIsSagaIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()
	sagaID := uuid.New()

	h.fundUser(t, ctx, userID, 10000)
	h.initMarket(t, ctx, marketID, "home", 2.00)
	betID, req := newPlaceRequest(userID, marketID, "home", 3000, 1.80)
	_, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)

	payout := domain.MustMoney(6000, "USD")
	result, err := h.bet.SettleBet(ctx, betID, domain.BetStatusWon, &payout, sagaID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusWon, result.Bet.Status)
	assert.False(t, result.Idempotent)

	// Saga retry with the same sagaID must not re-credit.
	again, err := h.bet.SettleBet(ctx, betID, domain.BetStatusWon, &payout, sagaID)
	require.NoError(t, err)
	assert.True(t, again.Idempotent)

	snap, err := h.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	// 10000 - 3000 stake spent + 6000 payout = 13000.
	assert.Equal(t, int64(13000), snap.Balance.Amount())
}

func TestReverseSettlementClawsBackWonPayout(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()
	sagaID := uuid.New()

	h.fundUser(t, ctx, userID, 10000)
	h.initMarket(t, ctx, marketID, "home", 2.00)
	betID, req := newPlaceRequest(userID, marketID, "home", 3000, 1.80)
	_, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)

	payout := domain.MustMoney(6000, "USD")
	_, err = h.bet.SettleBet(ctx, betID, domain.BetStatusWon, &payout, sagaID)
	require.NoError(t, err)

	reversed, err := h.bet.ReverseSettlement(ctx, betID, "saga compensation")
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusAccepted, reversed.Status)
	assert.Nil(t, reversed.Payout)
	assert.Nil(t, reversed.SettledAt)

	snap, err := h.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	// payout clawed back: 10000 - 3000 stake spent = 7000.
	assert.Equal(t, int64(7000), snap.Balance.Amount())
}

func TestSettleBetLostCommitsStakeWithoutPayout(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()
	sagaID := uuid.New()

	h.fundUser(t, ctx, userID, 10000)
	h.initMarket(t, ctx, marketID, "home", 2.00)
	betID, req := newPlaceRequest(userID, marketID, "home", 3000, 1.80)
	_, err := h.bet.PlaceBet(ctx, req)
	require.NoError(t, err)

	result, err := h.bet.SettleBet(ctx, betID, domain.BetStatusLost, nil, sagaID)
	require.NoError(t, err)
	assert.Equal(t, domain.BetStatusLost, result.Bet.Status)

	snap, err := h.wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), snap.Balance.Amount())
	assert.Equal(t, int64(0), snap.Reserved.Amount())
}

func TestBetIndexTracksUserBets(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	userID := uuid.New()
	marketID := uuid.New().String()

	h.fundUser(t, ctx, userID, 10000)
	h.initMarket(t, ctx, marketID, "home", 2.00)

	betID1, req1 := newPlaceRequest(userID, marketID, "home", 1000, 1.80)
	_, err := h.bet.PlaceBet(ctx, req1)
	require.NoError(t, err)
	require.NoError(t, h.index.AddBet(ctx, userID, betID1))

	betID2, req2 := newPlaceRequest(userID, marketID, "home", 1000, 1.80)
	_, err = h.bet.PlaceBet(ctx, req2)
	require.NoError(t, err)
	require.NoError(t, h.index.AddBet(ctx, userID, betID2))

	has, err := h.index.HasBet(ctx, userID, betID1)
	require.NoError(t, err)
	assert.True(t, has)

	bets, err := h.index.GetUserBets(ctx, userID, 0)
	require.NoError(t, err)
	assert.Len(t, bets, 2)

	active, err := h.index.GetActiveBets(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

// TestPlaceBetResumesAfterCrashBeforeDecision simulates a crash between the
// betPlaced event and the terminal accept/reject decision by appending only
// betPlaced to the durable stream directly, then reactivating against a
// fresh registry. A retry of placeBet must resume the odds-check/reserve/
// lock/accept sequence rather than treat the still-Pending bet as a
// finished, idempotent outcome (§4.1, §4.6).
func TestPlaceBetResumesAfterCrashBeforeDecision(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := eventlog.NewMemoryStore()
	outbox := broker.NewMemoryOutbox()
	ctx := context.Background()

	userID := uuid.New()
	marketID := uuid.New().String()
	betID := uuid.New()

	registry1 := actor.NewRegistry(logger)
	walletSvc1 := wallet.NewService(registry1, store, outbox)
	oddsSvc1 := odds.NewService(registry1, store, outbox)
	_ = NewService(registry1, store, outbox, walletSvc1, oddsSvc1)

	_, err := walletSvc1.Deposit(ctx, userID, domain.DepositParams{Amount: domain.MustMoney(10000, "USD"), ReferenceID: "seed"})
	require.NoError(t, err)
	_, err = oddsSvc1.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)}, "trader")
	require.NoError(t, err)

	req := domain.PlaceBetRequest{
		BetID: betID, UserID: userID, EventID: uuid.New(), MarketID: uuid.MustParse(marketID),
		SelectionID: "home", Amount: domain.MustMoney(3000, "USD"),
		AcceptableOdds: decimal.NewFromFloat(1.80), Type: domain.BetTypeSingle,
	}
	placedEvt := buildEvent(betID, domain.EventBetPlacedEvent, placedPayload{
		UserID: req.UserID, EventID: req.EventID, MarketID: req.MarketID, SelectionID: req.SelectionID,
		Amount: req.Amount, AcceptableOdds: req.AcceptableOdds, Type: req.Type,
	}, time.Now())
	_, err = store.Append(ctx, "bet:"+betID.String(), -1, []domain.DomainEvent{placedEvt})
	require.NoError(t, err)
	registry1.Close()

	registry2 := actor.NewRegistry(logger)
	defer registry2.Close()
	walletSvc2 := wallet.NewService(registry2, store, outbox)
	oddsSvc2 := odds.NewService(registry2, store, outbox)
	betSvc2 := NewService(registry2, store, outbox, walletSvc2, oddsSvc2)

	stuck, err := betSvc2.GetBet(ctx, betID)
	require.NoError(t, err)
	require.Equal(t, domain.BetStatusPending, stuck.Status, "reactivation must replay only the durably-recorded betPlaced event")

	result, err := betSvc2.PlaceBet(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.Idempotent, "an undecided, still-pending bet must resume the protocol, not short-circuit")
	assert.Equal(t, domain.BetStatusAccepted, result.Bet.Status)

	snap, err := walletSvc2.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), snap.Available.Amount())
}
