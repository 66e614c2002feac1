package bet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attaboy/ledger/internal/domain"
)

// PlaceResult is the outcome of a placeBet call (§4.6).
type PlaceResult struct {
	Bet        domain.Bet
	Idempotent bool
}

// SettleResult is the outcome of a settleBet call (§4.6, §4.9).
type SettleResult struct {
	Bet        domain.Bet
	Idempotent bool
}

// CashOutResult is the outcome of a cashOut call (§4.6).
type CashOutResult struct {
	Payout     domain.Money
	Fees       domain.Money
	CashedOutAt time.Time
}

func reservationReference(betID uuid.UUID, suffix string) string {
	return "bet-" + suffix + ":" + betID.String()
}

// PlaceBet runs the reserve-then-lock-then-commit protocol (§4.6). The bet
// is idempotent on betID: a second call against an already-decided bet
// returns the stored outcome rather than re-running the protocol. If the
// entity crashed after betPlaced was recorded but before a decision was
// reached, reactivation leaves the bet Pending rather than decided; a
// retry resumes the odds-check/reserve/lock/accept-or-reject sequence
// instead of treating Pending as a finished outcome (§4.1).
func (e *entity) PlaceBet(ctx context.Context, req domain.PlaceBetRequest) (PlaceResult, error) {
	if e.placementDecided() {
		return PlaceResult{Bet: e.state, Idempotent: true}, nil
	}

	resuming := e.placed()
	if !resuming {
		placed := buildEvent(e.betID, domain.EventBetPlacedEvent, placedPayload{
			UserID:         req.UserID,
			EventID:        req.EventID,
			MarketID:       req.MarketID,
			SelectionID:    req.SelectionID,
			Amount:         req.Amount,
			AcceptableOdds: req.AcceptableOdds,
			Type:           req.Type,
		}, time.Now())
		if err := e.appendAndStage(ctx, []domain.DomainEvent{placed}); err != nil {
			return PlaceResult{}, err
		}
	}

	// Resume using the durably-recorded request, not the caller's req: on
	// a retry after a crash they must be identical, and the persisted
	// values are authoritative regardless.
	userID := e.state.UserID
	marketID := e.state.MarketID
	selectionID := e.state.SelectionID
	amount := e.state.Amount
	acceptableOdds := e.state.Odds

	snapshot, err := e.odds.GetSnapshot(ctx, marketID.String())
	if err != nil {
		return e.rejectPlacement(ctx, "market odds unavailable")
	}
	selection, ok := snapshot.Selections[selectionID]
	if !ok {
		return e.rejectPlacement(ctx, "unknown selection")
	}
	if selection.Decimal.LessThan(acceptableOdds) {
		return e.rejectPlacement(ctx, "oddsChanged")
	}

	reserveRef := reservationReference(e.betID, "reserve")
	if _, err := e.wallet.Reserve(ctx, userID, domain.ReserveParams{
		Amount: amount, BetID: e.betID, ReferenceID: reserveRef,
	}); err != nil {
		return e.rejectPlacement(ctx, "insufficientFunds")
	}

	lockedOdds, err := e.odds.LockSelection(ctx, marketID.String(), selectionID, e.betID)
	if err != nil {
		if _, relErr := e.wallet.ReleaseReservation(ctx, userID, domain.ReleaseReservationParams{
			BetID: e.betID, ReferenceID: reservationReference(e.betID, "release"),
		}); relErr != nil {
			return PlaceResult{}, relErr
		}
		return e.rejectPlacement(ctx, "oddsChanged")
	}

	accepted := buildEvent(e.betID, domain.EventBetAcceptedEvent, acceptedPayload{Odds: lockedOdds.Decimal}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{accepted}); err != nil {
		return PlaceResult{}, err
	}
	return PlaceResult{Bet: e.state}, nil
}

func (e *entity) rejectPlacement(ctx context.Context, reason string) (PlaceResult, error) {
	rejected := buildEvent(e.betID, domain.EventBetRejectedEvent, rejectedPayload{Reason: reason}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{rejected}); err != nil {
		return PlaceResult{}, err
	}
	return PlaceResult{Bet: e.state}, nil
}

// VoidBet cancels a still-open bet and releases its reservation (§4.6).
func (e *entity) VoidBet(ctx context.Context, reason string) (domain.Bet, error) {
	if !e.state.CanBeVoided() {
		return domain.Bet{}, domain.ErrPrecondition("bet cannot be voided in status " + string(e.state.Status))
	}
	if _, err := e.wallet.ReleaseReservation(ctx, e.state.UserID, domain.ReleaseReservationParams{
		BetID: e.betID, ReferenceID: reservationReference(e.betID, "release"),
	}); err != nil {
		return domain.Bet{}, err
	}
	settled := buildEvent(e.betID, domain.EventBetSettledEvent, settledPayload{
		Status: domain.BetStatusVoid, Reason: reason,
	}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{settled}); err != nil {
		return domain.Bet{}, err
	}
	return e.state, nil
}

// cashOutSagaID derives a deterministic, stable identifier so a cash-out's
// wallet payout is keyed the same way a saga-driven settlement is,
// reusing the wallet's (betId, sagaId) idempotency path (§4.4, §4.6).
func cashOutSagaID(betID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("cashout:"+betID.String()))
}

// CashOut settles an accepted bet early at the current market price, net
// of the house's cash-out fee (§4.6).
func (e *entity) CashOut(ctx context.Context) (CashOutResult, error) {
	if !e.state.CanBeCashedOut() {
		return CashOutResult{}, domain.ErrPrecondition("bet cannot be cashed out in status " + string(e.state.Status))
	}
	snapshot, err := e.odds.GetSnapshot(ctx, e.state.MarketID.String())
	if err != nil {
		return CashOutResult{}, err
	}
	current, ok := snapshot.Selections[e.state.SelectionID]
	if !ok {
		return CashOutResult{}, domain.ErrNotFound("selection", e.state.SelectionID)
	}

	grossValue, err := multiplyMoneyByDecimal(e.state.Amount, current.Decimal)
	if err != nil {
		return CashOutResult{}, err
	}
	netFactor := decimal.NewFromInt(1).Sub(domain.CashOutFeeRate)
	netPayout, err := multiplyMoneyByDecimal(grossValue, netFactor)
	if err != nil {
		return CashOutResult{}, err
	}
	fees, err := grossValue.Subtract(netPayout)
	if err != nil {
		return CashOutResult{}, err
	}

	sagaID := cashOutSagaID(e.betID)
	if _, err := e.wallet.CommitReservation(ctx, e.state.UserID, domain.CommitReservationParams{
		BetID: e.betID, ReferenceID: reservationReference(e.betID, "commit"),
	}); err != nil {
		return CashOutResult{}, err
	}
	if _, err := e.wallet.ProcessPayout(ctx, e.state.UserID, domain.ProcessPayoutParams{
		Amount: netPayout, BetID: e.betID, SagaID: sagaID,
	}); err != nil {
		return CashOutResult{}, err
	}

	now := time.Now()
	cashedOut := buildEvent(e.betID, domain.EventBetCashedOutEvent, cashedOutPayload{Payout: netPayout}, now)
	if err := e.appendAndStage(ctx, []domain.DomainEvent{cashedOut}); err != nil {
		return CashOutResult{}, err
	}
	return CashOutResult{Payout: netPayout, Fees: fees, CashedOutAt: now}, nil
}

// SettleBet applies the settlement saga's outcome for this bet, idempotent
// on sagaID so saga retries never double-credit (§4.6, §4.9).
func (e *entity) SettleBet(ctx context.Context, finalStatus domain.BetStatus, payout *domain.Money, sagaID uuid.UUID) (SettleResult, error) {
	if e.state.SettledBySagaID != nil && *e.state.SettledBySagaID == sagaID {
		return SettleResult{Bet: e.state, Idempotent: true}, nil
	}
	if e.state.IsSettled() {
		return SettleResult{}, domain.ErrPrecondition("bet already settled in status " + string(e.state.Status))
	}

	switch finalStatus {
	case domain.BetStatusWon:
		if _, err := e.wallet.CommitReservation(ctx, e.state.UserID, domain.CommitReservationParams{
			BetID: e.betID, ReferenceID: reservationReference(e.betID, "commit"),
		}); err != nil {
			return SettleResult{}, err
		}
		if payout != nil {
			if _, err := e.wallet.ProcessPayout(ctx, e.state.UserID, domain.ProcessPayoutParams{
				Amount: *payout, BetID: e.betID, SagaID: sagaID,
			}); err != nil {
				return SettleResult{}, err
			}
		}
	case domain.BetStatusLost:
		if _, err := e.wallet.CommitReservation(ctx, e.state.UserID, domain.CommitReservationParams{
			BetID: e.betID, ReferenceID: reservationReference(e.betID, "commit"),
		}); err != nil {
			return SettleResult{}, err
		}
	case domain.BetStatusVoid:
		if _, err := e.wallet.ReleaseReservation(ctx, e.state.UserID, domain.ReleaseReservationParams{
			BetID: e.betID, ReferenceID: reservationReference(e.betID, "release"),
		}); err != nil {
			return SettleResult{}, err
		}
	default:
		return SettleResult{}, domain.ErrValidation("unsupported settlement status " + string(finalStatus))
	}

	settled := buildEvent(e.betID, domain.EventBetSettledEvent, settledPayload{
		Status: finalStatus, Payout: payout, SagaID: &sagaID,
	}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{settled}); err != nil {
		return SettleResult{}, err
	}
	return SettleResult{Bet: e.state}, nil
}

// ReverseSettlement undoes a settlement applied by a saga attempt that
// later failed, per the saga's compensation path (§4.9). A bet settled Won
// has its payout clawed back through the wallet's reversal path; a bet
// settled Lost or Void only has its own status rolled back. The stake a
// Won or Lost settlement committed, and the reservation a Void settlement
// released, are not restored.
func (e *entity) ReverseSettlement(ctx context.Context, reason string) (domain.Bet, error) {
	if !e.state.IsSettled() {
		return domain.Bet{}, domain.ErrPrecondition("bet is not settled, nothing to reverse")
	}
	if e.state.Status == domain.BetStatusWon && e.state.Payout != nil && e.state.SettledBySagaID != nil {
		if _, err := e.wallet.ReversePayout(ctx, e.state.UserID, domain.ReversePayoutParams{
			Amount: *e.state.Payout, BetID: e.betID, SagaID: *e.state.SettledBySagaID, Reason: reason,
		}); err != nil {
			return domain.Bet{}, err
		}
	}
	reversed := buildEvent(e.betID, reversedEvent, reversedPayload{Reason: reason}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{reversed}); err != nil {
		return domain.Bet{}, err
	}
	return e.state, nil
}

// GetBetHistory returns the reconstructed per-transition snapshots (§4.6).
func (e *entity) GetBetHistory(ctx context.Context) ([]domain.BetHistoryEntry, error) {
	return e.history, nil
}

// Snapshot returns the bet's current full state.
func (e *entity) Snapshot(ctx context.Context) (domain.Bet, error) {
	return e.state, nil
}

// multiplyMoneyByDecimal scales a Money amount by an arbitrary decimal
// factor, rounding to the nearest cent, for odds/fee math the fixed-ratio
// Money.MultiplyByRatio can't express.
func multiplyMoneyByDecimal(m domain.Money, factor decimal.Decimal) (domain.Money, error) {
	amount := decimal.NewFromInt(m.Amount())
	product := amount.Mul(factor).Round(0)
	return domain.NewMoney(product.IntPart(), m.Currency())
}
