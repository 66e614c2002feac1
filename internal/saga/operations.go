package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/attaboy/ledger/internal/domain"
)

// betOutcome is the per-bet result computed from the saga's winning
// selection, before it's handed to bet.SettleBet (§4.9 step 2).
type betOutcome struct {
	betID  uuid.UUID
	status domain.BetStatus
	payout *domain.Money
}

// RunSettlement drives req through to completion or compensation (§4.9).
// A retry against the same sagaID after a prior run already reached
// SagaCompleted or SagaFailed returns the recorded terminal state rather
// than re-running the protocol.
func (e *entity) RunSettlement(ctx context.Context, req domain.SettlementRequest) (domain.SettlementSaga, error) {
	if e.state.Status == domain.SagaCompleted || e.state.Status == domain.SagaFailed {
		return e.state, nil
	}

	if !e.started() {
		started := buildEvent(e.sagaID, startedEvent, startedPayload{
			EventID: req.EventID, MarketID: req.MarketID, WinningSelectionID: req.WinningSelectionID,
			Voided: req.Voided, AffectedBetIDs: req.AffectedBetIDs,
		}, time.Now())
		if err := e.appendAndStage(ctx, []domain.DomainEvent{started}); err != nil {
			return domain.SettlementSaga{}, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= domain.MaxSettlementAttempts; attempt++ {
		remaining := e.pendingBetIDs()
		if len(remaining) == 0 {
			break
		}
		lastErr = e.settleBatch(ctx, remaining)
		if lastErr != nil {
			break
		}
	}

	if len(e.pendingBetIDs()) == 0 {
		completed := buildEvent(e.sagaID, domain.EventSettlementCompletedEvent, completedPayload{
			Successful: len(e.state.ProcessedBetIDs), TotalPayouts: e.state.TotalPayouts,
		}, time.Now())
		if err := e.appendAndStage(ctx, []domain.DomainEvent{completed}); err != nil {
			return domain.SettlementSaga{}, err
		}
		return e.state, nil
	}

	if err := e.compensate(ctx); err != nil {
		return domain.SettlementSaga{}, err
	}

	errMsg := "settlement attempts exhausted"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}
	failed := buildEvent(e.sagaID, domain.EventSettlementFailedEvent, failedPayload{
		Error: errMsg, FailedBetIDs: e.state.FailedBetIDs, AttemptNumber: domain.MaxSettlementAttempts,
	}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{failed}); err != nil {
		return domain.SettlementSaga{}, err
	}
	return e.state, nil
}

// pendingBetIDs returns the affected bets not yet recorded as processed.
func (e *entity) pendingBetIDs() []uuid.UUID {
	done := make(map[uuid.UUID]bool, len(e.state.ProcessedBetIDs))
	for _, id := range e.state.ProcessedBetIDs {
		done[id] = true
	}
	var pending []uuid.UUID
	for _, id := range e.state.AffectedBetIDs {
		if !done[id] {
			pending = append(pending, id)
		}
	}
	return pending
}

// settleBatch runs one settlement attempt over betIDs concurrently,
// recording a progressedEvent per bet as each finishes. Bets that fail
// with a retryable error stay pending for the next attempt; a fatal error
// is surfaced immediately so RunSettlement can stop retrying and
// compensate.
func (e *entity) settleBatch(ctx context.Context, betIDs []uuid.UUID) error {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(8)

	results := make(chan betSettleOutcome, len(betIDs))
	for _, id := range betIDs {
		id := id
		group.Go(func() error {
			outcome, err := e.settleOne(gctx, id)
			results <- betSettleOutcome{betID: id, outcome: outcome, err: err}
			return nil
		})
	}
	_ = group.Wait()
	close(results)

	var fatal error
	for r := range results {
		if r.err != nil {
			appErr := domain.AsAppError(r.err)
			if !appErr.IsRetryable() {
				fatal = r.err
			}
			if progressErr := e.recordProgress(ctx, r.betID, false, nil); progressErr != nil {
				return progressErr
			}
			continue
		}
		if progressErr := e.recordProgress(ctx, r.betID, true, r.outcome.payout); progressErr != nil {
			return progressErr
		}
	}
	return fatal
}

type betSettleOutcome struct {
	betID   uuid.UUID
	outcome betOutcome
	err     error
}

func (e *entity) recordProgress(ctx context.Context, betID uuid.UUID, succeeded bool, payout *domain.Money) error {
	p := domain.Zero(settlementCurrency)
	if payout != nil {
		p = *payout
	}
	evt := buildEvent(e.sagaID, progressedEvent, progressedPayload{BetID: betID, Succeeded: succeeded, Payout: p}, time.Now())
	return e.appendAndStage(ctx, []domain.DomainEvent{evt})
}

// settleOne computes betID's outcome from the saga's winning selection
// and applies it through the bet entity.
func (e *entity) settleOne(ctx context.Context, betID uuid.UUID) (betOutcome, error) {
	b, err := e.bets.GetBet(ctx, betID)
	if err != nil {
		return betOutcome{}, err
	}

	outcome := betOutcome{betID: betID}
	switch {
	case e.state.Voided:
		outcome.status = domain.BetStatusVoid
	case b.SelectionID == e.state.WinningSelectionID:
		payout, err := b.PotentialPayout()
		if err != nil {
			return betOutcome{}, err
		}
		outcome.status = domain.BetStatusWon
		outcome.payout = &payout
	default:
		outcome.status = domain.BetStatusLost
	}

	if _, err := e.bets.SettleBet(ctx, betID, outcome.status, outcome.payout, e.sagaID); err != nil {
		return betOutcome{}, err
	}
	return outcome, nil
}

// compensate reverses every bet this saga run already settled, since the
// saga as a whole did not reach a consistent terminal state (§4.9).
func (e *entity) compensate(ctx context.Context) error {
	for _, betID := range e.state.ProcessedBetIDs {
		if _, err := e.bets.ReverseSettlement(ctx, betID, "settlement saga "+e.sagaID.String()+" failed, compensating"); err != nil {
			return err
		}
	}
	return nil
}
