package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/domain"
)

// idempotentResult checks whether referenceID has already been processed
// and, if so, returns the prior transaction's outcome instead of
// reapplying it (§4.4's exactly-once semantics for retried commands).
func (e *entity) idempotentResult(referenceID string) (domain.WalletCommandResult, bool) {
	if referenceID == "" {
		return domain.WalletCommandResult{}, false
	}
	txID, ok := e.state.ProcessedReferenceIDs[referenceID]
	if !ok {
		return domain.WalletCommandResult{}, false
	}
	for _, tx := range e.state.Transactions {
		if tx.ID == txID {
			snap, _ := e.state.Snapshot()
			return domain.WalletCommandResult{Transaction: tx, Snapshot: snap, Idempotent: true}, true
		}
	}
	return domain.WalletCommandResult{}, false
}

func (e *entity) commit(ctx context.Context, txType domain.TransactionType, amount domain.Money, referenceID string, betID *uuid.UUID) (domain.WalletCommandResult, error) {
	tx, event := buildTransaction(e.userID, txType, amount, referenceID, betID, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{event}); err != nil {
		return domain.WalletCommandResult{}, err
	}
	snap, err := e.state.Snapshot()
	if err != nil {
		return domain.WalletCommandResult{}, err
	}
	return domain.WalletCommandResult{Transaction: tx, Snapshot: snap}, nil
}

// Deposit credits the wallet's balance (§4.4).
func (e *entity) Deposit(ctx context.Context, params domain.DepositParams) (domain.WalletCommandResult, error) {
	if result, ok := e.idempotentResult(params.ReferenceID); ok {
		return result, nil
	}
	if err := domain.ValidatePositiveAmount(params.Amount.Amount()); err != nil {
		return domain.WalletCommandResult{}, err
	}
	return e.commit(ctx, domain.TxDeposit, params.Amount, params.ReferenceID, nil)
}

// Withdraw debits the wallet's available balance (§4.4).
func (e *entity) Withdraw(ctx context.Context, params domain.WithdrawParams) (domain.WalletCommandResult, error) {
	if result, ok := e.idempotentResult(params.ReferenceID); ok {
		return result, nil
	}
	if err := domain.ValidatePositiveAmount(params.Amount.Amount()); err != nil {
		return domain.WalletCommandResult{}, err
	}
	available, err := e.state.AvailableBalance()
	if err != nil {
		return domain.WalletCommandResult{}, err
	}
	if cmp, _ := available.Compare(params.Amount); cmp < 0 {
		return domain.WalletCommandResult{}, domain.ErrInsufficientFunds()
	}
	return e.commit(ctx, domain.TxWithdrawal, params.Amount, params.ReferenceID, nil)
}

// Reserve holds funds against a bet placement, moving them from available
// balance into the reservations map (§4.4, §4.6).
func (e *entity) Reserve(ctx context.Context, params domain.ReserveParams) (domain.WalletCommandResult, error) {
	if result, ok := e.idempotentResult(params.ReferenceID); ok {
		return result, nil
	}
	if _, exists := e.state.Reservations[params.BetID]; exists {
		return domain.WalletCommandResult{}, domain.ErrDuplicateReservation(params.BetID.String())
	}
	if err := domain.ValidatePositiveAmount(params.Amount.Amount()); err != nil {
		return domain.WalletCommandResult{}, err
	}
	available, err := e.state.AvailableBalance()
	if err != nil {
		return domain.WalletCommandResult{}, err
	}
	if cmp, _ := available.Compare(params.Amount); cmp < 0 {
		return domain.WalletCommandResult{}, domain.ErrInsufficientFunds()
	}
	return e.commit(ctx, domain.TxReservation, params.Amount, params.ReferenceID, &params.BetID)
}

// CommitReservation finalizes a reservation as spent, on bet acceptance
// (§4.4, §4.6): the reserved amount leaves the wallet entirely.
func (e *entity) CommitReservation(ctx context.Context, params domain.CommitReservationParams) (domain.WalletCommandResult, error) {
	if result, ok := e.idempotentResult(params.ReferenceID); ok {
		return result, nil
	}
	amount, ok := e.state.Reservations[params.BetID]
	if !ok {
		return domain.WalletCommandResult{}, domain.ErrUnknownReference(params.BetID.String())
	}
	return e.commit(ctx, domain.TxReservationCommit, amount, params.ReferenceID, &params.BetID)
}

// ReleaseReservation returns a reservation's funds to available balance,
// on bet rejection or void (§4.4, §4.6).
func (e *entity) ReleaseReservation(ctx context.Context, params domain.ReleaseReservationParams) (domain.WalletCommandResult, error) {
	if result, ok := e.idempotentResult(params.ReferenceID); ok {
		return result, nil
	}
	amount, ok := e.state.Reservations[params.BetID]
	if !ok {
		return domain.WalletCommandResult{}, domain.ErrUnknownReference(params.BetID.String())
	}
	return e.commit(ctx, domain.TxReservationRelease, amount, params.ReferenceID, &params.BetID)
}

// ProcessPayout credits a settlement payout, idempotent by
// (betId, sagaId) per §4.4's settlement-replay guarantee.
func (e *entity) ProcessPayout(ctx context.Context, params domain.ProcessPayoutParams) (domain.WalletCommandResult, error) {
	referenceID := domain.PayoutReference("payout", params.BetID, params.SagaID)
	if result, ok := e.idempotentResult(referenceID); ok {
		return result, nil
	}
	if err := domain.ValidatePositiveAmount(params.Amount.Amount()); err != nil {
		return domain.WalletCommandResult{}, err
	}
	return e.commit(ctx, domain.TxBetPayout, params.Amount, referenceID, &params.BetID)
}

// ReversePayout reverses a previously processed payout, used by the
// settlement saga's compensation path (§4.9).
func (e *entity) ReversePayout(ctx context.Context, params domain.ReversePayoutParams) (domain.WalletCommandResult, error) {
	referenceID := domain.PayoutReference("reversal", params.BetID, params.SagaID)
	if result, ok := e.idempotentResult(referenceID); ok {
		return result, nil
	}
	if err := domain.ValidatePositiveAmount(params.Amount.Amount()); err != nil {
		return domain.WalletCommandResult{}, err
	}
	available, err := e.state.AvailableBalance()
	if err != nil {
		return domain.WalletCommandResult{}, err
	}
	if cmp, _ := available.Compare(params.Amount); cmp < 0 {
		return domain.WalletCommandResult{}, domain.ErrInsufficientFunds()
	}
	return e.commit(ctx, domain.TxPayoutReversal, params.Amount, referenceID, &params.BetID)
}

// GetTransactionHistory returns the most-recent-first list of this
// wallet's transactions, capped at limit (§4.4).
func (e *entity) GetTransactionHistory(ctx context.Context, limit int) []domain.WalletTransaction {
	return mostRecentFirst(e.state.Transactions, limit)
}

// GetLedgerEntries returns the most-recent-first list of this wallet's
// double-entry postings, capped at limit (§4.3, §4.4).
func (e *entity) GetLedgerEntries(ctx context.Context, limit int) []domain.LedgerEntry {
	return mostRecentFirst(e.state.LedgerEntries, limit)
}

// mostRecentFirst reverses items into a newly allocated, most-recent-first
// slice and truncates it to limit (<= 0 means unlimited).
func mostRecentFirst[T any](items []T, limit int) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
