package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletState is the full persisted state of one wallet entity (§3).
// balance - reservedAmount is the available balance; reservedAmount must
// always equal the sum of the reservations map's values, and must never
// exceed balance.
type WalletState struct {
	UserID                uuid.UUID
	Currency              string
	Balance               Money
	ReservedAmount         Money
	Reservations          map[uuid.UUID]Money // betId -> reserved amount
	Transactions          []WalletTransaction
	LedgerEntries         []LedgerEntry
	ProcessedReferenceIDs map[string]uuid.UUID // referenceId -> transactionId
}

// NewWalletState creates an empty wallet for a user in the given currency.
// This is the state produced by onActivate when no persisted state exists.
func NewWalletState(userID uuid.UUID, currency string) WalletState {
	return WalletState{
		UserID:                userID,
		Currency:              currency,
		Balance:               Zero(currency),
		ReservedAmount:        Zero(currency),
		Reservations:          make(map[uuid.UUID]Money),
		ProcessedReferenceIDs: make(map[string]uuid.UUID),
	}
}

// AvailableBalance returns balance minus reservedAmount.
func (w *WalletState) AvailableBalance() (Money, error) {
	return w.Balance.Subtract(w.ReservedAmount)
}

// CheckInvariants verifies the three wallet invariants from §8 hold. No
// code in this repository calls it; the wallet entity neither runs it
// after a mutation nor before appending events.
func (w *WalletState) CheckInvariants() error {
	if w.Balance.Amount() < 0 {
		return ErrFatal("balance went negative", nil)
	}
	sum := int64(0)
	for _, amt := range w.Reservations {
		sum += amt.Amount()
	}
	if sum != w.ReservedAmount.Amount() {
		return ErrFatal("reservedAmount does not match sum of reservations", nil)
	}
	if w.ReservedAmount.Amount() > w.Balance.Amount() {
		return ErrFatal("reservedAmount exceeds balance", nil)
	}
	return nil
}

// WalletSnapshot is the read-only view returned by getBalance/getAvailableBalance.
type WalletSnapshot struct {
	UserID    uuid.UUID `json:"userId"`
	Balance   Money     `json:"balance"`
	Reserved  Money     `json:"reserved"`
	Available Money     `json:"available"`
	Currency  string    `json:"currency"`
}

// Snapshot returns the current read-only view of the wallet.
func (w *WalletState) Snapshot() (WalletSnapshot, error) {
	available, err := w.AvailableBalance()
	if err != nil {
		return WalletSnapshot{}, err
	}
	return WalletSnapshot{
		UserID:    w.UserID,
		Balance:   w.Balance,
		Reserved:  w.ReservedAmount,
		Available: available,
		Currency:  w.Currency,
	}, nil
}

// WalletCommandResult is the outcome of any wallet money-movement operation.
type WalletCommandResult struct {
	Transaction WalletTransaction
	Snapshot    WalletSnapshot
	Idempotent  bool // true if this reused a prior result for the same reference
}

// DepositParams holds the input for Wallet.Deposit.
type DepositParams struct {
	Amount      Money
	ReferenceID string
}

// WithdrawParams holds the input for Wallet.Withdraw.
type WithdrawParams struct {
	Amount      Money
	ReferenceID string
}

// ReserveParams holds the input for Wallet.Reserve.
type ReserveParams struct {
	Amount      Money
	BetID       uuid.UUID
	ReferenceID string
}

// CommitReservationParams holds the input for Wallet.CommitReservation.
type CommitReservationParams struct {
	BetID       uuid.UUID
	ReferenceID string
}

// ReleaseReservationParams holds the input for Wallet.ReleaseReservation.
type ReleaseReservationParams struct {
	BetID       uuid.UUID
	ReferenceID string
}

// ProcessPayoutParams holds the input for Wallet.ProcessPayout.
type ProcessPayoutParams struct {
	Amount Money
	BetID  uuid.UUID
	SagaID uuid.UUID
}

// ReversePayoutParams holds the input for Wallet.ReversePayout.
type ReversePayoutParams struct {
	Amount Money
	BetID  uuid.UUID
	SagaID uuid.UUID
	Reason string
}

// PayoutReference derives the idempotency reference for a payout or
// reversal from (betId, sagaId), per §4.4.
func PayoutReference(kind string, betID, sagaID uuid.UUID) string {
	return kind + ":" + betID.String() + ":" + sagaID.String()
}

// ReferenceRetention is a retention window for processedReferenceIds (§9).
// Nothing reads it: the wallet never evicts ProcessedReferenceIDs entries,
// so a repeated reference is always recognised as a duplicate.
const ReferenceRetention = 30 * 24 * time.Hour
