package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates all wallet transaction types (§3).
type TransactionType string

const (
	TxDeposit            TransactionType = "deposit"
	TxWithdrawal         TransactionType = "withdrawal"
	TxBetPlacement       TransactionType = "betPlacement"
	TxBetWin             TransactionType = "betWin"
	TxBetLoss            TransactionType = "betLoss"
	TxBetRefund          TransactionType = "betRefund"
	TxReservation        TransactionType = "reservation"
	TxReservationCommit  TransactionType = "reservationCommit"
	TxReservationRelease TransactionType = "reservationRelease"
	TxBetPayout          TransactionType = "betPayout"
	TxPayoutReversal     TransactionType = "payoutReversal"
)

// TransactionStatus is the lifecycle state of a WalletTransaction (§3).
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusCancelled TransactionStatus = "cancelled"
)

// WalletTransaction is one audit record of a wallet money movement.
type WalletTransaction struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"userId"`
	Type        TransactionType   `json:"type"`
	Amount      Money             `json:"amount"`
	Status      TransactionStatus `json:"status"`
	ReferenceID string            `json:"referenceId,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}
