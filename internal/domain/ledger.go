package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntryKind distinguishes the two sides of a double-entry posting.
type LedgerEntryKind string

const (
	LedgerDebit  LedgerEntryKind = "debit"
	LedgerCredit LedgerEntryKind = "credit"
)

// LedgerEntry is one immutable append-only posting. Every wallet mutation
// appends exactly one debit and one matching credit whose amounts sum to
// zero (§4.3).
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transactionId"`
	Amount        Money           `json:"amount"`
	Kind          LedgerEntryKind `json:"kind"`
	Description   string          `json:"description"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewLedgerPair builds the matching debit+credit entries for a single
// transaction, keeping the money-safety invariant (sum of debits equals
// sum of credits) structurally true by construction.
func NewLedgerPair(transactionID uuid.UUID, amount Money, debitDesc, creditDesc string, now time.Time) (debit, credit LedgerEntry) {
	debit = LedgerEntry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Amount:        amount,
		Kind:          LedgerDebit,
		Description:   debitDesc,
		Timestamp:     now,
	}
	credit = LedgerEntry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Amount:        amount,
		Kind:          LedgerCredit,
		Description:   creditDesc,
		Timestamp:     now,
	}
	return debit, credit
}
