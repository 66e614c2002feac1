package wallet

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/domain"
)

func unmarshalPayload(evt domain.DomainEvent, v any) error {
	return json.Unmarshal(evt.Payload, v)
}

// transactionPayload is the wallet package's on-the-wire event payload:
// the audit-facing WalletTransaction plus the bet association reservation
// commands need to maintain the Reservations map, which WalletTransaction
// itself doesn't carry (it's a general-purpose audit record per §3).
type transactionPayload struct {
	Transaction domain.WalletTransaction `json:"transaction"`
	BetID       *uuid.UUID               `json:"betId,omitempty"`
}

// applyTransaction folds one committed WalletTransaction into wallet
// state, the single place balance, reservation, and ledger-entry
// invariants are maintained (§4.4, §9).
func applyTransaction(state *domain.WalletState, tx domain.WalletTransaction, betID *uuid.UUID) {
	state.Transactions = append(state.Transactions, tx)
	if state.ProcessedReferenceIDs == nil {
		state.ProcessedReferenceIDs = make(map[string]uuid.UUID)
	}
	if tx.ReferenceID != "" {
		state.ProcessedReferenceIDs[tx.ReferenceID] = tx.ID
	}
	if state.Reservations == nil {
		state.Reservations = make(map[uuid.UUID]domain.Money)
	}

	switch tx.Type {
	case domain.TxDeposit:
		state.Balance = mustAdd(state.Balance, tx.Amount)
	case domain.TxWithdrawal:
		state.Balance = mustSubtract(state.Balance, tx.Amount)
	case domain.TxReservation:
		// Balance is untouched here: it already counts reserved funds, and
		// AvailableBalance (balance - reservedAmount) is what shrinks.
		state.ReservedAmount = mustAdd(state.ReservedAmount, tx.Amount)
		if betID != nil {
			state.Reservations[*betID] = tx.Amount
		}
	case domain.TxReservationCommit:
		state.Balance = mustSubtract(state.Balance, tx.Amount)
		state.ReservedAmount = mustSubtract(state.ReservedAmount, tx.Amount)
		if betID != nil {
			delete(state.Reservations, *betID)
		}
	case domain.TxReservationRelease:
		state.ReservedAmount = mustSubtract(state.ReservedAmount, tx.Amount)
		if betID != nil {
			delete(state.Reservations, *betID)
		}
	case domain.TxBetPayout:
		state.Balance = mustAdd(state.Balance, tx.Amount)
	case domain.TxPayoutReversal:
		state.Balance = mustSubtract(state.Balance, tx.Amount)
	}

	debitDesc, creditDesc := ledgerDescriptions(tx.Type)
	debit, credit := domain.NewLedgerPair(tx.ID, tx.Amount, debitDesc, creditDesc, tx.Timestamp)
	state.LedgerEntries = append(state.LedgerEntries, debit, credit)
}

// ledgerDescriptions returns the debit and credit narrations posted
// alongside every transaction (§4.3's double-entry requirement).
func ledgerDescriptions(txType domain.TransactionType) (debit, credit string) {
	switch txType {
	case domain.TxDeposit:
		return "external funding source", "wallet balance"
	case domain.TxWithdrawal:
		return "wallet balance", "external funding source"
	case domain.TxReservation:
		return "wallet available balance", "bet reservation"
	case domain.TxReservationCommit:
		return "bet reservation", "settled stake"
	case domain.TxReservationRelease:
		return "bet reservation", "wallet available balance"
	case domain.TxBetPayout:
		return "settlement payout clearing", "wallet balance"
	case domain.TxPayoutReversal:
		return "wallet balance", "settlement payout clearing"
	default:
		return "wallet balance", "wallet balance"
	}
}

// mustAdd and mustSubtract apply committed-event arithmetic that the
// command layer has already validated as safe. A failure here means a
// durably-appended event violates the wallet's non-negative-balance
// invariant (§7, §8) — a corrupted stream, not a recoverable command
// error — so it panics rather than silently collapsing state to zero.
func mustAdd(a, b domain.Money) domain.Money {
	sum, err := a.Add(b)
	if err != nil {
		panic(fmt.Errorf("wallet event violates balance invariant: %w", err))
	}
	return sum
}

func mustSubtract(a, b domain.Money) domain.Money {
	diff, err := a.Subtract(b)
	if err != nil {
		panic(fmt.Errorf("wallet event violates balance invariant: %w", err))
	}
	return diff
}

// buildTransaction stamps a new WalletTransaction and its posting event
// for the given params, without mutating state directly — callers pass
// the result to appendAndStage so activation replay and live execution
// share one code path.
func buildTransaction(userID uuid.UUID, txType domain.TransactionType, amount domain.Money, referenceID string, betID *uuid.UUID, now time.Time) (domain.WalletTransaction, domain.DomainEvent) {
	tx := domain.WalletTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Status:      domain.TxStatusCompleted,
		ReferenceID: referenceID,
		Timestamp:   now,
	}
	payload, _ := json.Marshal(transactionPayload{Transaction: tx, BetID: betID})
	event := domain.DomainEvent{
		ID:             uuid.New(),
		Timestamp:      now,
		AggregateID:    userID.String(),
		AggregateClass: domain.AggregateWallet,
		Type:           domain.EventTransactionPostedEvent,
		Payload:        payload,
	}
	return tx, event
}
