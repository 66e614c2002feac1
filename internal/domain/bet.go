package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/google/uuid"
)

// BetStatus tracks the lifecycle of a bet (§3, §4.6).
type BetStatus string

const (
	BetStatusPending   BetStatus = "pending"
	BetStatusAccepted  BetStatus = "accepted"
	BetStatusRejected  BetStatus = "rejected"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusVoid      BetStatus = "void"
	BetStatusCashedOut BetStatus = "cashOut"
)

// BetType enumerates the kinds of bet a user may place.
type BetType string

const (
	BetTypeSingle      BetType = "single"
	BetTypeAccumulator BetType = "accumulator"
	BetTypeSystem      BetType = "system"
)

// CashOutFeeRate is the house fee taken on early cash-out (5%), per §4.6.
var CashOutFeeRate = decimal.NewFromFloat(0.05)

// Bet is the full state of one bet entity.
type Bet struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	EventID         uuid.UUID
	MarketID        uuid.UUID
	SelectionID     string
	Amount          Money
	Odds            decimal.Decimal
	Status          BetStatus
	Type            BetType
	PlacedAt        time.Time
	SettledAt       *time.Time
	Payout          *Money
	RejectionReason string
	VoidReason      string

	// SettledBySagaID records the settlement saga that last mutated this bet into a
	// terminal state, so settleBet can be idempotent per §4.6.
	SettledBySagaID *uuid.UUID
}

// PotentialPayout returns amount * odds, rounded to the nearest cent.
func (b *Bet) PotentialPayout() (Money, error) {
	return moneyTimesDecimal(b.Amount, b.Odds)
}

// IsSettled reports whether the bet has reached a terminal settlement
// status (§3).
func (b *Bet) IsSettled() bool {
	switch b.Status {
	case BetStatusWon, BetStatusLost, BetStatusVoid:
		return true
	default:
		return false
	}
}

// CanBeVoided reports whether the bet may still be voided (§3).
func (b *Bet) CanBeVoided() bool {
	return b.Status == BetStatusAccepted || b.Status == BetStatusPending
}

// CanBeCashedOut reports whether the bet may still be cashed out (§3).
func (b *Bet) CanBeCashedOut() bool {
	return b.Status == BetStatusAccepted
}

// moneyTimesDecimal multiplies a Money amount by a decimal.Decimal factor,
// rounding to the nearest cent (half away from zero), keeping all money
// math fixed-point.
func moneyTimesDecimal(m Money, factor decimal.Decimal) (Money, error) {
	amount := decimal.NewFromInt(m.Amount())
	product := amount.Mul(factor).Round(0)
	return NewMoney(product.IntPart(), m.Currency())
}

// PlaceBetRequest is the input to Bet.PlaceBet (§4.6).
type PlaceBetRequest struct {
	BetID          uuid.UUID
	UserID         uuid.UUID
	EventID        uuid.UUID
	MarketID       uuid.UUID
	SelectionID    string
	Amount         Money
	AcceptableOdds decimal.Decimal
	Type           BetType
}

// BetHistoryEntry is one reconstructed snapshot from the bet's event
// stream, returned by getBetHistory (§4.6).
type BetHistoryEntry struct {
	Status    BetStatus
	Odds      decimal.Decimal
	Timestamp time.Time
	Detail    string
}
