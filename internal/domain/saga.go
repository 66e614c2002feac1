package domain

import (
	"time"

	"github.com/google/uuid"
)

// SagaStatus is the lifecycle state of a SettlementSaga (§4.9).
type SagaStatus string

const (
	SagaRunning   SagaStatus = "running"
	SagaCompleted SagaStatus = "completed"
	SagaFailed    SagaStatus = "failed"
)

// MaxSettlementAttempts bounds the retry budget for transient per-bet
// settlement failures before the saga enters compensation (§4.9).
const MaxSettlementAttempts = 3

// SettlementSaga is the full persisted state of one settlement saga (§3).
type SettlementSaga struct {
	SagaID              uuid.UUID
	EventID              string
	MarketID             string
	WinningSelectionID   string
	Voided               bool
	AffectedBetIDs       []uuid.UUID
	ProcessedBetIDs      []uuid.UUID
	FailedBetIDs         []uuid.UUID
	TotalPayouts         Money
	Status               SagaStatus
	StartedAt            time.Time
	CompletedAt          *time.Time
	AttemptNumber        int
	LastError            string
}

// SettlementRequest is one unit of work handed to the batch settlement
// coordinator (§4.9): a market's final result, plus the bets it affects
// when no market-scoped bet index is available to derive them.
type SettlementRequest struct {
	SagaID             uuid.UUID
	EventID            string
	MarketID           string
	WinningSelectionID string
	Voided             bool
	AffectedBetIDs     []uuid.UUID
}

// SettlementOutcome is the per-bet result computed in saga step 2 (§4.9).
type SettlementOutcome struct {
	BetID      uuid.UUID
	Status     BetStatus
	Payout     Money
}

// BetSettlementResult records what happened when the saga tried to settle
// one bet, so the saga can tell a retryable transient failure from a
// terminal one.
type BetSettlementResult struct {
	BetID     uuid.UUID
	Succeeded bool
	Retryable bool
	Err       error
}
