package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func newEvent(class AggregateClass, aggregateID string, eventType EventType, payload any, now time.Time) DomainEvent {
	data, _ := json.Marshal(payload)
	return DomainEvent{
		ID:             uuid.New(),
		Timestamp:      now,
		AggregateID:    aggregateID,
		AggregateClass: class,
		Type:           eventType,
		Payload:        data,
	}
}

// NewBetPlacedEvent records a bet's initial placement attempt.
func NewBetPlacedEvent(bet *Bet, now time.Time) DomainEvent {
	return newEvent(AggregateBet, bet.ID.String(), EventBetPlacedEvent, map[string]any{
		"betId": bet.ID, "userId": bet.UserID, "marketId": bet.MarketID,
		"selectionId": bet.SelectionID, "amount": bet.Amount, "odds": bet.Odds,
	}, now)
}

// NewBetAcceptedEvent records a bet reaching the accepted state.
func NewBetAcceptedEvent(bet *Bet, now time.Time) DomainEvent {
	return newEvent(AggregateBet, bet.ID.String(), EventBetAcceptedEvent, map[string]any{
		"betId": bet.ID, "odds": bet.Odds, "amount": bet.Amount,
	}, now)
}

// NewBetRejectedEvent records a bet being rejected.
func NewBetRejectedEvent(bet *Bet, reason string, now time.Time) DomainEvent {
	return newEvent(AggregateBet, bet.ID.String(), EventBetRejectedEvent, map[string]any{
		"betId": bet.ID, "reason": reason,
	}, now)
}

// NewBetSettledEvent records a bet reaching a terminal settlement status.
func NewBetSettledEvent(bet *Bet, now time.Time) DomainEvent {
	return newEvent(AggregateBet, bet.ID.String(), EventBetSettledEvent, map[string]any{
		"betId": bet.ID, "status": bet.Status, "payout": bet.Payout,
	}, now)
}

// NewBetCashedOutEvent records a cash-out.
func NewBetCashedOutEvent(bet *Bet, payout Money, now time.Time) DomainEvent {
	return newEvent(AggregateBet, bet.ID.String(), EventBetCashedOutEvent, map[string]any{
		"betId": bet.ID, "payout": payout,
	}, now)
}

// NewTransactionPostedEvent records a successful wallet money movement.
func NewTransactionPostedEvent(userID uuid.UUID, tx WalletTransaction, now time.Time) DomainEvent {
	return newEvent(AggregateWallet, userID.String(), EventTransactionPostedEvent, tx, now)
}

// NewTransactionFailedEvent records a failed wallet money movement, for
// audit, per §4.4's failure semantics.
func NewTransactionFailedEvent(userID uuid.UUID, txType TransactionType, reason string, now time.Time) DomainEvent {
	return newEvent(AggregateWallet, userID.String(), EventTransactionFailedEvent, map[string]any{
		"type": txType, "reason": reason,
	}, now)
}

// NewOddsUpdatedEvent records an odds change.
func NewOddsUpdatedEvent(marketID string, update OddsUpdate, now time.Time) DomainEvent {
	return newEvent(AggregateOdds, marketID, EventOddsUpdatedEvent, update, now)
}

// NewOddsSuspendedEvent records a market suspension, automatic or manual.
func NewOddsSuspendedEvent(marketID, reason string, automatic bool, now time.Time) DomainEvent {
	return newEvent(AggregateOdds, marketID, EventOddsSuspendedEvent, map[string]any{
		"reason": reason, "automatic": automatic,
	}, now)
}

// NewOddsResumedEvent records a market resuming from suspension.
func NewOddsResumedEvent(marketID, reason string, now time.Time) DomainEvent {
	return newEvent(AggregateOdds, marketID, EventOddsResumedEvent, map[string]any{
		"reason": reason,
	}, now)
}

// NewOddsVolatilityChangedEvent records a volatility level transition.
func NewOddsVolatilityChangedEvent(marketID string, from, to VolatilityLevel, now time.Time) DomainEvent {
	return newEvent(AggregateOdds, marketID, EventOddsVolatilityChangedEvent, map[string]any{
		"from": from, "to": to,
	}, now)
}

// NewEventStatusChangedEvent records a SportEvent status transition.
func NewEventStatusChangedEvent(eventID string, from, to EventStatus, now time.Time) DomainEvent {
	return newEvent(AggregateEvent, eventID, EventEventStatusChangedEvent, map[string]any{
		"from": from, "to": to,
	}, now)
}

// NewMarketStatusChangedEvent records a Market status transition.
func NewMarketStatusChangedEvent(marketID string, from, to MarketStatus, now time.Time) DomainEvent {
	return newEvent(AggregateMarket, marketID, EventMarketStatusChangedEvent, map[string]any{
		"from": from, "to": to,
	}, now)
}

// NewMarketSettledEvent records a market's result — the settlement saga's
// trigger (§4.8, §4.9).
func NewMarketSettledEvent(marketID, eventID, winningSelectionID string, now time.Time) DomainEvent {
	return newEvent(AggregateMarket, marketID, EventMarketSettledEvent, map[string]any{
		"marketId": marketID, "eventId": eventID, "winningSelectionId": winningSelectionID,
	}, now)
}

// NewSettlementCompletedEvent records a saga finishing successfully.
func NewSettlementCompletedEvent(sagaID uuid.UUID, successful int, totalPayouts Money, duration time.Duration, now time.Time) DomainEvent {
	return newEvent(AggregateGeneral, sagaID.String(), EventSettlementCompletedEvent, map[string]any{
		"sagaId": sagaID, "successful": successful, "totalPayouts": totalPayouts, "durationMs": duration.Milliseconds(),
	}, now)
}

// NewSettlementFailedEvent records a saga entering the failed state after
// compensating, once its retry budget is exhausted or a non-retryable
// failure stops it.
func NewSettlementFailedEvent(sagaID uuid.UUID, errMsg string, isRetryable bool, now time.Time) DomainEvent {
	return newEvent(AggregateGeneral, sagaID.String(), EventSettlementFailedEvent, map[string]any{
		"sagaId": sagaID, "error": errMsg, "isRetryable": isRetryable,
	}, now)
}
