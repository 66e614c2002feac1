package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types. The wire form is the
// discriminant tag for the DomainEvent tagged union (§9). Topic naming
// (§4.10) strips the trailing "Event" and lowercases it.
type EventType string

const (
	EventBetPlacedEvent    EventType = "betPlacedEvent"
	EventBetAcceptedEvent  EventType = "betAcceptedEvent"
	EventBetRejectedEvent  EventType = "betRejectedEvent"
	EventBetSettledEvent   EventType = "betSettledEvent"
	EventBetCashedOutEvent EventType = "betCashedOutEvent"

	EventTransactionPostedEvent EventType = "transactionPostedEvent"
	EventTransactionFailedEvent EventType = "transactionFailedEvent"

	EventOddsUpdatedEvent           EventType = "oddsUpdatedEvent"
	EventOddsSuspendedEvent         EventType = "oddsSuspendedEvent"
	EventOddsResumedEvent           EventType = "oddsResumedEvent"
	EventOddsVolatilityChangedEvent EventType = "oddsVolatilityChangedEvent"

	EventEventStatusChangedEvent  EventType = "eventStatusChangedEvent"
	EventMarketStatusChangedEvent EventType = "marketStatusChangedEvent"
	EventMarketSettledEvent       EventType = "marketSettledEvent"

	EventSettlementCompletedEvent EventType = "settlementCompletedEvent"
	EventSettlementFailedEvent    EventType = "settlementFailedEvent"
)

// AggregateClass enumerates the aggregate root classes for topic naming
// (§4.10): `{prefix}.{aggregate-class}.{event-kind}`.
type AggregateClass string

const (
	AggregateBet     AggregateClass = "bet"
	AggregateWallet  AggregateClass = "wallet"
	AggregateEvent   AggregateClass = "event"
	AggregateMarket  AggregateClass = "market"
	AggregateOdds    AggregateClass = "odds"
	AggregateSaga    AggregateClass = "saga"
	AggregateGeneral AggregateClass = "general"
)

// DomainEvent is the common envelope every event-stream row carries,
// wrapping a typed payload (§3, §9).
type DomainEvent struct {
	ID             uuid.UUID       `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	AggregateID    string          `json:"aggregateId"`
	AggregateClass AggregateClass  `json:"aggregateClass"`
	Type           EventType       `json:"type"`
	Payload        json.RawMessage `json:"payload"`
}

// Topic returns the broker topic name for this event, per §4.10.
func (e DomainEvent) Topic(prefix string) string {
	kind := string(e.Type)
	const suffix = "Event"
	if len(kind) > len(suffix) && kind[len(kind)-len(suffix):] == suffix {
		kind = kind[:len(kind)-len(suffix)]
	}
	return prefix + "." + string(e.AggregateClass) + "." + strings.ToLower(kind)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// EventStream is the full append-only record for one aggregate (§3, §4.2).
type EventStream struct {
	AggregateID string
	Events      []DomainEvent
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
