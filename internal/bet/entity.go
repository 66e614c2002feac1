// Package bet implements the per-bet entity: placement, odds-lock
// coordination with the odds entity, reservation coordination with the
// wallet entity, cash-out, void, and saga-driven settlement (§4.6).
package bet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
	"github.com/attaboy/ledger/internal/odds"
	"github.com/attaboy/ledger/internal/wallet"
)

type entity struct {
	betID  uuid.UUID
	store  eventlog.Store
	outbox broker.Outbox
	wallet *wallet.Service
	odds   *odds.Service

	state   domain.Bet
	history []domain.BetHistoryEntry
	version int64
}

func newEntity(betID uuid.UUID, store eventlog.Store, outbox broker.Outbox, walletSvc *wallet.Service, oddsSvc *odds.Service) *entity {
	return &entity{
		betID:  betID,
		store:  store,
		outbox: outbox,
		wallet: walletSvc,
		odds:   oddsSvc,
		state:  domain.Bet{ID: betID},
	}
}

func (e *entity) streamID() string { return "bet:" + e.betID.String() }

// placed reports whether the betPlaced event has ever been durably
// recorded for this bet, i.e. the entity is no longer in its ∅ state.
func (e *entity) placed() bool { return e.state.Status != "" }

// placementDecided reports whether placeBet has reached a terminal
// outcome (accepted or rejected) for this bet. Pending is deliberately
// excluded: a bet can be placed (betPlaced durably recorded) without yet
// being decided if the entity crashed between that event and the
// odds-check/reserve/lock/accept-or-reject sequence that follows it. A
// retry of placeBet must resume that sequence rather than treat Pending
// as a finished, idempotent outcome (§4.1, §4.6).
func (e *entity) placementDecided() bool {
	return e.placed() && e.state.Status != domain.BetStatusPending
}

// OnActivate replays the bet's event stream (§4.2).
func (e *entity) OnActivate(ctx context.Context) error {
	stream, err := e.store.Read(ctx, e.streamID())
	if err != nil {
		if appErr := domain.AsAppError(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			e.version = -1
			return nil
		}
		return fmt.Errorf("replay bet %s: %w", e.betID, err)
	}
	e.version = stream.Version
	for _, evt := range stream.Events {
		e.applyEvent(evt)
	}
	return nil
}

func (e *entity) OnDeactivate(ctx context.Context) error { return nil }

func (e *entity) appendAndStage(ctx context.Context, events []domain.DomainEvent) error {
	newVersion, err := e.store.Append(ctx, e.streamID(), e.version, events)
	if err != nil {
		return err
	}
	for _, evt := range events {
		e.applyEvent(evt)
		if err := e.outbox.Stage(ctx, evt); err != nil {
			return fmt.Errorf("stage event: %w", err)
		}
	}
	e.version = newVersion
	return nil
}

// Local wire payloads. The domain package's NewBetXEvent helpers carry
// only enough detail for a one-shot audit record; replaying a bet's full
// state (selection, saga attribution, void reason) needs more, so the
// entity defines its own payloads the way wallet and odds do.

type placedPayload struct {
	UserID         uuid.UUID       `json:"userId"`
	EventID        uuid.UUID       `json:"eventId"`
	MarketID       uuid.UUID       `json:"marketId"`
	SelectionID    string          `json:"selectionId"`
	Amount         domain.Money    `json:"amount"`
	AcceptableOdds decimal.Decimal `json:"acceptableOdds"`
	Type           domain.BetType  `json:"type"`
}

type acceptedPayload struct {
	Odds decimal.Decimal `json:"odds"`
}

type rejectedPayload struct {
	Reason string `json:"reason"`
}

type settledPayload struct {
	Status domain.BetStatus `json:"status"`
	Payout *domain.Money    `json:"payout,omitempty"`
	SagaID *uuid.UUID       `json:"sagaId,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

type cashedOutPayload struct {
	Payout domain.Money `json:"payout"`
}

// reversedEvent is local to bet: it undoes a settlement applied in error
// during a saga's compensation path (§4.9), an operation the shared
// domain event vocabulary has no audit record for.
const reversedEvent domain.EventType = "betSettlementReversedEvent"

type reversedPayload struct {
	Reason string `json:"reason"`
}

func (e *entity) applyEvent(evt domain.DomainEvent) {
	switch evt.Type {
	case domain.EventBetPlacedEvent:
		var p placedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.state.UserID = p.UserID
		e.state.EventID = p.EventID
		e.state.MarketID = p.MarketID
		e.state.SelectionID = p.SelectionID
		e.state.Amount = p.Amount
		e.state.Odds = p.AcceptableOdds
		e.state.Type = p.Type
		e.state.Status = domain.BetStatusPending
		e.state.PlacedAt = evt.Timestamp
		e.history = append(e.history, domain.BetHistoryEntry{Status: domain.BetStatusPending, Odds: e.state.Odds, Timestamp: evt.Timestamp, Detail: "bet placed"})
	case domain.EventBetAcceptedEvent:
		var p acceptedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.state.Status = domain.BetStatusAccepted
		e.state.Odds = p.Odds
		e.history = append(e.history, domain.BetHistoryEntry{Status: domain.BetStatusAccepted, Odds: p.Odds, Timestamp: evt.Timestamp, Detail: "bet accepted"})
	case domain.EventBetRejectedEvent:
		var p rejectedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.state.Status = domain.BetStatusRejected
		e.state.RejectionReason = p.Reason
		e.history = append(e.history, domain.BetHistoryEntry{Status: domain.BetStatusRejected, Odds: e.state.Odds, Timestamp: evt.Timestamp, Detail: p.Reason})
	case domain.EventBetSettledEvent:
		var p settledPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.state.Status = p.Status
		e.state.Payout = p.Payout
		t := evt.Timestamp
		e.state.SettledAt = &t
		e.state.SettledBySagaID = p.SagaID
		if p.Status == domain.BetStatusVoid {
			e.state.VoidReason = p.Reason
		}
		e.history = append(e.history, domain.BetHistoryEntry{Status: p.Status, Odds: e.state.Odds, Timestamp: evt.Timestamp, Detail: "bet settled"})
	case domain.EventBetCashedOutEvent:
		var p cashedOutPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.state.Status = domain.BetStatusCashedOut
		e.state.Payout = &p.Payout
		t := evt.Timestamp
		e.state.SettledAt = &t
		e.history = append(e.history, domain.BetHistoryEntry{Status: domain.BetStatusCashedOut, Odds: e.state.Odds, Timestamp: evt.Timestamp, Detail: "bet cashed out"})
	case reversedEvent:
		var p reversedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.state.Status = domain.BetStatusAccepted
		e.state.Payout = nil
		e.state.SettledAt = nil
		e.state.SettledBySagaID = nil
		e.state.VoidReason = ""
		e.history = append(e.history, domain.BetHistoryEntry{Status: domain.BetStatusAccepted, Odds: e.state.Odds, Timestamp: evt.Timestamp, Detail: "settlement reversed: " + p.Reason})
	}
}

func buildEvent(betID uuid.UUID, eventType domain.EventType, payload any, now time.Time) domain.DomainEvent {
	data, _ := json.Marshal(payload)
	return domain.DomainEvent{
		ID:             uuid.New(),
		Timestamp:      now,
		AggregateID:    betID.String(),
		AggregateClass: domain.AggregateBet,
		Type:           eventType,
		Payload:        data,
	}
}
