// Package saga implements the settlement saga (§4.9): one saga entity per
// market result, fanning out settleBet calls across the affected bets,
// retrying transient per-bet failures, and compensating already-settled
// bets if the retry budget is exhausted or a non-retryable failure occurs.
package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/bet"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

type entity struct {
	sagaID uuid.UUID
	store  eventlog.Store
	outbox broker.Outbox
	bets   *bet.Service

	state   domain.SettlementSaga
	version int64
}

func newEntity(sagaID uuid.UUID, store eventlog.Store, outbox broker.Outbox, betSvc *bet.Service) *entity {
	return &entity{
		sagaID: sagaID,
		store:  store,
		outbox: outbox,
		bets:   betSvc,
		state:  domain.SettlementSaga{SagaID: sagaID},
	}
}

func (e *entity) streamID() string { return "saga:" + e.sagaID.String() }

// started reports whether this saga has already recorded a startedEvent,
// i.e. RunSettlement has been attempted at least once for this sagaID.
func (e *entity) started() bool { return e.state.Status != "" }

// OnActivate replays the saga's event stream (§4.2).
func (e *entity) OnActivate(ctx context.Context) error {
	stream, err := e.store.Read(ctx, e.streamID())
	if err != nil {
		if appErr := domain.AsAppError(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			e.version = -1
			return nil
		}
		return fmt.Errorf("replay saga %s: %w", e.sagaID, err)
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

// startedEvent is local to saga: it records the request a saga was invoked
// with, so a re-dispatch with the same sagaID replays into the identical
// running state instead of forgetting which bets it was asked to settle.
const startedEvent domain.EventType = "settlementStartedEvent"

// progressedEvent records the outcome of one bet settlement attempt
// within the saga, so a crash mid-fan-out can resume without re-crediting
// bets that already succeeded.
const progressedEvent domain.EventType = "settlementProgressedEvent"

type startedPayload struct {
	EventID            string      `json:"eventId"`
	MarketID           string      `json:"marketId"`
	WinningSelectionID string      `json:"winningSelectionId"`
	Voided             bool        `json:"voided"`
	AffectedBetIDs     []uuid.UUID `json:"affectedBetIds"`
}

type progressedPayload struct {
	BetID     uuid.UUID    `json:"betId"`
	Succeeded bool         `json:"succeeded"`
	Payout    domain.Money `json:"payout"`
}

// completedPayload and failedPayload carry the full terminal detail the
// shared domain.NewSettlementCompletedEvent/NewSettlementFailedEvent map
// constructors don't, so replay can fully reconstruct SettlementSaga.
type completedPayload struct {
	Successful   int          `json:"successful"`
	TotalPayouts domain.Money `json:"totalPayouts"`
}

type failedPayload struct {
	Error         string      `json:"error"`
	FailedBetIDs  []uuid.UUID `json:"failedBetIds"`
	AttemptNumber int         `json:"attemptNumber"`
}

func (e *entity) applyEvent(evt domain.DomainEvent) {
	switch evt.Type {
	case startedEvent:
		var p startedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.state.EventID = p.EventID
		e.state.MarketID = p.MarketID
		e.state.WinningSelectionID = p.WinningSelectionID
		e.state.Voided = p.Voided
		e.state.AffectedBetIDs = p.AffectedBetIDs
		e.state.Status = domain.SagaRunning
		e.state.StartedAt = evt.Timestamp
		e.state.AttemptNumber = 1
		e.state.TotalPayouts = domain.Zero(settlementCurrency)
	case progressedEvent:
		var p progressedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		if p.Succeeded {
			e.state.ProcessedBetIDs = appendUnique(e.state.ProcessedBetIDs, p.BetID)
			e.state.FailedBetIDs = removeID(e.state.FailedBetIDs, p.BetID)
			if !p.Payout.IsZero() {
				if sum, err := e.state.TotalPayouts.Add(p.Payout); err == nil {
					e.state.TotalPayouts = sum
				}
			}
		} else {
			e.state.FailedBetIDs = appendUnique(e.state.FailedBetIDs, p.BetID)
		}
	case domain.EventSettlementCompletedEvent:
		var p completedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.state.Status = domain.SagaCompleted
		e.state.TotalPayouts = p.TotalPayouts
		t := evt.Timestamp
		e.state.CompletedAt = &t
	case domain.EventSettlementFailedEvent:
		var p failedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.state.Status = domain.SagaFailed
		e.state.LastError = p.Error
		e.state.FailedBetIDs = p.FailedBetIDs
		e.state.AttemptNumber = p.AttemptNumber
		t := evt.Timestamp
		e.state.CompletedAt = &t
	}
}

// settlementCurrency is the ledger's single operating currency, per the
// rest of this codebase's USD-only convention — multi-currency wallets are
// out of scope (§1).
const settlementCurrency = "USD"

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func buildEvent(sagaID uuid.UUID, eventType domain.EventType, payload any, now time.Time) domain.DomainEvent {
	data, _ := json.Marshal(payload)
	return domain.DomainEvent{
		ID:             uuid.New(),
		Timestamp:      now,
		AggregateID:    sagaID.String(),
		AggregateClass: domain.AggregateSaga,
		Type:           eventType,
		Payload:        data,
	}
}
