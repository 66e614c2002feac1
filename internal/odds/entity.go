// Package odds implements the per-market odds entity: current prices,
// volatility scoring, suspension, and per-selection locking during bet
// placement (§4.5).
package odds

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

type entity struct {
	marketID string
	store    eventlog.Store
	outbox   broker.Outbox

	state   domain.OddsState
	version int64
}

func newEntity(marketID string, store eventlog.Store, outbox broker.Outbox) *entity {
	return &entity{
		marketID: marketID,
		store:    store,
		outbox:   outbox,
		state:    domain.NewOddsState(marketID),
	}
}

func (e *entity) streamID() string { return "odds:" + e.marketID }

// OnActivate replays the market's odds event stream (§4.2).
func (e *entity) OnActivate(ctx context.Context) error {
	stream, err := e.store.Read(ctx, e.streamID())
	if err != nil {
		if appErr := domain.AsAppError(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			e.version = -1
			return nil
		}
		return fmt.Errorf("replay odds %s: %w", e.marketID, err)
	}
	e.version = stream.Version
	for _, evt := range stream.Events {
		applyEvent(&e.state, evt)
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
		applyEvent(&e.state, evt)
		if err := e.outbox.Stage(ctx, evt); err != nil {
			return fmt.Errorf("stage event: %w", err)
		}
	}
	e.version = newVersion
	return nil
}

// oddsUpdatePayload carries the selection key alongside the OddsUpdate,
// since a market updates many selections independently (§4.5).
type oddsUpdatePayload struct {
	Selection string           `json:"selection"`
	Update    domain.OddsUpdate `json:"update"`
}

func applyEvent(state *domain.OddsState, evt domain.DomainEvent) {
	switch evt.Type {
	case domain.EventOddsUpdatedEvent:
		var payload oddsUpdatePayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return
		}
		applyOddsUpdate(state, payload.Selection, payload.Update)
	case domain.EventOddsSuspendedEvent:
		var payload struct {
			Reason    string `json:"reason"`
			Automatic bool   `json:"automatic"`
		}
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return
		}
		state.IsSuspended = true
		state.SuspensionReason = payload.Reason
		t := evt.Timestamp
		state.SuspensionTime = &t
	case domain.EventOddsResumedEvent:
		state.IsSuspended = false
		state.SuspensionReason = ""
		state.SuspensionTime = nil
	}
}

func applyOddsUpdate(state *domain.OddsState, selection string, update domain.OddsUpdate) {
	state.Initialized = true
	if state.Histories[selection] == nil {
		state.Histories[selection] = &domain.OddsHistory{Selection: selection}
	}
	state.Histories[selection].Updates = append(state.Histories[selection].Updates, update)
	state.CurrentOdds[selection] = domain.Odds{
		Decimal:   update.New,
		MarketID:  state.MarketID,
		Selection: selection,
		Source:    update.Source,
		Timestamp: update.UpdatedAt,
	}
}
