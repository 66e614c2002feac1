// Package market implements the per-event entity: event and market
// lifecycle transitions and result recording, keyed by eventId (§4.8).
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

type entity struct {
	eventID string
	store   eventlog.Store
	outbox  broker.Outbox

	event   domain.SportEvent
	version int64
}

func newEntity(eventID string, store eventlog.Store, outbox broker.Outbox) *entity {
	return &entity{
		eventID: eventID,
		store:   store,
		outbox:  outbox,
		event: domain.SportEvent{
			ID:      eventID,
			Markets: make(map[string]*domain.Market),
		},
	}
}

func (e *entity) streamID() string { return "event:" + e.eventID }

func (e *entity) initialized() bool { return e.event.Status != "" }

// OnActivate replays the event's lifecycle stream (§4.2).
func (e *entity) OnActivate(ctx context.Context) error {
	stream, err := e.store.Read(ctx, e.streamID())
	if err != nil {
		if appErr := domain.AsAppError(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			e.version = -1
			return nil
		}
		return fmt.Errorf("replay event %s: %w", e.eventID, err)
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

type createdPayload struct {
	Name         string   `json:"name"`
	Sport        string   `json:"sport"`
	Competition  string   `json:"competition"`
	StartTime    time.Time `json:"startTime"`
	Participants []string `json:"participants"`
}

type eventStatusPayload struct {
	From domain.EventStatus `json:"from"`
	To   domain.EventStatus `json:"to"`
}

type marketCreatedPayload struct {
	MarketID    string `json:"marketId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type marketStatusPayload struct {
	MarketID string             `json:"marketId"`
	From     domain.MarketStatus `json:"from"`
	To       domain.MarketStatus `json:"to"`
}

type marketSettledPayload struct {
	MarketID           string `json:"marketId"`
	WinningSelectionID string `json:"winningSelectionId"`
	Voided             bool   `json:"voided"`
}

const eventCreatedEvent domain.EventType = "eventCreatedEvent"
const marketCreatedEvent domain.EventType = "marketCreatedEvent"

func (e *entity) applyEvent(evt domain.DomainEvent) {
	switch evt.Type {
	case eventCreatedEvent:
		var p createdPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.event.Name = p.Name
		e.event.Sport = p.Sport
		e.event.Competition = p.Competition
		e.event.StartTime = p.StartTime
		e.event.Participants = p.Participants
		e.event.Status = domain.EventScheduled
		e.event.CreatedAt = evt.Timestamp
		e.event.LastModified = evt.Timestamp
	case domain.EventEventStatusChangedEvent:
		var p eventStatusPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.event.Status = p.To
		e.event.LastModified = evt.Timestamp
		if p.To == domain.EventCompleted || p.To == domain.EventCancelled {
			t := evt.Timestamp
			e.event.EndTime = &t
		}
	case marketCreatedEvent:
		var p marketCreatedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		e.event.Markets[p.MarketID] = &domain.Market{
			ID:       p.MarketID,
			EventID:  e.eventID,
			Name:     p.Name,
			Status:   domain.MarketOpen,
			Outcomes: make(map[string]float64),
		}
		e.event.LastModified = evt.Timestamp
	case domain.EventMarketStatusChangedEvent:
		var p marketStatusPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		if m, ok := e.event.Markets[p.MarketID]; ok {
			m.Status = p.To
		}
		e.event.LastModified = evt.Timestamp
	case domain.EventMarketSettledEvent:
		var p marketSettledPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return
		}
		if m, ok := e.event.Markets[p.MarketID]; ok {
			m.Status = domain.MarketSettled
			m.Voided = p.Voided
			if !p.Voided {
				winner := p.WinningSelectionID
				m.WinningOutcome = &winner
			}
		}
		e.event.LastModified = evt.Timestamp
	}
}

func buildEvent(eventID string, eventType domain.EventType, payload any, now time.Time) domain.DomainEvent {
	data, _ := json.Marshal(payload)
	return domain.DomainEvent{
		ID:             uuid.New(),
		Timestamp:      now,
		AggregateID:    eventID,
		AggregateClass: domain.AggregateEvent,
		Type:           eventType,
		Payload:        data,
	}
}
