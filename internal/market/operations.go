package market

import (
	"context"
	"time"

	"github.com/attaboy/ledger/internal/domain"
)

// CreateEventRequest is the input to CreateEvent.
type CreateEventRequest struct {
	Name         string
	Sport        string
	Competition  string
	StartTime    time.Time
	Participants []string
}

// CreateEvent initializes a scheduled SportEvent. Only valid once.
func (e *entity) CreateEvent(ctx context.Context, req CreateEventRequest) (domain.SportEvent, error) {
	if e.initialized() {
		return e.event, nil
	}
	evt := buildEvent(e.eventID, eventCreatedEvent, createdPayload{
		Name: req.Name, Sport: req.Sport, Competition: req.Competition,
		StartTime: req.StartTime, Participants: req.Participants,
	}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{evt}); err != nil {
		return domain.SportEvent{}, err
	}
	return e.event, nil
}

// AddMarket attaches a new open market to the event.
func (e *entity) AddMarket(ctx context.Context, marketID, name, description string) (domain.SportEvent, error) {
	if !e.initialized() {
		return domain.SportEvent{}, domain.ErrPrecondition("event has not been created")
	}
	if _, exists := e.event.Markets[marketID]; exists {
		return e.event, nil
	}
	evt := buildEvent(e.eventID, marketCreatedEvent, marketCreatedPayload{
		MarketID: marketID, Name: name, Description: description,
	}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{evt}); err != nil {
		return domain.SportEvent{}, err
	}
	return e.event, nil
}

// TransitionEvent moves the event to a new status, validating the legal
// transition table (§4.8).
func (e *entity) TransitionEvent(ctx context.Context, to domain.EventStatus) (domain.SportEvent, error) {
	if !domain.CanTransitionEvent(e.event.Status, to) {
		return domain.SportEvent{}, domain.ErrPrecondition(
			"illegal event transition " + string(e.event.Status) + " -> " + string(to))
	}
	evt := buildEvent(e.eventID, domain.EventEventStatusChangedEvent, eventStatusPayload{
		From: e.event.Status, To: to,
	}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{evt}); err != nil {
		return domain.SportEvent{}, err
	}
	return e.event, nil
}

// TransitionMarket moves marketID to a new status, validating the legal
// transition table (§4.8).
func (e *entity) TransitionMarket(ctx context.Context, marketID string, to domain.MarketStatus) (domain.SportEvent, error) {
	m, ok := e.event.Markets[marketID]
	if !ok {
		return domain.SportEvent{}, domain.ErrNotFound("market", marketID)
	}
	if !domain.CanTransitionMarket(m.Status, to) {
		return domain.SportEvent{}, domain.ErrPrecondition(
			"illegal market transition " + string(m.Status) + " -> " + string(to))
	}
	evt := buildEvent(e.eventID, domain.EventMarketStatusChangedEvent, marketStatusPayload{
		MarketID: marketID, From: m.Status, To: to,
	}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{evt}); err != nil {
		return domain.SportEvent{}, err
	}
	return e.event, nil
}

// SetMarketResult transitions marketID to settled and emits marketSettled,
// the settlement saga's trigger (§4.8, §4.9). winningSelectionID is
// ignored when voided is true.
func (e *entity) SetMarketResult(ctx context.Context, marketID, winningSelectionID string, voided bool) (domain.SportEvent, error) {
	m, ok := e.event.Markets[marketID]
	if !ok {
		return domain.SportEvent{}, domain.ErrNotFound("market", marketID)
	}
	if !voided && !domain.CanTransitionMarket(m.Status, domain.MarketSettled) {
		return domain.SportEvent{}, domain.ErrPrecondition(
			"market must be closed before settlement, currently " + string(m.Status))
	}
	evt := buildEvent(e.eventID, domain.EventMarketSettledEvent, marketSettledPayload{
		MarketID: marketID, WinningSelectionID: winningSelectionID, Voided: voided,
	}, time.Now())
	if err := e.appendAndStage(ctx, []domain.DomainEvent{evt}); err != nil {
		return domain.SportEvent{}, err
	}
	return e.event, nil
}

// Snapshot returns the event's current full state.
func (e *entity) Snapshot(ctx context.Context) (domain.SportEvent, error) {
	return e.event, nil
}
