package bet

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

// IndexEntityType is the actor registry key for the per-user bet index
// entity (§4.7).
const IndexEntityType = "betIndex"

// indexAddedEvent is local to the bet index: the index just needs a
// durable, ordered record of which bet IDs belong to a user, which has no
// analogue in the domain package's shared event vocabulary.
const indexAddedEvent domain.EventType = "betAddedToIndexEvent"

type indexAddedPayload struct {
	BetID uuid.UUID `json:"betId"`
}

type indexEntity struct {
	userID  uuid.UUID
	store   eventlog.Store
	outbox  broker.Outbox
	betSvc  *Service

	betIDs  []uuid.UUID
	seen    map[uuid.UUID]bool
	version int64
}

func newIndexEntity(userID uuid.UUID, store eventlog.Store, outbox broker.Outbox, betSvc *Service) *indexEntity {
	return &indexEntity{
		userID: userID,
		store:  store,
		outbox: outbox,
		betSvc: betSvc,
		seen:   make(map[uuid.UUID]bool),
	}
}

func (x *indexEntity) streamID() string { return "betindex:" + x.userID.String() }

func (x *indexEntity) OnActivate(ctx context.Context) error {
	stream, err := x.store.Read(ctx, x.streamID())
	if err != nil {
		if appErr := domain.AsAppError(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			x.version = -1
			return nil
		}
		return fmt.Errorf("replay bet index %s: %w", x.userID, err)
	}
	x.version = stream.Version
	for _, evt := range stream.Events {
		x.applyEvent(evt)
	}
	return nil
}

func (x *indexEntity) OnDeactivate(ctx context.Context) error { return nil }

func (x *indexEntity) applyEvent(evt domain.DomainEvent) {
	if evt.Type != indexAddedEvent {
		return
	}
	var p indexAddedPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return
	}
	if x.seen[p.BetID] {
		return
	}
	x.seen[p.BetID] = true
	x.betIDs = append(x.betIDs, p.BetID)
}

// AddBet records betID as belonging to this user, idempotently (§4.7).
func (x *indexEntity) AddBet(ctx context.Context, betID uuid.UUID) error {
	if x.seen[betID] {
		return nil
	}
	payload, _ := json.Marshal(indexAddedPayload{BetID: betID})
	event := domain.DomainEvent{
		ID:             uuid.New(),
		Timestamp:      time.Now(),
		AggregateID:    x.userID.String(),
		AggregateClass: domain.AggregateBet,
		Type:           indexAddedEvent,
		Payload:        payload,
	}
	newVersion, err := x.store.Append(ctx, x.streamID(), x.version, []domain.DomainEvent{event})
	if err != nil {
		return err
	}
	x.applyEvent(event)
	if err := x.outbox.Stage(ctx, event); err != nil {
		return fmt.Errorf("stage event: %w", err)
	}
	x.version = newVersion
	return nil
}

// HasBet reports whether betID belongs to this user's index.
func (x *indexEntity) HasBet(ctx context.Context, betID uuid.UUID) (bool, error) {
	return x.seen[betID], nil
}

func (x *indexEntity) fetchAll(ctx context.Context) ([]domain.Bet, error) {
	bets := make([]domain.Bet, 0, len(x.betIDs))
	for _, id := range x.betIDs {
		b, err := x.betSvc.GetBet(ctx, id)
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	sort.Slice(bets, func(i, j int) bool { return bets[i].PlacedAt.After(bets[j].PlacedAt) })
	return bets, nil
}

func applyLimit(bets []domain.Bet, limit int) []domain.Bet {
	if limit > 0 && limit < len(bets) {
		return bets[:limit]
	}
	return bets
}

// GetUserBets returns the user's bets, most recently placed first (§4.7).
func (x *indexEntity) GetUserBets(ctx context.Context, limit int) ([]domain.Bet, error) {
	bets, err := x.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return applyLimit(bets, limit), nil
}

// GetActiveBets returns the user's bets that have not reached a terminal
// status (§4.7).
func (x *indexEntity) GetActiveBets(ctx context.Context) ([]domain.Bet, error) {
	bets, err := x.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Bet, 0, len(bets))
	for _, b := range bets {
		if b.Status == domain.BetStatusPending || b.Status == domain.BetStatusAccepted {
			active = append(active, b)
		}
	}
	return active, nil
}

// GetBetHistory returns the user's bets, most recently placed first,
// bounded by limit (§4.7).
func (x *indexEntity) GetBetHistory(ctx context.Context, limit int) ([]domain.Bet, error) {
	return x.GetUserBets(ctx, limit)
}
