// Package wallet implements the per-user wallet entity: balance,
// reservation, and transaction-posting commands, each idempotent by
// reference ID and durable via an append-only event stream.
package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

// entity is the actor.Entity backing one user's wallet. All commands run
// serialized on its mailbox goroutine, so balance math never races.
type entity struct {
	userID uuid.UUID
	store  eventlog.Store
	outbox broker.Outbox

	state   domain.WalletState
	version int64
}

func newEntity(userID uuid.UUID, currency string, store eventlog.Store, outbox broker.Outbox) *entity {
	return &entity{
		userID: userID,
		store:  store,
		outbox: outbox,
		state:  domain.NewWalletState(userID, currency),
	}
}

// OnActivate replays the wallet's event stream to rebuild its in-memory
// state, per §4.2's activation contract.
func (e *entity) OnActivate(ctx context.Context) error {
	stream, err := e.store.Read(ctx, e.streamID())
	if err != nil {
		if appErr := domain.AsAppError(err); appErr != nil && appErr.Code == "NOT_FOUND" {
			e.version = -1
			return nil // fresh wallet, no prior history
		}
		return fmt.Errorf("replay wallet %s: %w", e.userID, err)
	}
	e.version = stream.Version
	for _, evt := range stream.Events {
		applyEvent(&e.state, evt)
	}
	return nil
}

// OnDeactivate is a no-op: all state is already durable in the event
// stream as of the last committed command.
func (e *entity) OnDeactivate(ctx context.Context) error {
	return nil
}

func (e *entity) streamID() string {
	return "wallet:" + e.userID.String()
}

// appendAndStage commits newEvents to the durable stream and stages them
// for broker publication, applying each to in-memory state on success.
func (e *entity) appendAndStage(ctx context.Context, newEvents []domain.DomainEvent) error {
	newVersion, err := e.store.Append(ctx, e.streamID(), e.version, newEvents)
	if err != nil {
		return err
	}
	for _, evt := range newEvents {
		applyEvent(&e.state, evt)
		if stageErr := e.outbox.Stage(ctx, evt); stageErr != nil {
			return fmt.Errorf("stage event: %w", stageErr)
		}
	}
	e.version = newVersion
	return nil
}

// applyEvent is the replay/apply function shared by activation replay and
// live command processing, keeping both paths in lockstep.
func applyEvent(state *domain.WalletState, evt domain.DomainEvent) {
	switch evt.Type {
	case domain.EventTransactionPostedEvent:
		var payload transactionPayload
		if err := unmarshalPayload(evt, &payload); err != nil {
			return
		}
		applyTransaction(state, payload.Transaction, payload.BetID)
	}
}
