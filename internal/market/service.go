package market

import (
	"context"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

// EntityType is the actor registry key for event/market entities.
const EntityType = "event"

// Service is the public event/market API.
type Service struct {
	registry *actor.Registry
}

// NewService registers the event entity factory on registry.
func NewService(registry *actor.Registry, store eventlog.Store, outbox broker.Outbox) *Service {
	registry.Register(EntityType, func(ctx context.Context, id actor.Identity) (actor.Entity, error) {
		return newEntity(id.Key, store, outbox), nil
	})
	return &Service{registry: registry}
}

func identity(eventID string) actor.Identity {
	return actor.Identity{Type: EntityType, Key: eventID}
}

// CreateEvent initializes eventID as a scheduled SportEvent.
func (s *Service) CreateEvent(ctx context.Context, eventID string, req CreateEventRequest) (domain.SportEvent, error) {
	return actor.Call(ctx, s.registry, identity(eventID), func(ctx context.Context, self actor.Entity) (domain.SportEvent, error) {
		return self.(*entity).CreateEvent(ctx, req)
	})
}

// AddMarket attaches a new market to eventID.
func (s *Service) AddMarket(ctx context.Context, eventID, marketID, name, description string) (domain.SportEvent, error) {
	return actor.Call(ctx, s.registry, identity(eventID), func(ctx context.Context, self actor.Entity) (domain.SportEvent, error) {
		return self.(*entity).AddMarket(ctx, marketID, name, description)
	})
}

// TransitionEvent moves eventID to a new status.
func (s *Service) TransitionEvent(ctx context.Context, eventID string, to domain.EventStatus) (domain.SportEvent, error) {
	return actor.Call(ctx, s.registry, identity(eventID), func(ctx context.Context, self actor.Entity) (domain.SportEvent, error) {
		return self.(*entity).TransitionEvent(ctx, to)
	})
}

// TransitionMarket moves marketID within eventID to a new status.
func (s *Service) TransitionMarket(ctx context.Context, eventID, marketID string, to domain.MarketStatus) (domain.SportEvent, error) {
	return actor.Call(ctx, s.registry, identity(eventID), func(ctx context.Context, self actor.Entity) (domain.SportEvent, error) {
		return self.(*entity).TransitionMarket(ctx, marketID, to)
	})
}

// SetMarketResult settles marketID within eventID.
func (s *Service) SetMarketResult(ctx context.Context, eventID, marketID, winningSelectionID string, voided bool) (domain.SportEvent, error) {
	return actor.Call(ctx, s.registry, identity(eventID), func(ctx context.Context, self actor.Entity) (domain.SportEvent, error) {
		return self.(*entity).SetMarketResult(ctx, marketID, winningSelectionID, voided)
	})
}

// GetEvent returns eventID's current snapshot.
func (s *Service) GetEvent(ctx context.Context, eventID string) (domain.SportEvent, error) {
	return actor.Call(ctx, s.registry, identity(eventID), func(ctx context.Context, self actor.Entity) (domain.SportEvent, error) {
		return self.(*entity).Snapshot(ctx)
	})
}
