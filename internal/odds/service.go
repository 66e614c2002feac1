package odds

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

// EntityType is the actor registry key for odds/market entities.
const EntityType = "odds"

// Service is the public odds API.
type Service struct {
	registry *actor.Registry
}

// NewService registers the odds entity factory on registry.
func NewService(registry *actor.Registry, store eventlog.Store, outbox broker.Outbox) *Service {
	registry.Register(EntityType, func(ctx context.Context, id actor.Identity) (actor.Entity, error) {
		return newEntity(id.Key, store, outbox), nil
	})
	return &Service{registry: registry}
}

func identity(marketID string) actor.Identity {
	return actor.Identity{Type: EntityType, Key: marketID}
}

// InitializeMarket seeds marketID's first prices. Must be the first call
// made against a market's odds entity; a second call fails (§4.5).
func (s *Service) InitializeMarket(ctx context.Context, marketID string, initialOdds map[string]decimal.Decimal, source string) (domain.OddsSnapshot, error) {
	return actor.Call(ctx, s.registry, identity(marketID), func(ctx context.Context, self actor.Entity) (domain.OddsSnapshot, error) {
		return self.(*entity).InitializeMarket(ctx, initialOdds, source)
	})
}

// UpdateOdds applies new prices to one or more selections on marketID.
func (s *Service) UpdateOdds(ctx context.Context, marketID string, req domain.UpdateOddsRequest) (domain.OddsSnapshot, error) {
	return actor.Call(ctx, s.registry, identity(marketID), func(ctx context.Context, self actor.Entity) (domain.OddsSnapshot, error) {
		return self.(*entity).UpdateOdds(ctx, req)
	})
}

// Suspend halts betting on marketID.
func (s *Service) Suspend(ctx context.Context, marketID, reason string) (domain.OddsSnapshot, error) {
	return actor.Call(ctx, s.registry, identity(marketID), func(ctx context.Context, self actor.Entity) (domain.OddsSnapshot, error) {
		return self.(*entity).Suspend(ctx, reason)
	})
}

// Resume lifts a suspension on marketID.
func (s *Service) Resume(ctx context.Context, marketID, reason string) (domain.OddsSnapshot, error) {
	return actor.Call(ctx, s.registry, identity(marketID), func(ctx context.Context, self actor.Entity) (domain.OddsSnapshot, error) {
		return self.(*entity).Resume(ctx, reason)
	})
}

// LockSelection reserves selection's current price for betID.
func (s *Service) LockSelection(ctx context.Context, marketID, selection string, betID uuid.UUID) (domain.Odds, error) {
	return actor.Call(ctx, s.registry, identity(marketID), func(ctx context.Context, self actor.Entity) (domain.Odds, error) {
		return self.(*entity).LockSelection(ctx, selection, betID)
	})
}

// UnlockSelection releases betID's lock on selection.
func (s *Service) UnlockSelection(ctx context.Context, marketID, selection string, betID uuid.UUID) error {
	_, err := actor.Call(ctx, s.registry, identity(marketID), func(ctx context.Context, self actor.Entity) (struct{}, error) {
		return struct{}{}, self.(*entity).UnlockSelection(ctx, selection, betID)
	})
	return err
}

// GetSnapshot returns the current read-only odds view for marketID.
func (s *Service) GetSnapshot(ctx context.Context, marketID string) (domain.OddsSnapshot, error) {
	return actor.Call(ctx, s.registry, identity(marketID), func(ctx context.Context, self actor.Entity) (domain.OddsSnapshot, error) {
		return self.(*entity).Snapshot(ctx)
	})
}
