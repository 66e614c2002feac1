package bet

import (
	"context"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
	"github.com/attaboy/ledger/internal/odds"
	"github.com/attaboy/ledger/internal/wallet"
)

// EntityType is the actor registry key for bet entities.
const EntityType = "bet"

// Service is the public bet API.
type Service struct {
	registry *actor.Registry
}

// NewService registers the bet entity factory on registry. walletSvc and
// oddsSvc must share the same registry so their entities serialize through
// the same runtime.
func NewService(registry *actor.Registry, store eventlog.Store, outbox broker.Outbox, walletSvc *wallet.Service, oddsSvc *odds.Service) *Service {
	registry.Register(EntityType, func(ctx context.Context, id actor.Identity) (actor.Entity, error) {
		betID, err := uuid.Parse(id.Key)
		if err != nil {
			return nil, domain.ErrValidation("invalid bet id: " + id.Key)
		}
		return newEntity(betID, store, outbox, walletSvc, oddsSvc), nil
	})
	return &Service{registry: registry}
}

func identity(betID uuid.UUID) actor.Identity {
	return actor.Identity{Type: EntityType, Key: betID.String()}
}

// PlaceBet runs the placement protocol for req.BetID.
func (s *Service) PlaceBet(ctx context.Context, req domain.PlaceBetRequest) (PlaceResult, error) {
	return actor.Call(ctx, s.registry, identity(req.BetID), func(ctx context.Context, self actor.Entity) (PlaceResult, error) {
		return self.(*entity).PlaceBet(ctx, req)
	})
}

// VoidBet cancels betID's bet.
func (s *Service) VoidBet(ctx context.Context, betID uuid.UUID, reason string) (domain.Bet, error) {
	return actor.Call(ctx, s.registry, identity(betID), func(ctx context.Context, self actor.Entity) (domain.Bet, error) {
		return self.(*entity).VoidBet(ctx, reason)
	})
}

// CashOut settles betID early at the current market price.
func (s *Service) CashOut(ctx context.Context, betID uuid.UUID) (CashOutResult, error) {
	return actor.Call(ctx, s.registry, identity(betID), func(ctx context.Context, self actor.Entity) (CashOutResult, error) {
		return self.(*entity).CashOut(ctx)
	})
}

// SettleBet applies a saga's settlement outcome to betID.
func (s *Service) SettleBet(ctx context.Context, betID uuid.UUID, finalStatus domain.BetStatus, payout *domain.Money, sagaID uuid.UUID) (SettleResult, error) {
	return actor.Call(ctx, s.registry, identity(betID), func(ctx context.Context, self actor.Entity) (SettleResult, error) {
		return self.(*entity).SettleBet(ctx, finalStatus, payout, sagaID)
	})
}

// ReverseSettlement undoes a prior settlement of betID, clawing back any
// payout already credited, as part of a settlement saga's compensation.
func (s *Service) ReverseSettlement(ctx context.Context, betID uuid.UUID, reason string) (domain.Bet, error) {
	return actor.Call(ctx, s.registry, identity(betID), func(ctx context.Context, self actor.Entity) (domain.Bet, error) {
		return self.(*entity).ReverseSettlement(ctx, reason)
	})
}

// GetBetHistory returns betID's reconstructed state transitions.
func (s *Service) GetBetHistory(ctx context.Context, betID uuid.UUID) ([]domain.BetHistoryEntry, error) {
	return actor.Call(ctx, s.registry, identity(betID), func(ctx context.Context, self actor.Entity) ([]domain.BetHistoryEntry, error) {
		return self.(*entity).GetBetHistory(ctx)
	})
}

// GetBet returns betID's current snapshot.
func (s *Service) GetBet(ctx context.Context, betID uuid.UUID) (domain.Bet, error) {
	return actor.Call(ctx, s.registry, identity(betID), func(ctx context.Context, self actor.Entity) (domain.Bet, error) {
		return self.(*entity).Snapshot(ctx)
	})
}
