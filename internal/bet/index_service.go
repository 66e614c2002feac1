package bet

import (
	"context"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

// IndexService is the public per-user bet index API (§4.7).
type IndexService struct {
	registry *actor.Registry
}

// NewIndexService registers the bet index entity factory on registry.
func NewIndexService(registry *actor.Registry, store eventlog.Store, outbox broker.Outbox, betSvc *Service) *IndexService {
	registry.Register(IndexEntityType, func(ctx context.Context, id actor.Identity) (actor.Entity, error) {
		userID, err := uuid.Parse(id.Key)
		if err != nil {
			return nil, domain.ErrValidation("invalid bet index user id: " + id.Key)
		}
		return newIndexEntity(userID, store, outbox, betSvc), nil
	})
	return &IndexService{registry: registry}
}

func indexIdentity(userID uuid.UUID) actor.Identity {
	return actor.Identity{Type: IndexEntityType, Key: userID.String()}
}

// AddBet records betID under userID's index.
func (s *IndexService) AddBet(ctx context.Context, userID, betID uuid.UUID) error {
	_, err := actor.Call(ctx, s.registry, indexIdentity(userID), func(ctx context.Context, self actor.Entity) (struct{}, error) {
		return struct{}{}, self.(*indexEntity).AddBet(ctx, betID)
	})
	return err
}

// HasBet reports whether betID belongs to userID.
func (s *IndexService) HasBet(ctx context.Context, userID, betID uuid.UUID) (bool, error) {
	return actor.Call(ctx, s.registry, indexIdentity(userID), func(ctx context.Context, self actor.Entity) (bool, error) {
		return self.(*indexEntity).HasBet(ctx, betID)
	})
}

// GetUserBets returns userID's bets, most recently placed first.
func (s *IndexService) GetUserBets(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Bet, error) {
	return actor.Call(ctx, s.registry, indexIdentity(userID), func(ctx context.Context, self actor.Entity) ([]domain.Bet, error) {
		return self.(*indexEntity).GetUserBets(ctx, limit)
	})
}

// GetActiveBets returns userID's non-terminal bets.
func (s *IndexService) GetActiveBets(ctx context.Context, userID uuid.UUID) ([]domain.Bet, error) {
	return actor.Call(ctx, s.registry, indexIdentity(userID), func(ctx context.Context, self actor.Entity) ([]domain.Bet, error) {
		return self.(*indexEntity).GetActiveBets(ctx)
	})
}

// GetBetHistory returns userID's bets, most recently placed first, bounded
// by limit.
func (s *IndexService) GetBetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Bet, error) {
	return actor.Call(ctx, s.registry, indexIdentity(userID), func(ctx context.Context, self actor.Entity) ([]domain.Bet, error) {
		return self.(*indexEntity).GetBetHistory(ctx, limit)
	})
}
