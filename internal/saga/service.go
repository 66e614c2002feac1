package saga

import (
	"context"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/bet"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

// EntityType is the actor registry key for settlement saga entities.
const EntityType = "settlementSaga"

// Service is the public settlement saga API.
type Service struct {
	registry *actor.Registry
}

// NewService registers the saga entity factory on registry. betSvc must
// share the same registry so per-bet settlement calls serialize through
// the same runtime.
func NewService(registry *actor.Registry, store eventlog.Store, outbox broker.Outbox, betSvc *bet.Service) *Service {
	registry.Register(EntityType, func(ctx context.Context, id actor.Identity) (actor.Entity, error) {
		sagaID, err := uuid.Parse(id.Key)
		if err != nil {
			return nil, domain.ErrValidation("invalid saga id: " + id.Key)
		}
		return newEntity(sagaID, store, outbox, betSvc), nil
	})
	return &Service{registry: registry}
}

func identity(sagaID uuid.UUID) actor.Identity {
	return actor.Identity{Type: EntityType, Key: sagaID.String()}
}

// Settle runs the settlement saga for req.SagaID to completion or failure.
func (s *Service) Settle(ctx context.Context, req domain.SettlementRequest) (domain.SettlementSaga, error) {
	return actor.Call(ctx, s.registry, identity(req.SagaID), func(ctx context.Context, self actor.Entity) (domain.SettlementSaga, error) {
		return self.(*entity).RunSettlement(ctx, req)
	})
}

// GetSaga returns sagaID's current snapshot.
func (s *Service) GetSaga(ctx context.Context, sagaID uuid.UUID) (domain.SettlementSaga, error) {
	return actor.Call(ctx, s.registry, identity(sagaID), func(ctx context.Context, self actor.Entity) (domain.SettlementSaga, error) {
		return self.(*entity).state, nil
	})
}
