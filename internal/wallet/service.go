package wallet

import (
	"context"

	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
)

// EntityType is the actor registry key for wallet entities.
const EntityType = "wallet"

// DefaultCurrency is used when activating a wallet that has no prior
// event stream, since activation params carry only the user ID.
const DefaultCurrency = "USD"

// Service is the public wallet API, dispatching every command through
// the actor registry so concurrent callers against the same user never
// race (§4.4, §5).
type Service struct {
	registry *actor.Registry
}

// NewService registers the wallet entity factory on registry and returns
// a Service for dispatching commands against it.
func NewService(registry *actor.Registry, store eventlog.Store, outbox broker.Outbox) *Service {
	registry.Register(EntityType, func(ctx context.Context, id actor.Identity) (actor.Entity, error) {
		userID, err := uuid.Parse(id.Key)
		if err != nil {
			return nil, domain.ErrValidation("invalid wallet user id: " + id.Key)
		}
		return newEntity(userID, DefaultCurrency, store, outbox), nil
	})
	return &Service{registry: registry}
}

func identity(userID uuid.UUID) actor.Identity {
	return actor.Identity{Type: EntityType, Key: userID.String()}
}

// Deposit credits userID's wallet.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, params domain.DepositParams) (domain.WalletCommandResult, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) (domain.WalletCommandResult, error) {
		return self.(*entity).Deposit(ctx, params)
	})
}

// Withdraw debits userID's wallet.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, params domain.WithdrawParams) (domain.WalletCommandResult, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) (domain.WalletCommandResult, error) {
		return self.(*entity).Withdraw(ctx, params)
	})
}

// Reserve holds funds against a bet placement.
func (s *Service) Reserve(ctx context.Context, userID uuid.UUID, params domain.ReserveParams) (domain.WalletCommandResult, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) (domain.WalletCommandResult, error) {
		return self.(*entity).Reserve(ctx, params)
	})
}

// CommitReservation finalizes a reservation as spent.
func (s *Service) CommitReservation(ctx context.Context, userID uuid.UUID, params domain.CommitReservationParams) (domain.WalletCommandResult, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) (domain.WalletCommandResult, error) {
		return self.(*entity).CommitReservation(ctx, params)
	})
}

// ReleaseReservation returns a reservation's funds to available balance.
func (s *Service) ReleaseReservation(ctx context.Context, userID uuid.UUID, params domain.ReleaseReservationParams) (domain.WalletCommandResult, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) (domain.WalletCommandResult, error) {
		return self.(*entity).ReleaseReservation(ctx, params)
	})
}

// ProcessPayout credits a settlement payout.
func (s *Service) ProcessPayout(ctx context.Context, userID uuid.UUID, params domain.ProcessPayoutParams) (domain.WalletCommandResult, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) (domain.WalletCommandResult, error) {
		return self.(*entity).ProcessPayout(ctx, params)
	})
}

// ReversePayout reverses a previously processed payout.
func (s *Service) ReversePayout(ctx context.Context, userID uuid.UUID, params domain.ReversePayoutParams) (domain.WalletCommandResult, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) (domain.WalletCommandResult, error) {
		return self.(*entity).ReversePayout(ctx, params)
	})
}

// GetBalance returns a read-only snapshot of userID's wallet.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (domain.WalletSnapshot, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) (domain.WalletSnapshot, error) {
		return self.(*entity).state.Snapshot()
	})
}

// GetTransactionHistory returns userID's most-recent-first transaction
// list, capped at limit.
func (s *Service) GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WalletTransaction, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) ([]domain.WalletTransaction, error) {
		return self.(*entity).GetTransactionHistory(ctx, limit), nil
	})
}

// GetLedgerEntries returns userID's most-recent-first ledger entry list,
// capped at limit.
func (s *Service) GetLedgerEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	return actor.Call(ctx, s.registry, identity(userID), func(ctx context.Context, self actor.Entity) ([]domain.LedgerEntry, error) {
		return self.(*entity).GetLedgerEntries(ctx, limit), nil
	})
}
