package odds

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attaboy/ledger/internal/domain"
)

func buildOddsEvent(marketID, selection string, update domain.OddsUpdate, now time.Time) domain.DomainEvent {
	payload, _ := json.Marshal(oddsUpdatePayload{Selection: selection, Update: update})
	return domain.DomainEvent{
		ID:             uuid.New(),
		Timestamp:      now,
		AggregateID:    marketID,
		AggregateClass: domain.AggregateOdds,
		Type:           domain.EventOddsUpdatedEvent,
		Payload:        payload,
	}
}

// InitializeMarket seeds the market's first prices. It is the mandatory
// first call on a market's odds entity (§4.5); a second call fails since
// the market is already initialized.
func (e *entity) InitializeMarket(ctx context.Context, initialOdds map[string]decimal.Decimal, source string) (domain.OddsSnapshot, error) {
	if e.state.Initialized {
		return domain.OddsSnapshot{}, domain.ErrConflict("market odds already initialized")
	}
	for selection, price := range initialOdds {
		if price.LessThanOrEqual(decimal.Zero) {
			return domain.OddsSnapshot{}, domain.ErrValidation("odds for selection " + selection + " must be greater than zero")
		}
	}

	now := time.Now()
	events := make([]domain.DomainEvent, 0, len(initialOdds))
	for selection, price := range initialOdds {
		update := domain.OddsUpdate{
			Previous:  decimal.Zero,
			New:       price,
			Source:    source,
			UpdatedBy: source,
			UpdatedAt: now,
		}
		events = append(events, buildOddsEvent(e.marketID, selection, update, now))
	}
	if err := e.appendAndStage(ctx, events); err != nil {
		return domain.OddsSnapshot{}, err
	}
	return e.state.Snapshot(now), nil
}

// UpdateOdds applies a new price per selection in req, recomputing
// volatility and auto-suspending the market if any selection crosses
// the volatility threshold (§4.5). Fails if the market is suspended or
// not yet initialized, or if any submitted price is not positive.
func (e *entity) UpdateOdds(ctx context.Context, req domain.UpdateOddsRequest) (domain.OddsSnapshot, error) {
	if !e.state.Initialized {
		return domain.OddsSnapshot{}, domain.ErrPrecondition("market odds have not been initialized")
	}
	if e.state.IsSuspended {
		return domain.OddsSnapshot{}, domain.ErrSuspended(e.state.SuspensionReason)
	}
	for selection, newPrice := range req.SelectionOdds {
		if newPrice.LessThanOrEqual(decimal.Zero) {
			return domain.OddsSnapshot{}, domain.ErrValidation("odds for selection " + selection + " must be greater than zero")
		}
	}

	now := time.Now()
	var events []domain.DomainEvent

	for selection, newPrice := range req.SelectionOdds {
		previous := decimal.Zero
		if current, ok := e.state.CurrentOdds[selection]; ok {
			previous = current.Decimal
		}
		update := domain.OddsUpdate{
			Previous:  previous,
			New:       newPrice,
			Source:    req.Source,
			Reason:    req.Reason,
			UpdatedBy: req.UpdatedBy,
			UpdatedAt: now,
		}
		events = append(events, buildOddsEvent(e.marketID, selection, update, now))
	}

	if err := e.appendAndStage(ctx, events); err != nil {
		return domain.OddsSnapshot{}, err
	}

	snapshot := e.state.Snapshot(now)
	if err := e.maybeAutoSuspend(ctx, snapshot, now); err != nil {
		return domain.OddsSnapshot{}, err
	}
	return e.state.Snapshot(now), nil
}

// maybeAutoSuspend suspends the market automatically when volatility
// reaches the threshold, per §4.5.
func (e *entity) maybeAutoSuspend(ctx context.Context, snapshot domain.OddsSnapshot, now time.Time) error {
	if e.state.IsSuspended || snapshot.Volatility.LessThan(e.state.VolatilityThreshold) {
		return nil
	}
	return e.suspend(ctx, "volatility threshold exceeded", true, now)
}

// Suspend halts betting on this market, manually or automatically
// (§4.5).
func (e *entity) Suspend(ctx context.Context, reason string) (domain.OddsSnapshot, error) {
	now := time.Now()
	if err := e.suspend(ctx, reason, false, now); err != nil {
		return domain.OddsSnapshot{}, err
	}
	return e.state.Snapshot(now), nil
}

func (e *entity) suspend(ctx context.Context, reason string, automatic bool, now time.Time) error {
	payload, _ := json.Marshal(map[string]any{"reason": reason, "automatic": automatic})
	event := domain.DomainEvent{
		ID:             uuid.New(),
		Timestamp:      now,
		AggregateID:    e.marketID,
		AggregateClass: domain.AggregateOdds,
		Type:           domain.EventOddsSuspendedEvent,
		Payload:        payload,
	}
	return e.appendAndStage(ctx, []domain.DomainEvent{event})
}

// Resume lifts a suspension, per §4.5.
func (e *entity) Resume(ctx context.Context, reason string) (domain.OddsSnapshot, error) {
	if !e.state.IsSuspended {
		return domain.OddsSnapshot{}, domain.ErrPrecondition("market is not suspended")
	}
	now := time.Now()
	payload, _ := json.Marshal(map[string]any{"reason": reason})
	event := domain.DomainEvent{
		ID:             uuid.New(),
		Timestamp:      now,
		AggregateID:    e.marketID,
		AggregateClass: domain.AggregateOdds,
		Type:           domain.EventOddsResumedEvent,
		Payload:        payload,
	}
	if err := e.appendAndStage(ctx, []domain.DomainEvent{event}); err != nil {
		return domain.OddsSnapshot{}, err
	}
	return e.state.Snapshot(now), nil
}

// LockSelection reserves a selection's price against a specific bet for
// the duration of placement, so a concurrent odds update doesn't change
// the price a pending bet is being accepted at (§4.5, §4.6).
func (e *entity) LockSelection(ctx context.Context, selection string, betID uuid.UUID) (domain.Odds, error) {
	if e.state.IsSuspended {
		return domain.Odds{}, domain.ErrSuspended(e.state.SuspensionReason)
	}
	current, ok := e.state.CurrentOdds[selection]
	if !ok {
		return domain.Odds{}, domain.ErrNotFound("selection", selection)
	}
	if e.state.LockedSelections[selection] == nil {
		e.state.LockedSelections[selection] = make(map[string]bool)
	}
	e.state.LockedSelections[selection][betID.String()] = true
	return current, nil
}

// UnlockSelection releases a previously acquired lock, on bet acceptance,
// rejection, or timeout (§4.5, §4.6).
func (e *entity) UnlockSelection(ctx context.Context, selection string, betID uuid.UUID) error {
	if locks, ok := e.state.LockedSelections[selection]; ok {
		delete(locks, betID.String())
	}
	return nil
}

// Snapshot returns the current read-only view (§4.5).
func (e *entity) Snapshot(ctx context.Context) (domain.OddsSnapshot, error) {
	return e.state.Snapshot(time.Now()), nil
}
