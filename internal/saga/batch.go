package saga

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/attaboy/ledger/internal/domain"
)

// BatchResult is one settlement request's outcome within a Coordinator run.
type BatchResult struct {
	Request domain.SettlementRequest
	Saga    domain.SettlementSaga
	Err     error
}

// Coordinator dispatches a set of settlement requests — one per settled
// market — across the saga entity pool with bounded concurrency (§4.9).
// Each request runs as an independent saga; one saga failing never blocks
// or aborts the others.
type Coordinator struct {
	service     *Service
	concurrency int
}

// NewCoordinator builds a batch coordinator over svc. concurrency bounds
// how many sagas run at once; a value <= 0 defaults to 8.
func NewCoordinator(svc *Service, concurrency int) *Coordinator {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Coordinator{service: svc, concurrency: concurrency}
}

// Run processes requests to completion, or until ctx is cancelled. On
// cancellation, in-flight sagas are allowed to finish (each already holds
// its own entity lock and must reach a terminal state), but no new saga is
// dispatched. Results are returned in the order requests were given, one
// per request, after every dispatched saga has finished or the batch is
// abandoned early.
func (c *Coordinator) Run(ctx context.Context, requests []domain.SettlementRequest) []BatchResult {
	results := make([]BatchResult, len(requests))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)

	for i, req := range requests {
		i, req := i, req
		group.Go(func() error {
			if gctx.Err() != nil {
				results[i] = BatchResult{Request: req, Err: gctx.Err()}
				return nil
			}
			saga, err := c.service.Settle(ctx, req)
			results[i] = BatchResult{Request: req, Saga: saga, Err: err}
			return nil
		})
	}
	_ = group.Wait()
	return results
}
