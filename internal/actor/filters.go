package actor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CallFilter wraps every dispatched call, outermost filter first, the way
// HTTP middleware wraps a handler. Invoke must call next to proceed; a
// filter that wants to short-circuit a call returns without calling it.
type CallFilter interface {
	Invoke(ctx context.Context, id Identity, next func(ctx context.Context) (any, error)) (any, error)
}

// CallFilterFunc adapts a plain function to CallFilter.
type CallFilterFunc func(ctx context.Context, id Identity, next func(ctx context.Context) (any, error)) (any, error)

// Invoke implements CallFilter.
func (f CallFilterFunc) Invoke(ctx context.Context, id Identity, next func(ctx context.Context) (any, error)) (any, error) {
	return f(ctx, id, next)
}

// LoggingFilter logs each call's entity, duration, and outcome at debug
// level, and errors at warn level.
func LoggingFilter(logger *slog.Logger) CallFilter {
	return CallFilterFunc(func(ctx context.Context, id Identity, next func(ctx context.Context) (any, error)) (any, error) {
		start := time.Now()
		v, err := next(ctx)
		elapsed := time.Since(start)
		if err != nil {
			logger.Warn("entity call failed", "identity", id.String(), "elapsed", elapsed, "error", err)
		} else {
			logger.Debug("entity call completed", "identity", id.String(), "elapsed", elapsed)
		}
		return v, err
	})
}

// Metrics is an in-process counter set for entity call volume, kept
// in-memory per §1's exclusion of an external metrics sink.
type Metrics struct {
	mu      sync.Mutex
	calls   map[string]int64
	errors  map[string]int64
	latency map[string]time.Duration
}

// NewMetrics creates an empty in-process metrics sink.
func NewMetrics() *Metrics {
	return &Metrics{
		calls:   make(map[string]int64),
		errors:  make(map[string]int64),
		latency: make(map[string]time.Duration),
	}
}

// Snapshot returns per-entity-type call counts, error counts, and total
// latency observed so far.
func (m *Metrics) Snapshot() map[string]struct {
	Calls   int64
	Errors  int64
	Latency time.Duration
} {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]struct {
		Calls   int64
		Errors  int64
		Latency time.Duration
	}, len(m.calls))
	for t, c := range m.calls {
		out[t] = struct {
			Calls   int64
			Errors  int64
			Latency time.Duration
		}{Calls: c, Errors: m.errors[t], Latency: m.latency[t]}
	}
	return out
}

func (m *Metrics) record(entityType string, elapsed time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[entityType]++
	m.latency[entityType] += elapsed
	if failed {
		m.errors[entityType]++
	}
}

// MetricsFilter records call volume, error rate, and latency per entity
// type into m.
func MetricsFilter(m *Metrics) CallFilter {
	return CallFilterFunc(func(ctx context.Context, id Identity, next func(ctx context.Context) (any, error)) (any, error) {
		start := time.Now()
		v, err := next(ctx)
		m.record(id.Type, time.Since(start), err != nil)
		return v, err
	})
}
