package actor

import (
	"context"
	"log/slog"
)

// Runtime bundles a Registry with the standard call filter chain
// (metrics then logging). The cmd entrypoints build a bare Registry with
// actor.NewRegistry instead and install no filters.
type Runtime struct {
	Registry *Registry
	Metrics  *Metrics
}

// NewRuntime builds a Registry with metrics and logging filters installed,
// per the ambient observability conventions carried into every entity
// type.
func NewRuntime(logger *slog.Logger, opts ...Option) *Runtime {
	metrics := NewMetrics()
	allOpts := append([]Option{WithFilters(MetricsFilter(metrics), LoggingFilter(logger))}, opts...)
	return &Runtime{
		Registry: NewRegistry(logger, allOpts...),
		Metrics:  metrics,
	}
}

// Call dispatches handle against the named entity and type-asserts the
// result, the shape every entity package's exported methods use. handle
// receives the activated Entity and type-asserts it to the concrete
// entity type the caller's package knows about.
func Call[T any](ctx context.Context, r *Registry, id Identity, handle func(ctx context.Context, self Entity) (T, error), opts ...CallOption) (T, error) {
	var zero T
	v, err := r.Dispatch(ctx, id, opts...).Do(ctx, func(ctx context.Context, self Entity) (any, error) {
		return handle(ctx, self)
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	result, ok := v.(T)
	if !ok {
		return zero, err
	}
	return result, nil
}

// Shutdown stops the runtime's registry, deactivating every live entity.
func (rt *Runtime) Shutdown() {
	rt.Registry.Close()
}
