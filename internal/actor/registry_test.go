package actor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type counterEntity struct {
	mu          sync.Mutex
	count       int
	activated   int32
	deactivated int32
}

func (c *counterEntity) OnActivate(ctx context.Context) error {
	atomic.AddInt32(&c.activated, 1)
	return nil
}

func (c *counterEntity) OnDeactivate(ctx context.Context) error {
	atomic.AddInt32(&c.deactivated, 1)
	return nil
}

func (c *counterEntity) increment() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.count
}

func TestRegistryDispatchActivatesOnce(t *testing.T) {
	r := NewRegistry(discardLogger(), WithIdleTimeout(time.Hour))
	defer r.Close()

	ent := &counterEntity{}
	r.Register("counter", func(ctx context.Context, id Identity) (Entity, error) {
		return ent, nil
	})

	id := Identity{Type: "counter", Key: "a"}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := r.Dispatch(ctx, id).Do(ctx, func(ctx context.Context, self Entity) (any, error) {
			return ent.increment(), nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 5, ent.count)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ent.activated))
}

func TestRegistrySerializesConcurrentCalls(t *testing.T) {
	r := NewRegistry(discardLogger(), WithIdleTimeout(time.Hour))
	defer r.Close()

	ent := &counterEntity{}
	r.Register("counter", func(ctx context.Context, id Identity) (Entity, error) {
		return ent, nil
	})

	id := Identity{Type: "counter", Key: "b"}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Dispatch(ctx, id).Do(ctx, func(ctx context.Context, self Entity) (any, error) {
				return ent.increment(), nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, ent.count)
}

func TestRegistryUnknownEntityType(t *testing.T) {
	r := NewRegistry(discardLogger(), WithIdleTimeout(time.Hour))
	defer r.Close()

	ctx := context.Background()
	_, err := r.Dispatch(ctx, Identity{Type: "missing", Key: "x"}).Do(ctx, func(ctx context.Context, self Entity) (any, error) {
		return nil, nil
	})
	require.Error(t, err)
}

func TestRegistryReapsIdleEntities(t *testing.T) {
	r := NewRegistry(discardLogger(), WithIdleTimeout(20*time.Millisecond))
	defer r.Close()

	ent := &counterEntity{}
	r.Register("counter", func(ctx context.Context, id Identity) (Entity, error) {
		return ent, nil
	})

	id := Identity{Type: "counter", Key: "c"}
	ctx := context.Background()
	_, err := r.Dispatch(ctx, id).Do(ctx, func(ctx context.Context, self Entity) (any, error) {
		return ent.increment(), nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&ent.deactivated) == 1
	}, time.Second, 10*time.Millisecond)
}

type reentrantEntity struct {
	registry *Registry
	id       Identity
}

func (e *reentrantEntity) OnActivate(ctx context.Context) error   { return nil }
func (e *reentrantEntity) OnDeactivate(ctx context.Context) error { return nil }

func TestReentrantCallRunsInline(t *testing.T) {
	r := NewRegistry(discardLogger(), WithIdleTimeout(time.Hour))
	defer r.Close()

	ent := &reentrantEntity{registry: r, id: Identity{Type: "reentrant", Key: "only"}}
	r.Register("reentrant", func(ctx context.Context, id Identity) (Entity, error) {
		return ent, nil
	})

	ctx := context.Background()
	done := make(chan error, 1)
	go func() {
		_, err := r.Dispatch(ctx, ent.id).Do(ctx, func(ctx context.Context, self Entity) (any, error) {
			// Calling back into the same entity without WithReentrant would
			// deadlock, since this goroutine is the only one draining the
			// mailbox and is currently blocked inside this very call.
			_, err := r.Dispatch(ctx, ent.id, WithReentrant()).Do(ctx, func(ctx context.Context, self Entity) (any, error) {
				return "inner", nil
			})
			return "outer", err
		})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reentrant call deadlocked")
	}
}
