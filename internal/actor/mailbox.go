package actor

import (
	"context"
	"fmt"
)

type job struct {
	call   Call
	result chan<- callResult
}

type callResult struct {
	value any
	err   error
}

// mailbox is the single goroutine that owns one entity instance and
// processes its calls strictly in arrival order.
type mailbox struct {
	id     Identity
	entity Entity
	inbox  chan job
	done   chan struct{}
	runCtx context.Context
}

func newMailbox(ctx context.Context, id Identity, entity Entity, queueDepth int) *mailbox {
	return &mailbox{
		id:     id,
		entity: entity,
		inbox:  make(chan job, queueDepth),
		done:   make(chan struct{}),
		runCtx: ctx,
	}
}

// run is the mailbox's goroutine body. It activates the entity, drains
// calls until the registry closes the inbox or the context is cancelled,
// then deactivates.
func (m *mailbox) run(onExit func()) {
	defer close(m.done)
	defer onExit()

	taggedCtx := withMailbox(m.runCtx, m.id)

	if err := m.entity.OnActivate(taggedCtx); err != nil {
		m.drainWithError(fmt.Errorf("activate %s: %w", m.id, err))
		return
	}

	for {
		select {
		case j, ok := <-m.inbox:
			if !ok {
				_ = m.entity.OnDeactivate(taggedCtx)
				return
			}
			v, err := j.call.Handle(taggedCtx, m.entity)
			j.result <- callResult{value: v, err: err}
		case <-m.runCtx.Done():
			m.drainWithError(m.runCtx.Err())
			_ = m.entity.OnDeactivate(context.Background())
			return
		}
	}
}

func (m *mailbox) drainWithError(err error) {
	for {
		select {
		case j, ok := <-m.inbox:
			if !ok {
				return
			}
			j.result <- callResult{err: err}
		default:
			return
		}
	}
}

// submit enqueues a call and blocks for its result. Reentrant calls made
// from the mailbox's own goroutine (the reentrancy key carried on ctx)
// run inline instead of deadlocking against a full, self-blocked inbox.
func (m *mailbox) submit(ctx context.Context, call Call) (any, error) {
	if call.Reentrant && onMailbox(ctx) == m.id {
		return call.Handle(ctx, m.entity)
	}

	resultCh := make(chan callResult, 1)
	select {
	case m.inbox <- job{call: call, result: resultCh}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, fmt.Errorf("entity %s deactivated", m.id)
	}

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type mailboxIdentityKey struct{}

// withMailbox tags ctx as running on the given entity's mailbox
// goroutine, so a nested reentrant call against the same identity can be
// detected and executed inline.
func withMailbox(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, mailboxIdentityKey{}, id)
}

func onMailbox(ctx context.Context) Identity {
	id, _ := ctx.Value(mailboxIdentityKey{}).(Identity)
	return id
}
