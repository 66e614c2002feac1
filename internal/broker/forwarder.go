package broker

import (
	"context"
	"log/slog"
	"time"
)

// Forwarder polls an Outbox and republishes every pending event to a
// Publisher, retrying on the next tick if delivery fails. This is the
// only path by which events actually reach Kafka — entities never
// publish directly, so a broker outage never blocks a bet or wallet
// command.
type Forwarder struct {
	outbox    Outbox
	publisher Publisher
	logger    *slog.Logger
	prefix    string
	interval  time.Duration
	batchSize int
}

// NewForwarder creates a Forwarder polling every interval for up to
// batchSize pending events per tick.
func NewForwarder(outbox Outbox, publisher Publisher, topicPrefix string, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		outbox:    outbox,
		publisher: publisher,
		logger:    logger,
		prefix:    topicPrefix,
		interval:  500 * time.Millisecond,
		batchSize: 100,
	}
}

// Start runs the polling loop in a goroutine until ctx is cancelled.
func (f *Forwarder) Start(ctx context.Context) {
	f.logger.Info("outbox forwarder started", "interval", f.interval, "batch_size", f.batchSize)
	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				f.logger.Info("outbox forwarder stopped")
				return
			case <-ticker.C:
				if err := f.forwardOnce(ctx); err != nil {
					f.logger.Error("outbox forward error", "error", err)
				}
			}
		}
	}()
}

func (f *Forwarder) forwardOnce(ctx context.Context) error {
	events, err := f.outbox.PendingBatch(ctx, f.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	for _, e := range events {
		if err := f.publisher.Publish(ctx, f.prefix, e); err != nil {
			f.logger.Error("publish failed, will retry next tick", "event_id", e.ID, "error", err)
			continue
		}
		if err := f.outbox.MarkPublished(ctx, e.ID); err != nil {
			f.logger.Error("mark published failed", "event_id", e.ID, "error", err)
		}
	}
	f.logger.Debug("outbox forward complete", "published", len(events))
	return nil
}
