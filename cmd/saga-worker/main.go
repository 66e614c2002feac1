// Command saga-worker drives settlement sagas from a broker-delivered
// stream of settlement requests. Each message is a JSON-encoded
// domain.SettlementRequest, produced by the risk/trading system that
// decides a market's result and the bets it affects; this process just
// dispatches each request to the settlement saga and lets the saga's own
// retry/compensation logic (§4.9) handle the rest.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/bet"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/config"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
	"github.com/attaboy/ledger/internal/odds"
	"github.com/attaboy/ledger/internal/saga"
	"github.com/attaboy/ledger/internal/wallet"
)

const settlementRequestTopic = "ledger.settlement.requests"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("saga-worker failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	pool, err := config.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("saga-worker connected to postgres")

	store := eventlog.NewPostgresStore(pool)
	outbox := broker.NewPostgresOutbox(pool)

	registry := actor.NewRegistry(logger)
	walletSvc := wallet.NewService(registry, store, outbox)
	oddsSvc := odds.NewService(registry, store, outbox)
	betSvc := bet.NewService(registry, store, outbox, walletSvc, oddsSvc)
	sagaSvc := saga.NewService(registry, store, outbox, betSvc)
	coordinator := saga.NewCoordinator(sagaSvc, cfg.SettlementConcurrency)

	if !cfg.KafkaEnabled {
		logger.Warn("kafka disabled, saga-worker has nothing to consume; idling until shutdown")
		<-ctx.Done()
		return nil
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: strings.Split(cfg.KafkaBrokers, ","),
		Topic:   settlementRequestTopic,
		GroupID: "saga-worker",
	})
	defer reader.Close()

	logger.Info("saga-worker starting", "topic", settlementRequestTopic)
	return consumeLoop(ctx, reader, coordinator, logger)
}

func consumeLoop(ctx context.Context, reader *kafkago.Reader, coordinator *saga.Coordinator, logger *slog.Logger) error {
	const batchSize = 16
	batch := make([]domain.SettlementRequest, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		results := coordinator.Run(ctx, batch)
		for _, r := range results {
			if r.Err != nil {
				logger.Error("settlement saga failed", "saga_id", r.Request.SagaID, "error", r.Err)
				continue
			}
			logger.Info("settlement saga completed", "saga_id", r.Request.SagaID, "status", r.Saga.Status)
		}
		batch = batch[:0]
	}

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				flush()
				logger.Info("saga-worker shutting down")
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		var req domain.SettlementRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			logger.Error("malformed settlement request, skipping", "error", err, "offset", msg.Offset)
			if err := reader.CommitMessages(ctx, msg); err != nil {
				logger.Error("commit failed", "error", err)
			}
			continue
		}
		batch = append(batch, req)

		if len(batch) >= batchSize {
			flush()
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error("commit failed", "error", err)
		}
	}
}
