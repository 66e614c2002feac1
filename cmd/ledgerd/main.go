// Command ledgerd hosts the actor runtime and HTTP contract layer for the
// betting ledger: wallet, bet, bet-index, odds and event/market entities,
// all dispatched through a single actor registry backed by Postgres event
// streams and outbox. Settlement sagas run in cmd/saga-worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/bet"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/config"
	"github.com/attaboy/ledger/internal/dbmigrate"
	"github.com/attaboy/ledger/internal/eventlog"
	"github.com/attaboy/ledger/internal/httpapi"
	"github.com/attaboy/ledger/internal/httpapi/auth"
	"github.com/attaboy/ledger/internal/market"
	"github.com/attaboy/ledger/internal/odds"
	"github.com/attaboy/ledger/internal/wallet"
)

const topicPrefix = "ledger"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("ledgerd failed", "error", err)
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
	logger.Info("ledgerd connected to postgres")

	if err := dbmigrate.Run(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := eventlog.NewPostgresStore(pool)
	outbox := broker.NewPostgresOutbox(pool)
	publisher := broker.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer publisher.Close()

	forwarder := broker.NewForwarder(outbox, publisher, topicPrefix, logger)
	forwarder.Start(ctx)

	registry := actor.NewRegistry(logger)
	walletSvc := wallet.NewService(registry, store, outbox)
	oddsSvc := odds.NewService(registry, store, outbox)
	betSvc := bet.NewService(registry, store, outbox, walletSvc, oddsSvc)
	indexSvc := bet.NewIndexService(registry, store, outbox, betSvc)
	marketSvc := market.NewService(registry, store, outbox)

	expiry, err := time.ParseDuration(cfg.JWTExpiry)
	if err != nil {
		return fmt.Errorf("parse JWT_EXPIRY: %w", err)
	}
	authMgr := auth.NewManager(cfg.JWTSecret, expiry)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Wallet:             walletSvc,
		Bet:                betSvc,
		BetIndex:           indexSvc,
		Odds:               oddsSvc,
		Market:             marketSvc,
		AuthManager:        authMgr,
		Logger:             logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledgerd starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("ledgerd shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("ledgerd error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ledgerd shutdown failed: %w", err)
	}

	logger.Info("ledgerd stopped gracefully")
	return nil
}
