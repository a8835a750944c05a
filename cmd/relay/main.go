package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rushinski/rdk-webstore-sub003/internal/config"
	kafkax "github.com/rushinski/rdk-webstore-sub003/internal/kafka"
	"github.com/rushinski/rdk-webstore-sub003/internal/logging"
	"github.com/rushinski/rdk-webstore-sub003/internal/outbox"
	"github.com/rushinski/rdk-webstore-sub003/internal/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.ServiceName+"-relay")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers)

	relay := &outbox.Relay{
		DB:       db,
		Producer: prod,
		Log:      logger,
		Interval: time.Second,
		Batch:    100,
	}

	go func() {
		logger.Info("outbox relay started")
		if err := relay.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("relay exit", zap.Error(err))
		}
		cancel()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down relay")
	cancel()
	_ = prod.Close()
}
