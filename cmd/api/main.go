package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rushinski/rdk-webstore-sub003/internal/catalog"
	"github.com/rushinski/rdk-webstore-sub003/internal/checkout"
	"github.com/rushinski/rdk-webstore-sub003/internal/config"
	"github.com/rushinski/rdk-webstore-sub003/internal/fulfillment"
	"github.com/rushinski/rdk-webstore-sub003/internal/httpx"
	"github.com/rushinski/rdk-webstore-sub003/internal/logging"
	"github.com/rushinski/rdk-webstore-sub003/internal/orders"
	"github.com/rushinski/rdk-webstore-sub003/internal/payments"
	"github.com/rushinski/rdk-webstore-sub003/internal/postgres"
	"github.com/rushinski/rdk-webstore-sub003/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.ServiceName)
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

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	repo := &orders.Repo{DB: db, Service: cfg.ServiceName}
	provider := payments.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)

	checkoutSvc := &checkout.Service{
		Store:      repo,
		Catalog:    &catalog.Resolver{DB: db},
		Provider:   provider,
		Tax:        checkout.FlatRateTax{BasisPoints: cfg.TaxRateBP},
		Log:        logger,
		Currency:   cfg.Currency,
		PendingTTL: cfg.PendingOrderTTL,
	}
	paymentProc := &payments.Processor{
		Store: repo,
		Dedup: &payments.RedisDedup{Client: rdb},
		Log:   logger,
	}
	fulfillProc := &fulfillment.Processor{Store: repo, Log: logger}

	metrics := httpx.NewServerMetrics("api")
	router := httpx.NewRouter(metrics)
	(&httpx.CheckoutHandler{Service: checkoutSvc, DefaultTenant: cfg.DefaultTenant}).Register(router)
	(&httpx.OrdersHandler{Repo: repo, Redis: rdb, DefaultTenant: cfg.DefaultTenant}).Register(router)
	(&httpx.WebhooksHandler{
		Provider:     provider,
		Payments:     paymentProc,
		Fulfillment:  fulfillProc,
		CarrierToken: cfg.CarrierWebhookToken,
		Log:          logger,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
}
