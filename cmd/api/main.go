package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dunning-api/internal/config"
	"github.com/jwalitptl/dunning-api/internal/email"
	"github.com/jwalitptl/dunning-api/internal/handler/bucketconfig"
	"github.com/jwalitptl/dunning-api/internal/handler/callback"
	"github.com/jwalitptl/dunning-api/internal/handler/health"
	runhandler "github.com/jwalitptl/dunning-api/internal/handler/run"
	"github.com/jwalitptl/dunning-api/internal/reminder"
	"github.com/jwalitptl/dunning-api/internal/repository/cache"
	"github.com/jwalitptl/dunning-api/internal/repository/postgres"
	"github.com/jwalitptl/dunning-api/internal/router"
	"github.com/jwalitptl/dunning-api/internal/service/delivery"
	"github.com/jwalitptl/dunning-api/internal/service/dispatch"
	"github.com/jwalitptl/dunning-api/pkg/logger"
	"github.com/jwalitptl/dunning-api/pkg/messaging/redis"
	"github.com/jwalitptl/dunning-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	appLogger := &logger.Logger{ZL: log.Logger}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		appLogger.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	m := metrics.New("dunning_api")

	base := postgres.NewBaseRepository(db, m)
	bucketRepo := postgres.NewBucketConfigRepository(base)
	invoiceRepo := postgres.NewInvoiceRepository(base)
	campaignRepo := postgres.NewCampaignRepository(base)
	deliveryRepo := postgres.NewDeliveryRepository(base)
	runRepo := postgres.NewRunRepository(base)
	customerRepo := cache.NewCustomerRepository(postgres.NewCustomerRepository(base), cfg.Dispatch.SettingsCacheTTL)
	tenantRepo := cache.NewTenantRepository(postgres.NewTenantRepository(base), cfg.Dispatch.SettingsCacheTTL)

	sender := email.NewSMTPSender(cfg.SMTP)
	tracker := delivery.NewTracker(deliveryRepo, campaignRepo, broker, appLogger, m)

	dispatchSvc := dispatch.NewService(
		bucketRepo,
		invoiceRepo,
		customerRepo,
		tenantRepo,
		campaignRepo,
		deliveryRepo,
		runRepo,
		sender,
		tracker,
		broker,
		reminder.NewPriorityEngine(nil),
		appLogger,
		m,
		dispatch.Config{
			BatchSize:   cfg.Dispatch.BatchSize,
			BatchDelay:  cfg.Dispatch.BatchDelay,
			SendTimeout: cfg.Dispatch.SendTimeout,
		},
	)

	r := router.New(
		router.Config{RateLimit: 100, RateBurst: 200},
		bucketconfig.NewHandler(bucketRepo),
		runhandler.NewHandler(dispatchSvc, runRepo),
		callback.NewHandler(tracker),
		health.NewHandler(db),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("Starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error(err, "Server shutdown failed")
	}
}
