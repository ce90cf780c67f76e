package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dunning-api/internal/config"
	"github.com/jwalitptl/dunning-api/internal/email"
	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/reminder"
	"github.com/jwalitptl/dunning-api/internal/repository/cache"
	"github.com/jwalitptl/dunning-api/internal/repository/postgres"
	"github.com/jwalitptl/dunning-api/internal/service/delivery"
	"github.com/jwalitptl/dunning-api/internal/service/dispatch"
	"github.com/jwalitptl/dunning-api/internal/worker"
	"github.com/jwalitptl/dunning-api/pkg/logger"
	"github.com/jwalitptl/dunning-api/pkg/messaging/redis"
	"github.com/jwalitptl/dunning-api/pkg/metrics"
)

func setupHealthCheck(logger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			logger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}

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

	m := metrics.New("dunning_scheduler")

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

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	retention := worker.NewRetentionWorker(
		deliveryRepo,
		cfg.Retention.DeliveryRecordDays,
		cfg.Retention.SweepInterval,
		appLogger,
	)
	go retention.Start(ctx)

	cronEngine := cron.New()
	_, err = cronEngine.AddFunc(cfg.Dispatch.CronSpec, func() {
		runCtx, runCancel := context.WithTimeout(model.WithActor(ctx, model.ActorSystem), 30*time.Minute)
		defer runCancel()

		summary, err := dispatchSvc.RunAutoSendCycle(runCtx, time.Now())
		if err != nil {
			appLogger.Error(err, "Auto-send cycle failed")
			return
		}
		appLogger.Info("Auto-send cycle finished",
			"buckets_processed", summary.BucketsProcessed,
			"candidates_built", summary.CandidatesBuilt,
			"sent", summary.Sent,
			"failed", summary.Failed,
			"skipped_ineligible", summary.SkippedIneligible,
			"errors", len(summary.Errors))
	})
	if err != nil {
		appLogger.Fatal(err, "Failed to schedule auto-send job")
	}

	cronEngine.Start()
	appLogger.Info("Scheduler started", "cron_spec", cfg.Dispatch.CronSpec)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Shutting down...")
	cancel()
	stopCtx := cronEngine.Stop()
	<-stopCtx.Done()
}
