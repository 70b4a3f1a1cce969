package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmarroquin/casedesk-backend/internal/cron"
	"github.com/rmarroquin/casedesk-backend/internal/sla"
	"github.com/rmarroquin/casedesk-backend/pkg/config"
	"github.com/rmarroquin/casedesk-backend/pkg/db"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
	"github.com/rmarroquin/casedesk-backend/pkg/metrics"
	"github.com/rmarroquin/casedesk-backend/pkg/migrate"
	"github.com/rmarroquin/casedesk-backend/pkg/outbox"
	pkgredis "github.com/rmarroquin/casedesk-backend/pkg/redis"
)

const lockKeyFormat = "cd:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := pkgredis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(sla.GateName), cfg.SLA.RecomputeInterval)
	if err != nil {
		logg.Error(context.Background(), "failed to create sla gate lock", err)
		os.Exit(1)
	}

	slaService, err := sla.NewService(sla.ServiceParams{
		Logger:   logg,
		Repo:     sla.NewRepository(dbClient.DB()),
		Lock:     gateLock,
		Interval: cfg.SLA.RecomputeInterval,
		Thresholds: sla.Thresholds{
			GreenMaxDays:  cfg.SLA.GreenMaxDays,
			YellowMaxDays: cfg.SLA.YellowMaxDays,
		},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sla service", err)
		os.Exit(1)
	}

	slaJob, err := cron.NewSLARecomputeJob(cron.SLARecomputeJobParams{
		Logger: logg,
		SLA:    slaService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sla recompute job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  int(cfg.Outbox.Retention.Hours() / 24),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(slaJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
