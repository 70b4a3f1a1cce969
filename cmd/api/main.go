package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmarroquin/casedesk-backend/api/responses"
	"github.com/rmarroquin/casedesk-backend/api/routes"
	"github.com/rmarroquin/casedesk-backend/internal/assignment"
	"github.com/rmarroquin/casedesk-backend/internal/auth"
	"github.com/rmarroquin/casedesk-backend/internal/cases"
	"github.com/rmarroquin/casedesk-backend/internal/cron"
	"github.com/rmarroquin/casedesk-backend/internal/events"
	"github.com/rmarroquin/casedesk-backend/internal/sla"
	"github.com/rmarroquin/casedesk-backend/internal/users"
	"github.com/rmarroquin/casedesk-backend/pkg/config"
	"github.com/rmarroquin/casedesk-backend/pkg/db"
	"github.com/rmarroquin/casedesk-backend/pkg/logger"
	"github.com/rmarroquin/casedesk-backend/pkg/metrics"
	"github.com/rmarroquin/casedesk-backend/pkg/migrate"
	"github.com/rmarroquin/casedesk-backend/pkg/outbox"
	pkgredis "github.com/rmarroquin/casedesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	responses.SetDebugDetails(cfg.App.Debug)

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

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	casesRepo := cases.NewRepository(gormDB)
	eventsRepo := events.NewRepository(gormDB)
	pickerRepo := assignment.NewPickerRepository(gormDB)
	slaRepo := sla.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:  usersRepo,
		JWT:    cfg.JWT,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	userService, err := users.NewService(users.ServiceParams{
		Repo:     usersRepo,
		Password: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	caseService, err := cases.NewService(cases.ServiceParams{
		Repo:   casesRepo,
		TX:     dbClient,
		Agents: usersRepo,
		Events: eventsRepo,
		Outbox: outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create case service", err)
		os.Exit(1)
	}

	assignmentService, err := assignment.NewService(assignment.ServiceParams{
		TX:         dbClient,
		Cases:      casesRepo,
		Picker:     pickerRepo,
		Rotation:   usersRepo,
		Events:     eventsRepo,
		Outbox:     outboxService,
		Metrics:    metrics.NewAssignmentMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
		BatchLimit: cfg.Assignment.BatchLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}

	gateLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(sla.GateName), cfg.SLA.RecomputeInterval)
	if err != nil {
		logg.Error(context.Background(), "failed to create sla gate lock", err)
		os.Exit(1)
	}

	slaService, err := sla.NewService(sla.ServiceParams{
		Logger:   logg,
		Repo:     slaRepo,
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			authService,
			caseService,
			assignmentService,
			slaService,
			userService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
