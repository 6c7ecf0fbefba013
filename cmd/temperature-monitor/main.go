package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	httpapi "github.com/i474232898/temperature-monitor/internal/api/http"
	"github.com/i474232898/temperature-monitor/internal/config"
	"github.com/i474232898/temperature-monitor/internal/events"
	"github.com/i474232898/temperature-monitor/internal/observability"
	"github.com/i474232898/temperature-monitor/internal/scheduler"
	"github.com/i474232898/temperature-monitor/internal/store"
	"github.com/i474232898/temperature-monitor/internal/weather"
	"github.com/i474232898/temperature-monitor/internal/weather/providers"
)

const serviceName = "temperature-monitor"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure logger")
	}
	if cfg.EnvFileErr != nil {
		log.WithError(cfg.EnvFileErr).Debug("no .env file loaded, using environment only")
	}
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sample store selected by configuration.
	var sampleStore weather.Store
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to database")
		}
		defer pool.Close()

		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("failed to migrate database")
		}
		sampleStore = pg
	default:
		sampleStore = store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers guarded by a circuit breaker each; no retries.
	provs, err := providers.NewAll(httpClient, cfg.Sources, providers.BreakerConfig{
		ConsecutiveFailures: cfg.BreakerFailures,
		Timeout:             cfg.BreakerTimeout,
		HalfOpenRequests:    uint32(cfg.Workers),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to configure providers")
	}

	opts := []weather.Option{
		weather.WithLogger(log),
		weather.WithMetrics(metrics),
		weather.WithWorkers(cfg.Workers),
		weather.WithLocationTimeout(cfg.LocationTimeout),
		weather.WithReportZone(cfg.ReportZone),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.WithError(err).Warn("error closing kafka publisher")
			}
		}()
		opts = append(opts, weather.WithPublisher(publisher))
	}

	// Core service orchestrating providers and store.
	service := weather.NewService(sampleStore, provs, opts...)

	// Scheduler that periodically aggregates and stores samples.
	sched, err := scheduler.New(scheduler.Config{
		Mode:       scheduler.Mode(cfg.ScheduleMode),
		Cron:       cfg.ScheduleCron,
		FixedDelay: cfg.ScheduleFixedDelay,
		RunOnStart: cfg.ScheduleRunOnStart,
	}, cfg.Locations, service, scheduler.WithLogger(log), scheduler.WithMetrics(metrics))
	if err != nil {
		log.WithError(err).Fatal("failed to configure scheduler")
	}
	if err := sched.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterOps(app, serviceName, prometheus.DefaultGatherer)
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("fiber server stopped")
		}
	}()
	log.WithFields(logrus.Fields{
		"port":      cfg.Port,
		"locations": len(cfg.Locations),
		"sources":   len(provs),
		"store":     cfg.StoreDriver,
	}).Info("temperature monitor started")

	// Wait for termination signal
	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
}
