package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/dreamic/permission-tracker/internal/config"
	"github.com/dreamic/permission-tracker/internal/events"
	"github.com/dreamic/permission-tracker/internal/handler"
	"github.com/dreamic/permission-tracker/internal/infra/postgresql"
	"github.com/dreamic/permission-tracker/internal/infra/postgresql/migrations"
	infraredis "github.com/dreamic/permission-tracker/internal/infra/redis"
	"github.com/dreamic/permission-tracker/internal/kvstore"
	"github.com/dreamic/permission-tracker/internal/observability"
	"github.com/dreamic/permission-tracker/internal/repository"
	"github.com/dreamic/permission-tracker/internal/service"
	"github.com/dreamic/permission-tracker/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}

	rdb, err := kvstore.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}

	broker, err := events.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	publisher := events.NewRabbitMQPublisher(broker)
	consumer := events.NewRabbitMQConsumer(broker, cfg.WorkerConcurrency, logger)

	defer func() {
		closeErr := multierr.Combine(broker.Close(), rdb.Close(), sqlDB.Close())
		if closeErr != nil {
			logger.Warn("shutdown cleanup failed", zap.Error(closeErr))
		}
	}()

	store, err := kvstore.NewRedisStore(rdb)
	if err != nil {
		return err
	}

	permissionSvc, err := service.NewPermissionService(store, publisher, cfg.FlowConfig(), metrics, logger)
	if err != nil {
		return err
	}

	eventRepo := repository.NewGormEventRepo(db)
	auditWorker, err := service.NewAuditWorker(eventRepo, consumer, cfg.WorkerConcurrency, metrics, logger)
	if err != nil {
		return err
	}

	limiter, err := infraredis.NewRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(handler.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterPermissionRoutes(app, permissionSvc, eventRepo, limiter, metrics); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("permission tracker api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return auditWorker.Start(groupCtx)
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	return g.Wait()
}
