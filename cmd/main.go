package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ticketforge/ticketing-api/internal/config"
	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/internal/handlers"
	"github.com/ticketforge/ticketing-api/internal/infrastructure/chain"
	"github.com/ticketforge/ticketing-api/internal/infrastructure/events"
	"github.com/ticketforge/ticketing-api/internal/infrastructure/repository"
	"github.com/ticketforge/ticketing-api/internal/service"
	"github.com/ticketforge/ticketing-api/migrations"
	"github.com/ticketforge/ticketing-api/shared/logging"
	"github.com/ticketforge/ticketing-api/shared/messaging"
	"github.com/ticketforge/ticketing-api/shared/migration"
	"github.com/ticketforge/ticketing-api/shared/monitoring"
	"github.com/ticketforge/ticketing-api/shared/postgres"
	"github.com/ticketforge/ticketing-api/shared/recovery"
	"github.com/ticketforge/ticketing-api/shared/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(&cfg.Logging)
	logger := logging.Default()

	if err := monitoring.InitSentry(&cfg.Sentry); err != nil {
		logger.WithError(err).Warn("sentry disabled")
	}
	defer monitoring.FlushSentry()

	postgresDb, err := postgres.NewPostgres(cfg.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer postgresDb.Close()

	migrator, err := migration.NewMigrator(&migration.Config{
		DB:         postgresDb.GetClient(),
		Migrations: migrations.Files,
		Dir:        ".",
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create migrator")
	}
	if err := migrator.Migrate(); err != nil {
		logger.WithError(err).Fatal("failed to run migrations")
	}

	redis.Env = cfg.Environment
	redisDb, err := redis.NewRedis(cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisDb.Close()

	rabbitmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer rabbitmq.Close()

	gateway := chain.NewGatewayClient(cfg.Gateway)
	inspector, err := chain.NewInspector(cfg.ChainRPCURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to chain rpc")
	}
	registry := chain.NewStaticRegistry(
		domain.Address(cfg.SignerAddress),
		domain.Address(cfg.AggregatorAddress),
	)

	uow := repository.NewUnitOfWork(postgresDb)
	publisher := events.NewPublisher(rabbitmq)

	engine := service.NewTicketing(service.TicketingDeps{
		UnitOfWork: uow,
		Validator:  service.NewValidationService(),
		Payments:   service.NewPaymentService(gateway),
		Identity:   service.NewIdentityService(registry),
		Mint:       service.NewMintService(gateway, inspector),
		Income:     service.NewIncomeService(gateway, domain.Address(cfg.PlatformOwner)),
		Issuer:     gateway,
		Minter:     gateway,
		Publisher:  publisher,
		Logger:     logger,
		IssueCost:  cfg.IssueCost,
	})
	views := service.NewViews(uow, redisDb, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := events.NewIssuanceConsumer(rabbitmq, engine, logger)
	recovery.Go(ctx, "issuance-consumer", func(ctx context.Context) {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("issuance consumer stopped")
			stop()
		}
	})

	e := echo.New()
	e.Use(logging.RequestID())
	h := handlers.New(engine, views, logger)
	h.Register(e)
	e.GET("/healthz", func(c echo.Context) error {
		if err := postgresDb.HealthCheck(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: e,
	}
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Infof("metrics listening on :%d", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()
	go func() {
		logger.Infof("api listening on :%d", cfg.HTTPPort)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("api server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("api shutdown incomplete")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("metrics shutdown incomplete")
	}
}
