package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/s223973381/ishika-sit722/internal/order/clients"
	"github.com/s223973381/ishika-sit722/internal/order/events/consumers"
	"github.com/s223973381/ishika-sit722/internal/order/migrations"
	"github.com/s223973381/ishika-sit722/internal/order/repository"
	"github.com/s223973381/ishika-sit722/internal/order/router"
	"github.com/s223973381/ishika-sit722/shared/events"
	"github.com/s223973381/ishika-sit722/shared/events/worker"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/s223973381/ishika-sit722/shared/postgres"
	"github.com/s223973381/ishika-sit722/shared/rabbitmq"
	"github.com/s223973381/ishika-sit722/shared/web"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := logs.NewSlogLogger()
	err := godotenv.Load()
	if err == nil {
		logger.Info("loaded environment variables from .env file")
	} else {
		logger.Info("no .env file found, using environment variables")
	}

	pgDb, err := postgres.InitializePostgresDB(migrations.FS)
	if err != nil {
		logger.Error("error connecting to database", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected successfully")
	defer pgDb.Close()

	serviceClients, err := initializeServiceClients()
	if err != nil {
		logger.Error("error configuring upstream service clients", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orderRepo := repository.NewPostgreSQLOrderRepository(pgDb)

	g, gCtx := errgroup.WithContext(ctx)

	startMessaging(gCtx, g, logger, orderRepo)

	g.Go(func() error {
		return startHTTPServer(gCtx, logger, pgDb, orderRepo, serviceClients)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("application shut down gracefully")
}

// startMessaging wires the stock result consumer and the outbox relayer.
// When the broker is unreachable after the bounded dial attempts, order
// placement still works: order.placed rows pile up in the outbox and the
// saga resumes once a restarted service reconnects.
func startMessaging(ctx context.Context, g *errgroup.Group, logger logs.Logger, orderRepo *repository.PostgreSQLOrderRepository) {
	if os.Getenv("EVENTS_DISABLED") == "true" {
		logger.Info("messaging disabled by EVENTS_DISABLED, skipping broker connection")
		return
	}

	dialCfg, err := rabbitmq.DialConfigFromEnv()
	if err != nil {
		logger.Error("invalid rabbitmq configuration, messaging disabled", "error", err)
		return
	}

	client, err := rabbitmq.NewClient(ctx, logger, dialCfg)
	if err != nil {
		logger.Error("rabbitmq unavailable, continuing without messaging", "error", err)
		return
	}

	g.Go(func() error {
		consumer := consumers.NewStockResultConsumer(logger, client, orderRepo)
		logger.Info("starting StockResultConsumer")

		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("StockResultConsumer failed: %w", err)
		}

		logger.Info("StockResultConsumer stopped gracefully")
		return nil
	})

	mrPollInterval, mrBatchSize, err := getMessageRelayerConfigFromEnv()
	if err != nil {
		logger.Error("failed to get message relayer config", "error", err)
		os.Exit(1)
	}

	go worker.NewOutboxEventMessageRelayer(
		logger,
		events.NewPublisher(client),
		orderRepo,
		mrPollInterval,
		mrBatchSize,
	).Start(ctx)
}

func startHTTPServer(ctx context.Context, logger logs.Logger, pgDb *pgxpool.Pool, orderRepo *repository.PostgreSQLOrderRepository, serviceClients *clients.Clients) error {
	mux := router.ConfigRoutes(pgDb, orderRepo, serviceClients.Customer, serviceClients.Product, logger)

	srv, err := web.InitializeServer(os.Getenv("ORDER_SERVICE_PORT"), mux)
	if err != nil {
		return fmt.Errorf("ORDER_SERVICE_PORT: %w", err)
	}

	return web.StartServerAndWaitForShutdown(ctx, srv, logger)
}

func initializeServiceClients() (*clients.Clients, error) {
	customerServiceURL := os.Getenv("CUSTOMER_SERVICE_URL")
	if customerServiceURL == "" {
		return nil, fmt.Errorf("CUSTOMER_SERVICE_URL is not set")
	}

	productServiceURL := os.Getenv("PRODUCT_SERVICE_URL")
	if productServiceURL == "" {
		return nil, fmt.Errorf("PRODUCT_SERVICE_URL is not set")
	}

	return clients.NewClients(customerServiceURL, productServiceURL), nil
}

func getMessageRelayerConfigFromEnv() (time.Duration, int32, error) {
	pollIntervalStr := os.Getenv("MESSAGE_RELAYER_POLL_INTERVAL")
	if pollIntervalStr == "" {
		pollIntervalStr = "5s"
	}

	pollInterval, err := time.ParseDuration(pollIntervalStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid MESSAGE_RELAYER_POLL_INTERVAL: %w", err)
	}

	batchSizeStr := os.Getenv("MESSAGE_RELAYER_BATCH_SIZE")
	if batchSizeStr == "" {
		batchSizeStr = "25"
	}

	batchSize, err := strconv.Atoi(batchSizeStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid MESSAGE_RELAYER_BATCH_SIZE: %w", err)
	}

	return pollInterval, int32(batchSize), nil
}
