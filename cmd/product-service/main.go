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
	"github.com/redis/go-redis/v9"
	"github.com/s223973381/ishika-sit722/internal/product/cache"
	"github.com/s223973381/ishika-sit722/internal/product/events/consumers"
	"github.com/s223973381/ishika-sit722/internal/product/migrations"
	"github.com/s223973381/ishika-sit722/internal/product/repository"
	"github.com/s223973381/ishika-sit722/internal/product/router"
	"github.com/s223973381/ishika-sit722/shared/events"
	"github.com/s223973381/ishika-sit722/shared/events/worker"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/s223973381/ishika-sit722/shared/postgres"
	"github.com/s223973381/ishika-sit722/shared/rabbitmq"
	"github.com/s223973381/ishika-sit722/shared/web"
	"golang.org/x/sync/errgroup"
)

const productCacheTTL = 5 * time.Minute

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

	redisClient, err := initializeRedisClient()
	if err != nil {
		logger.Error("error connecting to redis", "error", err)
		os.Exit(1)
	}
	logger.Info("redis connected successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	productCache := cache.NewProductCache(redisClient, logger, productCacheTTL)

	g, gCtx := errgroup.WithContext(ctx)

	startMessaging(gCtx, g, logger, pgDb, productCache)

	g.Go(func() error {
		return startHTTPServer(gCtx, logger, pgDb, productCache)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("application shut down gracefully")
}

// startMessaging wires the stock deduction consumer and the outbox relayer.
// A broker that stays unreachable after the bounded dial attempts leaves the
// service in a degraded state: HTTP keeps serving, result events accumulate
// in the outbox, and order.placed messages wait in the durable queue.
func startMessaging(ctx context.Context, g *errgroup.Group, logger logs.Logger, pgDb *pgxpool.Pool, productCache *cache.ProductCache) {
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

	stockRepo := repository.NewStockDeductionRepository(pgDb)

	g.Go(func() error {
		consumer := consumers.NewOrderPlacedConsumer(logger, client, stockRepo, productCache)
		logger.Info("starting OrderPlacedConsumer")

		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("OrderPlacedConsumer failed: %w", err)
		}

		logger.Info("OrderPlacedConsumer stopped gracefully")
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
		stockRepo,
		mrPollInterval,
		mrBatchSize,
	).Start(ctx)
}

func startHTTPServer(ctx context.Context, logger logs.Logger, pgDb *pgxpool.Pool, productCache *cache.ProductCache) error {
	mux := router.ConfigRoutes(pgDb, productCache, logger)

	srv, err := web.InitializeServer(os.Getenv("PRODUCT_SERVICE_PORT"), mux)
	if err != nil {
		return fmt.Errorf("PRODUCT_SERVICE_PORT: %w", err)
	}

	return web.StartServerAndWaitForShutdown(ctx, srv, logger)
}

func initializeRedisClient() (*redis.Client, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is not set")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("could not ping redis: %w", err)
	}

	return client, nil
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
