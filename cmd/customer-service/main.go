package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/s223973381/ishika-sit722/internal/customer/migrations"
	"github.com/s223973381/ishika-sit722/internal/customer/router"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/s223973381/ishika-sit722/shared/postgres"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return startHTTPServer(gCtx, logger, pgDb)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("application shut down gracefully")
}

func startHTTPServer(ctx context.Context, logger logs.Logger, pgDb *pgxpool.Pool) error {
	mux := router.ConfigRoutes(pgDb, logger)

	srv, err := web.InitializeServer(os.Getenv("CUSTOMER_SERVICE_PORT"), mux)
	if err != nil {
		return fmt.Errorf("CUSTOMER_SERVICE_PORT: %w", err)
	}

	return web.StartServerAndWaitForShutdown(ctx, srv, logger)
}
