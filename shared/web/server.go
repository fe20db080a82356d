package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/s223973381/ishika-sit722/shared/logs"
)

const (
	serverReadHeaderTimeout time.Duration = 20 * time.Second
	serverWriteTimeout      time.Duration = 1 * time.Minute
	serverIdleTimeout       time.Duration = 3 * time.Minute

	shutdownTimeout = 10 * time.Second
)

func InitializeServer(port string, handler http.Handler) (*http.Server, error) {
	if port == "" {
		return nil, errors.New("port not found in environment variables")
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
	}

	return srv, nil
}

// StartServerAndWaitForShutdown blocks until the context is cancelled, then
// drains in-flight requests before returning.
func StartServerAndWaitForShutdown(ctx context.Context, srv *http.Server, logger logs.Logger) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shCtx, shCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shCancel()

	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
		return err
	}

	logger.Info("http server shut down gracefully")
	return nil
}
