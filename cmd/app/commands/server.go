package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/credstore/internal/app"
	"github.com/allisson/credstore/internal/config"
	apphttp "github.com/allisson/credstore/internal/http"
)

// listener is the lifecycle shared by the API and metrics servers.
type listener interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// RunServer loads and verifies the encryption keys, then serves the API, plus the metrics
// endpoint when enabled, until SIGINT/SIGTERM or the first server failure.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	defer shutdownContainer(container, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Waiting for canaries registered by another instance can take a while
	if err := container.LoadEncryptionKeys(ctx); err != nil {
		return err
	}

	servers, err := buildListeners(container, cfg)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error { return srv.Start(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func buildListeners(container *app.Container, cfg *config.Config) ([]listener, error) {
	server, err := container.HTTPServer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	servers := []listener{server}

	if cfg.MetricsEnabled {
		var metricsServer *apphttp.MetricsServer
		metricsServer, err = container.MetricsServer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics server: %w", err)
		}
		servers = append(servers, metricsServer)
	}
	return servers, nil
}
