package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/retendo/account/internal/config"
	"github.com/retendo/account/internal/observability"
)

const shutdownTimeout = 15 * time.Second

// App holds the fully wired process: configuration, the HTTP server, and
// the handles that need an orderly shutdown.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Redis         redis.UniversalClient
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, redisClient redis.UniversalClient) *App {
	return &App{Config: cfg, Logger: logger, Server: server, Observability: runtime, Redis: redisClient}
}

// Run serves HTTP until the context is cancelled, then drains in-flight
// requests and closes the remaining handles.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down")

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.shutdown(drainCtx)
	})

	return g.Wait()
}

func (a *App) shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
