package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/retendo/account/internal/config"
	"github.com/retendo/account/internal/http/handler"
	"github.com/retendo/account/internal/http/router"
	"github.com/retendo/account/internal/observability"
	"github.com/retendo/account/internal/repository"
	"github.com/retendo/account/internal/service"
)

// telemetry bundles the logger and the exporter runtime so both can come
// out of a single initialization step.
type telemetry struct {
	logger  *slog.Logger
	runtime *observability.Runtime
}

func provideTelemetry(ctx context.Context, cfg *config.Config) (*telemetry, error) {
	logger, loggerProvider, err := observability.InitLogging(ctx, cfg)
	if err != nil {
		return nil, err
	}
	runtime, err := observability.InitRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	runtime.LoggerProvider = loggerProvider
	return &telemetry{logger: logger, runtime: runtime}, nil
}

func provideLogger(t *telemetry) *slog.Logger { return t.logger }

func provideRuntime(t *telemetry) *observability.Runtime { return t.runtime }

func provideDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := repository.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// provideRedisClient returns nil when Redis is disabled; the cache layer
// falls back to its in-process implementation.
func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

func provideGameServerCache(client redis.UniversalClient) service.GameServerCache {
	if client == nil {
		return service.NewInMemoryGameServerCache()
	}
	return service.NewRedisGameServerCache(client, "")
}

func provideRouter(cfg *config.Config, logger *slog.Logger, db *gorm.DB, cache service.GameServerCache) http.Handler {
	devices := repository.NewDeviceRepository(db)
	rnids := repository.NewRNIDRepository(db)
	nexAccounts := repository.NewNEXAccountRepository(db)
	servers := repository.NewGameServerRepository(db)

	directory := service.NewGameServerDirectory(servers, cache)
	binder := service.NewDeviceBinder(devices)
	auth := service.NewAccountAuthenticator(rnids, cfg.MasterKey)
	issuer := service.NewTokenIssuer(directory, nexAccounts, cfg.MasterKey)
	nasc := service.NewNASCService(devices, nexAccounts, directory, logger)

	return router.NewRouter(router.Dependencies{
		NASCHandler:       handler.NewNASCHandler(nasc),
		ProviderHandler:   handler.NewProviderHandler(issuer, logger),
		OAuthHandler:      handler.NewOAuthHandler(auth, issuer, devices, logger),
		DevicesHandler:    handler.NewDevicesHandler(),
		DeviceBinder:      binder,
		Authenticator:     auth,
		ClientCredentials: cfg.ClientCredentials,
		NASCRateLimitRPM:  cfg.NASCRateLimitRPM,
		APIRateLimitRPM:   cfg.APIRateLimitRPM,
		Logger:            logger,
		EnableOTelHTTP:    cfg.OTELHTTPEnabled,
	})
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
