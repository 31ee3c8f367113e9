//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/retendo/account/internal/config"
)

// InitializeApp wires the full process graph from the environment.
func InitializeApp(ctx context.Context) (*App, error) {
	wire.Build(
		config.Load,
		provideTelemetry,
		provideLogger,
		provideRuntime,
		provideDatabase,
		provideRedisClient,
		provideGameServerCache,
		provideRouter,
		provideHTTPServer,
		New,
	)
	return nil, nil
}
