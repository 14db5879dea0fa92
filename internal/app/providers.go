package app

import (
	"context"

	"swarm/internal/config"

	"github.com/google/wire"
)

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

var appSet = wire.NewSet(
	provideAppBuilder,
	wire.Bind(new(appBuilderDeps), new(*AppBuilder)),
	provideAppFromBuilder,
)

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}
