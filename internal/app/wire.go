//go:build wireinject

package app

import (
	"wyckoff/internal/config"

	"github.com/google/wire"
)

func buildAppWithWire(cfg *config.Config) (*App, error) {
	wire.Build(
		provideAppBuilder,
		wire.Bind(new(appBuilderDeps), new(*AppBuilder)),
		provideAppFromBuilder,
	)
	return nil, nil
}
