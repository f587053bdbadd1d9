package cache

import (
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Provide(
		fx.Annotate(
			NewRedisViewCache,
			fx.As(new(ViewCache)),
		),
	),
)
