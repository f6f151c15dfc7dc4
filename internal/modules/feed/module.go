package feed

import (
	"copy_bot/internal/modules/feed/service"
	health "copy_bot/internal/modules/health/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("feed",
		fx.Provide(
			func(s *health.State) service.ConnState { return s },
			service.NewSource,
		),
	)
}
