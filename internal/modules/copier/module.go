package copier

import (
	"copy_bot/internal/modules/copier/service"
	hyperliquid "copy_bot/internal/modules/hyperliquid/service"
	postgres "copy_bot/internal/modules/postgres/service"
	"copy_bot/internal/notify"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("copier",
		fx.Provide(
			service.SettingsFromConfig,
			func(c *hyperliquid.Client) service.Exchange { return c },
			func(t *notify.Telegram) service.Notifier { return t },
			func(j *postgres.Journal) service.Journal { return j },
			service.NewEngine,
		),
	)
}
