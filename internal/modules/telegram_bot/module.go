package telegram

import (
	"context"

	"copy_bot/internal/modules/config"
	copier "copy_bot/internal/modules/copier/service"
	"copy_bot/internal/notify"

	"go.uber.org/fx"
)

func NewTelegram(cfg *config.Config) (*notify.Telegram, error) {
	prefix := ""
	if cfg.Copy.DryRun {
		prefix = "[DRY]"
	}
	return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, prefix)
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			NewTelegram,
		),
		// команды в чате читают состояние движка
		fx.Invoke(
			func(lc fx.Lifecycle, t *notify.Telegram, engine *copier.Engine) {
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						t.Start(ctx, engine)
						return nil
					},
					OnStop: func(context.Context) error {
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
