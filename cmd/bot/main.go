package main

import (
	"copy_bot/internal/modules/bootstrap"
	"copy_bot/internal/modules/config"
	"copy_bot/internal/modules/copier"
	"copy_bot/internal/modules/feed"
	"copy_bot/internal/modules/health"
	"copy_bot/internal/modules/hyperliquid"
	"copy_bot/internal/modules/postgres"
	telegram "copy_bot/internal/modules/telegram_bot"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		config.Module(),
		postgres.Module(),
		hyperliquid.Module(),
		telegram.Module(),
		copier.Module(),
		health.Module(),
		feed.Module(),
		bootstrap.Module(),
	)
	app.Run()
}
