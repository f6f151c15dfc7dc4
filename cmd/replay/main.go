package main

import (
	"fmt"
	"os"
	"strings"

	"copy_bot/internal/modules/bootstrap"
	"copy_bot/internal/modules/config"
	"copy_bot/internal/modules/copier"
	"copy_bot/internal/modules/feed"
	"copy_bot/internal/modules/health"
	"copy_bot/internal/modules/hyperliquid"
	"copy_bot/internal/modules/postgres"
	telegram "copy_bot/internal/modules/telegram_bot"

	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Прогон записанных сделок через движок в режиме без ордеров.
// Остальные настройки берутся как у основного бинаря (.env, CONFIG_FILE, окружение).
func main() {
	var (
		file       = pflag.StringP("file", "f", "", "path to a block fills dump (one JSON batch per line)")
		target     = pflag.StringP("target", "t", "", "override TARGET_WALLET_ADDRESS")
		healthAddr = pflag.String("health-addr", "", "serve health/metrics while replaying (empty: off)")
	)
	pflag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --file fills.jsonl [--target 0x...]")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	app := fx.New(
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l}
		}),
		config.Module(),
		// до проверки конфига: флаги спасают и пустой TARGET_WALLET_ADDRESS, и DRY_RUN=false без ключей
		fx.Decorate(func(cfg *config.Config) *config.Config {
			cfg.Copy.DryRun = true
			cfg.Feed.Source = config.FeedSourceReplay
			cfg.Feed.ReplayFile = *file
			cfg.Service.HealthAddr = *healthAddr
			if *target != "" {
				cfg.Copy.TargetAddress = strings.ToLower(strings.TrimSpace(*target))
			}
			return cfg
		}),
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
