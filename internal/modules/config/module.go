package config

import (
	"context"

	"copy_bot/pkg/logger"
	"copy_bot/pkg/tracing"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLogger поднимает глобальный zap-логгер по настройкам из конфига.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	logger.SetServiceName(cfg.Service.Name)
	tracing.SetServiceName(cfg.Service.Name)
	return logger.Init(logger.Config{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
}

// RunTracer регистрирует Jaeger на время жизни приложения.
func RunTracer(lc fx.Lifecycle, cfg *Config, _ *zap.Logger) error {
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}

// Module регистрирует конфиг и логгер как fx-провайдеры.
// Проверка идёт первым Invoke, уже после fx.Decorate бинаря.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			Load,
			NewLogger,
		),
		fx.Invoke(
			CheckConfig,
			RunTracer,
		),
	)
}
