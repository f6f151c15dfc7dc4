package bootstrap

import (
	"context"

	"copy_bot/internal/modules/bootstrap/service"
	"copy_bot/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			service.NewPipeline,
		),
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, p *service.Pipeline) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					p.Start()
					// конечный источник (replay) завершает приложение сам
					go func() {
						<-p.Finished()
						if err := sd.Shutdown(); err != nil {
							logger.Error("[BOOT] shutdown: %v", err)
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					p.Stop(ctx)
					return nil
				},
			})
		}),
	)
}
