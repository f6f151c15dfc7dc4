package postgres

import (
	"context"
	"fmt"

	"copy_bot/internal/modules/config"
	"copy_bot/internal/modules/postgres/service"
	"copy_bot/pkg/db"
	"copy_bot/pkg/logger"

	"go.uber.org/fx"
)

// NewJournal: без DATABASE_DSN журнал отключён, бот работает без БД.
func NewJournal(lc fx.Lifecycle, cfg *config.Config) (*service.Journal, error) {
	if cfg.DB == "" {
		logger.Info("[PG] DATABASE_DSN not set, execution journal disabled")
		return service.NewJournal(nil), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Hyperliquid.Timeout)
	defer cancel()

	// один писатель: больше пары соединений журналу не нужно
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:      cfg.DB,
		MaxConns: 2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	err = poolMaster.Ping(ctx)
	if err != nil {
		poolMaster.Close()
		return nil, err
	}

	tm := db.NewPgTxManager(poolMaster)
	journal := service.NewJournal(tm)
	if err := journal.Migrate(ctx); err != nil {
		tm.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			tm.Close()
			return nil
		},
	})
	logger.Info("[PG] execution journal enabled")
	return journal, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewJournal,
		),
	)
}
