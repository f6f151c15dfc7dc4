package service

import (
	"context"
	"fmt"
	"time"

	"copy_bot/internal/models"
	"copy_bot/internal/modules/config"
)

// Source — поставщик пачек сделок. Run блокируется до отмены ctx или конца данных.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- models.FillBatch) error
}

// ConnState — куда транспорт сообщает о состоянии (health).
type ConnState interface {
	SetWSConnected(v bool)
	TouchBatch(t time.Time)
}

func NewSource(cfg *config.Config, state ConnState) (Source, error) {
	switch cfg.Feed.Source {
	case config.FeedSourceWS:
		return NewStream(cfg.Hyperliquid.WSURL, cfg.Copy.TargetAddress, state), nil
	case config.FeedSourceReplay:
		return NewReplay(cfg.Feed.ReplayFile, state), nil
	}
	return nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
}

func emit(ctx context.Context, out chan<- models.FillBatch, b models.FillBatch) bool {
	select {
	case out <- b:
		return true
	case <-ctx.Done():
		return false
	}
}
