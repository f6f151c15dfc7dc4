package service

import (
	"context"
	"sync"

	"copy_bot/internal/models"
	"copy_bot/internal/modules/config"
	copier "copy_bot/internal/modules/copier/service"
	feed "copy_bot/internal/modules/feed/service"
	health "copy_bot/internal/modules/health/service"
	"copy_bot/internal/notify"
	"copy_bot/pkg/logger"
)

// feedBuffer — сколько пачек фид может опередить движок.
const feedBuffer = 256

// Pipeline связывает фид и движок: бутстрап, затем чтение пачек до остановки.
type Pipeline struct {
	cfg      *config.Config
	engine   *copier.Engine
	source   feed.Source
	state    *health.State
	notifier *notify.Telegram

	cancel context.CancelFunc
	wg     sync.WaitGroup
	// finished закрывается, когда источник кончился сам (replay)
	finished chan struct{}
}

func NewPipeline(cfg *config.Config, engine *copier.Engine, source feed.Source, state *health.State, notifier *notify.Telegram) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		engine:   engine,
		source:   source,
		state:    state,
		notifier: notifier,
		finished: make(chan struct{}),
	}
}

// Finished — канал, закрываемый по исчерпании источника.
func (p *Pipeline) Finished() <-chan struct{} { return p.finished }

// Start не блокируется: бутстрап и чтение идут в фоне на своём контексте.
func (p *Pipeline) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	banner := p.engine.Banner(p.cfg.CoinFilterLabel(), p.cfg.ModeLabel())
	logger.Info("[BOOT]\n%s", banner)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.engine.Bootstrap(ctx)
		if ctx.Err() != nil {
			return
		}
		p.state.SetReady(true)
		p.notifier.Send("🚀 copy trader started\n" + banner)
		logger.Info("[BOOT] watching %s via %s, waiting for trades...", p.cfg.Copy.TargetAddress, p.source.Name())

		batches := make(chan models.FillBatch, feedBuffer)
		go func() {
			defer close(batches)
			if err := p.source.Run(ctx, batches); err != nil {
				logger.Error("[FEED] %s stopped: %v", p.source.Name(), err)
			}
		}()

		p.engine.Run(ctx, batches)
		if ctx.Err() == nil {
			logger.Info("[FEED] %s exhausted", p.source.Name())
			close(p.finished)
		}
	}()
}

// Stop прерывает обработку и ждёт текущую сделку, пока позволяет ctx.
func (p *Pipeline) Stop(ctx context.Context) {
	p.state.SetReady(false)
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("[STOP] in-flight call abandoned: %v", ctx.Err())
	}

	processed := p.engine.Processed()
	logger.Info("[STOP] stopped, processed %d unique fills", processed)
	logger.Info("[STOP] %s", p.engine.PositionsSummary())
	p.notifier.Sendf("⏹ copy trader stopped, processed %d unique fills\n%s", processed, p.engine.PositionsSummary())
}
