package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"copy_bot/internal/helper"
	"copy_bot/internal/models"
	"copy_bot/internal/modules/config"
	"copy_bot/pkg/logger"
	"copy_bot/pkg/tracing"

	"github.com/shopspring/decimal"
)

// Settings — параметры движка, неизменные после старта.
type Settings struct {
	Target           string
	Wallet           string
	Coins            map[string]struct{}
	CopyPercentage   decimal.Decimal
	MinPositionUSD   decimal.Decimal
	MaxPositionUSD   decimal.Decimal
	ExchangeMinUSD   decimal.Decimal
	SlippagePct      decimal.Decimal
	FallbackEquity   decimal.Decimal
	MaxOpenPositions int
	DryRun           bool
	StrictDirection  bool
	DedupMaxKeys     int
	CallTimeout      time.Duration
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Target:           cfg.Copy.TargetAddress,
		Wallet:           cfg.Hyperliquid.WalletAddress,
		Coins:            cfg.CoinFilter(),
		CopyPercentage:   decimal.NewFromFloat(cfg.Copy.CopyPercentage),
		MinPositionUSD:   decimal.NewFromFloat(cfg.Copy.MinPositionUSD),
		MaxPositionUSD:   decimal.NewFromFloat(cfg.Copy.MaxPositionUSD),
		ExchangeMinUSD:   config.ExchangeMinNotionalUSD,
		SlippagePct:      decimal.NewFromFloat(cfg.Copy.SlippagePct),
		FallbackEquity:   decimal.NewFromFloat(cfg.Copy.FallbackEquityUSD),
		MaxOpenPositions: cfg.Copy.MaxOpenPositions,
		DryRun:           cfg.Copy.DryRun,
		StrictDirection:  cfg.Copy.StrictDirection,
		DedupMaxKeys:     cfg.Copy.DedupMaxKeys,
		CallTimeout:      cfg.Hyperliquid.Timeout,
	}
}

// Engine — единственный владелец леджера и множества обработанных сделок.
// Сделки обрабатываются строго по одной.
type Engine struct {
	mu sync.Mutex

	settings    Settings
	ex          Exchange
	notifier    Notifier
	journal     Journal
	ledger      *Ledger
	registry    *FillRegistry
	instruments *InstrumentCache
	classifier  *Classifier
	gate        *Gate
	sizer       *Sizer
	executor    *Executor
}

func NewEngine(s Settings, ex Exchange, n Notifier, j Journal) *Engine {
	if n == nil {
		n = nopNotifier{}
	}
	if j == nil {
		j = nopJournal{}
	}
	ledger := NewLedger()
	registry := NewFillRegistry(s.DedupMaxKeys)
	instruments := NewInstrumentCache()

	return &Engine{
		settings:    s,
		ex:          ex,
		notifier:    n,
		journal:     j,
		ledger:      ledger,
		registry:    registry,
		instruments: instruments,
		classifier:  NewClassifier(s.Target, s.Coins, s.StrictDirection, registry),
		gate:        NewGate(s.MaxOpenPositions),
		sizer:       NewSizer(s.CopyPercentage, s.MinPositionUSD, s.MaxPositionUSD, s.ExchangeMinUSD),
		executor:    NewExecutor(ex, ledger, instruments, s.Wallet, s.SlippagePct, s.DryRun, s.CallTimeout),
	}
}

func (e *Engine) Ledger() *Ledger               { return e.ledger }
func (e *Engine) Processed() int                { return e.registry.Unique() }
func (e *Engine) PositionsSummary() string      { return e.ledger.Summary(e.settings.MaxOpenPositions) }
func (e *Engine) Positions() []models.Position  { return e.ledger.Snapshot() }
// ComputeOpenSize: стоимость аккаунта (или fallback) -> чистый расчёт по метаданным символа.
func (e *Engine) ComputeOpenSize(ctx context.Context, targetPrice decimal.Decimal, symbol string) models.SizingDecision {
	meta, _ := e.instruments.Get(symbol)
	equity := e.executor.Equity(ctx, e.settings.FallbackEquity)
	d := e.sizer.ComputeOpenSize(equity, targetPrice, meta.SizeDecimals)
	d.Equity = equity
	return d
}

// Bootstrap: метаданные, стоимость аккаунта, начальная сверка позиций.
// Ошибки не фатальны: работаем на дефолтах и fallback.
func (e *Engine) Bootstrap(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, e.settings.CallTimeout)
	metas, err := e.ex.Instruments(callCtx)
	cancel()
	if err != nil {
		logger.Warn("[BOOT] instrument metadata unavailable, using defaults: %v", err)
	} else {
		e.instruments.Load(metas)
		logger.Info("[BOOT] loaded metadata for %d instruments", e.instruments.Len())
	}

	if e.settings.Wallet == "" {
		logger.Info("[BOOT] no follower wallet configured, equity fallback $%s", e.settings.FallbackEquity.StringFixed(2))
		return
	}

	equity := e.executor.Equity(ctx, e.settings.FallbackEquity)
	logger.Info("[BOOT] account value: $%s", equity.StringFixed(2))

	if err := e.executor.Sync(ctx); err != nil {
		logger.Warn("[BOOT] initial position sync failed: %v", err)
		return
	}
	logger.Info("[BOOT] %s", e.PositionsSummary())
}

// Banner — стартовый блок с настройками.
func (e *Engine) Banner(filterLabel, modeLabel string) string {
	s := e.settings
	return fmt.Sprintf("Hyperliquid copy trader\n"+
		"  Target:        %s\n"+
		"  Copy:          %s%% of account per trade\n"+
		"  Position size: $%s - $%s\n"+
		"  Max positions: %d\n"+
		"  Slippage:      %s%%\n"+
		"  Coins:         %s\n"+
		"  Mode:          %s",
		helper.ShortAddress(s.Target),
		s.CopyPercentage.String(),
		s.MinPositionUSD.StringFixed(0), s.MaxPositionUSD.StringFixed(0),
		s.MaxOpenPositions,
		s.SlippagePct.String(),
		filterLabel,
		modeLabel,
	)
}

// Run читает пачки до закрытия канала или отмены ctx.
func (e *Engine) Run(ctx context.Context, in <-chan models.FillBatch) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-in:
			if !ok {
				return
			}
			e.HandleBatch(ctx, batch)
		}
	}
}

func (e *Engine) HandleBatch(ctx context.Context, batch models.FillBatch) {
	for _, f := range batch.Fills {
		if ctx.Err() != nil {
			return
		}
		e.HandleFill(ctx, f)
	}
}

// HandleFill — полный цикл одной сделки: классификация, гейт, размер, исполнение, журнал.
func (e *Engine) HandleFill(ctx context.Context, f models.RawFill) (models.Execution, Verdict) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() { mtxHandleSeconds.Observe(time.Since(start).Seconds()) }()

	action, verdict, err := e.classifier.Classify(f)
	switch verdict {
	case VerdictIgnoredAccount, VerdictIgnoredCoin, VerdictDuplicate:
		mtxFills.WithLabelValues(string(verdict)).Inc()
		return models.Execution{}, verdict
	case VerdictMalformed:
		mtxFills.WithLabelValues(string(verdict)).Inc()
		mtxUniqueFills.Set(float64(e.registry.Unique()))
		logger.Warn("[COPY] drop %s %s: %v", f.Symbol, f.Key(), err)
		return models.Execution{}, verdict
	}
	mtxUniqueFills.Set(float64(e.registry.Unique()))

	span, ctx := tracing.StartSpan(ctx, "copier.handle_fill")
	defer span.Finish()
	span.SetTag("symbol", f.Symbol)
	span.SetTag("action", string(action))
	span.SetTag("fill", f.Key())

	var pnl string
	if action == models.ActionClose {
		pnl = " | PnL: $" + f.ClosedPnl.String()
	}
	logger.Info("[TARGET] %s %s | %s: %s %s @ $%s ($%s)%s", action, f.Direction, f.Symbol, f.Side, f.Size, f.Price,
		f.Notional().StringFixed(2), pnl)

	meta, known := e.instruments.Get(f.Symbol)

	var exec models.Execution
	if action == models.ActionOpen {
		exec = e.open(ctx, f, meta, known)
	} else {
		exec = e.executor.Close(ctx, f, meta, known)
	}

	verdict = VerdictExecuted
	if exec.SkipReason != models.SkipNone {
		verdict = VerdictSkipped
		mtxSkips.WithLabelValues(string(exec.SkipReason)).Inc()
	} else {
		mtxOrders.WithLabelValues(string(action), string(exec.Status)).Inc()
		logger.Info("[COPY] %s", e.PositionsSummary())
		e.notify(exec)
	}
	mtxFills.WithLabelValues(string(verdict)).Inc()
	mtxOpenPositions.Set(float64(e.ledger.Len()))

	if err := e.journal.Record(ctx, exec); err != nil {
		logger.Warn("[COPY] journal write failed: %v", err)
	}
	return exec, verdict
}

func (e *Engine) open(ctx context.Context, f models.RawFill, meta models.InstrumentMeta, known bool) models.Execution {
	if reason := e.gate.CheckOpen(f.Symbol, e.ledger); reason != models.SkipNone {
		exec := newExecution(f, models.ActionOpen, e.settings.DryRun)
		exec.SkipReason = reason
		logger.Info("[COPY] SKIP: max positions (%d/%d)", e.ledger.Len(), e.gate.MaxOpen())
		return exec
	}

	d := e.ComputeOpenSize(ctx, f.Price, f.Symbol)
	if d.Skip {
		exec := newExecution(f, models.ActionOpen, e.settings.DryRun)
		exec.SkipReason = d.SkipReason
		exec.OrderSize = d.Size
		switch d.SkipReason {
		case models.SkipBelowMin:
			logger.Info("[COPY] SKIP: $%s < $%s min (account $%s x %s%%)", d.NotionalUSD.StringFixed(2),
				e.settings.MinPositionUSD.StringFixed(2), d.Equity.StringFixed(2), e.settings.CopyPercentage)
		case models.SkipBelowExchangeMin:
			logger.Info("[COPY] SKIP: notional $%s < $%s exchange minimum (size %s)", d.NotionalUSD.StringFixed(2),
				e.settings.ExchangeMinUSD.StringFixed(0), d.Size)
		default:
			logger.Info("[COPY] SKIP: %s", d.SkipReason)
		}
		return exec
	}

	logger.Info("[COPY] our open: %s ($%s, %s%% of account)", d.Size, d.NotionalUSD.StringFixed(2), e.settings.CopyPercentage)
	return e.executor.Open(ctx, f, d, meta, known)
}

func (e *Engine) notify(exec models.Execution) {
	mode := ""
	if exec.DryRun {
		mode = " [DRY RUN]"
	}
	switch exec.Status {
	case models.OrderFilled, models.OrderPartiallyFilled:
		e.notifier.Sendf("✅ %s %s %s %s @ $%s%s\n%s", exec.Action, exec.Side, exec.FilledSize, exec.Symbol,
			exec.AvgPrice, mode, e.PositionsSummary())
	case models.OrderRejected, models.OrderError:
		e.notifier.Sendf("❌ %s %s %s %s: %s", exec.Action, exec.Side, exec.OrderSize, exec.Symbol, exec.Error)
	}
}
