package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"copy_bot/internal/helper"
	"copy_bot/internal/models"
	"copy_bot/pkg/logger"
	"copy_bot/pkg/tracing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var roundingLogThreshold = decimal.New(1, -4)

// Executor — протокол исполнения: IOC-ордер, разбор ответа, обновление и сверка леджера.
type Executor struct {
	ex          Exchange
	ledger      *Ledger
	instruments *InstrumentCache
	wallet      string
	slippagePct decimal.Decimal
	dryRun      bool
	timeout     time.Duration
}

func NewExecutor(ex Exchange, ledger *Ledger, instruments *InstrumentCache, wallet string, slippagePct decimal.Decimal, dryRun bool, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Executor{
		ex:          ex,
		ledger:      ledger,
		instruments: instruments,
		wallet:      wallet,
		slippagePct: slippagePct,
		dryRun:      dryRun,
		timeout:     timeout,
	}
}

// Sync перечитывает позиции с биржи и целиком заменяет леджер.
func (x *Executor) Sync(ctx context.Context) error {
	if x.wallet == "" {
		return nil
	}
	span, ctx := tracing.StartSpan(ctx, "copier.resync")
	defer span.Finish()

	callCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	positions, err := x.ex.Positions(callCtx, x.wallet)
	if err != nil {
		mtxResyncErrors.Inc()
		tracing.Fail(span, err)
		return fmt.Errorf("resync positions: %w", err)
	}
	x.ledger.Replace(positions)
	mtxOpenPositions.Set(float64(x.ledger.Len()))
	return nil
}

// Resync — сверка в живом режиме; в dry-run леджер симулируется локально.
func (x *Executor) Resync(ctx context.Context) error {
	if x.dryRun {
		return nil
	}
	return x.Sync(ctx)
}

// Equity — стоимость аккаунта; при ошибке или без кошелька — fallback.
func (x *Executor) Equity(ctx context.Context, fallback decimal.Decimal) decimal.Decimal {
	if x.wallet == "" {
		return fallback
	}
	callCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	v, err := x.ex.AccountValue(callCtx, x.wallet)
	if err != nil {
		logger.Warn("[COPY] account value unavailable, using fallback $%s: %v", fallback.StringFixed(2), err)
		return fallback
	}
	return v
}

// LimitPrice: для открытия сдвигаем цену в сторону исполнения на slippage%, затем к тику.
// Закрытия идут по цене таргета без сдвига.
func (x *Executor) LimitPrice(price decimal.Decimal, isBuy, closing bool, meta models.InstrumentMeta) decimal.Decimal {
	px := price
	if !closing && x.slippagePct.IsPositive() {
		px = helper.ApplySlippage(px, isBuy, x.slippagePct)
	}
	return helper.RoundToTick(px, meta.TickSize)
}

// Open исполняет открытие по уже посчитанному размеру.
func (x *Executor) Open(ctx context.Context, f models.RawFill, d models.SizingDecision, meta models.InstrumentMeta, known bool) models.Execution {
	exec := newExecution(f, models.ActionOpen, x.dryRun)
	isBuy := f.Side.IsBuy()

	if d.RawSize.Sub(d.Size).Abs().GreaterThan(roundingLogThreshold) {
		logger.Info("[COPY] rounded %s size %s -> %s (%d decimals)", f.Symbol, d.RawSize.StringFixed(6), d.Size.String(), meta.SizeDecimals)
	}

	limit := x.LimitPrice(f.Price, isBuy, false, meta)
	if !limit.Equal(f.Price) {
		verb := "accept down to"
		if isBuy {
			verb = "pay up to"
		}
		logger.Info("[COPY] slippage: %s $%s (vs target's $%s)", verb, limit.String(), f.Price.String())
	}

	req := models.OrderRequest{
		Symbol:     f.Symbol,
		AssetIndex: meta.AssetIndex,
		IsBuy:      isBuy,
		Size:       d.Size,
		LimitPrice: limit,
		TIF:        models.TIFImmediateOrCancel,
		ReduceOnly: false,
		ClientID:   clientID(f.Key()),
	}
	exec.OrderSize = req.Size
	exec.OrderPrice = req.LimitPrice
	exec.Status = models.OrderPreparing

	logger.Info("[COPY] OPEN: %s %s %s @ $%s ($%s)", req.Side(), req.Size, f.Symbol, req.LimitPrice, req.Notional().StringFixed(2))

	if x.dryRun {
		x.ledger.Add(f.Symbol, signed(req.Size, isBuy))
		exec.Status = models.OrderFilled
		exec.FilledSize = req.Size
		exec.AvgPrice = req.LimitPrice
		logger.Info("[COPY] DRY RUN (set DRY_RUN=false to enable real trading)")
		return exec
	}

	res, err := x.place(ctx, req)
	if err != nil {
		x.transportFailure(&exec, err)
		return exec
	}
	x.applyResult(&exec, res, meta, known)
	if res.Status == models.OrderFilled || res.Status == models.OrderPartiallyFilled {
		x.ledger.Add(f.Symbol, signed(res.FilledSize, isBuy))
	}

	// ордер ушёл на биржу: локальная запись только предварительная
	if err := x.Resync(ctx); err != nil {
		logger.Warn("[COPY] post-open resync failed: %v", err)
	}
	return exec
}

// Close закрывает позицию фолловера целиком, размер берётся из сверенного леджера.
func (x *Executor) Close(ctx context.Context, f models.RawFill, meta models.InstrumentMeta, known bool) models.Execution {
	exec := newExecution(f, models.ActionClose, x.dryRun)

	if err := x.Resync(ctx); err != nil {
		logger.Warn("[COPY] pre-close resync failed, using cached positions: %v", err)
	}

	held, ok := x.ledger.Get(f.Symbol)
	if !ok {
		exec.SkipReason = models.SkipNoPosition
		logger.Info("[COPY] SKIP: no %s position (bot may have started after open)", f.Symbol)
		return exec
	}
	if !closeDirectionMatches(f.Direction, held) || !closeSideReduces(f.Side, held) {
		exec.SkipReason = models.SkipDirectionMismatch
		logger.Info("[COPY] SKIP: direction mismatch (we have %s %s, target %q %s)",
			models.DirectionName(held), held.Abs(), f.Direction, f.Side)
		return exec
	}

	isBuy := held.IsNegative()
	req := models.OrderRequest{
		Symbol:     f.Symbol,
		AssetIndex: meta.AssetIndex,
		IsBuy:      isBuy,
		Size:       held.Abs(),
		LimitPrice: x.LimitPrice(f.Price, isBuy, true, meta),
		TIF:        models.TIFImmediateOrCancel,
		ReduceOnly: true,
		ClientID:   clientID(f.Key()),
	}
	exec.OrderSize = req.Size
	exec.OrderPrice = req.LimitPrice
	exec.Status = models.OrderPreparing

	logger.Info("[COPY] CLOSE: %s %s %s @ $%s ($%s), our %s", req.Side(), req.Size, f.Symbol, req.LimitPrice,
		req.Notional().StringFixed(2), models.DirectionName(held))

	if x.dryRun {
		x.ledger.Remove(f.Symbol)
		exec.Status = models.OrderFilled
		exec.FilledSize = req.Size
		exec.AvgPrice = req.LimitPrice
		logger.Info("[COPY] DRY RUN (set DRY_RUN=false to enable real trading)")
		return exec
	}

	res, err := x.place(ctx, req)
	if err != nil {
		x.transportFailure(&exec, err)
		return exec
	}
	x.applyResult(&exec, res, meta, known)

	switch res.Status {
	case models.OrderFilled:
		x.ledger.Remove(f.Symbol)
	case models.OrderPartiallyFilled:
		// остаток остаётся открытым, реальное значение подтверждаем сверкой
		residual := req.Size.Sub(res.FilledSize)
		if held.IsNegative() {
			residual = residual.Neg()
		}
		x.ledger.Set(f.Symbol, residual)
		logger.Warn("[COPY] partial close %s: residual %s", f.Symbol, residual)
		if err := x.Resync(ctx); err != nil {
			logger.Warn("[COPY] post-close resync failed: %v", err)
		}
	}
	return exec
}

func (x *Executor) place(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	span, ctx := tracing.StartSpan(ctx, "copier.place_order")
	defer span.Finish()
	span.SetTag("symbol", req.Symbol)
	span.SetTag("reduce_only", req.ReduceOnly)

	callCtx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	res, err := x.ex.PlaceOrder(callCtx, req)
	tracing.Fail(span, err)
	return res, err
}

func (x *Executor) applyResult(exec *models.Execution, res models.OrderResult, meta models.InstrumentMeta, known bool) {
	exec.Status = res.Status
	exec.FilledSize = res.FilledSize
	exec.AvgPrice = res.AvgPrice
	exec.Error = res.Error

	switch res.Status {
	case models.OrderFilled:
		logger.Info("[COPY] filled: %s @ $%s", res.FilledSize, res.AvgPrice)
	case models.OrderPartiallyFilled:
		pct := decimal.Zero
		if exec.OrderSize.IsPositive() {
			pct = res.FilledSize.Div(exec.OrderSize).Mul(hundred)
		}
		logger.Info("[COPY] filled: %s @ $%s (%s%%)", res.FilledSize, res.AvgPrice, pct.StringFixed(1))
	case models.OrderRejected:
		logger.Error("[COPY] error: %s", res.Error)
	case models.OrderError:
		logger.Error("[COPY] failed: %s", res.Error)
	default:
		logger.Warn("[COPY] unknown order status %s (oid %d)", res.Status, res.OrderID)
	}

	if hint := orderHint(res.Status, res.Error, meta, known); hint != "" {
		logger.Info("[COPY] hint: %s", hint)
	}
}

func (x *Executor) transportFailure(exec *models.Execution, err error) {
	exec.Status = models.OrderError
	exec.Error = err.Error()
	logger.Error("[COPY] exception: %v", err)
	if hint := transportHint(err); hint != "" {
		logger.Info("[COPY] hint: %s", hint)
	}
}

func newExecution(f models.RawFill, action models.Action, dryRun bool) models.Execution {
	return models.Execution{
		FillKey:     f.Key(),
		Symbol:      f.Symbol,
		Action:      action,
		Side:        f.Side,
		TargetSize:  f.Size,
		TargetPrice: f.Price,
		DryRun:      dryRun,
		CreatedAt:   time.Now(),
	}
}

func signed(size decimal.Decimal, isBuy bool) decimal.Decimal {
	if isBuy {
		return size
	}
	return size.Neg()
}

// clientID — детерминированный cloid из ключа сделки: повтор той же сделки даст тот же cloid.
func clientID(fillKey string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fillKey))
	return "0x" + hex.EncodeToString(id[:])
}
