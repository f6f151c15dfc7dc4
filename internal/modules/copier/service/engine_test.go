package service

import (
	"context"
	"testing"

	"copy_bot/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type harness struct {
	engine   *Engine
	ex       *fakeExchange
	notifier *fakeNotifier
	journal  *fakeJournal
}

func newHarness(t *testing.T, mutate func(s *Settings), prepare func(ex *fakeExchange)) *harness {
	t.Helper()
	s := testSettings()
	if mutate != nil {
		mutate(&s)
	}
	ex := newFakeExchange()
	if prepare != nil {
		prepare(ex)
	}
	h := &harness{ex: ex, notifier: &fakeNotifier{}, journal: &fakeJournal{}}
	h.engine = NewEngine(s, ex, h.notifier, h.journal)
	h.engine.Bootstrap(context.Background())
	return h
}

func TestOpenLongScenario(t *testing.T) {
	h := newHarness(t, nil, nil)

	exec, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "B", "10", "2000", "Open Long"))
	require.Equal(t, VerdictExecuted, verdict)
	assert.Equal(t, models.OrderFilled, exec.Status)

	orders := h.ex.placed()
	require.Len(t, orders, 1)
	req := orders[0]
	assert.True(t, req.IsBuy)
	assert.False(t, req.ReduceOnly)
	assert.Equal(t, 1, req.AssetIndex)
	assert.Equal(t, models.TIFImmediateOrCancel, req.TIF)
	assert.True(t, req.Size.Equal(dec("0.025")), req.Size.String())
	assert.True(t, req.LimitPrice.Equal(dec("2000")))
	assert.True(t, req.Notional().GreaterThanOrEqual(dec("10")))

	size, ok := h.engine.Ledger().Get("ETH")
	require.True(t, ok)
	assert.True(t, size.Equal(dec("0.025")))
	assert.Equal(t, 1, h.engine.Processed())
}

func TestOpenBelowMinScenario(t *testing.T) {
	h := newHarness(t, nil, func(ex *fakeExchange) { ex.equity = dec("150") })

	exec, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "B", "10", "2000", "Open Long"))
	assert.Equal(t, VerdictSkipped, verdict)
	assert.Equal(t, models.SkipBelowMin, exec.SkipReason)
	assert.Empty(t, h.ex.placed())
	assert.Equal(t, 0, h.engine.Ledger().Len())
}

func TestCloseDirectionMismatchScenario(t *testing.T) {
	h := newHarness(t, nil, func(ex *fakeExchange) { ex.setPosition("ETH", "0.025") })

	exec, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "B", "5", "2000", "Close Short"))
	assert.Equal(t, VerdictSkipped, verdict)
	assert.Equal(t, models.SkipDirectionMismatch, exec.SkipReason)
	assert.Empty(t, h.ex.placed())

	size, ok := h.engine.Ledger().Get("ETH")
	require.True(t, ok)
	assert.True(t, size.Equal(dec("0.025")))
}

func TestDuplicateFillScenario(t *testing.T) {
	h := newHarness(t, nil, nil)
	f := fill("ETH", "B", "10", "2000", "Open Long")

	_, first := h.engine.HandleFill(context.Background(), f)
	before := h.engine.Positions()
	_, second := h.engine.HandleFill(context.Background(), f)

	assert.Equal(t, VerdictExecuted, first)
	assert.Equal(t, VerdictDuplicate, second)
	assert.Len(t, h.ex.placed(), 1)
	assert.Equal(t, before, h.engine.Positions())
	assert.Equal(t, 1, h.engine.Processed())
	assert.Len(t, h.journal.records, 1)
}

func TestUnknownInstrumentDefaultsScenario(t *testing.T) {
	h := newHarness(t, nil, nil)

	_, verdict := h.engine.HandleFill(context.Background(), fill("XYZ", "B", "100", "46.53151", "Open Long"))
	require.Equal(t, VerdictExecuted, verdict)

	orders := h.ex.placed()
	require.Len(t, orders, 1)
	assert.Equal(t, -1, orders[0].AssetIndex)
	assert.True(t, orders[0].LimitPrice.Equal(dec("46.53")), orders[0].LimitPrice.String())
	assert.True(t, orders[0].Size.Equal(dec("1.0745")), orders[0].Size.String())
}

func TestIgnoredFills(t *testing.T) {
	h := newHarness(t, func(s *Settings) {
		s.Coins = map[string]struct{}{"ETH": {}}
	}, nil)

	other := fill("ETH", "B", "1", "2000", "Open Long")
	other.Account = "0x1111111111111111111111111111111111111111"
	_, verdict := h.engine.HandleFill(context.Background(), other)
	assert.Equal(t, VerdictIgnoredAccount, verdict)

	upper := fill("BTC", "B", "1", "60000", "Open Long")
	upper.Account = "0xABCDEF0123456789ABCDEF0123456789ABCDEF01"
	_, verdict = h.engine.HandleFill(context.Background(), upper)
	assert.Equal(t, VerdictIgnoredCoin, verdict)

	assert.Empty(t, h.ex.placed())
	assert.Equal(t, 0, h.engine.Processed())
}

func TestMaxPositionsGate(t *testing.T) {
	h := newHarness(t, func(s *Settings) { s.MaxOpenPositions = 2 }, func(ex *fakeExchange) {
		ex.setPosition("BTC", "0.001")
		ex.setPosition("SOL", "-1")
	})

	exec, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "B", "1", "2000", "Open Long"))
	assert.Equal(t, VerdictSkipped, verdict)
	assert.Equal(t, models.SkipMaxPositions, exec.SkipReason)

	// добавка к уже открытой позиции не упирается в лимит
	_, verdict = h.engine.HandleFill(context.Background(), fill("SOL", "A", "10", "150", "Open Short"))
	assert.Equal(t, VerdictExecuted, verdict)
	assert.LessOrEqual(t, h.engine.Ledger().Len(), 2)

	// закрытия лимит не блокирует
	h.ex.setPosition("ETH", "0.5")
	_, verdict = h.engine.HandleFill(context.Background(), fill("ETH", "A", "1", "2000", "Close Long"))
	assert.Equal(t, VerdictExecuted, verdict)
}

func TestCloseUsesReconciledSize(t *testing.T) {
	h := newHarness(t, func(s *Settings) { s.SlippagePct = dec("0.5") }, nil)
	// позиция появилась на бирже после старта: закрытие обязано её увидеть
	h.ex.setPosition("ETH", "-0.5")

	exec, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "B", "30", "2000.04", "Close Short"))
	require.Equal(t, VerdictExecuted, verdict)
	assert.Equal(t, models.OrderFilled, exec.Status)

	orders := h.ex.placed()
	require.Len(t, orders, 1)
	assert.True(t, orders[0].IsBuy)
	assert.True(t, orders[0].ReduceOnly)
	assert.True(t, orders[0].Size.Equal(dec("0.5")))
	// без проскальзывания, только тик
	assert.True(t, orders[0].LimitPrice.Equal(dec("2000")), orders[0].LimitPrice.String())

	_, ok := h.engine.Ledger().Get("ETH")
	assert.False(t, ok)
}

func TestCloseWithoutPosition(t *testing.T) {
	h := newHarness(t, nil, nil)

	exec, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "A", "1", "2000", "Close Long"))
	assert.Equal(t, VerdictSkipped, verdict)
	assert.Equal(t, models.SkipNoPosition, exec.SkipReason)
	assert.Empty(t, h.ex.placed())
}

func TestPartialCloseKeepsResidual(t *testing.T) {
	h := newHarness(t, nil, func(ex *fakeExchange) { ex.setPosition("ETH", "0.5") })
	h.ex.onPlace = func(req models.OrderRequest) (models.OrderResult, error) {
		filled := dec("0.2")
		h.ex.fill(req, filled)
		return models.OrderResult{Status: models.OrderPartiallyFilled, FilledSize: filled, AvgPrice: req.LimitPrice}, nil
	}

	exec, _ := h.engine.HandleFill(context.Background(), fill("ETH", "A", "1", "2000", "Close Long"))
	assert.Equal(t, models.OrderPartiallyFilled, exec.Status)

	size, ok := h.engine.Ledger().Get("ETH")
	require.True(t, ok)
	assert.True(t, size.Equal(dec("0.3")), size.String())
}

func TestRejectedOrderLeavesLedger(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ex.onPlace = func(req models.OrderRequest) (models.OrderResult, error) {
		return models.OrderResult{Status: models.OrderRejected, Error: "Order has invalid size."}, nil
	}

	exec, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "B", "1", "2000", "Open Long"))
	assert.Equal(t, VerdictExecuted, verdict)
	assert.Equal(t, models.OrderRejected, exec.Status)
	assert.Equal(t, "Order has invalid size.", exec.Error)
	assert.Equal(t, 0, h.engine.Ledger().Len())
	require.Len(t, h.notifier.msgs, 1)
	assert.Contains(t, h.notifier.msgs[0], "invalid size")
}

func TestTransportFailureNoRetry(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ex.onPlace = func(req models.OrderRequest) (models.OrderResult, error) {
		return models.OrderResult{}, errBoom
	}

	exec, _ := h.engine.HandleFill(context.Background(), fill("ETH", "B", "1", "2000", "Open Long"))
	assert.Equal(t, models.OrderError, exec.Status)
	assert.Len(t, h.ex.placed(), 1)
	assert.Equal(t, 0, h.engine.Ledger().Len())
}

func TestEquityFallback(t *testing.T) {
	// fallback $100 * 5% = $5 < $10 -> BELOW_MIN
	h := newHarness(t, nil, func(ex *fakeExchange) { ex.equityErr = errBoom })

	exec, _ := h.engine.HandleFill(context.Background(), fill("ETH", "B", "1", "2000", "Open Long"))
	assert.Equal(t, models.SkipBelowMin, exec.SkipReason)

	h2 := newHarness(t, func(s *Settings) { s.FallbackEquity = dec("1000") }, func(ex *fakeExchange) { ex.equityErr = errBoom })
	exec, _ = h2.engine.HandleFill(context.Background(), fill("ETH", "B", "1", "2000", "Open Long"))
	assert.Equal(t, models.SkipNone, exec.SkipReason)
	assert.True(t, exec.OrderSize.Equal(dec("0.025")))
}

func TestSlippageOnOpen(t *testing.T) {
	h := newHarness(t, func(s *Settings) { s.SlippagePct = dec("0.5") }, nil)

	h.engine.HandleFill(context.Background(), fill("ETH", "B", "1", "2000", "Open Long"))
	h.engine.HandleFill(context.Background(), fill("BTC", "A", "1", "60000", "Open Short"))

	orders := h.ex.placed()
	require.Len(t, orders, 2)
	assert.True(t, orders[0].LimitPrice.Equal(dec("2010")), orders[0].LimitPrice.String())
	assert.True(t, orders[1].LimitPrice.Equal(dec("59700")), orders[1].LimitPrice.String())
	assert.False(t, orders[1].IsBuy)
}

func TestDryRunSimulatesLedger(t *testing.T) {
	h := newHarness(t, func(s *Settings) {
		s.DryRun = true
		s.Wallet = ""
		s.FallbackEquity = dec("1000")
	}, nil)

	_, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "A", "1", "2000", "Open Short"))
	require.Equal(t, VerdictExecuted, verdict)
	size, ok := h.engine.Ledger().Get("ETH")
	require.True(t, ok)
	assert.True(t, size.Equal(dec("-0.025")))

	exec, _ := h.engine.HandleFill(context.Background(), fill("ETH", "B", "1", "1990", "Close Short"))
	assert.Equal(t, models.OrderFilled, exec.Status)
	assert.True(t, exec.DryRun)
	assert.Equal(t, 0, h.engine.Ledger().Len())

	assert.Empty(t, h.ex.placed())
	assert.Equal(t, 0, h.ex.positionCalls)
}

func TestStrictDirection(t *testing.T) {
	h := newHarness(t, func(s *Settings) { s.StrictDirection = true }, nil)

	f := fill("ETH", "B", "1", "2000", "")
	_, verdict := h.engine.HandleFill(context.Background(), f)
	assert.Equal(t, VerdictMalformed, verdict)
	assert.Empty(t, h.ex.placed())

	_, verdict = h.engine.HandleFill(context.Background(), f)
	assert.Equal(t, VerdictDuplicate, verdict)
}

func TestDirectionSafety(t *testing.T) {
	for _, held := range []string{"0.5", "-0.5"} {
		for _, side := range []string{"B", "A"} {
			for _, dir := range []string{"Close Long", "Close Short", ""} {
				h := newHarness(t, nil, func(ex *fakeExchange) { ex.setPosition("ETH", held) })
				f := fill("ETH", side, "1", "2000", dir)
				f.ClosedPnl = dec("1")

				h.engine.HandleFill(context.Background(), f)
				for _, req := range h.ex.placed() {
					// ордер обязан уменьшать позицию
					assert.Equal(t, dec(held).IsNegative(), req.IsBuy, "held=%s side=%s dir=%q", held, side, dir)
					assert.True(t, req.ReduceOnly)
				}
			}
		}
	}
}

func TestRunConsumesUntilClosed(t *testing.T) {
	h := newHarness(t, nil, nil)
	in := make(chan models.FillBatch, 2)
	in <- models.FillBatch{Fills: []models.RawFill{
		fill("ETH", "B", "1", "2000", "Open Long"),
		fill("BTC", "B", "1", "60000", "Open Long"),
	}}
	in <- models.FillBatch{}
	close(in)

	h.engine.Run(context.Background(), in)

	assert.Len(t, h.ex.placed(), 2)
	assert.Equal(t, 2, h.engine.Processed())
	assert.Equal(t, "Positions (2/4): BTC 0.0008 LONG, ETH 0.0250 LONG", h.engine.PositionsSummary())
}

func TestJournalFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.journal.err = errBoom

	_, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "B", "1", "2000", "Open Long"))
	assert.Equal(t, VerdictExecuted, verdict)
	assert.Len(t, h.journal.records, 1)
}

func TestBanner(t *testing.T) {
	h := newHarness(t, nil, nil)
	b := h.engine.Banner("ALL (no filter)", "DRY RUN")
	assert.Contains(t, b, "0xabcdef...cdef01")
	assert.Contains(t, b, "5% of account")
	assert.Contains(t, b, "$10 - $100")
	assert.Contains(t, b, "DRY RUN")
}

func TestEngineComputeOpenSize(t *testing.T) {
	h := newHarness(t, nil, nil)

	d := h.engine.ComputeOpenSize(context.Background(), dec("2000"), "ETH")
	assert.False(t, d.Skip)
	assert.True(t, d.Equity.Equal(dec("1000")))
	assert.True(t, d.Size.Equal(dec("0.025")), d.Size.String())

	// неизвестный символ: дефолтные 4 знака
	d = h.engine.ComputeOpenSize(context.Background(), dec("46.53151"), "XYZ")
	assert.True(t, d.Size.Equal(dec("1.0745")), d.Size.String())

	h.ex.equityErr = errBoom
	d = h.engine.ComputeOpenSize(context.Background(), dec("2000"), "ETH")
	assert.True(t, d.Equity.Equal(dec("100")))
	assert.True(t, d.Skip)
	assert.Equal(t, models.SkipBelowMin, d.SkipReason)
}

func TestCloseFallsBackToCachedLedgerWhenResyncFails(t *testing.T) {
	h := newHarness(t, nil, func(ex *fakeExchange) { ex.setPosition("ETH", "0.5") })
	// биржа уже видит другое, но прочитать её нельзя
	h.ex.setPosition("ETH", "0.8")
	h.ex.posErr = errBoom

	exec, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "A", "1", "2000", "Close Long"))
	require.Equal(t, VerdictExecuted, verdict)
	assert.Equal(t, models.OrderFilled, exec.Status)

	orders := h.ex.placed()
	require.Len(t, orders, 1)
	assert.False(t, orders[0].IsBuy)
	assert.True(t, orders[0].ReduceOnly)
	assert.True(t, orders[0].Size.Equal(dec("0.5")), orders[0].Size.String())

	_, ok := h.engine.Ledger().Get("ETH")
	assert.False(t, ok)
}

func TestOpenKeepsLocalEntryWhenResyncFails(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.ex.posErr = errBoom
	callsBefore := h.ex.positionCalls

	exec, verdict := h.engine.HandleFill(context.Background(), fill("ETH", "B", "10", "2000", "Open Long"))
	require.Equal(t, VerdictExecuted, verdict)
	assert.Equal(t, models.OrderFilled, exec.Status)
	assert.Equal(t, callsBefore+1, h.ex.positionCalls)

	size, ok := h.engine.Ledger().Get("ETH")
	require.True(t, ok)
	assert.True(t, size.Equal(dec("0.025")), size.String())
}

func TestPartialCloseResidualWhenResyncFails(t *testing.T) {
	h := newHarness(t, nil, func(ex *fakeExchange) { ex.setPosition("ETH", "-0.5") })
	h.ex.onPlace = func(req models.OrderRequest) (models.OrderResult, error) {
		// после отправки биржа недоступна для чтения
		h.ex.mu.Lock()
		h.ex.posErr = errBoom
		h.ex.mu.Unlock()
		return models.OrderResult{Status: models.OrderPartiallyFilled, FilledSize: dec("0.2"), AvgPrice: req.LimitPrice}, nil
	}

	exec, _ := h.engine.HandleFill(context.Background(), fill("ETH", "B", "1", "2000", "Close Short"))
	assert.Equal(t, models.OrderPartiallyFilled, exec.Status)

	orders := h.ex.placed()
	require.Len(t, orders, 1)
	assert.True(t, orders[0].IsBuy)

	size, ok := h.engine.Ledger().Get("ETH")
	require.True(t, ok)
	assert.True(t, size.Equal(dec("-0.3")), size.String())
}
