package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"copy_bot/internal/models"

	"github.com/shopspring/decimal"
)

const (
	target = "0xabcdef0123456789abcdef0123456789abcdef01"
	wallet = "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"
)

type fakeExchange struct {
	mu sync.Mutex

	equity    decimal.Decimal
	equityErr error
	positions map[string]decimal.Decimal
	posErr    error
	metas     []models.InstrumentMeta
	// onPlace подменяет поведение биржи; по умолчанию ордер исполняется целиком
	onPlace func(req models.OrderRequest) (models.OrderResult, error)

	orders        []models.OrderRequest
	positionCalls int
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		equity:    decimal.NewFromInt(1000),
		positions: make(map[string]decimal.Decimal),
		metas: []models.InstrumentMeta{
			{Symbol: "BTC", AssetIndex: 0, SizeDecimals: 5, TickSize: decimal.NewFromInt(1), MaxLeverage: 40},
			{Symbol: "ETH", AssetIndex: 1, SizeDecimals: 4, TickSize: decimal.New(1, -1), MaxLeverage: 25},
			{Symbol: "SOL", AssetIndex: 5, SizeDecimals: 2, TickSize: decimal.New(1, -3), MaxLeverage: 20},
		},
	}
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	f.mu.Lock()
	f.orders = append(f.orders, req)
	onPlace := f.onPlace
	f.mu.Unlock()

	if onPlace != nil {
		return onPlace(req)
	}
	f.fill(req, req.Size)
	return models.OrderResult{Status: models.OrderFilled, OrderID: 1, FilledSize: req.Size, AvgPrice: req.LimitPrice}, nil
}

// fill двигает позицию на бирже так, как это сделал бы матчинг.
func (f *fakeExchange) fill(req models.OrderRequest, size decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delta := size
	if !req.IsBuy {
		delta = delta.Neg()
	}
	next := f.positions[req.Symbol].Add(delta)
	if next.IsZero() {
		delete(f.positions, req.Symbol)
		return
	}
	f.positions[req.Symbol] = next
}

func (f *fakeExchange) AccountValue(ctx context.Context, address string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if address != wallet {
		return decimal.Zero, fmt.Errorf("unexpected address %s", address)
	}
	return f.equity, f.equityErr
}

func (f *fakeExchange) Positions(ctx context.Context, address string) ([]models.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positionCalls++
	if f.posErr != nil {
		return nil, f.posErr
	}
	out := make([]models.Position, 0, len(f.positions))
	for sym, size := range f.positions {
		out = append(out, models.Position{Symbol: sym, Size: size})
	}
	return out, nil
}

func (f *fakeExchange) Instruments(ctx context.Context) ([]models.InstrumentMeta, error) {
	return f.metas, nil
}

func (f *fakeExchange) setPosition(symbol, size string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[symbol] = decimal.RequireFromString(size)
}

func (f *fakeExchange) placed() []models.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderRequest(nil), f.orders...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Send(msg string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) Sendf(format string, args ...any) { n.Send(fmt.Sprintf(format, args...)) }

type fakeJournal struct {
	mu      sync.Mutex
	records []models.Execution
	err     error
}

func (j *fakeJournal) Record(ctx context.Context, e models.Execution) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, e)
	return j.err
}

var errBoom = errors.New("boom")

func testSettings() Settings {
	return Settings{
		Target:           target,
		Wallet:           wallet,
		CopyPercentage:   decimal.NewFromInt(5),
		MinPositionUSD:   decimal.NewFromInt(10),
		MaxPositionUSD:   decimal.NewFromInt(100),
		ExchangeMinUSD:   decimal.NewFromInt(10),
		SlippagePct:      decimal.Zero,
		FallbackEquity:   decimal.NewFromInt(100),
		MaxOpenPositions: 4,
		CallTimeout:      time.Second,
	}
}

var tidSeq int

func fill(symbol, side, size, price, dir string) models.RawFill {
	tidSeq++
	return models.RawFill{
		Account:   target,
		Symbol:    symbol,
		Side:      models.ParseSide(side),
		Size:      decimal.RequireFromString(size),
		Price:     decimal.RequireFromString(price),
		ClosedPnl: decimal.Zero,
		Direction: dir,
		Hash:      "0xhash",
		TradeID:   fmt.Sprint(tidSeq),
	}
}
