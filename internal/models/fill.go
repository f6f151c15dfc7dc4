package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side — сторона сделки в терминах ордера: "BUY"/"SELL".
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide понимает как "B"/"A" из фида Hyperliquid, так и Buy/Sell.
func ParseSide(raw string) Side {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "B", "BUY", "BID":
		return SideBuy
	case "A", "S", "SELL", "ASK":
		return SideSell
	default:
		return SideNone
	}
}

func (s Side) IsBuy() bool { return s == SideBuy }

// Action — что сделал таргет: открыл/увеличил или закрыл/уменьшил позицию.
type Action string

const (
	ActionOpen  Action = "OPEN"
	ActionClose Action = "CLOSE"
)

// RawFill — одна сделка из фида в том виде, как её прислал источник.
// Side — сторона таргета, не фолловера.
type RawFill struct {
	Account   string
	Symbol    string
	Side      Side
	Size      decimal.Decimal
	Price     decimal.Decimal
	ClosedPnl decimal.Decimal
	Direction string // "Open Long", "Close Short", ... может быть пустым
	Hash      string
	TradeID   string
	Time      time.Time
}

// Key — ключ дедупликации: hash + "_" + tid.
func (f RawFill) Key() string {
	return f.Hash + "_" + f.TradeID
}

// Notional = size * price.
func (f RawFill) Notional() decimal.Decimal {
	return f.Size.Mul(f.Price)
}

// FillBatch — пачка сделок одного блока (или одного сообщения WS).
type FillBatch struct {
	Height int64
	Time   time.Time
	Fills  []RawFill
}
