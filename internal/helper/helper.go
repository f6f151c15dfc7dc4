package helper

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundSize округляет размер до decimals знаков, half-up.
func RoundSize(size decimal.Decimal, decimals int32) decimal.Decimal {
	if decimals < 0 {
		decimals = 0
	}
	return size.Round(decimals)
}

// RoundToTick — round(price/tick)*tick. При tick <= 0 округляет до центов.
func RoundToTick(px, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return px.Round(2)
	}
	steps := px.Div(tick).Round(0)
	return steps.Mul(tick)
}

// ApplySlippage: покупка — платим до +pct%, продажа — согласны на -pct%.
func ApplySlippage(px decimal.Decimal, isBuy bool, pct decimal.Decimal) decimal.Decimal {
	if !pct.IsPositive() {
		return px
	}
	k := pct.Div(decimal.NewFromInt(100))
	if isBuy {
		return px.Mul(decimal.NewFromInt(1).Add(k))
	}
	return px.Mul(decimal.NewFromInt(1).Sub(k))
}

// WireNumber — число для API биржи: максимум 8 знаков, без хвостовых нулей.
func WireNumber(d decimal.Decimal) string {
	s := d.Round(8).String()
	if s == "-0" {
		return "0"
	}
	return s
}

// ParseDecimal — пустая строка считается нулём.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", raw, err)
	}
	return d, nil
}

// ShortAddress — 0x1234ab...abcdef для логов.
func ShortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-6:]
}
