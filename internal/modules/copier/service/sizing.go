package service

import (
	"copy_bot/internal/helper"
	"copy_bot/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Sizer переводит сделку таргета в размер фолловера.
type Sizer struct {
	copyPct     decimal.Decimal
	minUSD      decimal.Decimal
	maxUSD      decimal.Decimal
	exchangeMin decimal.Decimal
}

func NewSizer(copyPct, minUSD, maxUSD, exchangeMin decimal.Decimal) *Sizer {
	return &Sizer{
		copyPct:     copyPct,
		minUSD:      minUSD,
		maxUSD:      maxUSD,
		exchangeMin: exchangeMin,
	}
}

// ComputeOpenSize — чистая функция от (equity, copy%, price, szDecimals).
// Цена возвращается как есть: проскальзывание и тик применяет исполнитель.
func (s *Sizer) ComputeOpenSize(equity, price decimal.Decimal, sizeDecimals int32) models.SizingDecision {
	if !price.IsPositive() {
		return models.SizingDecision{Price: price, Skip: true, SkipReason: models.SkipInvalidPrice}
	}

	desired := equity.Mul(s.copyPct).Div(hundred)
	if desired.IsNegative() {
		desired = decimal.Zero
	}
	if desired.GreaterThan(s.maxUSD) {
		desired = s.maxUSD
	}
	if desired.LessThan(s.minUSD) {
		return models.SizingDecision{
			Price:       price,
			NotionalUSD: desired,
			Skip:        true,
			SkipReason:  models.SkipBelowMin,
		}
	}

	raw := desired.Div(price)
	size := helper.RoundSize(raw, sizeDecimals)
	notional := size.Mul(price)

	d := models.SizingDecision{
		RawSize:     raw,
		Size:        size,
		Price:       price,
		NotionalUSD: notional,
	}
	if notional.LessThan(s.exchangeMin) {
		d.Skip = true
		d.SkipReason = models.SkipBelowExchangeMin
	}
	return d
}
