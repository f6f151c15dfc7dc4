package models

import "github.com/shopspring/decimal"

const (
	DefaultSizeDecimals = 4
)

// DefaultTickSize — 1 цент, если у инструмента нет метаданных.
var DefaultTickSize = decimal.New(1, -2)

// InstrumentMeta — точность размера и шаг цены для одного перпа.
type InstrumentMeta struct {
	Symbol       string
	AssetIndex   int // индекс в universe, нужен для подписи ордера
	SizeDecimals int32
	TickSize     decimal.Decimal
	MaxLeverage  int
}

// DefaultInstrument — безопасные дефолты для неизвестного символа.
func DefaultInstrument(symbol string) InstrumentMeta {
	return InstrumentMeta{
		Symbol:       symbol,
		AssetIndex:   -1,
		SizeDecimals: DefaultSizeDecimals,
		TickSize:     DefaultTickSize,
		MaxLeverage:  1,
	}
}
