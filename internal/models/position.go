package models

import (
	"github.com/shopspring/decimal"
)

// Position — позиция фолловера со стороны биржи. Size со знаком: >0 long, <0 short.
type Position struct {
	Symbol     string
	Size       decimal.Decimal
	EntryPrice decimal.Decimal
}

// DirectionName — "LONG"/"SHORT" для логов.
func DirectionName(size decimal.Decimal) string {
	if size.IsNegative() {
		return "SHORT"
	}
	return "LONG"
}
