package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SkipReason — почему сделка таргета не превратилась в ордер.
type SkipReason string

const (
	SkipNone              SkipReason = ""
	SkipBelowMin          SkipReason = "BELOW_MIN"
	SkipBelowExchangeMin  SkipReason = "BELOW_EXCHANGE_MIN"
	SkipMaxPositions      SkipReason = "MAX_POSITIONS"
	SkipNoPosition        SkipReason = "NO_POSITION"
	SkipDirectionMismatch SkipReason = "DIRECTION_MISMATCH"
	SkipInvalidPrice      SkipReason = "INVALID_PRICE"
)

// SizingDecision — результат расчёта размера для одной сделки таргета.
type SizingDecision struct {
	RawSize     decimal.Decimal // до округления
	Size        decimal.Decimal
	Price       decimal.Decimal
	NotionalUSD decimal.Decimal
	Equity      decimal.Decimal // стоимость аккаунта, от которой считали
	Skip        bool
	SkipReason  SkipReason
}

// Execution — запись журнала: одно решение, дошедшее до гейта или дальше.
type Execution struct {
	FillKey     string
	Symbol      string
	Action      Action
	Side        Side
	TargetSize  decimal.Decimal
	TargetPrice decimal.Decimal
	OrderSize   decimal.Decimal
	OrderPrice  decimal.Decimal
	Status      OrderStatus
	SkipReason  SkipReason
	FilledSize  decimal.Decimal
	AvgPrice    decimal.Decimal
	Error       string
	DryRun      bool
	CreatedAt   time.Time
}
