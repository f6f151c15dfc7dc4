package models

import (
	"github.com/shopspring/decimal"
)

// TimeInForce — у копира всегда IOC, но тип оставляем явным для wire-формата.
type TimeInForce string

const (
	TIFImmediateOrCancel TimeInForce = "Ioc"
)

// OrderRequest — то, что уходит на биржу.
type OrderRequest struct {
	Symbol     string
	AssetIndex int // -1 — клиент биржи найдёт сам по символу
	IsBuy      bool
	Size       decimal.Decimal
	LimitPrice decimal.Decimal
	TIF        TimeInForce
	ReduceOnly bool
	ClientID   string // cloid, 0x + 16 байт
}

func (r OrderRequest) Side() Side {
	if r.IsBuy {
		return SideBuy
	}
	return SideSell
}

func (r OrderRequest) Notional() decimal.Decimal {
	return r.Size.Mul(r.LimitPrice)
}

// OrderStatus — состояния одной попытки ордера.
type OrderStatus string

const (
	OrderPreparing       OrderStatus = "PREPARING"
	OrderSubmitted       OrderStatus = "SUBMITTED"
	OrderFilled          OrderStatus = "FILLED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderRejected        OrderStatus = "REJECTED" // биржа отклонила ордер (invalid size, reduce only, ...)
	OrderError           OrderStatus = "ERROR"    // ошибка на уровне API/транспорта
)

// OrderResult — ответ биржи. FilledSize/AvgPrice — фактические, не запрошенные.
type OrderResult struct {
	Status     OrderStatus
	OrderID    int64
	FilledSize decimal.Decimal
	AvgPrice   decimal.Decimal
	Error      string
}
