package service

import (
	"context"

	"copy_bot/internal/models"

	"github.com/shopspring/decimal"
)

// Exchange — то, что движку нужно от биржи.
type Exchange interface {
	PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
	AccountValue(ctx context.Context, address string) (decimal.Decimal, error)
	Positions(ctx context.Context, address string) ([]models.Position, error)
	Instruments(ctx context.Context) ([]models.InstrumentMeta, error)
}

// Notifier — оператору (Telegram). Может быть no-op.
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Journal — журнал решений (Postgres). Может быть no-op.
type Journal interface {
	Record(ctx context.Context, e models.Execution) error
}

type nopNotifier struct{}

func (nopNotifier) Send(string)          {}
func (nopNotifier) Sendf(string, ...any) {}

type nopJournal struct{}

func (nopJournal) Record(context.Context, models.Execution) error { return nil }
