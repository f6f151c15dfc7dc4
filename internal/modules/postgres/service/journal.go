package service

import (
	"context"
	"fmt"

	"copy_bot/internal/models"
	"copy_bot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS copy_executions (
	id            BIGSERIAL PRIMARY KEY,
	fill_key      TEXT        NOT NULL,
	symbol        TEXT        NOT NULL,
	action        TEXT        NOT NULL,
	side          TEXT        NOT NULL,
	target_size   NUMERIC     NOT NULL,
	target_price  NUMERIC     NOT NULL,
	order_size    NUMERIC,
	order_price   NUMERIC,
	status        TEXT        NOT NULL,
	skip_reason   TEXT        NOT NULL,
	filled_size   NUMERIC,
	avg_price     NUMERIC,
	error         TEXT        NOT NULL,
	dry_run       BOOLEAN     NOT NULL,
	payload       JSONB       NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS copy_executions_fill_key_idx ON copy_executions (fill_key);`

const insertSQL = `
INSERT INTO copy_executions (
	fill_key, symbol, action, side, target_size, target_price, order_size, order_price,
	status, skip_reason, filled_size, avg_price, error, dry_run, payload, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

// Journal — append-only журнал решений копира. Без БД (tx == nil) ничего не пишет.
// Состояние из него не восстанавливается: после рестарта всё берётся с биржи.
type Journal struct {
	tx db.TxManager
}

func NewJournal(tx db.TxManager) *Journal {
	return &Journal{tx: tx}
}

func (j *Journal) Enabled() bool { return j != nil && j.tx != nil }

// Migrate создаёт таблицу, если её нет.
func (j *Journal) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.Migrate: %w", err)
		}
	}()
	if !j.Enabled() {
		return nil
	}
	_, err = j.tx.Conn().Exec(ctx, createTableSQL)
	return err
}

// Record in db
func (j *Journal) Record(ctx context.Context, e models.Execution) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.Record: %w", err)
		}
	}()
	if !j.Enabled() {
		return nil
	}

	args, err := insertArgs(e)
	if err != nil {
		return err
	}
	return j.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertSQL, args...)
		return err
	})
}

type executionPayload struct {
	FillKey     string `json:"fill_key"`
	Symbol      string `json:"symbol"`
	Action      string `json:"action"`
	Side        string `json:"side"`
	TargetSize  string `json:"target_size"`
	TargetPrice string `json:"target_price"`
	OrderSize   string `json:"order_size"`
	OrderPrice  string `json:"order_price"`
	Status      string `json:"status"`
	SkipReason  string `json:"skip_reason,omitempty"`
	FilledSize  string `json:"filled_size"`
	AvgPrice    string `json:"avg_price"`
	Error       string `json:"error,omitempty"`
	DryRun      bool   `json:"dry_run"`
}

func insertArgs(e models.Execution) ([]any, error) {
	status := string(e.Status)
	if status == "" && e.SkipReason != models.SkipNone {
		status = "SKIPPED"
	}

	payload, err := sonic.Marshal(executionPayload{
		FillKey:     e.FillKey,
		Symbol:      e.Symbol,
		Action:      string(e.Action),
		Side:        string(e.Side),
		TargetSize:  e.TargetSize.String(),
		TargetPrice: e.TargetPrice.String(),
		OrderSize:   e.OrderSize.String(),
		OrderPrice:  e.OrderPrice.String(),
		Status:      status,
		SkipReason:  string(e.SkipReason),
		FilledSize:  e.FilledSize.String(),
		AvgPrice:    e.AvgPrice.String(),
		Error:       e.Error,
		DryRun:      e.DryRun,
	})
	if err != nil {
		return nil, err
	}

	return []any{
		e.FillKey,
		e.Symbol,
		string(e.Action),
		string(e.Side),
		e.TargetSize.String(),
		e.TargetPrice.String(),
		e.OrderSize.String(),
		e.OrderPrice.String(),
		status,
		string(e.SkipReason),
		e.FilledSize.String(),
		e.AvgPrice.String(),
		e.Error,
		e.DryRun,
		string(payload),
		e.CreatedAt,
	}, nil
}
