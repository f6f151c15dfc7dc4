package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"copy_bot/internal/models"
	"copy_bot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalDisabled(t *testing.T) {
	j := NewJournal(nil)
	assert.False(t, j.Enabled())
	assert.NoError(t, j.Migrate(context.Background()))
	assert.NoError(t, j.Record(context.Background(), models.Execution{FillKey: "h_1"}))

	var nilJournal *Journal
	assert.False(t, nilJournal.Enabled())
}

func TestInsertArgs(t *testing.T) {
	now := time.Now()
	args, err := insertArgs(models.Execution{
		FillKey:     "0xabc_7",
		Symbol:      "ETH",
		Action:      models.ActionOpen,
		Side:        models.SideBuy,
		TargetSize:  decimal.RequireFromString("10"),
		TargetPrice: decimal.RequireFromString("2000"),
		SkipReason:  models.SkipBelowMin,
		DryRun:      true,
		CreatedAt:   now,
	})
	require.NoError(t, err)
	require.Len(t, args, 16)

	assert.Equal(t, "0xabc_7", args[0])
	assert.Equal(t, "OPEN", args[2])
	assert.Equal(t, "BUY", args[3])
	assert.Equal(t, "SKIPPED", args[8])
	assert.Equal(t, "BELOW_MIN", args[9])
	assert.Equal(t, true, args[13])
	assert.Equal(t, now, args[15])

	var payload map[string]any
	require.NoError(t, sonic.UnmarshalString(args[14].(string), &payload))
	assert.Equal(t, "ETH", payload["symbol"])
	assert.Equal(t, "2000", payload["target_price"])
}

type fakeTx struct {
	execs   []string
	runs    int
	runErr  error
	execErr error
}

func (f *fakeTx) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error {
	f.runs++
	return f.runErr
}

func (f *fakeTx) Conn() db.Execer { return f }

func (f *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, f.execErr
}

func TestJournalMigrateAndRecord(t *testing.T) {
	tx := &fakeTx{}
	j := NewJournal(tx)
	require.True(t, j.Enabled())

	require.NoError(t, j.Migrate(context.Background()))
	require.Len(t, tx.execs, 1)
	assert.Contains(t, tx.execs[0], "copy_executions")

	require.NoError(t, j.Record(context.Background(), models.Execution{FillKey: "h_1", Status: models.OrderFilled}))
	assert.Equal(t, 1, tx.runs)

	tx.runErr = errors.New("connection reset")
	err := j.Record(context.Background(), models.Execution{FillKey: "h_2", Status: models.OrderFilled})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Journal.Record")

	tx.execErr = errors.New("permission denied")
	err = j.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Journal.Migrate")
}
