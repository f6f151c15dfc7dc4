package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"copy_bot/internal/helper"
	"copy_bot/internal/models"

	"github.com/bytedance/sonic"
)

// fillWire — сделка в формате Hyperliquid (userFills и block fills одинаковы).
type fillWire struct {
	Coin      string      `json:"coin"`
	Px        string      `json:"px"`
	Sz        string      `json:"sz"`
	Side      string      `json:"side"`
	Time      int64       `json:"time"`
	Dir       string      `json:"dir"`
	ClosedPnl string      `json:"closedPnl"`
	Hash      string      `json:"hash"`
	Tid       json.Number `json:"tid"`
}

func (w fillWire) toModel(account string) (models.RawFill, error) {
	if w.Coin == "" {
		return models.RawFill{}, fmt.Errorf("empty coin")
	}
	side := models.ParseSide(w.Side)
	if side == models.SideNone {
		return models.RawFill{}, fmt.Errorf("%s: bad side %q", w.Coin, w.Side)
	}
	px, err := helper.ParseDecimal(w.Px)
	if err != nil {
		return models.RawFill{}, fmt.Errorf("%s px: %w", w.Coin, err)
	}
	sz, err := helper.ParseDecimal(w.Sz)
	if err != nil {
		return models.RawFill{}, fmt.Errorf("%s sz: %w", w.Coin, err)
	}
	pnl, err := helper.ParseDecimal(w.ClosedPnl)
	if err != nil {
		return models.RawFill{}, fmt.Errorf("%s closedPnl: %w", w.Coin, err)
	}

	f := models.RawFill{
		Account:   strings.ToLower(strings.TrimSpace(account)),
		Symbol:    w.Coin,
		Side:      side,
		Size:      sz,
		Price:     px,
		ClosedPnl: pnl,
		Direction: strings.TrimSpace(w.Dir),
		Hash:      w.Hash,
		TradeID:   w.Tid.String(),
	}
	if w.Time > 0 {
		f.Time = time.UnixMilli(w.Time)
	}
	return f, nil
}

// DecodeBlockFills разбирает пачку вида {"events":[[addr, fill], ...]}.
// Битые события пропускаются, невалидный JSON — ошибка всей пачки.
func DecodeBlockFills(raw []byte) (models.FillBatch, int, error) {
	var block struct {
		Height int64               `json:"height"`
		Time   int64               `json:"time"`
		Events [][]json.RawMessage `json:"events"`
	}
	if err := sonic.Unmarshal(raw, &block); err != nil {
		return models.FillBatch{}, 0, fmt.Errorf("decode block: %w", err)
	}

	batch := models.FillBatch{Height: block.Height}
	if block.Time > 0 {
		batch.Time = time.UnixMilli(block.Time)
	}

	skipped := 0
	for _, ev := range block.Events {
		if len(ev) < 2 {
			skipped++
			continue
		}
		var account string
		if err := sonic.Unmarshal(ev[0], &account); err != nil {
			skipped++
			continue
		}
		var w fillWire
		if err := sonic.Unmarshal(ev[1], &w); err != nil {
			skipped++
			continue
		}
		f, err := w.toModel(account)
		if err != nil {
			skipped++
			continue
		}
		batch.Fills = append(batch.Fills, f)
	}
	return batch, skipped, nil
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type userFillsData struct {
	IsSnapshot bool       `json:"isSnapshot"`
	User       string     `json:"user"`
	Fills      []fillWire `json:"fills"`
}

// DecodeUserFills разбирает сообщение канала userFills.
// ok=false — сообщение не про сделки (pong, subscriptionResponse) или снапшот истории.
func DecodeUserFills(raw []byte) (batch models.FillBatch, skipped int, ok bool, err error) {
	var msg wsMessage
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return models.FillBatch{}, 0, false, fmt.Errorf("decode ws message: %w", err)
	}
	if msg.Channel != "userFills" {
		return models.FillBatch{}, 0, false, nil
	}

	var data userFillsData
	if err := sonic.Unmarshal(msg.Data, &data); err != nil {
		return models.FillBatch{}, 0, false, fmt.Errorf("decode userFills: %w", err)
	}
	// снапшот — история до подписки, её не копируем
	if data.IsSnapshot {
		return models.FillBatch{}, 0, false, nil
	}

	batch.Time = time.Now()
	for _, w := range data.Fills {
		f, err := w.toModel(data.User)
		if err != nil {
			skipped++
			continue
		}
		batch.Fills = append(batch.Fills, f)
	}
	return batch, skipped, true, nil
}
