package service

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"copy_bot/internal/models"
	"copy_bot/pkg/logger"
)

// Replay читает записанные block fills, по одной пачке на строку.
type Replay struct {
	path  string
	state ConnState
}

func NewReplay(path string, state ConnState) *Replay {
	return &Replay{path: path, state: state}
}

func (r *Replay) Name() string { return "replay" }

func (r *Replay) Run(ctx context.Context, out chan<- models.FillBatch) error {
	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		// sonic может ссылаться на исходный буфер, а Scanner его переиспользует
		raw := append([]byte(nil), sc.Bytes()...)
		if len(raw) == 0 {
			continue
		}

		batch, skipped, err := DecodeBlockFills(raw)
		if err != nil {
			mtxMalformed.WithLabelValues("batch").Inc()
			logger.Warn("[REPLAY] line %d: %v", line, err)
			continue
		}
		if skipped > 0 {
			mtxMalformed.WithLabelValues("event").Add(float64(skipped))
			logger.Warn("[REPLAY] line %d: skipped %d malformed events", line, skipped)
		}
		if batch.Time.IsZero() {
			batch.Time = time.Now()
		}

		mtxBatches.WithLabelValues(r.Name()).Inc()
		if r.state != nil {
			r.state.TouchBatch(batch.Time)
		}
		if !emit(ctx, out, batch) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read replay file: %w", err)
	}
	logger.Info("[REPLAY] done: %d lines", line)
	return nil
}
