package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"copy_bot/internal/models"
	"copy_bot/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	pingInterval = 50 * time.Second // Hyperliquid закрывает соединение после 60s тишины
	minBackoff   = time.Second
	maxBackoff   = 30 * time.Second
)

// Stream — подписка userFills на адрес таргета с переподключением.
type Stream struct {
	url    string
	user   string
	state  ConnState
	dialer *websocket.Dialer
}

func NewStream(url, user string, state ConnState) *Stream {
	return &Stream{
		url:    url,
		user:   strings.ToLower(user),
		state:  state,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (s *Stream) Name() string { return "ws" }

func (s *Stream) Run(ctx context.Context, out chan<- models.FillBatch) error {
	backoff := minBackoff
	for {
		connected, err := s.session(ctx, out)
		if s.state != nil {
			s.state.SetWSConnected(false)
		}
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = minBackoff
		}
		logger.Warn("[WS] userFills disconnected: %v; reconnect in %s", err, backoff)
		mtxReconnects.Inc()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// session — одно соединение: подписка, ping-цикл, чтение до ошибки.
func (s *Stream) session(ctx context.Context, out chan<- models.FillBatch) (bool, error) {
	logger.Info("[WS] connect %s userFills %s", s.url, s.user)
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, err
	}

	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	sub := map[string]any{
		"method": "subscribe",
		"subscription": map[string]string{
			"type": "userFills",
			"user": s.user,
		},
	}
	if err := write(sub); err != nil {
		_ = conn.Close()
		return false, err
	}
	if s.state != nil {
		s.state.SetWSConnected(true)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// разблокирует ReadMessage
				_ = conn.Close()
				return
			case <-t.C:
				if err := write(map[string]string{"method": "ping"}); err != nil {
					logger.Warn("[WS] ping error: %v", err)
				}
			}
		}
	}()

	defer func() { _ = conn.Close() }()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		batch, skipped, ok, err := DecodeUserFills(msg)
		if err != nil {
			mtxMalformed.WithLabelValues("batch").Inc()
			logger.Warn("[WS] skip malformed message: %v", err)
			continue
		}
		if skipped > 0 {
			mtxMalformed.WithLabelValues("event").Add(float64(skipped))
			logger.Warn("[WS] skipped %d malformed fills", skipped)
		}
		if !ok {
			continue
		}

		mtxBatches.WithLabelValues(s.Name()).Inc()
		if s.state != nil {
			s.state.TouchBatch(batch.Time)
		}
		if !emit(ctx, out, batch) {
			return true, ctx.Err()
		}
	}
}
