package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"copy_bot/internal/models"

	"github.com/shopspring/decimal"
)

// Ledger — кэш позиций фолловера: symbol -> signed size.
// Источник правды — биржа, Replace перезаписывает всё целиком.
type Ledger struct {
	mu sync.RWMutex
	m  map[string]decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{m: make(map[string]decimal.Decimal)}
}

// Replace — полная ресинхронизация со снапшота биржи. Нулевые позиции отбрасываются.
func (l *Ledger) Replace(positions []models.Position) {
	next := make(map[string]decimal.Decimal, len(positions))
	for _, p := range positions {
		if p.Size.IsZero() {
			continue
		}
		next[p.Symbol] = p.Size
	}

	l.mu.Lock()
	l.m = next
	l.mu.Unlock()
}

func (l *Ledger) Get(symbol string) (decimal.Decimal, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.m[symbol]
	return v, ok
}

// Add прибавляет signed delta; позиция, ставшая нулевой, удаляется.
func (l *Ledger) Add(symbol string, delta decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.m[symbol].Add(delta)
	if next.IsZero() {
		delete(l.m, symbol)
		return
	}
	l.m[symbol] = next
}

func (l *Ledger) Set(symbol string, size decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if size.IsZero() {
		delete(l.m, symbol)
		return
	}
	l.m[symbol] = size
}

func (l *Ledger) Remove(symbol string) {
	l.mu.Lock()
	delete(l.m, symbol)
	l.mu.Unlock()
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.m)
}

// Snapshot — копия позиций, отсортированная по символу.
func (l *Ledger) Snapshot() []models.Position {
	l.mu.RLock()
	out := make([]models.Position, 0, len(l.m))
	for sym, size := range l.m {
		out = append(out, models.Position{Symbol: sym, Size: size})
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Summary — "Positions (2/4): ETH 0.0250 LONG, SOL 1.5000 SHORT".
func (l *Ledger) Summary(maxOpen int) string {
	snap := l.Snapshot()
	if len(snap) == 0 {
		return "No positions"
	}
	parts := make([]string, 0, len(snap))
	for _, p := range snap {
		parts = append(parts, fmt.Sprintf("%s %s %s", p.Symbol, p.Size.Abs().StringFixed(4), models.DirectionName(p.Size)))
	}
	return fmt.Sprintf("Positions (%d/%d): %s", len(snap), maxOpen, strings.Join(parts, ", "))
}
