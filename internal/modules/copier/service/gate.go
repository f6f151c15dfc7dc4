package service

import "copy_bot/internal/models"

// Gate — лимит одновременно открытых позиций. Применяется только к открытиям.
type Gate struct {
	maxOpen int
}

func NewGate(maxOpen int) *Gate {
	return &Gate{maxOpen: maxOpen}
}

// CheckOpen: новая монета при заполненном лимите -> MAX_POSITIONS.
// Добавка к уже открытой позиции лимитом не ограничивается.
func (g *Gate) CheckOpen(symbol string, ledger *Ledger) models.SkipReason {
	if _, ok := ledger.Get(symbol); ok {
		return models.SkipNone
	}
	if ledger.Len() >= g.maxOpen {
		return models.SkipMaxPositions
	}
	return models.SkipNone
}

func (g *Gate) MaxOpen() int { return g.maxOpen }
