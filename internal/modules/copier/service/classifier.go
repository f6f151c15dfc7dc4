package service

import (
	"errors"
	"strings"

	"copy_bot/internal/models"

	"github.com/shopspring/decimal"
)

var ErrNoDirection = errors.New("fill has no direction")

// Verdict — чем закончилась обработка одной сделки.
type Verdict string

const (
	VerdictIgnoredAccount Verdict = "ignored_account"
	VerdictIgnoredCoin    Verdict = "ignored_coin"
	VerdictDuplicate      Verdict = "duplicate"
	VerdictMalformed      Verdict = "malformed"
	VerdictSkipped        Verdict = "skipped"
	VerdictExecuted       Verdict = "executed"
)

// Classifier отбирает сделки таргета и определяет open/close.
type Classifier struct {
	target   string
	coins    map[string]struct{} // nil — все монеты
	strict   bool
	registry *FillRegistry
}

func NewClassifier(target string, coins map[string]struct{}, strict bool, registry *FillRegistry) *Classifier {
	return &Classifier{
		target:   strings.ToLower(strings.TrimSpace(target)),
		coins:    coins,
		strict:   strict,
		registry: registry,
	}
}

// Classify: чужой аккаунт -> фильтр монет -> дедупликация -> open/close.
// Ключ регистрируется ровно один раз, даже если действие не удалось определить.
func (c *Classifier) Classify(f models.RawFill) (models.Action, Verdict, error) {
	if !strings.EqualFold(strings.TrimSpace(f.Account), c.target) {
		return "", VerdictIgnoredAccount, nil
	}
	if c.coins != nil {
		if _, ok := c.coins[f.Symbol]; !ok {
			return "", VerdictIgnoredCoin, nil
		}
	}
	if !c.registry.MarkNew(f.Key()) {
		return "", VerdictDuplicate, nil
	}

	action, err := ClassifyAction(f.Direction, f.ClosedPnl, c.strict)
	if err != nil {
		return "", VerdictMalformed, err
	}
	return action, "", nil
}

// ClassifyAction: "Close..." -> CLOSE, "Open..." -> OPEN.
// Без понятного dir решает closedPnl != 0, в strict-режиме пустой dir — ошибка.
func ClassifyAction(direction string, closedPnl decimal.Decimal, strict bool) (models.Action, error) {
	dir := strings.TrimSpace(direction)
	switch {
	case strings.HasPrefix(dir, "Close"):
		return models.ActionClose, nil
	case strings.HasPrefix(dir, "Open"):
		return models.ActionOpen, nil
	case dir == "" && strict:
		return "", ErrNoDirection
	}
	if !closedPnl.IsZero() {
		return models.ActionClose, nil
	}
	return models.ActionOpen, nil
}

// closeDirectionMatches проверяет текст dir против позиции фолловера:
// "Close Long" закрывает только лонг, "Close Short" — только шорт.
func closeDirectionMatches(direction string, held decimal.Decimal) bool {
	switch {
	case strings.Contains(direction, "Close Long"):
		return held.IsPositive()
	case strings.Contains(direction, "Close Short"):
		return held.IsNegative()
	}
	return true
}

// closeSideReduces — ордер этой стороны уменьшает позицию held, а не наращивает её.
func closeSideReduces(side models.Side, held decimal.Decimal) bool {
	return (held.IsPositive() && side == models.SideSell) || (held.IsNegative() && side == models.SideBuy)
}
