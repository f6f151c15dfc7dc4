package service

import (
	"context"
	"fmt"
	"strings"

	"copy_bot/internal/helper"
	"copy_bot/internal/models"

	"github.com/shopspring/decimal"
)

var tickBasis = decimal.NewFromInt(10000)

// Instruments — метаданные всех перпов; индекс в universe и есть asset id.
func (c *Client) Instruments(ctx context.Context) ([]models.InstrumentMeta, error) {
	var meta metaResponse
	if err := c.post(ctx, "/info", map[string]string{"type": "meta"}, &meta); err != nil {
		return nil, err
	}

	out := make([]models.InstrumentMeta, 0, len(meta.Universe))
	assets := make(map[string]int, len(meta.Universe))
	for i, u := range meta.Universe {
		if u.Name == "" {
			continue
		}
		// Публичный meta обычно не присылает tickSize, тогда тик 0.01.
		// Биржа дополнительно требует не больше 5 значащих цифр в цене:
		// лимит BTC/ETH после проскальзывания с центами (97123.45) будет отклонён как invalid price.
		tick := models.DefaultTickSize
		if u.TickSize != "" {
			bps, err := helper.ParseDecimal(u.TickSize)
			if err == nil && bps.IsPositive() {
				tick = bps.Div(tickBasis)
			}
		}
		decimals := u.SzDecimals
		if decimals < 0 {
			decimals = models.DefaultSizeDecimals
		}
		out = append(out, models.InstrumentMeta{
			Symbol:       u.Name,
			AssetIndex:   i,
			SizeDecimals: decimals,
			TickSize:     tick,
			MaxLeverage:  u.MaxLeverage,
		})
		assets[u.Name] = i
	}

	c.assetsMu.Lock()
	c.assets = assets
	c.assetsMu.Unlock()
	return out, nil
}

func (c *Client) state(ctx context.Context, address string) (clearinghouseState, error) {
	var st clearinghouseState
	if address == "" {
		return st, fmt.Errorf("clearinghouse state: empty address")
	}
	err := c.post(ctx, "/info", map[string]string{
		"type": "clearinghouseState",
		"user": strings.ToLower(address),
	}, &st)
	return st, err
}

// AccountValue — equity аккаунта в USD.
func (c *Client) AccountValue(ctx context.Context, address string) (decimal.Decimal, error) {
	st, err := c.state(ctx, address)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := helper.ParseDecimal(st.MarginSummary.AccountValue)
	if err != nil {
		return decimal.Zero, fmt.Errorf("accountValue: %w", err)
	}
	return v, nil
}

// Positions — ненулевые позиции аккаунта, szi со знаком.
func (c *Client) Positions(ctx context.Context, address string) ([]models.Position, error) {
	st, err := c.state(ctx, address)
	if err != nil {
		return nil, err
	}

	out := make([]models.Position, 0, len(st.AssetPositions))
	for _, ap := range st.AssetPositions {
		size, err := helper.ParseDecimal(ap.Position.Szi)
		if err != nil {
			return nil, fmt.Errorf("position %s szi: %w", ap.Position.Coin, err)
		}
		if size.IsZero() {
			continue
		}
		entry, _ := helper.ParseDecimal(ap.Position.EntryPx)
		out = append(out, models.Position{
			Symbol:     ap.Position.Coin,
			Size:       size,
			EntryPrice: entry,
		})
	}
	return out, nil
}
