package service

import (
	"context"
	"fmt"

	"copy_bot/internal/helper"
	"copy_bot/internal/models"
	"copy_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

func (c *Client) assetIndex(ctx context.Context, symbol string) (int, error) {
	c.assetsMu.RLock()
	idx, ok := c.assets[symbol]
	c.assetsMu.RUnlock()
	if ok {
		return idx, nil
	}

	if _, err := c.Instruments(ctx); err != nil {
		return 0, fmt.Errorf("load meta for %s: %w", symbol, err)
	}
	c.assetsMu.RLock()
	idx, ok = c.assets[symbol]
	c.assetsMu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("unknown asset %s", symbol)
	}
	return idx, nil
}

// PlaceOrder отправляет один лимитный ордер.
// Ошибка транспорта возвращается как error; отказ API (status=err) — как OrderError в результате.
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	if c.key == nil {
		return models.OrderResult{}, ErrNoSigner
	}

	asset := req.AssetIndex
	if asset < 0 {
		idx, err := c.assetIndex(ctx, req.Symbol)
		if err != nil {
			return models.OrderResult{}, err
		}
		asset = idx
	}

	tif := req.TIF
	if tif == "" {
		tif = models.TIFImmediateOrCancel
	}

	action := orderAction{
		Type: "order",
		Orders: []orderWire{{
			Asset:      asset,
			IsBuy:      req.IsBuy,
			LimitPx:    helper.WireNumber(req.LimitPrice),
			Size:       helper.WireNumber(req.Size),
			ReduceOnly: req.ReduceOnly,
			Type:       orderTypeWire{Limit: limitWire{Tif: string(tif)}},
			Cloid:      req.ClientID,
		}},
		Grouping: "na",
	}

	nonce := c.nextNonce()
	sig, err := c.signL1Action(action, nonce)
	if err != nil {
		return models.OrderResult{}, err
	}

	var resp exchangeResponse
	if err := c.post(ctx, "/exchange", exchangeRequest{
		Action:    action,
		Nonce:     nonce,
		Signature: sig,
	}, &resp); err != nil {
		return models.OrderResult{}, err
	}

	return parseOrderResponse(resp, req)
}

func parseOrderResponse(resp exchangeResponse, req models.OrderRequest) (models.OrderResult, error) {
	if resp.Status != "ok" {
		var msg string
		if err := sonic.Unmarshal(resp.Response, &msg); err != nil {
			msg = string(resp.Response)
		}
		return models.OrderResult{Status: models.OrderError, Error: msg}, nil
	}

	var data orderResponseData
	if err := sonic.Unmarshal(resp.Response, &data); err != nil {
		return models.OrderResult{}, errors.Wrap(err, "decode order response")
	}
	if len(data.Data.Statuses) == 0 {
		return models.OrderResult{Status: models.OrderError, Error: "empty statuses"}, nil
	}

	var st orderStatusWire
	if err := sonic.Unmarshal(data.Data.Statuses[0], &st); err != nil {
		// строковые статусы вроде "waitingForFill"
		logger.Warn("[HL] unknown order status: %s", string(data.Data.Statuses[0]))
		return models.OrderResult{Status: models.OrderSubmitted}, nil
	}

	switch {
	case st.Filled != nil:
		filled, err := helper.ParseDecimal(st.Filled.TotalSz)
		if err != nil {
			return models.OrderResult{}, fmt.Errorf("totalSz: %w", err)
		}
		avg, err := helper.ParseDecimal(st.Filled.AvgPx)
		if err != nil {
			return models.OrderResult{}, fmt.Errorf("avgPx: %w", err)
		}
		status := models.OrderFilled
		if filled.LessThan(req.Size) {
			status = models.OrderPartiallyFilled
		}
		return models.OrderResult{
			Status:     status,
			OrderID:    st.Filled.Oid,
			FilledSize: filled,
			AvgPrice:   avg,
		}, nil
	case st.Error != "":
		return models.OrderResult{Status: models.OrderRejected, Error: st.Error}, nil
	case st.Resting != nil:
		return models.OrderResult{Status: models.OrderSubmitted, OrderID: st.Resting.Oid}, nil
	}
	return models.OrderResult{Status: models.OrderSubmitted}, nil
}
