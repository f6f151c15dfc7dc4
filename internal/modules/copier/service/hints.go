package service

import (
	"fmt"
	"strings"

	"copy_bot/internal/models"
)

// orderHint — подсказка оператору по тексту ошибки биржи.
func orderHint(status models.OrderStatus, msg string, meta models.InstrumentMeta, known bool) string {
	lower := strings.ToLower(msg)
	switch status {
	case models.OrderRejected:
		switch {
		case strings.Contains(lower, "invalid size") && known:
			return fmt.Sprintf("%s requires %d decimal places", meta.Symbol, meta.SizeDecimals)
		case strings.Contains(lower, "reduce only"):
			return "Position doesn't exist or hasn't filled yet"
		}
	case models.OrderError:
		switch {
		case strings.Contains(lower, "notional") || strings.Contains(lower, "minimum"):
			return "Increase COPY_PERCENTAGE or MIN_POSITION_SIZE_USD"
		case strings.Contains(lower, "reduce") || strings.Contains(lower, "position"):
			return "Position sync issue"
		}
	}
	return ""
}

// transportHint — подсказка, когда сам вызов биржи упал.
func transportHint(err error) string {
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "notional") || strings.Contains(lower, "minimum") {
		return "Hyperliquid minimum: $10 per order"
	}
	return ""
}
