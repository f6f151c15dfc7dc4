package notify

import (
	"context"
	"fmt"
	"strings"

	"copy_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Commands — что бот отвечает на команды в чате оператора.
type Commands interface {
	PositionsSummary() string
	Processed() int
}

// Telegram — пассивный нотифайер в один чат + команды /positions и /status.
// Без токена или chat id все методы — no-op.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	prefix string
}

func NewTelegram(token string, chatID int64, prefix string) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return &Telegram{prefix: prefix}, nil
	}
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		prefix: prefix,
	}, nil
}

func (t *Telegram) Enabled() bool {
	return t != nil && t.bot != nil && t.chatID != 0
}

func (t *Telegram) Send(msg string) {
	if !t.Enabled() {
		return
	}
	if t.prefix != "" {
		msg = t.prefix + " " + msg
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("[TG] send error: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Reply — ответ на команду оператора.
func Reply(cmd string, c Commands) string {
	switch strings.ToLower(cmd) {
	case "positions":
		return "📊 " + c.PositionsSummary()
	case "status":
		return fmt.Sprintf("🟢 running, unique fills processed: %d\n📊 %s", c.Processed(), c.PositionsSummary())
	}
	return ""
}

// Start: long-polling, отвечаем только в чат оператора.
func (t *Telegram) Start(ctx context.Context, c Commands) {
	if !t.Enabled() {
		return
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				if reply := Reply(upd.Message.Command(), c); reply != "" {
					t.Send(reply)
				}
			}
		}
	}()
}

func (t *Telegram) Stop() {
	if !t.Enabled() {
		return
	}
	t.bot.StopReceivingUpdates()
}
