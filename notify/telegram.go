package notify

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts admin notices to one chat.
type Telegram struct {
	bot    botAPI
	chatID int64
}

// NewTelegram logs the bot in; it fails when the token is rejected.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func telegramText(n referral.Notification) string {
	return fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(n.Subject), html.EscapeString(n.Text))
}

// Send ignores ctx: the bot client has its own HTTP timeout.
func (t *Telegram) Send(_ context.Context, n referral.Notification) error {
	msg := tgbotapi.NewMessage(t.chatID, telegramText(n))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	return err
}
