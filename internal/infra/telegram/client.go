// internal/infra/telegram/client.go
package telegram

import (
	"fmt"
	"time"

	domainTelegram "birthday_notifier/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

var _ domainTelegram.Broadcaster = (*TelebotAdapter)(nil)

// TelebotAdapter implements domainTelegram.Broadcaster using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot        *telebot.Bot
	teamChatID int64
}

func NewTelebotAdapter(b *telebot.Bot, teamChatID int64) *TelebotAdapter {
	return &TelebotAdapter{bot: b, teamChatID: teamChatID}
}

// Broadcast posts text to the team chat.
func (tba *TelebotAdapter) Broadcast(text string) error {
	if tba.teamChatID == 0 {
		return nil
	}
	_, err := tba.bot.Send(telebot.ChatID(tba.teamChatID), text, &telebot.SendOptions{DisableWebPagePreview: true})
	if err != nil {
		return fmt.Errorf("telegram broadcast to %d: %w", tba.teamChatID, err)
	}
	return nil
}

// NewBot creates a long-polling bot whose errors go to logger.
func NewBot(token string, logger *logrus.Entry) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			logCtx := logger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				logCtx = logCtx.WithFields(logrus.Fields{
					"text":      c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			logCtx.Error("Telebot error")
		},
	}
	return telebot.NewBot(pref)
}
