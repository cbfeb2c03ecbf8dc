// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const unknownUserText = "Hi! I post birthday reminders for the team. Admin commands are restricted."

func RegisterBotCommands(b *telebot.Bot, adminTelegramID int64, baseLogger *logrus.Entry) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hello, %s! Birthday notifier is up. Use /help to list commands.", c.Sender().FirstName))
		}
		logCtx.Info("User is not the admin")
		return c.Send(unknownUserText)
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != adminTelegramID {
			return c.Send(unknownUserText)
		}
		return c.Send(adminHelpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func adminHelpText() string {
	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("`/add_user <email> <YYYY-MM-DD> <name>`\n - Add a team member.\n\n")
	helpText.WriteString("`/list_users`\n - Show the directory with dates of birth.\n\n")
	helpText.WriteString("`/run_status [YYYY-MM-DD]`\n - Show whether reminders went out for a date. Defaults to the next target date.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}
