package mail

import (
	"context"

	domainMail "birthday_notifier/internal/domain/mail"

	"github.com/sirupsen/logrus"
)

var _ domainMail.Sender = (*LogSender)(nil)

// LogSender only logs messages. Used for local development.
type LogSender struct {
	logger *logrus.Entry
}

func NewLogSender(logger *logrus.Entry) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, msg domainMail.Message) error {
	l.logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email (log provider, not delivered)")
	return ctx.Err()
}
