package mail

import (
	"fmt"

	domainMail "birthday_notifier/internal/domain/mail"
	"birthday_notifier/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// NewSender builds the configured provider. Network providers are wrapped in
// a circuit breaker.
func NewSender(cfg *config.AppConfig, logger *logrus.Entry) (domainMail.Sender, error) {
	var (
		sender domainMail.Sender
		name   string
	)
	switch cfg.MailProvider {
	case config.MailProviderSendGrid:
		sender, name = NewSendGrid(cfg.SendGridAPIKey, cfg.MailFrom, cfg.SendGridBaseURL), "sendgrid"
	case config.MailProviderSMTP:
		sender, name = NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom), "smtp"
	case config.MailProviderLog:
		logger.Warn("MAIL_PROVIDER=log: reminders will be logged, not delivered")
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", cfg.MailProvider)
	}
	logger.WithField("provider", name).Info("Mail sender initialized")
	return NewBreakerSender(sender, name, cfg.MailBreakerMaxFailures, cfg.MailBreakerOpenTimeout, logger), nil
}
