package mail

import (
	"context"
	"errors"
	"time"

	domainMail "birthday_notifier/internal/domain/mail"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var _ domainMail.Sender = (*BreakerSender)(nil)

// BreakerSender stops calling a failing provider once it trips, so the rest
// of a batch fails fast instead of waiting out one timeout per address.
// Recipient rejections do not count against the provider.
type BreakerSender struct {
	next domainMail.Sender
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSender(next domainMail.Sender, name string, maxFailures uint32, openTimeout time.Duration, logger *logrus.Entry) *BreakerSender {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRecipientRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Mail circuit breaker changed state")
		},
	}
	return &BreakerSender{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerSender) Send(ctx context.Context, msg domainMail.Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, msg)
	})
	return err
}

// State exposes the breaker state for health reporting.
func (b *BreakerSender) State() string {
	return b.cb.State().String()
}
