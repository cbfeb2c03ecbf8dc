package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	domainMail "birthday_notifier/internal/domain/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrRecipientRejected marks a failure caused by the message or recipient
// rather than by the provider being unavailable.
var ErrRecipientRejected = errors.New("recipient rejected")

const sendGridEndpoint = "/v3/mail/send"

var _ domainMail.Sender = (*SendGrid)(nil)

// SendGrid sends through the SendGrid v3 mail API.
type SendGrid struct {
	apiKey  string
	from    string
	baseURL string
	http    *http.Client
}

func NewSendGrid(apiKey, from, baseURL string) *SendGrid {
	return &SendGrid{
		apiKey:  apiKey,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SendGrid) Send(ctx context.Context, msg domainMail.Message) error {
	// SendGrid requires text/plain before text/html.
	var contents []*sgmail.Content
	if msg.TextBody != "" {
		contents = append(contents, sgmail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		contents = append(contents, sgmail.NewContent("text/html", msg.HTMLBody))
	}
	m := sgmail.NewV3MailInit(sgmail.NewEmail("", s.from), msg.Subject, sgmail.NewEmail("", msg.To), contents...)

	request := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.baseURL)
	request.Method = rest.Post
	request.Body = sgmail.GetRequestBody(m)

	client := &rest.Client{HTTPClient: s.http}
	resp, err := client.SendWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}

	if resp.StatusCode >= 300 {
		body := strings.TrimSpace(resp.Body)
		if len(body) > 1024 {
			body = body[:1024]
		}
		if isRecipientStatus(resp.StatusCode) {
			return fmt.Errorf("sendgrid: %d: %s: %w", resp.StatusCode, body, ErrRecipientRejected)
		}
		return fmt.Errorf("sendgrid send failed: %d: %s", resp.StatusCode, body)
	}
	return nil
}

// isRecipientStatus reports 4xx answers about the message itself. Auth and
// rate-limit answers mean the provider is unusable for now.
func isRecipientStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return false
	}
	return code >= 400 && code < 500
}
