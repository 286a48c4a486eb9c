package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers through the SendGrid v3 mail send API.
type SendGridSender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendGridSender(apiKey, from, fromName string) *SendGridSender {
	return &SendGridSender{
		client:   sendgrid.NewSendClient(strings.TrimSpace(apiKey)),
		from:     strings.TrimSpace(from),
		fromName: fromName,
	}
}

// withBaseURL points the client at another API host. Used in tests.
func (s *SendGridSender) withBaseURL(host string) *SendGridSender {
	s.client.BaseURL = strings.TrimRight(host, "/") + "/v3/mail/send"
	return s
}

func (s *SendGridSender) ProviderID() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, to string, subject string, body string) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		headerValue(subject),
		mail.NewEmail("", headerValue(to)),
		body,
		"",
	)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
