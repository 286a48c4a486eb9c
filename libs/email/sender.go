package email

import (
	"context"
	"fmt"
	"strings"
)

type Sender interface {
	Send(ctx context.Context, to string, subject string, body string) error
	ProviderID() string
}

type NoopSender struct{}

func NewNoopSender() *NoopSender { return &NoopSender{} }

func (s *NoopSender) ProviderID() string { return "email-noop" }

func (s *NoopSender) Send(context.Context, string, string, string) error { return nil }

func buildMessage(from, to, subject, body string) string {
	// Minimal RFC 5322 message. Header values are stripped of CR/LF so a
	// recipient or subject cannot inject extra headers.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		headerValue(from),
		headerValue(to),
		headerValue(subject),
		strings.ReplaceAll(body, "\n", "\r\n"),
	)
}

func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
