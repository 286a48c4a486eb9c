package sms

import (
	"context"
	"errors"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender sends through the Twilio Messages API. The SDK call does not
// take a context, so cancellation is only honoured before the request starts.
type TwilioSender struct {
	api  messageCreator
	from string
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: strings.TrimSpace(accountSID),
		Password: strings.TrimSpace(authToken),
	})
	return &TwilioSender{api: client.Api, from: strings.TrimSpace(from)}
}

func (s *TwilioSender) ProviderID() string { return "twilio" }

func (s *TwilioSender) Send(ctx context.Context, to string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.from == "" {
		return errors.New("twilio sender number not configured")
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)
	_, err := s.api.CreateMessage(params)
	return err
}
