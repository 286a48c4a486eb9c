package sms

import (
	"fmt"
	"strings"

	"github.com/dentbook/clinic/libs/config"
)

type ProviderConfig struct {
	Provider         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	WebhookURL       string
	WebhookToken     string
}

// ConfigFromEnv reads SMS_PROVIDER (twilio|webhook|noop, default noop) and
// the matching credentials.
func ConfigFromEnv() ProviderConfig {
	return ProviderConfig{
		Provider:         strings.ToLower(config.String("SMS_PROVIDER", "noop")),
		TwilioAccountSID: config.String("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  config.String("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:       config.String("TWILIO_FROM_NUMBER", ""),
		WebhookURL:       config.String("SMS_WEBHOOK_URL", ""),
		WebhookToken:     config.String("SMS_WEBHOOK_TOKEN", ""),
	}
}

func New(cfg ProviderConfig) (Sender, error) {
	switch cfg.Provider {
	case "twilio":
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
			return nil, fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required for the twilio provider")
		}
		return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom), nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("SMS_WEBHOOK_URL is required for the webhook provider")
		}
		return NewWebhookSender(cfg.WebhookURL, cfg.WebhookToken), nil
	case "", "noop":
		return NewNoopSender(), nil
	default:
		return nil, fmt.Errorf("unknown SMS_PROVIDER %q", cfg.Provider)
	}
}
