package email

import (
	"fmt"
	"strings"

	"github.com/dentbook/clinic/libs/config"
)

type ProviderConfig struct {
	Provider       string
	SMTP           SMTPConfig
	SendGridAPIKey string
	FromName       string
}

// ConfigFromEnv reads EMAIL_PROVIDER (smtp|sendgrid|noop, default smtp),
// SMTP_HOST/PORT/FROM/USERNAME/PASSWORD, SENDGRID_API_KEY and EMAIL_FROM_NAME.
func ConfigFromEnv() ProviderConfig {
	return ProviderConfig{
		Provider: strings.ToLower(config.String("EMAIL_PROVIDER", "smtp")),
		SMTP: SMTPConfig{
			Host:     config.String("SMTP_HOST", "localhost"),
			Port:     config.String("SMTP_PORT", "1025"),
			From:     config.String("SMTP_FROM", "no-reply@dentbook.local"),
			Username: config.String("SMTP_USERNAME", ""),
			Password: config.String("SMTP_PASSWORD", ""),
		},
		SendGridAPIKey: config.String("SENDGRID_API_KEY", ""),
		FromName:       config.String("EMAIL_FROM_NAME", "Dental Clinic"),
	}
}

func New(cfg ProviderConfig) (Sender, error) {
	switch cfg.Provider {
	case "", "smtp":
		return NewSMTPSender(cfg.SMTP), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.SMTP.From, cfg.FromName), nil
	case "noop":
		return NewNoopSender(), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.Provider)
	}
}
