package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dentbook/clinic/libs/email"
	"github.com/dentbook/clinic/libs/kafkax"
	"github.com/dentbook/clinic/libs/sms"
	"github.com/dentbook/clinic/services/notification-service/internal/storage"
)

// request is the envelope published by the booking service.
type request struct {
	EventID   string `json:"event_id"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type DeliveryLog interface {
	InsertDelivery(ctx context.Context, d storage.Delivery) error
}

type Handler struct {
	email   email.Sender
	sms     sms.Sender
	log     DeliveryLog
	logger  *slog.Logger
	timeout time.Duration
}

func NewHandler(emailSender email.Sender, smsSender sms.Sender, log DeliveryLog, logger *slog.Logger, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{email: emailSender, sms: smsSender, log: log, logger: logger, timeout: timeout}
}

// Handle delivers one request with a single attempt. Malformed requests are
// logged and skipped. The returned error only reports a failure to record
// the outcome.
func (h *Handler) Handle(ctx context.Context, meta kafkax.EventMeta, msg kafka.Message) error {
	var req request
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		h.logger.Error("invalid notification payload", "err", err, "event_id", meta.EventID)
		return nil
	}
	if req.Recipient == "" || req.Body == "" {
		h.logger.Error("notification payload missing fields", "event_id", meta.EventID)
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		provider string
		err      error
	)
	switch req.Channel {
	case "email":
		provider = h.email.ProviderID()
		err = h.email.Send(sendCtx, req.Recipient, req.Subject, req.Body)
	case "sms":
		provider = h.sms.ProviderID()
		err = h.sms.Send(sendCtx, req.Recipient, req.Body)
	default:
		err = fmt.Errorf("unsupported channel %q", req.Channel)
	}

	d := storage.Delivery{
		EventID:   meta.EventID,
		Channel:   req.Channel,
		Recipient: req.Recipient,
		Provider:  provider,
		Status:    "sent",
	}
	if err != nil {
		d.Status = "failed"
		d.Error = err.Error()
		h.logger.Error("notification delivery failed", "err", err, "event_id", meta.EventID, "channel", req.Channel)
	} else {
		h.logger.Info("notification sent", "event_id", meta.EventID, "channel", req.Channel, "provider", provider)
	}
	return h.log.InsertDelivery(ctx, d)
}
