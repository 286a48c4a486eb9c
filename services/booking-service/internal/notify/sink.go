package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/dentbook/clinic/libs/email"
	"github.com/dentbook/clinic/libs/kafkax"
	"github.com/dentbook/clinic/libs/sms"
)

const (
	DefaultTopic     = "booking.notification.requested.v1"
	requestEventType = "booking.notification.requested.v1"
)

// DirectSink calls the providers in process.
type DirectSink struct {
	Email email.Sender
	SMS   sms.Sender
}

func (s DirectSink) SendEmail(ctx context.Context, to, subject, body string) error {
	return s.Email.Send(ctx, to, subject, body)
}

func (s DirectSink) SendSMS(ctx context.Context, to, body string) error {
	return s.SMS.Send(ctx, to, body)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink hands notifications to the notification service over Kafka.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(w messageWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

type notificationRequest struct {
	EventID   string  `json:"event_id"`
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject,omitempty"`
	Body      string  `json:"body"`
}

func (s *KafkaSink) SendEmail(ctx context.Context, to, subject, body string) error {
	return s.publish(ctx, notificationRequest{Channel: ChannelEmail, Recipient: to, Subject: subject, Body: body})
}

func (s *KafkaSink) SendSMS(ctx context.Context, to, body string) error {
	return s.publish(ctx, notificationRequest{Channel: ChannelSMS, Recipient: to, Body: body})
}

func (s *KafkaSink) publish(ctx context.Context, req notificationRequest) error {
	req.EventID = uuid.NewString()
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	msg := kafkax.NewMessage(ctx, req.Recipient, kafkax.EventMeta{
		EventID:   req.EventID,
		EventType: requestEventType,
	}, payload)
	return s.writer.WriteMessages(ctx, msg)
}
