package notify

import (
	"fmt"
	"net/url"
	"strings"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Message struct {
	Channel Channel
	To      string
	Subject string
	Body    string
}

// Appointment holds the display fields the templates need.
type Appointment struct {
	Date  string
	Time  string
	Phone string
	Email string
}

// CancelLink is the self-service cancellation deep link.
func CancelLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/cancel?token=" + url.QueryEscape(token)
}

// RebookLink points patients back to the booking page.
func RebookLink(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/"
}

func BookingConfirmation(baseURL, token string, a Appointment) []Message {
	link := CancelLink(baseURL, token)
	return []Message{
		{
			Channel: ChannelEmail,
			To:      a.Email,
			Subject: "Your dental appointment is confirmed",
			Body: fmt.Sprintf(
				"Your appointment is booked for %s at %s.\n\nPhone: %s\nEmail: %s\n\nIf you cannot come, cancel the appointment here:\n%s\n",
				a.Date, a.Time, a.Phone, a.Email, link,
			),
		},
		{
			Channel: ChannelSMS,
			To:      a.Phone,
			Body:    fmt.Sprintf("Appointment confirmed for %s at %s. To cancel: %s", a.Date, a.Time, link),
		},
	}
}

func BookingCancellation(baseURL string, a Appointment) []Message {
	link := RebookLink(baseURL)
	return []Message{
		{
			Channel: ChannelEmail,
			To:      a.Email,
			Subject: "Your dental appointment was cancelled",
			Body: fmt.Sprintf(
				"Your appointment on %s at %s has been cancelled.\n\nYou can book a new appointment here:\n%s\n",
				a.Date, a.Time, link,
			),
		},
		{
			Channel: ChannelSMS,
			To:      a.Phone,
			Body:    fmt.Sprintf("Your appointment on %s at %s was cancelled. Book again: %s", a.Date, a.Time, link),
		},
	}
}
