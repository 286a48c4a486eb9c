package email

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg := buildMessage("clinic@example.com", "a@example.com\r\nBcc: x@evil", "Hi\nthere", "line1\nline2")
	if strings.Contains(msg, "\r\nBcc:") {
		t.Fatalf("header injection not stripped: %q", msg)
	}
	if !strings.Contains(msg, "Subject: Hithere\r\n") {
		t.Fatalf("subject not sanitised: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2\r\n") {
		t.Fatalf("body not normalised: %q", msg)
	}
}

func TestSendGridSender(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendGridSender("SG.key", "clinic@example.com", "Clinic").withBaseURL(srv.URL)
	if err := s.Send(context.Background(), "patient@example.com", "Booked", "See you"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if auth != "Bearer SG.key" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got["subject"] != "Booked" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestSendGridSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewSendGridSender("bad", "clinic@example.com", "").withBaseURL(srv.URL)
	if err := s.Send(context.Background(), "p@example.com", "s", "b"); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func TestNewSelectsProvider(t *testing.T) {
	s, err := New(ProviderConfig{Provider: "sendgrid", SendGridAPIKey: "k"})
	if err != nil || s.ProviderID() != "sendgrid" {
		t.Fatalf("sendgrid: %v %v", s, err)
	}
	if _, err := New(ProviderConfig{Provider: "sendgrid"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := New(ProviderConfig{Provider: "fax"}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
	s, err = New(ProviderConfig{SMTP: SMTPConfig{Host: "mail", Port: "25"}})
	if err != nil || s.ProviderID() != "smtp" {
		t.Fatalf("default should be smtp: %v %v", s, err)
	}
}
