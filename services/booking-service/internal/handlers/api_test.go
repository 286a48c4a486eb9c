package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentbook/clinic/libs/httpx"
	"github.com/dentbook/clinic/services/booking-service/internal/model"
	"github.com/dentbook/clinic/services/booking-service/internal/reservations"
)

type mockService struct {
	listFn   func(ctx context.Context) ([]model.TimeSlot, error)
	removeFn func(ctx context.Context, id int64) error
	bookFn   func(ctx context.Context, req reservations.BookRequest) (reservations.Booking, error)
	cancelFn func(ctx context.Context, token string) (reservations.Cancellation, error)
}

func (m *mockService) ListSlots(ctx context.Context) ([]model.TimeSlot, error) {
	return m.listFn(ctx)
}

func (m *mockService) RemoveSlot(ctx context.Context, id int64) error {
	return m.removeFn(ctx, id)
}

func (m *mockService) Book(ctx context.Context, req reservations.BookRequest) (reservations.Booking, error) {
	return m.bookFn(ctx, req)
}

func (m *mockService) Cancel(ctx context.Context, token string) (reservations.Cancellation, error) {
	return m.cancelFn(ctx, token)
}

func newRouter(svc Service, health func(context.Context) error, limit httpx.Middleware) *mux.Router {
	r := mux.NewRouter()
	NewAPI(svc, health, slog.New(slog.NewTextHandler(io.Discard, nil)), limit).Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func okHealth(context.Context) error { return nil }

func TestHealth(t *testing.T) {
	rec, body := do(t, newRouter(&mockService{}, okHealth, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "database connected", body["status"])

	down := func(context.Context) error { return errors.New("connection refused") }
	rec, body = do(t, newRouter(&mockService{}, down, nil), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "database disconnected", body["status"])
	assert.Equal(t, "connection refused", body["error"])
}

func TestListSlots(t *testing.T) {
	svc := &mockService{listFn: func(context.Context) ([]model.TimeSlot, error) {
		return []model.TimeSlot{
			{ID: 5, Date: model.CalendarDate(2025, time.March, 10), Time: model.ClockTime(9, 0, 0), IsTaken: true},
		}, nil
	}}
	rec, _ := do(t, newRouter(svc, okHealth, nil), http.MethodGet, "/timeslots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":5,"date":"2025-03-10","time":"09:00:00","is_taken":true}]`, rec.Body.String())

	svc.listFn = func(context.Context) ([]model.TimeSlot, error) { return nil, nil }
	rec, _ = do(t, newRouter(svc, okHealth, nil), http.MethodGet, "/api/timeslots", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRemoveSlot(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
		key    string
	}{
		{"deleted", "/timeslots/6", nil, http.StatusOK, "message"},
		{"occupied", "/timeslots/5", reservations.ErrSlotOccupied, http.StatusBadRequest, "error"},
		{"missing", "/timeslots/9", reservations.ErrSlotNotFound, http.StatusNotFound, "error"},
		{"store down", "/timeslots/9", &reservations.Error{Kind: reservations.KindInternal, Msg: "x", Err: errors.New("pg: secret detail")}, http.StatusInternalServerError, "error"},
		{"bad id", "/timeslots/abc", nil, http.StatusBadRequest, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{removeFn: func(context.Context, int64) error { return tt.err }}
			rec, body := do(t, newRouter(svc, okHealth, nil), http.MethodDelete, tt.path, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, body, tt.key)
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}

func TestBook(t *testing.T) {
	var got reservations.BookRequest
	svc := &mockService{bookFn: func(_ context.Context, req reservations.BookRequest) (reservations.Booking, error) {
		got = req
		return reservations.Booking{CancelToken: "super-secret-token"}, nil
	}}
	h := newRouter(svc, okHealth, nil)

	rec, body := do(t, h, http.MethodPost, "/reservations", `{"phone":"777000111","email":"pat@example.com","timeslot_id":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["message"])
	assert.NotContains(t, rec.Body.String(), "super-secret-token")
	assert.Equal(t, reservations.BookRequest{Phone: "777000111", Email: "pat@example.com", SlotID: 5}, got)

	rec, _ = do(t, h, http.MethodPost, "/api/reservations", `{"phone":"777000111","email":"pat@example.com","timeslot_id":"7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), got.SlotID)
}

func TestBookErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"invalid json", `{"phone":`, nil, http.StatusBadRequest},
		{"bad slot id", `{"phone":"1","email":"e","timeslot_id":"five"}`, nil, http.StatusBadRequest},
		{"validation", `{"phone":"777000111","timeslot_id":5}`, &reservations.Error{Kind: reservations.KindValidation, Msg: "email is required"}, http.StatusBadRequest},
		{"not found", `{"phone":"777000111","email":"p@example.com","timeslot_id":99}`, reservations.ErrSlotNotFound, http.StatusNotFound},
		{"taken", `{"phone":"777000111","email":"p@example.com","timeslot_id":5}`, reservations.ErrSlotTaken, http.StatusBadRequest},
		{"internal", `{"phone":"777000111","email":"p@example.com","timeslot_id":5}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{bookFn: func(context.Context, reservations.BookRequest) (reservations.Booking, error) {
				return reservations.Booking{}, tt.err
			}}
			rec, body := do(t, newRouter(svc, okHealth, nil), http.MethodPost, "/reservations", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCancel(t *testing.T) {
	svc := &mockService{cancelFn: func(_ context.Context, token string) (reservations.Cancellation, error) {
		if token != "tok" {
			return reservations.Cancellation{}, reservations.ErrReservationNotFound
		}
		return reservations.Cancellation{Slot: model.TimeSlot{
			ID: 5, Date: model.CalendarDate(2025, time.March, 10), Time: model.ClockTime(9, 0, 0),
		}}, nil
	}}
	h := newRouter(svc, okHealth, nil)

	rec, body := do(t, h, http.MethodPost, "/reservations/cancel", `{"cancellation_token":"tok"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Reservation for 10/03/2025 at 09:00 has been cancelled.", body["message"])

	rec, body = do(t, h, http.MethodPost, "/reservations/cancel", `{"cancellation_token":"other"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "reservation does not exist or was already cancelled", body["error"])
}

func TestRateLimitAppliesToWriteRoutesOnly(t *testing.T) {
	svc := &mockService{
		listFn: func(context.Context) ([]model.TimeSlot, error) { return nil, nil },
		bookFn: func(context.Context, reservations.BookRequest) (reservations.Booking, error) {
			return reservations.Booking{}, nil
		},
	}
	limit := httpx.RateLimit(httpx.NewMemoryLimiter(1, time.Minute), nil, false)
	h := newRouter(svc, okHealth, limit)

	body := `{"phone":"777000111","email":"p@example.com","timeslot_id":5}`
	rec, _ := do(t, h, http.MethodPost, "/reservations", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, h, http.MethodPost, "/reservations", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	for i := 0; i < 3; i++ {
		rec, _ = do(t, h, http.MethodGet, "/timeslots", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec, _ := do(t, newRouter(&mockService{}, okHealth, nil), http.MethodPut, "/timeslots", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
