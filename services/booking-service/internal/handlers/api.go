package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dentbook/clinic/libs/httpx"
	"github.com/dentbook/clinic/services/booking-service/internal/model"
	"github.com/dentbook/clinic/services/booking-service/internal/reservations"
)

// Service is the workflow surface the API binds to.
type Service interface {
	ListSlots(ctx context.Context) ([]model.TimeSlot, error)
	RemoveSlot(ctx context.Context, id int64) error
	Book(ctx context.Context, req reservations.BookRequest) (reservations.Booking, error)
	Cancel(ctx context.Context, token string) (reservations.Cancellation, error)
}

type API struct {
	svc    Service
	health func(context.Context) error
	logger *slog.Logger
	// limit wraps the booking and cancellation routes.
	limit httpx.Middleware
}

func NewAPI(svc Service, health func(context.Context) error, logger *slog.Logger, limit httpx.Middleware) *API {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	return &API{svc: svc, health: health, logger: logger, limit: limit}
}

// Register mounts the routes at the root and under /api.
func (a *API) Register(r *mux.Router) {
	a.routes(r)
	a.routes(r.PathPrefix("/api").Subrouter())
}

func (a *API) routes(r *mux.Router) {
	r.HandleFunc("/health", a.Health).Methods(http.MethodGet)
	r.HandleFunc("/timeslots", a.ListSlots).Methods(http.MethodGet)
	r.HandleFunc("/timeslots/{id}", a.RemoveSlot).Methods(http.MethodDelete)
	r.Handle("/reservations", a.limit(http.HandlerFunc(a.Book))).Methods(http.MethodPost)
	r.Handle("/reservations/cancel", a.limit(http.HandlerFunc(a.Cancel))).Methods(http.MethodPost)
}

type slotItem struct {
	ID      int64  `json:"id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	IsTaken bool   `json:"is_taken"`
}

type bookRequest struct {
	Phone      string   `json:"phone"`
	Email      string   `json:"email"`
	TimeslotID flexible `json:"timeslot_id"`
}

type cancelRequest struct {
	CancellationToken string `json:"cancellation_token"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if err := a.health(r.Context()); err != nil {
		a.logger.ErrorContext(r.Context(), "health check failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, healthResponse{Status: "database disconnected", Error: err.Error()})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, healthResponse{Status: "database connected"})
}

func (a *API) ListSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := a.svc.ListSlots(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{ID: s.ID, Date: s.ISODate(), Time: s.ISOTime(), IsTaken: s.IsTaken})
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (a *API) RemoveSlot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid time slot id")
		return
	}
	if err := a.svc.RemoveSlot(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Time slot deleted.")
}

func (a *API) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !a.decode(w, r, &req) {
		return
	}
	id, ok := req.TimeslotID.int64()
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "timeslot_id must be a positive integer")
		return
	}
	_, err := a.svc.Book(r.Context(), reservations.BookRequest{
		Phone:  req.Phone,
		Email:  req.Email,
		SlotID: id,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	// the cancellation token only travels in the notifications
	httpx.WriteMessage(w, http.StatusOK, "Reservation created. A confirmation with a cancellation link was sent to your email and phone.")
}

func (a *API) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !a.decode(w, r, &req) {
		return
	}
	c, err := a.svc.Cancel(r.Context(), req.CancellationToken)
	if err != nil {
		a.writeError(w, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK,
		"Reservation for "+c.Slot.DisplayDate()+" at "+c.Slot.DisplayTime()+" has been cancelled.")
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	httpx.WriteError(w, statusFor(reservations.KindOf(err)), reservations.PublicMessage(err))
}

func statusFor(k reservations.Kind) int {
	switch k {
	case reservations.KindValidation, reservations.KindConflict:
		return http.StatusBadRequest
	case reservations.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// flexible accepts a JSON number or a numeric string, as HTML form posts
// often send ids as strings.
type flexible string

func (f *flexible) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = flexible(strings.TrimSpace(str))
		return nil
	}
	*f = flexible(s)
	return nil
}

func (f flexible) int64() (int64, bool) {
	if f == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
