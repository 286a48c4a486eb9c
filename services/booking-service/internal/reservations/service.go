package reservations

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/dentbook/clinic/services/booking-service/internal/model"
	"github.com/dentbook/clinic/services/booking-service/internal/notify"
	"github.com/dentbook/clinic/services/booking-service/internal/storage"
)

// Store is the persistence the workflows run against.
type Store interface {
	InTx(ctx context.Context, fn func(tx storage.Tx) error) error
	ListSlots(ctx context.Context) ([]model.TimeSlot, error)
}

// Notifier queues messages for delivery after a commit. It must not block.
type Notifier interface {
	Enqueue(msgs ...notify.Message)
}

// FailureReporter is told about store errors so it can watch connectivity.
type FailureReporter interface {
	ReportFailure(err error)
}

type Service struct {
	store    Store
	notifier Notifier
	health   FailureReporter
	baseURL  string
	logger   *slog.Logger
	tokens   func() (string, string, error)
}

type Config struct {
	// BaseURL prefixes the cancel and rebook links sent to patients.
	BaseURL string
}

func NewService(store Store, notifier Notifier, health FailureReporter, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		health:   health,
		baseURL:  cfg.BaseURL,
		logger:   logger,
		tokens:   newToken,
	}
}

type BookRequest struct {
	Phone  string
	Email  string
	SlotID int64
}

type Booking struct {
	Slot        model.TimeSlot
	Reservation model.Reservation
	CancelToken string
}

type Cancellation struct {
	Slot        model.TimeSlot
	Reservation model.Reservation
}

func (s *Service) ListSlots(ctx context.Context) ([]model.TimeSlot, error) {
	slots, err := s.store.ListSlots(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list time slots", err)
	}
	return slots, nil
}

// Book claims a free slot. The slot row stays locked from the read until the
// reservation insert and the taken flag are committed, so concurrent calls
// for one slot serialise and all but the first see it taken.
func (s *Service) Book(ctx context.Context, req BookRequest) (Booking, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateBooking(req); err != nil {
		return Booking{}, err
	}

	var booking Booking
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		slot, err := tx.SlotForUpdate(ctx, req.SlotID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSlotNotFound
		}
		if err != nil {
			return err
		}
		if slot.IsTaken {
			return ErrSlotTaken
		}

		token, digest, err := s.tokens()
		if err != nil {
			return err
		}
		res := model.Reservation{
			SlotID:      slot.ID,
			Phone:       req.Phone,
			Email:       req.Email,
			TokenDigest: digest,
		}
		if err := tx.InsertReservation(ctx, &res); err != nil {
			return err
		}
		if err := tx.SetSlotTaken(ctx, slot.ID, true); err != nil {
			return err
		}
		slot.IsTaken = true
		booking = Booking{Slot: slot, Reservation: res, CancelToken: token}
		return nil
	})
	if err != nil {
		return Booking{}, s.fail(ctx, "book time slot", err, "slot_id", req.SlotID)
	}

	s.logger.InfoContext(ctx, "reservation created", "slot_id", booking.Slot.ID, "reservation_id", booking.Reservation.ID)
	s.notifier.Enqueue(notify.BookingConfirmation(s.baseURL, booking.CancelToken, appointment(booking.Slot, booking.Reservation))...)
	return booking, nil
}

// Cancel deletes the reservation holding token and frees its slot. The
// reservation row lock makes a token single use under concurrency.
func (s *Service) Cancel(ctx context.Context, token string) (Cancellation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cancellation{}, invalid("cancellation_token is required")
	}

	var out Cancellation
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		res, err := tx.ReservationByTokenForUpdate(ctx, TokenDigest(token))
		if errors.Is(err, storage.ErrNotFound) {
			return ErrReservationNotFound
		}
		if err != nil {
			return err
		}
		slot, err := tx.SlotForUpdate(ctx, res.SlotID)
		if errors.Is(err, storage.ErrNotFound) {
			return errInconsistentSlot
		}
		if err != nil {
			return err
		}
		if err := tx.DeleteReservation(ctx, res.ID); err != nil {
			return err
		}
		if err := tx.SetSlotTaken(ctx, slot.ID, false); err != nil {
			return err
		}
		slot.IsTaken = false
		out = Cancellation{Slot: slot, Reservation: res}
		return nil
	})
	if err != nil {
		return Cancellation{}, s.fail(ctx, "cancel reservation", err)
	}

	s.logger.InfoContext(ctx, "reservation cancelled", "slot_id", out.Slot.ID, "reservation_id", out.Reservation.ID)
	s.notifier.Enqueue(notify.BookingCancellation(s.baseURL, appointment(out.Slot, out.Reservation))...)
	return out, nil
}

// RemoveSlot deletes a free slot. The check and the delete share a row lock
// so a concurrent booking cannot slip in between.
func (s *Service) RemoveSlot(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("invalid time slot id")
	}
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		slot, err := tx.SlotForUpdate(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrSlotNotFound
		}
		if err != nil {
			return err
		}
		if slot.IsTaken {
			return ErrSlotOccupied
		}
		return tx.DeleteSlot(ctx, id)
	})
	if err != nil {
		return s.fail(ctx, "delete time slot", err, "slot_id", id)
	}
	s.logger.InfoContext(ctx, "time slot deleted", "slot_id", id)
	return nil
}

// fail logs err and returns it as an *Error. Business rule failures keep
// their kind; everything else becomes internal and is reported to the
// connectivity monitor.
func (s *Service) fail(ctx context.Context, op string, err error, attrs ...any) error {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		s.logger.WarnContext(ctx, op+" rejected", append(attrs, "reason", e.Msg)...)
		return e
	}
	if s.health != nil {
		s.health.ReportFailure(err)
	}
	s.logger.ErrorContext(ctx, op+" failed", append(attrs, "err", err)...)
	return internal(op, err)
}

func validateBooking(req BookRequest) error {
	switch {
	case req.Phone == "":
		return invalid("phone is required")
	case req.Email == "":
		return invalid("email is required")
	case req.SlotID <= 0:
		return invalid("timeslot_id is required")
	}
	if !validPhone(req.Phone) {
		return invalid("phone is not a valid phone number")
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return invalid("email is not a valid email address")
	}
	return nil
}

// validPhone accepts digits with an optional leading + and common separators.
func validPhone(p string) bool {
	digits := 0
	for i, r := range p {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '/' || r == '.':
		default:
			return false
		}
	}
	return digits >= 6 && digits <= 15
}

func appointment(slot model.TimeSlot, res model.Reservation) notify.Appointment {
	return notify.Appointment{
		Date:  slot.DisplayDate(),
		Time:  slot.DisplayTime(),
		Phone: res.Phone,
		Email: res.Email,
	}
}
