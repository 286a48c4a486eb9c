package reservations

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a workflow failure. Msg is safe to show to patients; Err, when
// set, carries the cause for logs only.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrSlotNotFound        = &Error{Kind: KindNotFound, Msg: "time slot does not exist"}
	ErrSlotTaken           = &Error{Kind: KindConflict, Msg: "time slot is already taken"}
	ErrSlotOccupied        = &Error{Kind: KindConflict, Msg: "cannot delete a taken time slot, cancel its reservation first"}
	ErrReservationNotFound = &Error{Kind: KindNotFound, Msg: "reservation does not exist or was already cancelled"}
	errInconsistentSlot    = errors.New("reservation references a missing time slot")
)

// KindOf classifies err. Anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the text a client may see for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Msg
	}
	return "internal server error"
}

func invalid(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: op + " failed", Err: err}
}
