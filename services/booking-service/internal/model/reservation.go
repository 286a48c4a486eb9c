package model

import "time"

// Reservation is a patient's claim on a slot. TokenDigest is the hex digest
// of the cancellation token; the token itself is never stored.
type Reservation struct {
	ID          int64
	SlotID      int64
	Phone       string
	Email       string
	TokenDigest string
	CreatedAt   time.Time
}
