package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dentbook/clinic/services/booking-service/internal/model"
)

// InsertReservation stores r and fills in its ID and CreatedAt.
func (t *pgTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO reservations (phone, email, time_slot_id, cancellation_token)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, r.Phone, r.Email, r.SlotID, r.TokenDigest).Scan(&r.ID, &r.CreatedAt)
}

// ReservationByTokenForUpdate locks the reservation holding digest.
func (t *pgTx) ReservationByTokenForUpdate(ctx context.Context, digest string) (model.Reservation, error) {
	var r model.Reservation
	err := t.tx.QueryRow(ctx, `
		SELECT id, time_slot_id, phone, email, cancellation_token, created_at
		FROM reservations
		WHERE cancellation_token = $1
		FOR UPDATE
	`, digest).Scan(&r.ID, &r.SlotID, &r.Phone, &r.Email, &r.TokenDigest, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return r, err
}

func (t *pgTx) DeleteReservation(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
