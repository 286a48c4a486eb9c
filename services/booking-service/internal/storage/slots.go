package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dentbook/clinic/libs/db"
	"github.com/dentbook/clinic/services/booking-service/internal/model"
)

var ErrNotFound = errors.New("not found")

// IsUniqueViolation reports a 23505 unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	db.Beginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
}

type Store struct {
	pool Pool
}

func NewStore(pool Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ListSlots(ctx context.Context) ([]model.TimeSlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, date, time, is_taken
		FROM time_slots
		ORDER BY time ASC, date ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []model.TimeSlot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// SlotTimesOn returns the start offsets of every slot on date.
func (s *Store) SlotTimesOn(ctx context.Context, date time.Time) ([]time.Duration, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT time FROM time_slots WHERE date = $1 ORDER BY time
	`, pgDate(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Duration
	for rows.Next() {
		var tod pgtype.Time
		if err := rows.Scan(&tod); err != nil {
			return nil, err
		}
		out = append(out, time.Duration(tod.Microseconds)*time.Microsecond)
	}
	return out, rows.Err()
}

// InsertSlots bulk-loads free slots for date.
func (s *Store) InsertSlots(ctx context.Context, date time.Time, times []time.Duration) (int64, error) {
	if len(times) == 0 {
		return 0, nil
	}
	d := pgDate(date)
	return s.pool.CopyFrom(ctx, pgx.Identifier{"time_slots"}, []string{"date", "time"},
		pgx.CopyFromSlice(len(times), func(i int) ([]any, error) {
			return []any{d, pgtype.Time{Microseconds: times[i].Microseconds(), Valid: true}}, nil
		}),
	)
}

func pgDate(t time.Time) pgtype.Date {
	y, m, d := t.Date()
	return pgtype.Date{Time: model.CalendarDate(y, m, d), Valid: true}
}

// InTx runs fn in a transaction bound to one pooled connection. The
// connection is released on every path.
func (s *Store) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

// Tx exposes the row-level operations of the booking workflows. Rows read
// with a ForUpdate method stay locked until the transaction ends.
type Tx interface {
	SlotForUpdate(ctx context.Context, id int64) (model.TimeSlot, error)
	SetSlotTaken(ctx context.Context, id int64, taken bool) error
	DeleteSlot(ctx context.Context, id int64) error
	InsertReservation(ctx context.Context, r *model.Reservation) error
	ReservationByTokenForUpdate(ctx context.Context, digest string) (model.Reservation, error)
	DeleteReservation(ctx context.Context, id int64) error
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) SlotForUpdate(ctx context.Context, id int64) (model.TimeSlot, error) {
	slot, err := scanSlot(t.tx.QueryRow(ctx, `
		SELECT id, date, time, is_taken
		FROM time_slots
		WHERE id = $1
		FOR UPDATE
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.TimeSlot{}, ErrNotFound
	}
	return slot, err
}

func (t *pgTx) SetSlotTaken(ctx context.Context, id int64, taken bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE time_slots SET is_taken = $2 WHERE id = $1`, id, taken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteSlot(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSlot(row pgx.Row) (model.TimeSlot, error) {
	var (
		slot model.TimeSlot
		date pgtype.Date
		tod  pgtype.Time
	)
	if err := row.Scan(&slot.ID, &date, &tod, &slot.IsTaken); err != nil {
		return model.TimeSlot{}, err
	}
	if date.Valid {
		y, m, d := date.Time.Date()
		slot.Date = model.CalendarDate(y, m, d)
	}
	if tod.Valid {
		slot.Time = time.Duration(tod.Microseconds) * time.Microsecond
	}
	return slot, nil
}
