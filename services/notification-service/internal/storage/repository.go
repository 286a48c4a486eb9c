package storage

import (
	"context"
	"embed"
	"errors"
	"io/fs"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dentbook/clinic/libs/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func Migrate(ctx context.Context, m db.Migrator) ([]string, error) {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}
	return db.Migrate(ctx, m, sub)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Delivery struct {
	EventID   string
	Channel   string
	Recipient string
	Provider  string
	Status    string
	Error     string
}

type Repository struct {
	pool execer
}

func NewRepository(pool execer) *Repository {
	return &Repository{pool: pool}
}

// RecordEvent inserts eventID into the inbox. It returns false when the
// event was seen before.
func (r *Repository) RecordEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return false, nil
	}
	return false, err
}

func (r *Repository) InsertDelivery(ctx context.Context, d Delivery) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_deliveries (event_id, channel, recipient, provider, status, error)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.EventID, d.Channel, d.Recipient, d.Provider, d.Status, d.Error)
	return err
}
