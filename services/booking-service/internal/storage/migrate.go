package storage

import (
	"context"
	"embed"
	"io/fs"

	"github.com/dentbook/clinic/libs/db"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies the booking schema.
func Migrate(ctx context.Context, m db.Migrator) ([]string, error) {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}
	return db.Migrate(ctx, m, sub)
}
