package persistence

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	gerrors "github.com/go-faster/errors"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Migrate applies pending schema migrations for the given dialect.
func Migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, logger *logrus.Logger) error {
	dir := "migrations/postgres"
	if dialect == goose.DialectSQLite3 {
		dir = "migrations/sqlite"
	}
	fsys, err := fs.Sub(migrationFiles, dir)
	if err != nil {
		return gerrors.Wrap(err, "open migrations")
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return gerrors.Wrap(err, "create migration provider")
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return gerrors.Wrap(err, "apply migrations")
	}
	if logger != nil {
		for _, r := range results {
			logger.WithFields(logrus.Fields{
				"version":  r.Source.Version,
				"duration": r.Duration,
			}).Info("migration applied")
		}
	}
	return nil
}
