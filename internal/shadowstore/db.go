// Package shadowstore implements the shadow DAO (internal/shadow.Store)
// against an embedded SQLite database, following the teacher's pattern of
// WAL mode plus goose schema migrations (spec.md §4.12).
package shadowstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, registers as "sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const walJournalSizeLimit = 67108864 // 64 MiB

// Open opens (creating if necessary) the SQLite database at dbPath,
// configures it for WAL mode, and applies pending migrations. Use
// ":memory:" for tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*sql.DB, error) {
	logger.Info("opening shadow state database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("shadowstore: open sqlite: %w", err)
	}

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("shadow state database ready", "path", dbPath)

	return db, nil
}

func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("shadowstore: set pragma %q: %w", p, err)
		}
	}

	return nil
}

func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("shadowstore: migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("shadowstore: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("shadowstore: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			"source", r.Source.Path,
			"duration_ms", r.Duration.Milliseconds())
	}

	return nil
}
