package db

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DataMigration is a migration expressed in Go rather than SQL. It shares the
// schema_migrations bookkeeping with the SQL files and runs after them.
type DataMigration struct {
	Version string
	Apply   func(ctx context.Context, tx *sqlx.Tx) error
}

// Migrate applies the SQL files found under "migrations/" in migrationFS that
// have not been recorded in schema_migrations yet, in lexical order, followed
// by any pending data migrations. Running it twice is a no-op.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, data ...DataMigration) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	migDir := "migrations"
	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		version := strings.TrimSuffix(fname, path.Ext(fname))

		applied, err := d.isApplied(ctx, version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}

		err = d.WithTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, string(b)); err != nil {
				return fmt.Errorf("exec migration %s: %w", fname, err)
			}
			return recordMigration(ctx, tx, version)
		})
		if err != nil {
			return err
		}
		d.logger.Info("db: migration applied", slog.String("version", version))
	}

	for _, m := range data {
		applied, err := d.isApplied(ctx, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = d.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := m.Apply(ctx, tx); err != nil {
				return fmt.Errorf("data migration %s: %w", m.Version, err)
			}
			return recordMigration(ctx, tx, m.Version)
		})
		if err != nil {
			return err
		}
		d.logger.Info("db: data migration applied", slog.String("version", m.Version))
	}

	return nil
}

func (db *DB) isApplied(ctx context.Context, version string) (bool, error) {
	var count int
	if err := db.Get(ctx, &count, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version); err != nil {
		return false, fmt.Errorf("scan migration applied count: %w", err)
	}
	return count > 0, nil
}

func recordMigration(ctx context.Context, tx *sqlx.Tx, version string) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	return nil
}
