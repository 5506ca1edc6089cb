package credstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/logging"
)

// SQLite stores the session as key/value rows in a local database file.
type SQLite struct {
	sql *sql.DB
	log *logging.Logger
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an in-memory database (useful for tests).
func OpenSQLite(path string, log *logging.Logger) (*SQLite, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
		// The file holds a bearer token. SQLite creates its -wal and -shm
		// files with the database file's mode, so restrict it before opening.
		if err := createPrivate(path); err != nil {
			return nil, fmt.Errorf("creating credential file: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases from splitting per conn.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	db := &SQLite{sql: sqlDB, log: log}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if path != ":memory:" {
		for _, side := range []string{path + "-wal", path + "-shm"} {
			if err := os.Chmod(side, 0o600); err != nil && !os.IsNotExist(err) {
				db.log.Warn().Err(err).Str("path", side).Msg("could not restrict credential file permissions")
			}
		}
	}

	db.log.Debug().Str("path", path).Msg("credential database opened")
	return db, nil
}

// createPrivate creates path with mode 0600, or tightens an existing file.
func createPrivate(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// Save implements Store. All rows are replaced in one transaction.
func (db *SQLite) Save(ctx context.Context, sess domain.Session) error {
	fields := encode(sess)

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM credentials"); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	for k, v := range fields {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO credentials (key, value) VALUES (?, ?)", k, v,
		); err != nil {
			return fmt.Errorf("writing %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load implements Store.
func (db *SQLite) Load(ctx context.Context) (*domain.Session, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT key, value FROM credentials")
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning credentials: %w", err)
		}
		fields[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return resolve(ctx, fields, db, db.log)
}

// Clear implements Store.
func (db *SQLite) Clear(ctx context.Context) error {
	if _, err := db.sql.ExecContext(ctx, "DELETE FROM credentials"); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *SQLite) Close() error {
	db.log.Debug().Msg("closing credential database")
	return db.sql.Close()
}

// migrate runs all pending migrations.
func (db *SQLite) migrate() error {
	if _, err := db.sql.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := db.isMigrationApplied(m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		db.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := db.sql.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (db *SQLite) isMigrationApplied(version int) (bool, error) {
	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return count > 0, nil
}
