// Package sqlite provides SQLite-based persistent storage for Quit Vipe.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/quitvipe/quitvipe/internal/domain"
)

// DBFile is the database file name inside the data directory.
const DBFile = "quitvipe.db"

// DB wraps a SQLite connection with WAL mode and migrations.
// It implements every store interface in internal/domain.
type DB struct {
	db *sql.DB
}

var (
	_ domain.EventStore        = (*DB)(nil)
	_ domain.GoalStore         = (*DB)(nil)
	_ domain.BadgeStore        = (*DB)(nil)
	_ domain.ProfileStore      = (*DB)(nil)
	_ domain.NotificationStore = (*DB)(nil)
)

// Open creates or opens the SQLite database at dir/quitvipe.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, DBFile)
	dsn := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Puff log. seq breaks created_at ties so "most recent" is total.
		`CREATE TABLE IF NOT EXISTS events (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			user_id     TEXT NOT NULL,
			count       INTEGER NOT NULL CHECK (count >= 1),
			trigger_type TEXT NOT NULL DEFAULT 'other',
			occurred_at INTEGER NOT NULL,
			created_at  INTEGER NOT NULL,
			day_key     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_occurred ON events(user_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_day ON events(user_id, day_key)`,

		// Goal history; the partial index keeps one active goal per user.
		`CREATE TABLE IF NOT EXISTS goals (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			user_id    TEXT NOT NULL,
			period     TEXT NOT NULL DEFAULT 'daily',
			target     INTEGER NOT NULL CHECK (target >= 0),
			active     BOOLEAN NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_goals_one_active ON goals(user_id) WHERE active = 1`,

		// Unlocked badges; awarding relies on the unique pair.
		`CREATE TABLE IF NOT EXISTS badges (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			type        TEXT NOT NULL,
			description TEXT NOT NULL,
			icon        TEXT NOT NULL,
			unlocked_at INTEGER NOT NULL,
			UNIQUE (user_id, type)
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			user_id        TEXT PRIMARY KEY,
			name           TEXT NOT NULL DEFAULT '',
			quit_date      INTEGER,
			daily_baseline INTEGER NOT NULL DEFAULT 0,
			created_at     INTEGER NOT NULL,
			updated_at     INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			shown      BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_user_created ON notifications(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Timestamps are stored as Unix nanoseconds so creation order survives
// several writes within the same second.
func toUnix(t time.Time) int64 { return t.UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n) }

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
