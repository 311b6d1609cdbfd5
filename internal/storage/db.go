// Package storage persists accounts, chat identities, questions and answers in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/garyellow/quizbot-go/internal/config"
	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// DB wraps the SQLite database connections.
// Writes go through a single-connection pool so transactions serialize
// instead of failing with SQLITE_BUSY; reads use a separate pool.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

// New opens (creating if needed) the database at dbPath and initializes the schema.
// ":memory:" opens a private in-memory database that shares one connection.
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	writer, err := open(ctx, dbPath, true)
	if err != nil {
		return nil, err
	}
	writer.SetMaxOpenConns(1)

	reader := writer
	if dbPath != ":memory:" {
		writer.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)
		reader, err = open(ctx, dbPath, false)
		if err != nil {
			_ = writer.Close()
			return nil, err
		}
		reader.SetMaxOpenConns(4)
		reader.SetMaxIdleConns(4)
		reader.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)
	}

	db := &DB{writer: writer, reader: reader, path: dbPath}

	if err := InitSchema(ctx, writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func open(ctx context.Context, dbPath string, write bool) (*sql.DB, error) {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", config.DatabaseBusyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	if dbPath != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}
	if write {
		q.Set("_txlock", "immediate")
	}

	conn, err := sql.Open("sqlite", "file:"+dbPath+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// Close closes the database connections
func (db *DB) Close() error {
	var err error
	if db.reader != nil && db.reader != db.writer {
		err = db.reader.Close()
	}
	if db.writer != nil {
		if werr := db.writer.Close(); werr != nil {
			err = werr
		}
	}
	return err
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.reader.PingContext(ctx)
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// withTx runs fn inside a write transaction, committing when fn returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// observe logs operations slower than config.SlowQueryThreshold.
func observe(ctx context.Context, operation string, start time.Time, attrs ...any) {
	if d := time.Since(start); d > config.SlowQueryThreshold {
		args := append([]any{"operation", operation, "duration_ms", d.Milliseconds()}, attrs...)
		slog.WarnContext(ctx, "slow database operation", args...)
	}
}

// Snapshot writes a consistent copy of the database to dst using VACUUM INTO.
func (db *DB) Snapshot(ctx context.Context, dst string) error {
	if db.path == ":memory:" {
		return fmt.Errorf("snapshot: in-memory database")
	}
	_ = os.Remove(dst)
	start := time.Now()
	if _, err := db.writer.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	observe(ctx, "Snapshot", start)
	return nil
}

// NewTestDB creates an in-memory database for testing.
func NewTestDB() (*DB, error) {
	return New(context.Background(), ":memory:")
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
