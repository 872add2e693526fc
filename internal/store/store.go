package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages task-queue persistence backed by a single SQLite file. It
// is safe to share within a process; write transactions serialize on the
// database's write lock, so multiple processes may operate on the same
// file concurrently.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the database at path, creating parent
// directories as needed, and applies pending migrations. The schema install
// is idempotent, so opening an existing database is a no-op upgrade.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, validationf("database path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, dbErr("create database directory", err)
		}
	}

	// Pragmas ride in the DSN so every pooled connection gets them;
	// foreign_keys in particular is per-connection. _txlock=immediate makes
	// every write transaction take the write lock at BEGIN, so concurrent
	// checkouts across processes serialize instead of failing at commit.
	dsn := path + "?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, dbErr("open sqlite db", err)
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Transaction executes fn inside a single write transaction. Any error
// returned by fn rolls the transaction back and propagates unchanged.
// Operations invoked on the provided Tx execute inside this scope, so
// callers can bracket compound actions atomically.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	ctx = ensureContext(ctx)

	var sqlTx *sql.Tx
	if err := retryOnBusy(ctx, func() error {
		var beginErr error
		sqlTx, beginErr = s.db.BeginTx(ctx, nil)
		return beginErr
	}); err != nil {
		return dbErr("begin transaction", err)
	}

	if err := fn(&Tx{q: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return dbErr("commit transaction", err)
	}
	return nil
}

// read returns a Tx bound directly to the connection for single-statement
// reads and single-statement deletes; reads through it observe only
// committed state, never partial transactions.
func (s *Store) read() *Tx {
	return &Tx{q: s.db}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
