package plancache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"derush/internal/plan"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever the plan encoding or table layout
// changes. A mismatched database is rejected; clearing it loses nothing but
// cached work.
const schemaVersion = 1

// ErrSchemaMismatch indicates the cache database was written by a different
// version.
var ErrSchemaMismatch = errors.New("plan cache schema mismatch")

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store is the SQLite-backed plan cache.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Stats summarizes cache contents.
type Stats struct {
	Entries   int
	TotalSize int64
	Path      string
}

// Open initializes or connects to the cache database under dir. The
// directory lock is held until Close, keeping concurrent invocations from
// racing schema creation.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "cache.lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock cache dir: %w", err)
	}

	dbPath := filepath.Join(dir, "plans.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Close releases the database and the directory lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Get returns the cached result for a fingerprint, if any.
func (s *Store) Get(ctx context.Context, fingerprint string) (*plan.EditResult, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT result FROM plans WHERE fingerprint = ?", fingerprint,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached plan: %w", err)
	}

	var result plan.EditResult
	if err := json.Unmarshal(blob, &result); err != nil {
		// A corrupt entry is just a miss; drop it.
		_ = s.Delete(ctx, fingerprint)
		return nil, false, nil
	}
	return &result, true, nil
}

// Put stores a result under its fingerprint, replacing any previous entry.
func (s *Store) Put(ctx context.Context, fingerprint string, result *plan.EditResult) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return s.execWithRetry(ctx,
		`INSERT INTO plans (fingerprint, source_path, created_at, result)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
		   source_path = excluded.source_path,
		   created_at = excluded.created_at,
		   result = excluded.result`,
		fingerprint, result.Plan.SourcePath, time.Now().UTC().Format(time.RFC3339), blob,
	)
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, fingerprint string) error {
	return s.execWithRetry(ctx, "DELETE FROM plans WHERE fingerprint = ?", fingerprint)
}

// Clear removes every cached plan.
func (s *Store) Clear(ctx context.Context) error {
	return s.execWithRetry(ctx, "DELETE FROM plans")
}

// Stats reports entry count and stored bytes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path}
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1), COALESCE(SUM(LENGTH(result)), 0) FROM plans",
	).Scan(&stats.Entries, &stats.TotalSize)
	if err != nil {
		return Stats{}, fmt.Errorf("read cache stats: %w", err)
	}
	return stats, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'derush cache clear')",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
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

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
