// Package cache implements the device-local side of the offline engine:
// a persistent key/value store, the entity codec that normalizes trips at
// the ingestion boundary, and the trip cache repository built on both.
//
// The store is an embedded SQLite database (pure-Go driver, WAL mode) so the
// cache survives process restarts without requiring cgo or an external
// service. Keys follow the "{kind}_{id}" convention (trip_, stop_, resort_)
// and prefix enumeration is a first-class primitive — the repository's stop
// reconciliation depends on it.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/roamline/roamline/internal/domain"
)

// Store is the persistent key/value contract every other engine component
// builds on. All operations are atomic per key; no cross-key transaction is
// guaranteed — a crash between two Puts can leave only the first applied,
// which is why the repository layer has a repair path instead of relying on
// atomicity. Put overwrites unconditionally (last-writer-wins locally).
//
// Any underlying I/O failure is wrapped in domain.ErrStorage; callers must
// not assume partial writes were rolled back.
type Store interface {
	// Put marshals value as JSON and upserts it under key.
	Put(ctx context.Context, key string, value any) error

	// Get unmarshals the value stored under key into dest.
	// Returns (false, nil) when the key is absent.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// MultiGet returns the raw values for the given keys.
	// Absent keys are simply missing from the result map.
	MultiGet(ctx context.Context, keys []string) (map[string]json.RawMessage, error)

	// Remove deletes the value stored under key. Removing an absent key is
	// not an error.
	Remove(ctx context.Context, key string) error

	// AllKeys returns every key currently present, in undefined order.
	AllKeys(ctx context.Context) ([]string, error)

	// KeysWithPrefix returns every key starting with prefix. This is the
	// prefix-scan primitive: enumerating all "stop_" or "trip_" entries
	// must not require a separate index.
	KeysWithPrefix(ctx context.Context, prefix string) ([]string, error)

	// Close releases the underlying database.
	Close() error
}

// sqliteStore is the embedded-SQLite implementation of Store.
type sqliteStore struct {
	conn *sql.DB
	path string
}

// Open creates (or reopens) the cache database at path.
//
// The database runs in WAL mode with a busy timeout so concurrent readers
// are safe during writes. The parent directory is created if missing.
// The caller must Close the returned store when done.
func Open(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache.Open: create directory: %w: %v", domain.ErrStorage, err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("cache.Open: %w: %v", domain.ErrStorage, err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("cache.Open: ping: %w: %v", domain.ErrStorage, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("cache.Open: %s: %w: %v", pragma, domain.ErrStorage, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("cache.Open: create schema: %w: %v", domain.ErrStorage, err)
	}

	return &sqliteStore{conn: conn, path: path}, nil
}

func (s *sqliteStore) Put(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache.Store.Put %q: marshal: %w: %v", key, domain.ErrStorage, err)
	}

	const q = `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.conn.ExecContext(ctx, q, key, string(raw), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("cache.Store.Put %q: %w: %v", key, domain.ErrStorage, err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	const q = `SELECT value FROM kv WHERE key = ?`

	var raw string
	err := s.conn.QueryRowContext(ctx, q, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache.Store.Get %q: %w: %v", key, domain.ErrStorage, err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("cache.Store.Get %q: unmarshal: %w: %v", key, domain.ErrStorage, err)
	}
	return true, nil
}

func (s *sqliteStore) MultiGet(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	q := `SELECT key, value FROM kv WHERE key IN (?` + strings.Repeat(",?", len(keys)-1) + `)`
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("cache.Store.MultiGet: %w: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("cache.Store.MultiGet: scan: %w: %v", domain.ErrStorage, err)
		}
		result[key] = json.RawMessage(raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache.Store.MultiGet: rows: %w: %v", domain.ErrStorage, err)
	}
	return result, nil
}

func (s *sqliteStore) Remove(ctx context.Context, key string) error {
	const q = `DELETE FROM kv WHERE key = ?`
	if _, err := s.conn.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("cache.Store.Remove %q: %w: %v", key, domain.ErrStorage, err)
	}
	return nil
}

func (s *sqliteStore) AllKeys(ctx context.Context) ([]string, error) {
	return s.scanKeys(ctx, `SELECT key FROM kv ORDER BY key`)
}

func (s *sqliteStore) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	// Keys contain "_", which is a single-character wildcard in LIKE, so the
	// prefix must be escaped before the trailing "%" is appended.
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return s.scanKeys(ctx, `SELECT key FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`, escaped+"%")
}

func (s *sqliteStore) scanKeys(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("cache.Store: list keys: %w: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("cache.Store: list keys: scan: %w: %v", domain.ErrStorage, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache.Store: list keys: rows: %w: %v", domain.ErrStorage, err)
	}
	return keys, nil
}

func (s *sqliteStore) Close() error {
	if s.conn == nil {
		return nil
	}
	// Checkpoint the WAL so everything is in the main database file.
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("cache.Store.Close: %w: %v", domain.ErrStorage, err)
	}
	return nil
}
