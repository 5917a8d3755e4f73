// Package cache persists feed snapshots to a local SQLite database, one row
// per cache key (a stable hash of the feed URL), with a fixed TTL. The cache
// is a disposable performance layer: absence and corruption are both
// non-fatal and read as a miss.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/feedgrep/feedgrep/internal/feed"
)

// Store implements feed.Store over SQLite. Reads go through a read-only
// connection pool; writes are serialized on a single-connection handle, so
// two workers can never race a write for the same key.
type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

// Open creates or opens the snapshot database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	s := &Store{readDB: readDB, writeDB: writeDB}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			key        TEXT PRIMARY KEY,
			url        TEXT NOT NULL,
			fetched_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			payload    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_expires ON snapshots(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// Get returns the cached snapshot for url, or ok=false when the entry is
// missing, expired, or unreadable. Callers cannot distinguish "never
// fetched" from "stale": both require the same refetch.
func (s *Store) Get(url string) (feed.Snapshot, bool) {
	var (
		expiresAt time.Time
		payload   []byte
	)
	err := s.readDB.QueryRow(
		"SELECT expires_at, payload FROM snapshots WHERE key = ?", cacheKey(url),
	).Scan(&expiresAt, &payload)
	if err != nil {
		return feed.Snapshot{}, false
	}
	if !time.Now().Before(expiresAt) {
		return feed.Snapshot{}, false
	}

	var snap feed.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		// Corrupt rows read as a miss; the refetch will overwrite them.
		return feed.Snapshot{}, false
	}
	return snap, true
}

// Put stores a snapshot under url's key with the given TTL, replacing any
// previous row. Snapshots are immutable: a refetch writes a new row rather
// than editing the old one.
func (s *Store) Put(url string, snap feed.Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.writeDB.Exec(`
		INSERT INTO snapshots (key, url, fetched_at, expires_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at,
			payload = excluded.payload
	`, cacheKey(url), url, snap.FetchedAt, time.Now().Add(ttl), payload)
	if err != nil {
		return fmt.Errorf("storing snapshot for %s: %w", url, err)
	}
	return nil
}

// Purge deletes expired rows and reports how many were removed.
func (s *Store) Purge() (int64, error) {
	res, err := s.writeDB.Exec("DELETE FROM snapshots WHERE expires_at <= ?", time.Now())
	if err != nil {
		return 0, fmt.Errorf("purging: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns the number of cached snapshots and the database file size.
func (s *Store) Stats(dbPath string) (count int64, size int64, err error) {
	if err := s.readDB.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("counting snapshots: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, fmt.Errorf("stat %s: %w", dbPath, err)
	}
	return count, info.Size(), nil
}

// cacheKey is a stable hash of the feed URL, used as the row key.
func cacheKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", h[:16])
}
