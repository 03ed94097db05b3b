// Package cachedb provides the durable write-once response cache backed by a
// single SQLite database file.
//
// Weather history for a past date never changes, so entries are inserted
// exactly once and never updated or evicted. Each provider gets its own
// bucket (table) keyed by epoch day number, holding a snappy-compressed copy
// of the provider's raw response body. The cache treats values as opaque
// blobs; a Put followed by a Get returns byte-identical data.
package cachedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/golang/snappy"
	_ "modernc.org/sqlite"
)

// ErrCorrupt marks a cache entry whose stored blob cannot be decompressed.
// Callers must surface it rather than silently re-fetching, since it can
// indicate a schema or storage bug.
var ErrCorrupt = errors.New("cache entry is corrupt")

// bucketNameRe restricts bucket names to safe SQLite identifiers, since the
// table name is interpolated into statements.
var bucketNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Store is a handle to the cache database. Open it once at startup and close
// it at shutdown.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the cache database at path. Parent
// directories are created as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database %s: %w", path, err)
	}
	// A batch run accesses the cache sequentially.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open cache database %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Bucket returns a handle to the named bucket, creating its table if it does
// not exist yet.
func (s *Store) Bucket(name string) (*Bucket, error) {
	if !bucketNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid bucket name %q", name)
	}
	_, err := s.db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			date INTEGER NOT NULL PRIMARY KEY,
			response BLOB NOT NULL
		)`, name))
	if err != nil {
		return nil, fmt.Errorf("create cache bucket %s: %w", name, err)
	}
	return &Bucket{db: s.db, table: name}, nil
}

// Bucket is one provider's slice of the cache, keyed by epoch day number.
type Bucket struct {
	db    *sql.DB
	table string
}

// Get returns the decompressed blob stored for day, or ok=false when the key
// has never been written. A blob that fails to decompress returns an error
// wrapping ErrCorrupt.
func (b *Bucket) Get(ctx context.Context, day int64) (raw []byte, ok bool, err error) {
	var blob []byte
	err = b.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT response FROM %s WHERE date = ?`, b.table), day,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache %s day %d: %w", b.table, day, err)
	}

	raw, err = snappy.Decode(nil, blob)
	if err != nil {
		return nil, false, fmt.Errorf("%w: bucket %s day %d: %v", ErrCorrupt, b.table, day, err)
	}
	return raw, true, nil
}

// Put stores the blob for day. Writing a key twice is an error: entries are
// immutable once written.
func (b *Bucket) Put(ctx context.Context, day int64, raw []byte) error {
	_, err := b.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (date, response) VALUES (?, ?)`, b.table),
		day, snappy.Encode(nil, raw))
	if err != nil {
		return fmt.Errorf("write cache %s day %d: %w", b.table, day, err)
	}
	return nil
}
