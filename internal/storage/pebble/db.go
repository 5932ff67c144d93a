package pebblestore

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("pebblestore: key not found")

// Options configures the store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// NoSync skips the WAL fsync on writes. Durability is the point of
	// this store, so the default (false) syncs every write.
	NoSync bool
}

// DB wraps a Pebble database with the fsync policy applied.
type DB struct {
	inner *pebble.DB
	sync  bool
}

// Open creates or opens the Pebble database under opts.DataDir.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebblestore: Options.DataDir is required")
	}
	inner, err := pebble.Open(opts.DataDir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebblestore: open %s: %w", opts.DataDir, err)
	}
	return &DB{inner: inner, sync: !opts.NoSync}, nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// Get copies and returns the value stored under key. A missing key
// returns ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	val, closer, err := db.inner.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pebblestore: get: %w", err)
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// Set stores value under key, respecting the fsync policy.
func (db *DB) Set(key, value []byte) error {
	if err := db.inner.Set(key, value, db.writeOpts()); err != nil {
		return fmt.Errorf("pebblestore: set: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (db *DB) Delete(key []byte) error {
	if err := db.inner.Delete(key, db.writeOpts()); err != nil {
		return fmt.Errorf("pebblestore: delete: %w", err)
	}
	return nil
}

func (db *DB) writeOpts() *pebble.WriteOptions {
	if db.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}
