package buffer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/logmule/logmule/internal/event"
	pebblestore "github.com/logmule/logmule/internal/storage/pebble"
)

// Key is the single key the buffered log lives under.
const Key = "logmule/buffer/v1"

// DefaultMaxBytes is the serialized-size ceiling that triggers trimming.
const DefaultMaxBytes = 256 << 10

// ErrClearFailed marks a drain whose entries were delivered but whose
// buffer could not be cleared. The data stays put and may be resent by a
// later flush; callers treat this as "delivered, duplicates possible".
var ErrClearFailed = errors.New("buffer: clear failed after delivery")

// KV is the persistence surface the store needs. *pebblestore.DB
// satisfies it; tests substitute in-memory fakes.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Store owns the persisted buffer. One mutex serializes every
// load-modify-store sequence, so concurrent appends and drains always
// observe each other's writes.
type Store struct {
	mu       sync.Mutex
	kv       KV
	key      []byte
	maxBytes int

	now func() time.Time // injectable for tests
}

// New builds a Store over kv. maxBytes <= 0 selects DefaultMaxBytes.
func New(kv KV, maxBytes int) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{
		kv:       kv,
		key:      []byte(Key),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Load returns the persisted buffer, or nil when none exists.
func (s *Store) Load(ctx context.Context) (*event.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, _, err := s.loadLocked()
	return b, err
}

// Save replaces the persisted buffer with b.
func (s *Store) Save(ctx context.Context, b *event.Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(b)
}

// Clear removes the persisted buffer. Clearing an absent buffer
// succeeds.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// Append formats e and adds it to the persisted buffer as one guarded
// sequence: load, trim when the stored serialization has reached the
// ceiling, append, save. The trim inspects the size as stored, before
// the new entry, so a buffer at the ceiling first drops its oldest half
// and then grows by one.
func (s *Store) Append(ctx context.Context, e event.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, rawLen, err := s.loadLocked()
	if err != nil {
		return err
	}
	if rawLen >= s.maxBytes {
		b = b.KeepNewestHalf()
	}
	b = b.Append(e, s.now())
	return s.saveLocked(b)
}

// Drain sends the whole persisted buffer through send as one atomic
// batch and clears it on confirmed delivery, all under the store guard.
// An absent or empty buffer is a successful no-op. A send failure leaves
// the stored bytes untouched and returns the error; a clear failure
// after a successful send returns an ErrClearFailed-wrapped error along
// with the delivered count.
func (s *Store) Drain(ctx context.Context, send func(context.Context, []event.Entry) error) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, _, err := s.loadLocked()
	if err != nil {
		return 0, err
	}
	if b.Len() == 0 {
		return 0, nil
	}

	entries := b.Entries()
	if err := send(ctx, entries); err != nil {
		return 0, fmt.Errorf("buffer: drain send: %w", err)
	}
	if err := s.clearLocked(); err != nil {
		return len(entries), fmt.Errorf("%w: %v", ErrClearFailed, err)
	}
	return len(entries), nil
}

// Stats reports the current entry count and stored byte size.
func (s *Store) Stats(ctx context.Context) (entries, bytes int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, rawLen, err := s.loadLocked()
	if err != nil {
		return 0, 0, err
	}
	return b.Len(), rawLen, nil
}

// loadLocked reads and decodes the stored buffer. Callers hold s.mu.
// Absence yields (nil, 0, nil); decode failures are reported as
// corruption.
func (s *Store) loadLocked() (*event.Buffer, int, error) {
	raw, err := s.kv.Get(s.key)
	if errors.Is(err, pebblestore.ErrNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("buffer: load: %w", err)
	}
	var b event.Buffer
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, 0, fmt.Errorf("buffer: corrupt stored buffer: %w", err)
	}
	return &b, len(raw), nil
}

func (s *Store) saveLocked(b *event.Buffer) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("buffer: encode: %w", err)
	}
	if err := s.kv.Set(s.key, raw); err != nil {
		return fmt.Errorf("buffer: save: %w", err)
	}
	return nil
}

func (s *Store) clearLocked() error {
	if err := s.kv.Delete(s.key); err != nil {
		return fmt.Errorf("buffer: clear: %w", err)
	}
	return nil
}
