package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one buffered line keyed by its Unix-millisecond timestamp.
type Entry struct {
	TS   int64  `json:"ts"`
	Line string `json:"line"`
}

// Buffer is an immutable, chronologically-ordered collection of buffered
// log lines. Keys are unique and strictly increasing, so slice order and
// chronological order are the same thing.
//
// All methods are safe on a nil receiver, which is treated as empty; this
// lets the buffer store hand back nil for an absent buffer and callers
// append to it directly.
type Buffer struct {
	entries []Entry
}

// NewBuffer builds a Buffer from already-ordered entries. It is intended
// for tests and for the JSON decoder; Append is the normal write path.
func NewBuffer(entries []Entry) (*Buffer, error) {
	for i := 1; i < len(entries); i++ {
		if entries[i].TS <= entries[i-1].TS {
			return nil, fmt.Errorf("event: buffer entries out of order at index %d (%d after %d)",
				i, entries[i].TS, entries[i-1].TS)
		}
	}
	return &Buffer{entries: entries}, nil
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// LastKey returns the newest timestamp key, or 0 for an empty buffer.
func (b *Buffer) LastKey() int64 {
	if b.Len() == 0 {
		return 0
	}
	return b.entries[len(b.entries)-1].TS
}

// Entries returns a copy of the buffered entries in chronological order.
func (b *Buffer) Entries() []Entry {
	if b.Len() == 0 {
		return nil
	}
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Append returns a new Buffer with e formatted and appended under a fresh
// key. The key is now in Unix milliseconds; if that would collide with or
// precede the newest existing key (same-millisecond arrivals, clock steps
// backwards), it is bumped to lastKey+1 so keys stay unique and strictly
// increasing. The receiver is left untouched.
func (b *Buffer) Append(e LogEntry, now time.Time) *Buffer {
	key := now.UnixMilli()
	if last := b.LastKey(); b.Len() > 0 && key <= last {
		key = last + 1
	}
	out := make([]Entry, b.Len(), b.Len()+1)
	if b != nil {
		copy(out, b.entries)
	}
	out = append(out, Entry{TS: key, Line: e.FormatLine()})
	return &Buffer{entries: out}
}

// KeepNewestHalf returns a new Buffer holding only the chronologically
// newest ceil(n/2) entries. This is the overflow policy: no severity or
// age exceptions, the oldest half goes.
func (b *Buffer) KeepNewestHalf() *Buffer {
	n := b.Len()
	if n == 0 {
		return &Buffer{}
	}
	keep := (n + 1) / 2
	out := make([]Entry, keep)
	copy(out, b.entries[n-keep:])
	return &Buffer{entries: out}
}

// MarshalJSON encodes the buffer as an ordered JSON array of entries. An
// empty buffer encodes as [].
func (b *Buffer) MarshalJSON() ([]byte, error) {
	if b.Len() == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(b.entries)
}

// UnmarshalJSON decodes an ordered JSON array of entries, rejecting data
// whose keys are not strictly increasing. Out-of-order persisted data is
// corruption as far as the rest of the pipeline is concerned, so it fails
// here rather than surfacing misordered sends later.
func (b *Buffer) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	nb, err := NewBuffer(entries)
	if err != nil {
		return err
	}
	b.entries = nb.entries
	return nil
}
