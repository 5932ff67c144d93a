// Package buffer persists the pending log lines across restarts and
// owns every read-modify-write of them.
//
// The whole buffered log lives under one well-known key in the local
// key-value store, serialized as an ordered JSON array. Store guards all
// access with a single mutex and exposes the two compound operations the
// agent needs: Append (load, trim on overflow, append, save) and Drain
// (load, send everything, clear on confirmed delivery). Holding the lock
// across the full sequence is what keeps an append issued mid-flush from
// being wiped out by the flush's clear.
//
// Delivery is at-least-once by construction: when the send lands but the
// clear fails, Drain reports ErrClearFailed and leaves the data behind,
// so a later flush may resend it.
package buffer
