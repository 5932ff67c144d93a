// Package pebblestore wraps the Pebble key-value store behind the small
// surface the buffer layer needs: Open, Get, Set, Delete, Close.
//
// Writes commit with a WAL fsync by default. The buffered log exists to
// survive crashes on hosts with bad uplinks, so durability wins over
// write latency; NoSync is available for tests and throwaway setups.
//
// Get copies the value out of Pebble's internal buffer, so returned
// slices stay valid after the next operation. A missing key is reported
// as ErrNotFound rather than Pebble's own sentinel, keeping callers free
// of a direct pebble dependency.
package pebblestore
