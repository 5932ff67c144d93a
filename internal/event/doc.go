// Package event defines the log event value types and the buffered-log
// container shared by the dispatch, buffer and flush layers.
//
// event.go provides LogEntry (severity + message + optional structured
// extra), argument validation, and the canonical formatted line
// "<severity> - <message> - extra data : <json>".
//
// buffer.go provides Buffer, an immutable chronologically-ordered sequence
// of formatted lines keyed by unique, strictly increasing Unix-millisecond
// timestamps. Every operation returns a new Buffer; callers never observe
// in-place mutation. The JSON encoding is an ordered array, so persisted
// buffers round-trip with key order intact.
package event
