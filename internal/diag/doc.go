// Package diag is the operator-facing diagnostic channel. Shipping
// failures, dropped events and debug echoes land here instead of being
// escalated to producers; the channel must keep working with no uplink
// at all, so the default implementation writes to the process logger and
// nothing else.
package diag
