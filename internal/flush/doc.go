// Package flush drains the local buffer to the remote sink when the
// link comes good.
//
// The coordinator's contract follows the buffer store's: an absent
// buffer is a successful no-op, a failed send leaves the buffer exactly
// as it was, and the buffer is cleared only on confirmed delivery. A
// delivery whose clear then fails is reported on the diagnostic channel
// and left for a later flush to resend; receivers must tolerate the
// duplicate batch.
package flush
