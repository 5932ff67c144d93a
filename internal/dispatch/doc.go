// Package dispatch decides what happens to each submitted log event:
// ship it now, park it in the durable buffer, or drop it.
//
// The decision table, in order:
//
//  1. debug mode: validate, echo to the diagnostic channel, done. Debug
//     events never reach the network or the buffer.
//  2. invalid events are rejected.
//  3. a failed connectivity probe drops the event with a diagnostic. No
//     answer is not the same as a weak answer: without one the event is
//     not worth a buffer slot that warning/error traffic may need. (A
//     probe that succeeds but reports an unknown medium is a weak link
//     and falls through to rule 5.)
//  4. a good link (wifi, or top-tier cellular) sends immediately. The
//     send is fire-and-forget: a failure is diagnosed and reported in
//     the Result, never escalated, and the event is not buffered after
//     the fact.
//  5. a weak link buffers warning and error events; info events are
//     dropped rather than allowed to crowd the buffer.
//
// Dispatch returns an explicit Result (route + advisory error) so tests
// and callers can observe what happened without changing the
// fire-and-forget semantics.
package dispatch
