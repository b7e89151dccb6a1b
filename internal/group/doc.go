// Package group holds the state of one group at one epoch and the pure
// transition from that state to the next.
//
// A State is immutable once built: Apply returns a new State together with
// the signed Commit (and, for adds, the Welcome) that lets members follow
// the transition. The caller decides whether to install the result; the
// superseded State must then be destroyed so its epoch secret is wiped.
//
// Concurrency: a State is NOT safe for concurrent use with Destroy. Callers
// serialise access per group.
package group
