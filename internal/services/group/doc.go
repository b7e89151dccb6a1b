// Package group is the engine's group management surface: creating groups,
// validating proposals and committing them.
//
// Proposals are validated against the group's current epoch and remember
// it. Commit applies one proposal under the group's lock; if another commit
// advanced the group in between, it fails with
// domain.ErrConcurrentCommitConflict and the caller re-proposes.
//
// Every new epoch is written to the configured EpochRecorder before it is
// installed. A recorder failure aborts the commit and leaves the group at its
// previous epoch.
package group
