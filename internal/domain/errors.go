package domain

import (
	"errors"
	"fmt"

	"treegroup/internal/domain/types"
)

var (
	// ErrNotFound is returned when a group does not exist.
	ErrNotFound = errors.New("group not found")
	// ErrAlreadyExists is returned when creating a group whose id is taken.
	ErrAlreadyExists = errors.New("group already exists")
	// ErrStaleEpoch is returned for messages or commits from a different epoch.
	ErrStaleEpoch = errors.New("stale epoch")
	// ErrAuthentication covers every integrity or sender check failure.
	ErrAuthentication = errors.New("authentication failed")
	// ErrDerivation is returned when key derivation inputs are malformed.
	ErrDerivation = errors.New("key derivation failed")
	// ErrConcurrentCommitConflict is returned when a proposal was made against
	// an epoch that another commit already advanced.
	ErrConcurrentCommitConflict = errors.New("concurrent commit conflict")

	ErrNotMember       = errors.New("not a member")
	ErrInvalidProposal = errors.New("invalid proposal")
	ErrRemoved         = errors.New("removed from group")
	ErrTreeInvariant   = errors.New("ratchet tree invariant violated")
)

// StaleEpochError reports the epoch a message carried and the epoch it was
// checked against. It matches ErrStaleEpoch under errors.Is.
type StaleEpochError struct {
	Got  types.Epoch
	Want types.Epoch
}

func (e *StaleEpochError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", ErrStaleEpoch, e.Got, e.Want)
}

// Is reports whether target is ErrStaleEpoch.
func (e *StaleEpochError) Is(target error) bool { return target == ErrStaleEpoch }
