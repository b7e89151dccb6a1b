package interfaces

import (
	"context"

	domaintypes "treegroup/internal/domain/types"
)

// IdentityStore persists the long-term signing identity.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// EpochRecorder persists the public record of each new epoch. Implementations
// must not retain secret material.
type EpochRecorder interface {
	RecordEpoch(ctx context.Context, rec domaintypes.EpochRecord) error
}

// EpochHistory reads back what an EpochRecorder wrote.
type EpochHistory interface {
	History(ctx context.Context, id domaintypes.GroupID) ([]domaintypes.EpochRecord, error)
	Groups(ctx context.Context) ([]domaintypes.GroupID, error)
}
