package interfaces

import (
	"context"

	domaintypes "treegroup/internal/domain/types"
)

// Signer produces Ed25519 signatures with a long-term identity.
type Signer interface {
	Sign(msg []byte) []byte
	PublicKey() domaintypes.Ed25519Public
}

// IdentityService creates, retrieves, and inspects the signing identity.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// GroupService manages group lifecycle and membership changes.
type GroupService interface {
	CreateGroup(ctx context.Context) (domaintypes.GroupInfo, error)
	CreateGroupWithID(ctx context.Context, id domaintypes.GroupID) (domaintypes.GroupInfo, error)
	ProposeAdd(id domaintypes.GroupID, kp domaintypes.KeyPackage) (domaintypes.Proposal, error)
	ProposeRemove(id domaintypes.GroupID, leaf domaintypes.LeafIndex) (domaintypes.Proposal, error)
	ProposeUpdate(
		id domaintypes.GroupID,
		leaf domaintypes.LeafIndex,
		seed []byte,
	) (domaintypes.Proposal, error)
	Commit(
		ctx context.Context,
		id domaintypes.GroupID,
		p domaintypes.Proposal,
	) (domaintypes.CommitResult, error)
	GroupInfo(id domaintypes.GroupID) (domaintypes.GroupInfo, error)
}

// MessageService encrypts and decrypts application messages for a group.
type MessageService interface {
	Encrypt(
		id domaintypes.GroupID,
		sender domaintypes.LeafIndex,
		plaintext []byte,
	) ([]byte, error)
	Decrypt(id domaintypes.GroupID, data []byte) (domaintypes.DecryptedMessage, error)
}
