package domain

import (
	interfaces "treegroup/internal/domain/interfaces"
	types "treegroup/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	GroupID          = types.GroupID
	Epoch            = types.Epoch
	LeafIndex        = types.LeafIndex
	NodeIndex        = types.NodeIndex
	Fingerprint      = types.Fingerprint
	Identity         = types.Identity
	Credential       = types.Credential
	KeyPackage       = types.KeyPackage
	MemberIdentity   = types.MemberIdentity
	TreeNode         = types.TreeNode
	HPKECiphertext   = types.HPKECiphertext
	UpdatePathNode   = types.UpdatePathNode
	UpdatePath       = types.UpdatePath
	ProposalKind     = types.ProposalKind
	Proposal         = types.Proposal
	Commit           = types.Commit
	Welcome          = types.Welcome
	GroupInfo        = types.GroupInfo
	CommitResult     = types.CommitResult
	DecryptedMessage = types.DecryptedMessage
	EpochRecord      = types.EpochRecord
	X25519Public     = types.X25519Public
	X25519Private    = types.X25519Private
	Ed25519Public    = types.Ed25519Public
	Ed25519Private   = types.Ed25519Private
)

const (
	ProposalAdd    = types.ProposalAdd
	ProposalRemove = types.ProposalRemove
	ProposalUpdate = types.ProposalUpdate
)

// ParseGroupID decodes a hex group identifier.
func ParseGroupID(s string) (GroupID, error) { return types.ParseGroupID(s) }

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Signer          = interfaces.Signer
	IdentityService = interfaces.IdentityService
	GroupService    = interfaces.GroupService
	MessageService  = interfaces.MessageService
	IdentityStore   = interfaces.IdentityStore
	EpochRecorder   = interfaces.EpochRecorder
	EpochHistory    = interfaces.EpochHistory
)
