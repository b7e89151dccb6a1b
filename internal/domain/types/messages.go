package types

import "time"

// Commit announces one applied proposal and the fresh path that re-keys the
// tree. Members process it to reach the new epoch.
type Commit struct {
	GroupID         GroupID      `json:"group_id"`
	Epoch           Epoch        `json:"epoch"` // the epoch this commit creates
	Kind            ProposalKind `json:"kind"`
	Leaf            LeafIndex    `json:"leaf"`
	KeyPackage      *KeyPackage  `json:"key_package,omitempty"`
	Path            UpdatePath   `json:"path"`
	ConfirmationTag []byte       `json:"confirmation_tag"`
	Signature       []byte       `json:"signature"`
}

// Welcome lets a newly added member compute the current epoch. Secrets is
// sealed to the member's key package init key and carries the joiner secret
// and the leaf secret its direct path was derived from.
type Welcome struct {
	GroupID         GroupID        `json:"group_id"`
	Epoch           Epoch          `json:"epoch"`
	Leaf            LeafIndex      `json:"leaf"`
	LeafCount       uint32         `json:"leaf_count"`
	Tree            []TreeNode     `json:"tree"`
	ChangeDigest    []byte         `json:"change_digest"`
	TreeHash        []byte         `json:"tree_hash"`
	SignerKey       Ed25519Public  `json:"signer_key"`
	ConfirmationTag []byte         `json:"confirmation_tag"`
	Secrets         HPKECiphertext `json:"secrets"`
	Signature       []byte         `json:"signature"`
}

// GroupInfo is the public summary of a group's current epoch.
type GroupInfo struct {
	GroupID     GroupID          `json:"group_id"`
	Epoch       Epoch            `json:"epoch"`
	MemberCount int              `json:"member_count"`
	Members     []MemberIdentity `json:"members"`
	TreeHash    []byte           `json:"tree_hash"`
}

// CommitResult is returned by a successful commit.
type CommitResult struct {
	Info      GroupInfo
	Commit    Commit
	Welcome   *Welcome // add only
	Destroyed bool     // the last member left and the group is gone
}

// DecryptedMessage is an opened application message.
type DecryptedMessage struct {
	GroupID   GroupID   `json:"group_id"`
	Epoch     Epoch     `json:"epoch"`
	Sender    LeafIndex `json:"sender"`
	Plaintext []byte    `json:"plaintext"`
}

// EpochRecord is the public history entry written for every epoch. It never
// carries secret material.
type EpochRecord struct {
	GroupID     GroupID      `json:"group_id"`
	Epoch       Epoch        `json:"epoch"`
	TreeHash    []byte       `json:"tree_hash"`
	MemberCount int          `json:"member_count"`
	Change      ProposalKind `json:"change"` // zero for group creation
	CommittedAt time.Time    `json:"committed_at"`
}
