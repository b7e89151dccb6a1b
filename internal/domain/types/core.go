package types

import (
	"encoding/hex"
	"fmt"
)

// GroupID is an opaque, globally unique group identifier. The string holds
// the raw identifier bytes, not a textual encoding.
type GroupID string

// Bytes returns the raw identifier.
func (id GroupID) Bytes() []byte { return []byte(id) }

// String returns the identifier as lowercase hex.
func (id GroupID) String() string { return hex.EncodeToString([]byte(id)) }

// MarshalText encodes the identifier as hex so raw bytes survive JSON.
func (id GroupID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText decodes a hex identifier.
func (id *GroupID) UnmarshalText(b []byte) error {
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return fmt.Errorf("group id: %w", err)
	}
	*id = GroupID(raw)
	return nil
}

// ParseGroupID decodes a hex identifier as printed by String.
func ParseGroupID(s string) (GroupID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("parse group id: %w", err)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("parse group id: empty")
	}
	return GroupID(b), nil
}

// Epoch identifies one version of a group's shared secret.
type Epoch uint64

// LeafIndex is a member's position among the leaves of the ratchet tree.
type LeafIndex uint32

// NodeIndex addresses a node in the array representation of the ratchet tree.
// Leaves sit at even indices.
type NodeIndex uint32

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
