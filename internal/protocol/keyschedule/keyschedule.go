package keyschedule

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"treegroup/internal/domain"
	"treegroup/internal/util/memzero"
)

// SecretSize is the length of every secret in the schedule.
const SecretSize = sha256.Size

const labelPrefix = "treegroup "

// Transcript is the public record of an epoch change plus the commit secret
// contributed by the fresh path.
type Transcript struct {
	GroupID      domain.GroupID
	Epoch        domain.Epoch // the epoch being created
	TreeHash     []byte
	ChangeDigest []byte
	CommitSecret []byte
}

// Context encodes everything in t except the commit secret.
func (t Transcript) Context() []byte {
	out := make([]byte, 0, 4*4+8+len(t.GroupID)+len(t.TreeHash)+len(t.ChangeDigest))
	out = appendVec(out, t.GroupID.Bytes())
	out = binary.BigEndian.AppendUint64(out, uint64(t.Epoch))
	out = appendVec(out, t.TreeHash)
	out = appendVec(out, t.ChangeDigest)
	return out
}

// Extract is HKDF-Extract with SHA-256.
func Extract(salt, ikm []byte) []byte {
	return hkdf.Extract(sha256.New, ikm, salt)
}

// ExpandWithLabel is HKDF-Expand with a length-prefixed, domain-separated
// label and context.
func ExpandWithLabel(secret []byte, label string, context []byte, length int) ([]byte, error) {
	if len(secret) != SecretSize {
		return nil, fmt.Errorf("%w: secret is %d bytes, want %d", domain.ErrDerivation, len(secret), SecretSize)
	}
	full := labelPrefix + label
	if len(full) > 255 || length > 0xffff || length <= 0 {
		return nil, fmt.Errorf("%w: bad label or length", domain.ErrDerivation)
	}
	info := make([]byte, 0, 2+1+len(full)+4+len(context))
	info = binary.BigEndian.AppendUint16(info, uint16(length))
	info = append(info, byte(len(full)))
	info = append(info, full...)
	info = appendVec(info, context)

	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, secret, info), out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDerivation, err)
	}
	return out, nil
}

// DeriveSecret is ExpandWithLabel with an empty context and SecretSize output.
func DeriveSecret(secret []byte, label string) ([]byte, error) {
	return ExpandWithLabel(secret, label, nil, SecretSize)
}

// JoinerSecret derives the joiner secret for the epoch described by t. A
// welcome carries this value so a new member can finish the schedule
// without the previous epoch secret.
func JoinerSecret(previous []byte, t Transcript) ([]byte, error) {
	if len(t.CommitSecret) != SecretSize {
		return nil, fmt.Errorf("%w: commit secret is %d bytes, want %d", domain.ErrDerivation, len(t.CommitSecret), SecretSize)
	}
	initSecret, err := DeriveSecret(previous, "init")
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(initSecret)

	prk := Extract(initSecret, t.CommitSecret)
	defer memzero.Zero(prk)
	return ExpandWithLabel(prk, "joiner", t.Context(), SecretSize)
}

// EpochFromJoiner finishes the schedule from a joiner secret.
func EpochFromJoiner(joiner []byte, t Transcript) ([]byte, error) {
	if len(joiner) != SecretSize {
		return nil, fmt.Errorf("%w: joiner secret is %d bytes, want %d", domain.ErrDerivation, len(joiner), SecretSize)
	}
	prk := Extract(joiner, make([]byte, SecretSize))
	defer memzero.Zero(prk)
	return ExpandWithLabel(prk, "epoch", t.Context(), SecretSize)
}

// DeriveEpochSecret derives the secret of epoch t.Epoch from the secret of
// the epoch before it.
func DeriveEpochSecret(previous []byte, t Transcript) ([]byte, error) {
	joiner, err := JoinerSecret(previous, t)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(joiner)
	return EpochFromJoiner(joiner, t)
}

// DeriveMessageKey returns the AEAD key sender uses in the epoch whose
// secret is epochSecret. Keys differ per sender.
func DeriveMessageKey(epochSecret []byte, sender domain.LeafIndex) ([]byte, error) {
	enc, err := DeriveSecret(epochSecret, "encryption")
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(enc)
	return ExpandWithLabel(enc, "sender", binary.BigEndian.AppendUint32(nil, uint32(sender)), SecretSize)
}

// ConfirmationTag authenticates t's context under the new epoch secret, so
// a member can tell it derived the same secret as the committer.
func ConfirmationTag(epochSecret []byte, t Transcript) ([]byte, error) {
	key, err := DeriveSecret(epochSecret, "confirm")
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)
	mac := hmac.New(sha256.New, key)
	mac.Write(t.Context())
	return mac.Sum(nil), nil
}

// VerifyConfirmationTag reports whether tag matches the tag derived from
// epochSecret and t.
func VerifyConfirmationTag(epochSecret []byte, t Transcript, tag []byte) bool {
	want, err := ConfirmationTag(epochSecret, t)
	if err != nil {
		return false
	}
	return hmac.Equal(want, tag)
}

func appendVec(out, b []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
	return append(out, b...)
}
