package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"treegroup/internal/domain"
)

// Handshake messages travel as JSON. Signatures and digests are computed
// over the same encoding with the signed-over fields cleared.

// MarshalCommit encodes c for transport.
func MarshalCommit(c domain.Commit) ([]byte, error) { return json.Marshal(c) }

// UnmarshalCommit decodes a commit encoded by MarshalCommit.
func UnmarshalCommit(b []byte) (domain.Commit, error) {
	var c domain.Commit
	if err := json.Unmarshal(b, &c); err != nil {
		return domain.Commit{}, fmt.Errorf("%w: commit: %v", ErrMalformed, err)
	}
	return c, nil
}

// MarshalWelcome encodes w for transport.
func MarshalWelcome(w domain.Welcome) ([]byte, error) { return json.Marshal(w) }

// UnmarshalWelcome decodes a welcome encoded by MarshalWelcome.
func UnmarshalWelcome(b []byte) (domain.Welcome, error) {
	var w domain.Welcome
	if err := json.Unmarshal(b, &w); err != nil {
		return domain.Welcome{}, fmt.Errorf("%w: welcome: %v", ErrMalformed, err)
	}
	return w, nil
}

// MarshalKeyPackage encodes kp for transport.
func MarshalKeyPackage(kp domain.KeyPackage) ([]byte, error) { return json.Marshal(kp) }

// UnmarshalKeyPackage decodes a key package encoded by MarshalKeyPackage.
func UnmarshalKeyPackage(b []byte) (domain.KeyPackage, error) {
	var kp domain.KeyPackage
	if err := json.Unmarshal(b, &kp); err != nil {
		return domain.KeyPackage{}, fmt.Errorf("%w: key package: %v", ErrMalformed, err)
	}
	return kp, nil
}

// CommitContent is the encoding of c without its confirmation tag and
// signature. Its digest enters the key schedule.
func CommitContent(c domain.Commit) []byte {
	c.ConfirmationTag = nil
	c.Signature = nil
	return mustJSON(c)
}

// CommitTBS is the encoding of c the engine signs.
func CommitTBS(c domain.Commit) []byte {
	c.Signature = nil
	return mustJSON(c)
}

// WelcomeTBS is the encoding of w the engine signs.
func WelcomeTBS(w domain.Welcome) []byte {
	w.Signature = nil
	return mustJSON(w)
}

// KeyPackageTBS is the encoding of kp its owner signs.
func KeyPackageTBS(kp domain.KeyPackage) []byte {
	kp.Signature = nil
	return mustJSON(kp)
}

// GroupSecrets is the plaintext sealed inside a welcome.
type GroupSecrets struct {
	JoinerSecret []byte
	LeafSecret   []byte
}

const (
	fieldJoinerSecret protowire.Number = 1
	fieldLeafSecret   protowire.Number = 2
)

// Marshal encodes s.
func (s GroupSecrets) Marshal() []byte {
	b := protowire.AppendTag(nil, fieldJoinerSecret, protowire.BytesType)
	b = protowire.AppendBytes(b, s.JoinerSecret)
	b = protowire.AppendTag(b, fieldLeafSecret, protowire.BytesType)
	return protowire.AppendBytes(b, s.LeafSecret)
}

// UnmarshalGroupSecrets decodes what GroupSecrets.Marshal produced.
func UnmarshalGroupSecrets(b []byte) (GroupSecrets, error) {
	var s GroupSecrets
	for _, want := range []protowire.Number{fieldJoinerSecret, fieldLeafSecret} {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 || num != want || typ != protowire.BytesType {
			return GroupSecrets{}, fmt.Errorf("%w: group secrets", ErrMalformed)
		}
		b = b[n:]
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return GroupSecrets{}, fmt.Errorf("%w: group secrets", ErrMalformed)
		}
		b = b[n:]
		if want == fieldJoinerSecret {
			s.JoinerSecret = append([]byte(nil), v...)
		} else {
			s.LeafSecret = append([]byte(nil), v...)
		}
	}
	if len(b) != 0 {
		return GroupSecrets{}, fmt.Errorf("%w: group secrets trailing bytes", ErrMalformed)
	}
	return s, nil
}

// mustJSON encodes plain data structs, which cannot fail.
func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("codec: encode %T: %v", v, err))
	}
	return b
}
