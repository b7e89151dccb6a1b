package treekem

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"treegroup/internal/crypto"
	"treegroup/internal/domain"
	"treegroup/internal/protocol/keyschedule"
	"treegroup/internal/util/memzero"
)

const pathInfo = "treegroup path"

// ErrPathMismatch is returned when a derived node key differs from the key
// an update path advertises.
var ErrPathMismatch = errors.New("update path key mismatch")

// PathAAD binds encrypted path secrets to the group and the epoch they
// create.
func PathAAD(id domain.GroupID, epoch domain.Epoch) []byte {
	out := appendVec(nil, id.Bytes())
	return binary.BigEndian.AppendUint64(out, uint64(epoch))
}

type pathStep struct {
	secret []byte
	pub    []byte
	priv   domain.X25519Private
}

func wipeSteps(steps []pathStep) {
	for i := range steps {
		memzero.Zero(steps[i].secret)
		steps[i].priv.Wipe()
	}
}

// walkPath derives count node key pairs starting from the path secret of
// the first node, and the commit secret above the last one.
func walkPath(first []byte, count int) ([]pathStep, []byte, error) {
	steps := make([]pathStep, 0, count)
	ps := bytes.Clone(first)
	for i := 0; i < count; i++ {
		if i > 0 {
			next, err := keyschedule.DeriveSecret(ps, "path")
			if err != nil {
				wipeSteps(steps)
				return nil, nil, err
			}
			ps = next
		}
		pub, priv, err := nodeKeyPair(ps)
		if err != nil {
			memzero.Zero(ps)
			wipeSteps(steps)
			return nil, nil, err
		}
		steps = append(steps, pathStep{secret: ps, pub: pub, priv: priv})
	}
	commit, err := keyschedule.DeriveSecret(ps, "path")
	if count == 0 {
		memzero.Zero(ps)
	}
	if err != nil {
		wipeSteps(steps)
		return nil, nil, err
	}
	return steps, commit, nil
}

func nodeKeyPair(secret []byte) ([]byte, domain.X25519Private, error) {
	seed, err := keyschedule.DeriveSecret(secret, "node")
	if err != nil {
		return nil, domain.X25519Private{}, err
	}
	defer memzero.Zero(seed)
	return crypto.DeriveKeyPair(seed)
}

// LeafKeyPair derives the leaf key a member takes when it re-keys its own
// leaf from leafSecret.
func LeafKeyPair(leafSecret []byte) ([]byte, domain.X25519Private, error) {
	return nodeKeyPair(leafSecret)
}

func firstPathSecret(leafSecret []byte) ([]byte, error) {
	if len(leafSecret) != keyschedule.SecretSize {
		return nil, fmt.Errorf("%w: leaf secret is %d bytes, want %d", domain.ErrDerivation, len(leafSecret), keyschedule.SecretSize)
	}
	return keyschedule.DeriveSecret(leafSecret, "path")
}

func nodeAAD(base []byte, x domain.NodeIndex) []byte {
	out := bytes.Clone(base)
	return binary.BigEndian.AppendUint32(out, uint32(x))
}

// GeneratePath re-keys the direct path of leaf from leafSecret, encrypts
// each new path secret to the resolution of the matching copath node, and
// installs the new public keys in t. With rekeyLeaf the leaf key is replaced
// too. It returns the path to broadcast and the commit secret.
func GeneratePath(
	r io.Reader,
	t *Tree,
	leaf domain.LeafIndex,
	leafSecret []byte,
	rekeyLeaf bool,
	aad []byte,
) (domain.UpdatePath, []byte, error) {
	if uint32(leaf) >= t.leafCount {
		return domain.UpdatePath{}, nil, fmt.Errorf("%w: leaf %d outside tree", domain.ErrTreeInvariant, leaf)
	}
	path := domain.UpdatePath{Leaf: leaf}
	if rekeyLeaf {
		if !t.IsMember(leaf) {
			return domain.UpdatePath{}, nil, fmt.Errorf("%w: leaf %d is blank", domain.ErrTreeInvariant, leaf)
		}
		pub, priv, err := LeafKeyPair(leafSecret)
		if err != nil {
			return domain.UpdatePath{}, nil, err
		}
		priv.Wipe()
		path.LeafKey = pub
	}

	x := LeafNode(leaf)
	dp, cp := DirectPath(x, t.leafCount), Copath(x, t.leafCount)
	first, err := firstPathSecret(leafSecret)
	if err != nil {
		return domain.UpdatePath{}, nil, err
	}
	defer memzero.Zero(first)
	steps, commit, err := walkPath(first, len(dp))
	if err != nil {
		return domain.UpdatePath{}, nil, err
	}
	defer wipeSteps(steps)

	path.Nodes = make([]domain.UpdatePathNode, len(dp))
	for i := range dp {
		res := t.Resolution(cp[i])
		enc := make([]domain.HPKECiphertext, 0, len(res))
		for _, y := range res {
			ct, err := crypto.Seal(r, t.nodes[y].pub, []byte(pathInfo), nodeAAD(aad, dp[i]), steps[i].secret)
			if err != nil {
				memzero.Zero(commit)
				return domain.UpdatePath{}, nil, err
			}
			enc = append(enc, ct)
		}
		path.Nodes[i] = domain.UpdatePathNode{PublicKey: steps[i].pub, EncryptedPathSecret: enc}
	}
	if err := InstallPath(t, path); err != nil {
		memzero.Zero(commit)
		return domain.UpdatePath{}, nil, err
	}
	return path, commit, nil
}

// InstallPath writes the public keys of path into t.
func InstallPath(t *Tree, path domain.UpdatePath) error {
	if uint32(path.Leaf) >= t.leafCount {
		return fmt.Errorf("%w: leaf %d outside tree", domain.ErrTreeInvariant, path.Leaf)
	}
	dp := DirectPath(LeafNode(path.Leaf), t.leafCount)
	if len(path.Nodes) != len(dp) {
		return fmt.Errorf("%w: path has %d nodes, direct path %d", domain.ErrTreeInvariant, len(path.Nodes), len(dp))
	}
	for _, n := range path.Nodes {
		if len(n.PublicKey) == 0 {
			return fmt.Errorf("%w: empty path key", domain.ErrTreeInvariant)
		}
	}
	if path.LeafKey != nil {
		if err := t.setLeafKey(path.Leaf, path.LeafKey); err != nil {
			return err
		}
	}
	for i, p := range dp {
		t.setParentKey(p, path.Nodes[i].PublicKey)
	}
	return nil
}

// ApplyPath processes another member's update path on behalf of me. It
// decrypts the one path secret me can read, derives the rest of the path,
// checks every derived public key against the path, then installs the path
// in t and the new private keys in keys. On error neither is modified.
func ApplyPath(t *Tree, path domain.UpdatePath, me domain.LeafIndex, keys Keyring, aad []byte) ([]byte, error) {
	if path.Leaf == me {
		return nil, fmt.Errorf("%w: cannot apply own path", domain.ErrTreeInvariant)
	}
	if uint32(path.Leaf) >= t.leafCount || !t.IsMember(me) {
		return nil, fmt.Errorf("%w: leaf outside tree", domain.ErrTreeInvariant)
	}
	x := LeafNode(path.Leaf)
	dp, cp := DirectPath(x, t.leafCount), Copath(x, t.leafCount)
	if len(path.Nodes) != len(dp) {
		return nil, fmt.Errorf("%w: path has %d nodes, direct path %d", domain.ErrTreeInvariant, len(path.Nodes), len(dp))
	}

	mine := LeafNode(me)
	idx := -1
	for i, c := range cp {
		if inSubtree(mine, c) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: leaf %d not under path of %d", domain.ErrTreeInvariant, me, path.Leaf)
	}

	res := t.Resolution(cp[idx])
	enc := path.Nodes[idx].EncryptedPathSecret
	if len(enc) != len(res) {
		return nil, fmt.Errorf("%w: %w: %d ciphertexts for resolution of %d", domain.ErrAuthentication, ErrPathMismatch, len(enc), len(res))
	}
	var ps []byte
	for j, y := range res {
		priv, ok := keys[y]
		if !ok {
			continue
		}
		pt, err := crypto.Open(*priv, []byte(pathInfo), nodeAAD(aad, dp[idx]), enc[j])
		if err != nil {
			return nil, fmt.Errorf("%w: path secret for node %d: %v", domain.ErrAuthentication, dp[idx], err)
		}
		ps = pt
		break
	}
	if ps == nil {
		return nil, fmt.Errorf("%w: no key for resolution of node %d", domain.ErrAuthentication, cp[idx])
	}
	defer memzero.Zero(ps)

	steps, commit, err := walkPath(ps, len(dp)-idx)
	if err != nil {
		return nil, err
	}
	defer wipeSteps(steps)
	for k, s := range steps {
		if !bytes.Equal(s.pub, path.Nodes[idx+k].PublicKey) {
			memzero.Zero(commit)
			return nil, fmt.Errorf("%w: %w at node %d", domain.ErrAuthentication, ErrPathMismatch, dp[idx+k])
		}
	}
	if err := InstallPath(t, path); err != nil {
		memzero.Zero(commit)
		return nil, err
	}
	for k, s := range steps {
		keys.Set(dp[idx+k], s.priv)
	}
	return commit, nil
}

// DerivePathKeys recomputes every private key on leaf's direct path from
// leafSecret and checks them against the public keys already in t. A new
// member uses it with the leaf secret from its welcome; a member whose own
// update was committed uses it with its update seed and rekeyLeaf set.
func DerivePathKeys(t *Tree, leaf domain.LeafIndex, leafSecret []byte, rekeyLeaf bool) (Keyring, []byte, error) {
	if !t.IsMember(leaf) {
		return nil, nil, fmt.Errorf("%w: leaf %d is blank", domain.ErrTreeInvariant, leaf)
	}
	keys := make(Keyring)
	x := LeafNode(leaf)
	if rekeyLeaf {
		pub, priv, err := LeafKeyPair(leafSecret)
		if err != nil {
			return nil, nil, err
		}
		if !bytes.Equal(pub, t.nodes[x].pub) {
			priv.Wipe()
			return nil, nil, fmt.Errorf("%w: %w at leaf %d", domain.ErrAuthentication, ErrPathMismatch, leaf)
		}
		keys.Set(x, priv)
		priv.Wipe()
	}

	dp := DirectPath(x, t.leafCount)
	first, err := firstPathSecret(leafSecret)
	if err != nil {
		keys.Wipe()
		return nil, nil, err
	}
	defer memzero.Zero(first)
	steps, commit, err := walkPath(first, len(dp))
	if err != nil {
		keys.Wipe()
		return nil, nil, err
	}
	defer wipeSteps(steps)
	for i, s := range steps {
		if !bytes.Equal(s.pub, t.PublicKey(dp[i])) {
			keys.Wipe()
			memzero.Zero(commit)
			return nil, nil, fmt.Errorf("%w: %w at node %d", domain.ErrAuthentication, ErrPathMismatch, dp[i])
		}
		keys.Set(dp[i], s.priv)
	}
	return keys, commit, nil
}
