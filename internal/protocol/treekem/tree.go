package treekem

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/transparency-dev/merkle/rfc6962"

	"treegroup/internal/domain"
)

type node struct {
	pub  []byte
	cred *domain.Credential // leaves only
}

func (n *node) clone() *node {
	if n == nil {
		return nil
	}
	out := &node{pub: bytes.Clone(n.pub)}
	if n.cred != nil {
		c := cloneCredential(*n.cred)
		out.cred = &c
	}
	return out
}

// Tree is the public state of a ratchet tree.
type Tree struct {
	nodes     []*node
	leafCount uint32
}

// New returns an empty tree.
func New() *Tree { return &Tree{} }

// FromNodes rebuilds a tree from a snapshot taken with Nodes.
func FromNodes(leafCount uint32, snapshot []domain.TreeNode) (*Tree, error) {
	t := &Tree{leafCount: leafCount, nodes: make([]*node, NodeWidth(leafCount))}
	for _, tn := range snapshot {
		if uint32(tn.Index) >= uint32(len(t.nodes)) {
			return nil, fmt.Errorf("%w: node %d outside width %d", domain.ErrTreeInvariant, tn.Index, len(t.nodes))
		}
		if len(tn.PublicKey) == 0 {
			return nil, fmt.Errorf("%w: node %d has no key", domain.ErrTreeInvariant, tn.Index)
		}
		if isLeaf(tn.Index) != (tn.Credential != nil) {
			return nil, fmt.Errorf("%w: node %d credential mismatch", domain.ErrTreeInvariant, tn.Index)
		}
		if t.nodes[tn.Index] != nil {
			return nil, fmt.Errorf("%w: node %d repeated", domain.ErrTreeInvariant, tn.Index)
		}
		n := &node{pub: bytes.Clone(tn.PublicKey)}
		if tn.Credential != nil {
			c := cloneCredential(*tn.Credential)
			n.cred = &c
		}
		t.nodes[tn.Index] = n
	}
	return t, nil
}

// Nodes returns a snapshot of every non-blank node in index order.
func (t *Tree) Nodes() []domain.TreeNode {
	var out []domain.TreeNode
	for i, n := range t.nodes {
		if n == nil {
			continue
		}
		tn := domain.TreeNode{Index: domain.NodeIndex(i), PublicKey: bytes.Clone(n.pub)}
		if n.cred != nil {
			c := cloneCredential(*n.cred)
			tn.Credential = &c
		}
		out = append(out, tn)
	}
	return out
}

// LeafCount returns the number of leaf slots, blank or not.
func (t *Tree) LeafCount() uint32 { return t.leafCount }

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	out := &Tree{leafCount: t.leafCount, nodes: make([]*node, len(t.nodes))}
	for i, n := range t.nodes {
		out.nodes[i] = n.clone()
	}
	return out
}

// Members lists occupied leaves in leaf order.
func (t *Tree) Members() []domain.MemberIdentity {
	var out []domain.MemberIdentity
	for l := uint32(0); l < t.leafCount; l++ {
		n := t.nodes[LeafNode(domain.LeafIndex(l))]
		if n == nil {
			continue
		}
		out = append(out, domain.MemberIdentity{Credential: cloneCredential(*n.cred), Leaf: domain.LeafIndex(l)})
	}
	return out
}

// MemberCount returns the number of occupied leaves.
func (t *Tree) MemberCount() int {
	c := 0
	for l := uint32(0); l < t.leafCount; l++ {
		if t.nodes[LeafNode(domain.LeafIndex(l))] != nil {
			c++
		}
	}
	return c
}

// IsMember reports whether leaf l is occupied.
func (t *Tree) IsMember(l domain.LeafIndex) bool {
	return uint32(l) < t.leafCount && t.nodes[LeafNode(l)] != nil
}

// Leaf returns the credential and public key at leaf l.
func (t *Tree) Leaf(l domain.LeafIndex) (domain.Credential, []byte, bool) {
	if !t.IsMember(l) {
		return domain.Credential{}, nil, false
	}
	n := t.nodes[LeafNode(l)]
	return cloneCredential(*n.cred), bytes.Clone(n.pub), true
}

// FindMember returns the leaf holding a credential with the given identity.
func (t *Tree) FindMember(identity []byte) (domain.LeafIndex, bool) {
	for _, m := range t.Members() {
		if bytes.Equal(m.Credential.Identity, identity) {
			return m.Leaf, true
		}
	}
	return 0, false
}

// PublicKey returns the key at node x, or nil when x is blank.
func (t *Tree) PublicKey(x domain.NodeIndex) []byte {
	if uint32(x) >= uint32(len(t.nodes)) || t.nodes[x] == nil {
		return nil
	}
	return bytes.Clone(t.nodes[x].pub)
}

// AddLeaf places a new member in the leftmost blank leaf, extending the tree
// when there is none. The new leaf's direct path is left as it was; callers
// re-key it with GeneratePath.
func (t *Tree) AddLeaf(cred domain.Credential, pub []byte) domain.LeafIndex {
	l := uint32(0)
	for ; l < t.leafCount; l++ {
		if t.nodes[LeafNode(domain.LeafIndex(l))] == nil {
			break
		}
	}
	if l == t.leafCount {
		t.leafCount++
		for uint32(len(t.nodes)) < NodeWidth(t.leafCount) {
			t.nodes = append(t.nodes, nil)
		}
	}
	c := cloneCredential(cred)
	t.nodes[LeafNode(domain.LeafIndex(l))] = &node{pub: bytes.Clone(pub), cred: &c}
	return domain.LeafIndex(l)
}

// BlankPath blanks leaf l and every node on its direct path.
func (t *Tree) BlankPath(l domain.LeafIndex) error {
	if !t.IsMember(l) {
		return fmt.Errorf("%w: leaf %d is blank", domain.ErrTreeInvariant, l)
	}
	x := LeafNode(l)
	t.nodes[x] = nil
	for _, p := range DirectPath(x, t.leafCount) {
		t.nodes[p] = nil
	}
	return nil
}

// setLeafKey replaces the public key of an occupied leaf.
func (t *Tree) setLeafKey(l domain.LeafIndex, pub []byte) error {
	if !t.IsMember(l) {
		return fmt.Errorf("%w: leaf %d is blank", domain.ErrTreeInvariant, l)
	}
	t.nodes[LeafNode(l)].pub = bytes.Clone(pub)
	return nil
}

func (t *Tree) setParentKey(x domain.NodeIndex, pub []byte) {
	t.nodes[x] = &node{pub: bytes.Clone(pub)}
}

// Resolution returns the minimal set of non-blank nodes that together cover
// every occupied leaf under x.
func (t *Tree) Resolution(x domain.NodeIndex) []domain.NodeIndex {
	if uint32(x) >= uint32(len(t.nodes)) {
		return nil
	}
	if t.nodes[x] != nil {
		return []domain.NodeIndex{x}
	}
	if isLeaf(x) {
		return nil
	}
	return append(t.Resolution(left(x)), t.Resolution(right(x, t.leafCount))...)
}

// TreeHash commits to the shape and content of the whole tree.
func (t *Tree) TreeHash() []byte {
	if t.leafCount == 0 {
		return rfc6962.DefaultHasher.EmptyRoot()
	}
	return t.hashNode(Root(t.leafCount))
}

func (t *Tree) hashNode(x domain.NodeIndex) []byte {
	h := rfc6962.DefaultHasher
	content := t.nodeContent(x)
	if isLeaf(x) {
		return h.HashLeaf(content)
	}
	children := h.HashChildren(t.hashNode(left(x)), t.hashNode(right(x, t.leafCount)))
	return h.HashChildren(h.HashLeaf(content), children)
}

func (t *Tree) nodeContent(x domain.NodeIndex) []byte {
	out := binary.BigEndian.AppendUint32(nil, uint32(x))
	n := t.nodes[x]
	if n == nil {
		return append(out, 0)
	}
	out = append(out, 1)
	out = appendVec(out, n.pub)
	if n.cred != nil {
		out = appendVec(out, n.cred.Identity)
		out = append(out, n.cred.SignatureKey[:]...)
	}
	return out
}

func appendVec(out, b []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
	return append(out, b...)
}

func cloneCredential(c domain.Credential) domain.Credential {
	return domain.Credential{Identity: bytes.Clone(c.Identity), SignatureKey: c.SignatureKey}
}
