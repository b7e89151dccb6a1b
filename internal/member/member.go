package member

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"treegroup/internal/domain"
	"treegroup/internal/group"
	"treegroup/internal/protocol/codec"
	"treegroup/internal/protocol/keyschedule"
	"treegroup/internal/protocol/treekem"
	"treegroup/internal/util/memzero"
)

// Member is one participant's view of a group.
type Member struct {
	id        domain.GroupID
	epoch     domain.Epoch
	leaf      domain.LeafIndex
	identity  []byte
	engineKey domain.Ed25519Public
	tree      *treekem.Tree
	keys      treekem.Keyring
	secret    []byte

	pendingSeed []byte
	rand        io.Reader
}

// Join enters the group described by w using the key package in p. engine
// is the public key the group's commits are signed with. p is consumed.
func Join(p *Pending, w domain.Welcome, engine domain.Ed25519Public) (*Member, error) {
	defer p.Discard()

	if w.SignerKey != engine {
		return nil, fmt.Errorf("%w: welcome signed by unexpected key", domain.ErrAuthentication)
	}
	if err := group.VerifyWelcome(w); err != nil {
		return nil, err
	}
	secrets, err := group.OpenWelcome(w, p.initPriv)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(secrets.JoinerSecret, secrets.LeafSecret)

	tree, err := treekem.FromNodes(w.LeafCount, w.Tree)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(tree.TreeHash(), w.TreeHash) {
		return nil, fmt.Errorf("%w: welcome tree hash", domain.ErrAuthentication)
	}
	cred, pub, ok := tree.Leaf(w.Leaf)
	if !ok || !bytes.Equal(cred.Identity, p.kp.Credential.Identity) || !bytes.Equal(pub, p.kp.InitKey) {
		return nil, fmt.Errorf("%w: welcome places another member at leaf %d", domain.ErrAuthentication, w.Leaf)
	}

	keys, _, err := treekem.DerivePathKeys(tree, w.Leaf, secrets.LeafSecret, false)
	if err != nil {
		return nil, err
	}
	keys.Set(treekem.LeafNode(w.Leaf), p.initPriv)

	tr := keyschedule.Transcript{GroupID: w.GroupID, Epoch: w.Epoch, TreeHash: w.TreeHash, ChangeDigest: w.ChangeDigest}
	secret, err := keyschedule.EpochFromJoiner(secrets.JoinerSecret, tr)
	if err != nil {
		keys.Wipe()
		return nil, err
	}
	if !keyschedule.VerifyConfirmationTag(secret, tr, w.ConfirmationTag) {
		keys.Wipe()
		memzero.Zero(secret)
		return nil, fmt.Errorf("%w: welcome confirmation tag", domain.ErrAuthentication)
	}

	return &Member{
		id:        w.GroupID,
		epoch:     w.Epoch,
		leaf:      w.Leaf,
		identity:  bytes.Clone(p.kp.Credential.Identity),
		engineKey: engine,
		tree:      tree,
		keys:      keys,
		secret:    secret,
		rand:      rand.Reader,
	}, nil
}

// ProcessCommit moves m to the epoch c creates. On error m is unchanged,
// except that ErrRemoved destroys m.
func (m *Member) ProcessCommit(c domain.Commit) error {
	if m.secret == nil {
		return domain.ErrRemoved
	}
	if err := group.VerifyCommit(c, m.engineKey); err != nil {
		return err
	}
	if c.GroupID != m.id {
		return fmt.Errorf("%w: commit for another group", domain.ErrAuthentication)
	}
	if c.Epoch != m.epoch+1 {
		return &domain.StaleEpochError{Got: c.Epoch, Want: m.epoch + 1}
	}

	tree := m.tree.Clone()
	switch c.Kind {
	case domain.ProposalAdd:
		if c.KeyPackage == nil {
			return fmt.Errorf("%w: add without key package", domain.ErrInvalidProposal)
		}
		if err := group.VerifyKeyPackage(*c.KeyPackage); err != nil {
			return err
		}
		if leaf := tree.AddLeaf(c.KeyPackage.Credential, c.KeyPackage.InitKey); leaf != c.Leaf {
			return fmt.Errorf("%w: add placed at leaf %d, commit says %d", domain.ErrTreeInvariant, leaf, c.Leaf)
		}
	case domain.ProposalRemove:
		if c.Leaf == m.leaf {
			m.Destroy()
			return domain.ErrRemoved
		}
		if err := tree.BlankPath(c.Leaf); err != nil {
			return err
		}
	case domain.ProposalUpdate:
		if !tree.IsMember(c.Leaf) {
			return fmt.Errorf("%w: leaf %d", domain.ErrNotMember, c.Leaf)
		}
	default:
		return fmt.Errorf("%w: kind %d", domain.ErrInvalidProposal, c.Kind)
	}
	if c.Path.Leaf != c.Leaf {
		return fmt.Errorf("%w: path from leaf %d for change at %d", domain.ErrTreeInvariant, c.Path.Leaf, c.Leaf)
	}

	keys := m.keys.Clone()
	keys.Prune(tree)
	commitSecret, err := m.applyPath(tree, keys, c)
	if err != nil {
		keys.Wipe()
		return err
	}
	defer memzero.Zero(commitSecret)

	digest := sha256.Sum256(codec.CommitContent(c))
	tr := keyschedule.Transcript{
		GroupID:      m.id,
		Epoch:        c.Epoch,
		TreeHash:     tree.TreeHash(),
		ChangeDigest: digest[:],
		CommitSecret: commitSecret,
	}
	secret, err := keyschedule.DeriveEpochSecret(m.secret, tr)
	if err != nil {
		keys.Wipe()
		return err
	}
	if !keyschedule.VerifyConfirmationTag(secret, tr, c.ConfirmationTag) {
		keys.Wipe()
		memzero.Zero(secret)
		return fmt.Errorf("%w: confirmation tag", domain.ErrAuthentication)
	}

	memzero.Zero(m.secret)
	m.keys.Wipe()
	m.secret, m.keys, m.tree, m.epoch = secret, keys, tree, c.Epoch
	if c.Kind == domain.ProposalUpdate && c.Leaf == m.leaf {
		memzero.Zero(m.pendingSeed)
		m.pendingSeed = nil
	}
	return nil
}

func (m *Member) applyPath(tree *treekem.Tree, keys treekem.Keyring, c domain.Commit) ([]byte, error) {
	if c.Kind != domain.ProposalUpdate || c.Leaf != m.leaf {
		return treekem.ApplyPath(tree, c.Path, m.leaf, keys, treekem.PathAAD(m.id, c.Epoch))
	}
	// Our own update: the path was derived from our seed.
	if m.pendingSeed == nil {
		return nil, fmt.Errorf("%w: update for our leaf that we did not request", domain.ErrAuthentication)
	}
	if err := treekem.InstallPath(tree, c.Path); err != nil {
		return nil, err
	}
	fresh, commitSecret, err := treekem.DerivePathKeys(tree, m.leaf, m.pendingSeed, true)
	if err != nil {
		return nil, err
	}
	for x, k := range fresh {
		keys.Set(x, *k)
	}
	fresh.Wipe()
	return commitSecret, nil
}

// NewUpdateSeed draws the fresh leaf secret for a key update. The caller
// submits it as an update proposal; m keeps a copy to recognise the commit.
func (m *Member) NewUpdateSeed() ([]byte, error) {
	seed := make([]byte, keyschedule.SecretSize)
	if _, err := io.ReadFull(m.rand, seed); err != nil {
		return nil, err
	}
	memzero.Zero(m.pendingSeed)
	m.pendingSeed = bytes.Clone(seed)
	return seed, nil
}

// Encrypt seals plaintext as m under the current epoch.
func (m *Member) Encrypt(plaintext []byte) ([]byte, error) {
	if m.secret == nil {
		return nil, domain.ErrRemoved
	}
	return codec.Seal(m.rand, m.epochContext(), m.leaf, plaintext)
}

// Decrypt opens a message sent in m's current epoch.
func (m *Member) Decrypt(data []byte) (domain.DecryptedMessage, error) {
	if m.secret == nil {
		return domain.DecryptedMessage{}, domain.ErrRemoved
	}
	return codec.Open(m.epochContext(), m.tree.IsMember, data)
}

func (m *Member) epochContext() codec.EpochContext {
	return codec.EpochContext{GroupID: m.id, Epoch: m.epoch, Secret: m.secret}
}

// GroupID returns the group m belongs to.
func (m *Member) GroupID() domain.GroupID { return m.id }

// Epoch returns m's current epoch.
func (m *Member) Epoch() domain.Epoch { return m.epoch }

// Leaf returns m's leaf index.
func (m *Member) Leaf() domain.LeafIndex { return m.leaf }

// Identity returns m's credential identity.
func (m *Member) Identity() []byte { return bytes.Clone(m.identity) }

// TreeHash returns m's view of the tree hash.
func (m *Member) TreeHash() []byte { return m.tree.TreeHash() }

// MemberCount returns the number of members m sees.
func (m *Member) MemberCount() int { return m.tree.MemberCount() }

// Destroy wipes every secret m holds.
func (m *Member) Destroy() {
	memzero.Zero(m.secret)
	m.secret = nil
	m.keys.Wipe()
	memzero.Zero(m.pendingSeed)
	m.pendingSeed = nil
}
