package group

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"treegroup/internal/domain"
	"treegroup/internal/protocol/codec"
	"treegroup/internal/protocol/keyschedule"
	"treegroup/internal/protocol/treekem"
	"treegroup/internal/util/memzero"
)

// InitialEpoch is the epoch of a newly created group.
const InitialEpoch domain.Epoch = 1

// State is one epoch of one group.
type State struct {
	id           domain.GroupID
	epoch        domain.Epoch
	tree         *treekem.Tree
	secret       []byte
	treeHash     []byte
	changeDigest []byte
	change       domain.ProposalKind
}

// Outcome is what members need to follow a transition.
type Outcome struct {
	Commit  domain.Commit
	Welcome *domain.Welcome
}

// New creates the first epoch of an empty group. The epoch secret is
// derived from a random initial secret.
func New(r io.Reader, id domain.GroupID) (*State, error) {
	if len(id) == 0 {
		return nil, fmt.Errorf("%w: empty group id", domain.ErrInvalidProposal)
	}
	initSecret, err := randomSecret(r)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(initSecret)

	tree := treekem.New()
	digest := sha256.Sum256(append([]byte("treegroup create "), id.Bytes()...))
	st := &State{
		id:           id,
		epoch:        InitialEpoch,
		tree:         tree,
		treeHash:     tree.TreeHash(),
		changeDigest: digest[:],
	}
	commitSecret := make([]byte, keyschedule.SecretSize)
	st.secret, err = keyschedule.DeriveEpochSecret(initSecret, st.transcript(commitSecret))
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Apply computes the state that results from committing p on top of s.
// s is left untouched.
func (s *State) Apply(r io.Reader, signer domain.Signer, p domain.Proposal) (*State, Outcome, error) {
	if s.secret == nil {
		return nil, Outcome{}, fmt.Errorf("%w: state destroyed", domain.ErrNotFound)
	}
	if p.GroupID != s.id {
		return nil, Outcome{}, fmt.Errorf("%w: proposal for group %s", domain.ErrInvalidProposal, p.GroupID)
	}
	if p.Epoch != s.epoch {
		return nil, Outcome{}, fmt.Errorf("%w: proposal made at epoch %d, group is at %d",
			domain.ErrConcurrentCommitConflict, p.Epoch, s.epoch)
	}

	next := &State{
		id:     s.id,
		epoch:  s.epoch + 1,
		tree:   s.tree.Clone(),
		change: p.Kind,
	}
	commit := domain.Commit{GroupID: s.id, Epoch: next.epoch, Kind: p.Kind}
	aad := treekem.PathAAD(s.id, next.epoch)

	var (
		leafSecret []byte
		rekeyLeaf  bool
		err        error
	)
	switch p.Kind {
	case domain.ProposalAdd:
		if p.KeyPackage == nil {
			return nil, Outcome{}, fmt.Errorf("%w: add without key package", domain.ErrInvalidProposal)
		}
		if err := VerifyKeyPackage(*p.KeyPackage); err != nil {
			return nil, Outcome{}, err
		}
		if _, dup := next.tree.FindMember(p.KeyPackage.Credential.Identity); dup {
			return nil, Outcome{}, fmt.Errorf("%w: identity already a member", domain.ErrInvalidProposal)
		}
		commit.Leaf = next.tree.AddLeaf(p.KeyPackage.Credential, p.KeyPackage.InitKey)
		kp := cloneKeyPackage(*p.KeyPackage)
		commit.KeyPackage = &kp
		if leafSecret, err = randomSecret(r); err != nil {
			return nil, Outcome{}, err
		}
	case domain.ProposalRemove:
		if err := next.tree.BlankPath(p.Leaf); err != nil {
			return nil, Outcome{}, fmt.Errorf("%w: leaf %d", domain.ErrNotMember, p.Leaf)
		}
		commit.Leaf = p.Leaf
		if leafSecret, err = randomSecret(r); err != nil {
			return nil, Outcome{}, err
		}
	case domain.ProposalUpdate:
		if !next.tree.IsMember(p.Leaf) {
			return nil, Outcome{}, fmt.Errorf("%w: leaf %d", domain.ErrNotMember, p.Leaf)
		}
		if len(p.Seed) != keyschedule.SecretSize {
			return nil, Outcome{}, fmt.Errorf("%w: update seed is %d bytes", domain.ErrInvalidProposal, len(p.Seed))
		}
		commit.Leaf = p.Leaf
		leafSecret = bytes.Clone(p.Seed)
		rekeyLeaf = true
	default:
		return nil, Outcome{}, fmt.Errorf("%w: kind %d", domain.ErrInvalidProposal, p.Kind)
	}
	defer memzero.Zero(leafSecret)

	path, commitSecret, err := treekem.GeneratePath(r, next.tree, commit.Leaf, leafSecret, rekeyLeaf, aad)
	if err != nil {
		return nil, Outcome{}, err
	}
	defer memzero.Zero(commitSecret)
	commit.Path = path

	next.treeHash = next.tree.TreeHash()
	digest := sha256.Sum256(codec.CommitContent(commit))
	next.changeDigest = digest[:]

	tr := next.transcript(commitSecret)
	joiner, err := keyschedule.JoinerSecret(s.secret, tr)
	if err != nil {
		return nil, Outcome{}, err
	}
	defer memzero.Zero(joiner)
	if next.secret, err = keyschedule.EpochFromJoiner(joiner, tr); err != nil {
		return nil, Outcome{}, err
	}
	if commit.ConfirmationTag, err = keyschedule.ConfirmationTag(next.secret, tr); err != nil {
		next.Destroy()
		return nil, Outcome{}, err
	}
	commit.Signature = signer.Sign(codec.CommitTBS(commit))

	out := Outcome{Commit: commit}
	if p.Kind == domain.ProposalAdd {
		w, err := next.welcome(r, signer, commit, joiner, leafSecret)
		if err != nil {
			next.Destroy()
			return nil, Outcome{}, err
		}
		out.Welcome = &w
	}
	return next, out, nil
}

func (s *State) welcome(
	r io.Reader,
	signer domain.Signer,
	commit domain.Commit,
	joiner, leafSecret []byte,
) (domain.Welcome, error) {
	w := domain.Welcome{
		GroupID:         s.id,
		Epoch:           s.epoch,
		Leaf:            commit.Leaf,
		LeafCount:       s.tree.LeafCount(),
		Tree:            s.tree.Nodes(),
		ChangeDigest:    bytes.Clone(s.changeDigest),
		TreeHash:        bytes.Clone(s.treeHash),
		SignerKey:       signer.PublicKey(),
		ConfirmationTag: bytes.Clone(commit.ConfirmationTag),
	}
	secrets := codec.GroupSecrets{JoinerSecret: joiner, LeafSecret: leafSecret}.Marshal()
	defer memzero.Zero(secrets)
	ct, err := sealWelcome(r, commit.KeyPackage.InitKey, w, secrets)
	if err != nil {
		return domain.Welcome{}, err
	}
	w.Secrets = ct
	w.Signature = signer.Sign(codec.WelcomeTBS(w))
	return w, nil
}

func (s *State) transcript(commitSecret []byte) keyschedule.Transcript {
	return keyschedule.Transcript{
		GroupID:      s.id,
		Epoch:        s.epoch,
		TreeHash:     s.treeHash,
		ChangeDigest: s.changeDigest,
		CommitSecret: commitSecret,
	}
}

// ID returns the group identifier.
func (s *State) ID() domain.GroupID { return s.id }

// Epoch returns the current epoch.
func (s *State) Epoch() domain.Epoch { return s.epoch }

// MemberCount returns the number of members.
func (s *State) MemberCount() int { return s.tree.MemberCount() }

// IsMember reports whether leaf l is occupied.
func (s *State) IsMember(l domain.LeafIndex) bool { return s.tree.IsMember(l) }

// FindMember returns the leaf of the member with the given identity.
func (s *State) FindMember(identity []byte) (domain.LeafIndex, bool) {
	return s.tree.FindMember(identity)
}

// TreeHash returns the tree hash of the current epoch.
func (s *State) TreeHash() []byte { return bytes.Clone(s.treeHash) }

// Change returns the kind of proposal that produced this epoch, zero for a
// freshly created group.
func (s *State) Change() domain.ProposalKind { return s.change }

// Info returns the public summary of s.
func (s *State) Info() domain.GroupInfo {
	members := s.tree.Members()
	return domain.GroupInfo{
		GroupID:     s.id,
		Epoch:       s.epoch,
		MemberCount: len(members),
		Members:     members,
		TreeHash:    bytes.Clone(s.treeHash),
	}
}

// EpochContext exposes the epoch secret to the message codec. The returned
// secret aliases s and is valid only until s is destroyed.
func (s *State) EpochContext() codec.EpochContext {
	return codec.EpochContext{GroupID: s.id, Epoch: s.epoch, Secret: s.secret}
}

// Destroy wipes the epoch secret. s must not be used afterwards.
func (s *State) Destroy() {
	memzero.Zero(s.secret)
	s.secret = nil
}

// Destroyed reports whether Destroy was called.
func (s *State) Destroyed() bool { return s.secret == nil }

func randomSecret(r io.Reader) ([]byte, error) {
	b := make([]byte, keyschedule.SecretSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("random secret: %w", err)
	}
	return b, nil
}

func cloneKeyPackage(kp domain.KeyPackage) domain.KeyPackage {
	return domain.KeyPackage{
		Credential: domain.Credential{
			Identity:     bytes.Clone(kp.Credential.Identity),
			SignatureKey: kp.Credential.SignatureKey,
		},
		InitKey:   bytes.Clone(kp.InitKey),
		Signature: bytes.Clone(kp.Signature),
	}
}
