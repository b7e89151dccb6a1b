package group_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treegroup/internal/crypto"
	"treegroup/internal/domain"
	"treegroup/internal/group"
	"treegroup/internal/protocol/codec"
)

func keyPackage(t *testing.T, name string) (domain.KeyPackage, domain.X25519Private) {
	t.Helper()
	s, err := crypto.NewEphemeralSigner()
	require.NoError(t, err)
	pub, priv, err := crypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	kp := domain.KeyPackage{
		Credential: domain.Credential{Identity: []byte(name), SignatureKey: s.PublicKey()},
		InitKey:    pub,
	}
	kp.Signature = s.Sign(codec.KeyPackageTBS(kp))
	return kp, priv
}

func addProposal(st *group.State, kp domain.KeyPackage) domain.Proposal {
	return domain.Proposal{Kind: domain.ProposalAdd, GroupID: st.ID(), Epoch: st.Epoch(), KeyPackage: &kp}
}

func newGroup(t *testing.T) (*group.State, domain.Signer) {
	t.Helper()
	st, err := group.New(rand.Reader, domain.GroupID("g1"))
	require.NoError(t, err)
	signer, err := crypto.NewEphemeralSigner()
	require.NoError(t, err)
	return st, signer
}

func TestNewGroup(t *testing.T) {
	st, _ := newGroup(t)
	assert.Equal(t, group.InitialEpoch, st.Epoch())
	assert.Equal(t, 0, st.MemberCount())
	assert.Len(t, st.EpochContext().Secret, 32)

	other, err := group.New(rand.Reader, domain.GroupID("g1"))
	require.NoError(t, err)
	assert.NotEqual(t, st.EpochContext().Secret, other.EpochContext().Secret)

	_, err = group.New(rand.Reader, "")
	assert.ErrorIs(t, err, domain.ErrInvalidProposal)
}

func TestApplyAddLeavesReceiverUntouched(t *testing.T) {
	st, signer := newGroup(t)
	before := bytes.Clone(st.EpochContext().Secret)
	kp, _ := keyPackage(t, "alice")

	next, out, err := st.Apply(rand.Reader, signer, addProposal(st, kp))
	require.NoError(t, err)

	assert.Equal(t, domain.Epoch(1), st.Epoch())
	assert.Equal(t, 0, st.MemberCount())
	assert.Equal(t, before, st.EpochContext().Secret)

	assert.Equal(t, domain.Epoch(2), next.Epoch())
	assert.Equal(t, 1, next.MemberCount())
	assert.NotEqual(t, before, next.EpochContext().Secret)
	assert.Equal(t, domain.ProposalAdd, next.Change())

	require.NotNil(t, out.Welcome)
	assert.Equal(t, domain.Epoch(2), out.Commit.Epoch)
	assert.NoError(t, group.VerifyCommit(out.Commit, signer.PublicKey()))
	assert.NoError(t, group.VerifyWelcome(*out.Welcome))
	assert.Equal(t, next.TreeHash(), out.Welcome.TreeHash)
}

func TestApplyWelcomeOpensOnlyForJoiner(t *testing.T) {
	st, signer := newGroup(t)
	kp, priv := keyPackage(t, "alice")
	_, out, err := st.Apply(rand.Reader, signer, addProposal(st, kp))
	require.NoError(t, err)

	secrets, err := group.OpenWelcome(*out.Welcome, priv)
	require.NoError(t, err)
	assert.Len(t, secrets.JoinerSecret, 32)
	assert.Len(t, secrets.LeafSecret, 32)

	_, other := keyPackage(t, "mallory")
	_, err = group.OpenWelcome(*out.Welcome, other)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestApplyRejects(t *testing.T) {
	st, signer := newGroup(t)
	kp, _ := keyPackage(t, "alice")
	next, _, err := st.Apply(rand.Reader, signer, addProposal(st, kp))
	require.NoError(t, err)

	t.Run("stale proposal", func(t *testing.T) {
		bob, _ := keyPackage(t, "bob")
		_, _, err := next.Apply(rand.Reader, signer, addProposal(st, bob))
		assert.ErrorIs(t, err, domain.ErrConcurrentCommitConflict)
	})
	t.Run("other group", func(t *testing.T) {
		bob, _ := keyPackage(t, "bob")
		p := addProposal(next, bob)
		p.GroupID = "g2"
		_, _, err := next.Apply(rand.Reader, signer, p)
		assert.ErrorIs(t, err, domain.ErrInvalidProposal)
	})
	t.Run("bad key package signature", func(t *testing.T) {
		bob, _ := keyPackage(t, "bob")
		bob.Signature[0] ^= 1
		_, _, err := next.Apply(rand.Reader, signer, addProposal(next, bob))
		assert.ErrorIs(t, err, domain.ErrAuthentication)
	})
	t.Run("duplicate identity", func(t *testing.T) {
		again, _ := keyPackage(t, "alice")
		_, _, err := next.Apply(rand.Reader, signer, addProposal(next, again))
		assert.ErrorIs(t, err, domain.ErrInvalidProposal)
	})
	t.Run("remove non-member", func(t *testing.T) {
		p := domain.Proposal{Kind: domain.ProposalRemove, GroupID: next.ID(), Epoch: next.Epoch(), Leaf: 5}
		_, _, err := next.Apply(rand.Reader, signer, p)
		assert.ErrorIs(t, err, domain.ErrNotMember)
	})
	t.Run("short update seed", func(t *testing.T) {
		p := domain.Proposal{Kind: domain.ProposalUpdate, GroupID: next.ID(), Epoch: next.Epoch(), Seed: []byte{1}}
		_, _, err := next.Apply(rand.Reader, signer, p)
		assert.ErrorIs(t, err, domain.ErrInvalidProposal)
	})
	t.Run("unknown kind", func(t *testing.T) {
		p := domain.Proposal{Kind: 9, GroupID: next.ID(), Epoch: next.Epoch()}
		_, _, err := next.Apply(rand.Reader, signer, p)
		assert.ErrorIs(t, err, domain.ErrInvalidProposal)
	})
}

func TestRemoveLastMemberEmptiesGroup(t *testing.T) {
	st, signer := newGroup(t)
	kp, _ := keyPackage(t, "alice")
	next, _, err := st.Apply(rand.Reader, signer, addProposal(st, kp))
	require.NoError(t, err)

	p := domain.Proposal{Kind: domain.ProposalRemove, GroupID: next.ID(), Epoch: next.Epoch(), Leaf: 0}
	last, out, err := next.Apply(rand.Reader, signer, p)
	require.NoError(t, err)
	assert.Equal(t, 0, last.MemberCount())
	assert.Nil(t, out.Welcome)
}

func TestDestroyWipesSecret(t *testing.T) {
	st, signer := newGroup(t)
	secret := st.EpochContext().Secret
	st.Destroy()
	assert.True(t, st.Destroyed())
	assert.Equal(t, make([]byte, 32), secret)

	kp, _ := keyPackage(t, "alice")
	_, _, err := st.Apply(rand.Reader, signer, addProposal(st, kp))
	assert.Error(t, err)
}
