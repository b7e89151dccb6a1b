package treekem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treegroup/internal/domain"
	"treegroup/internal/protocol/treekem"
)

func cred(name string) domain.Credential {
	return domain.Credential{Identity: []byte(name)}
}

func TestAddLeafReusesLeftmostBlank(t *testing.T) {
	tr := treekem.New()
	for _, name := range []string{"a", "b", "c"} {
		tr.AddLeaf(cred(name), []byte(name+"-key"))
	}
	require.Equal(t, uint32(3), tr.LeafCount())
	require.NoError(t, tr.BlankPath(1))
	assert.False(t, tr.IsMember(1))
	assert.Equal(t, 2, tr.MemberCount())

	l := tr.AddLeaf(cred("d"), []byte("d-key"))
	assert.Equal(t, domain.LeafIndex(1), l)
	assert.Equal(t, uint32(3), tr.LeafCount())

	l = tr.AddLeaf(cred("e"), []byte("e-key"))
	assert.Equal(t, domain.LeafIndex(3), l)
	assert.Equal(t, uint32(4), tr.LeafCount())

	got, ok := tr.FindMember([]byte("d"))
	require.True(t, ok)
	assert.Equal(t, domain.LeafIndex(1), got)

	assert.Error(t, tr.BlankPath(9))
}

func TestTreeHashTracksContent(t *testing.T) {
	empty := treekem.New().TreeHash()
	tr := treekem.New()
	tr.AddLeaf(cred("a"), []byte("a-key"))
	h1 := tr.TreeHash()
	assert.NotEqual(t, empty, h1)

	clone := tr.Clone()
	assert.Equal(t, h1, clone.TreeHash())

	clone.AddLeaf(cred("b"), []byte("b-key"))
	assert.NotEqual(t, h1, clone.TreeHash())
	assert.Equal(t, h1, tr.TreeHash(), "clone must not share nodes")
}

func TestSnapshotRoundTrip(t *testing.T) {
	tr := treekem.New()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		tr.AddLeaf(cred(name), []byte(name+"-key"))
	}
	require.NoError(t, tr.BlankPath(2))

	back, err := treekem.FromNodes(tr.LeafCount(), tr.Nodes())
	require.NoError(t, err)
	assert.Equal(t, tr.TreeHash(), back.TreeHash())
	assert.Equal(t, tr.Members(), back.Members())

	_, err = treekem.FromNodes(1, []domain.TreeNode{{Index: 4, PublicKey: []byte("x")}})
	assert.ErrorIs(t, err, domain.ErrTreeInvariant)
}

func TestResolutionSkipsBlanks(t *testing.T) {
	tr := treekem.New()
	for _, name := range []string{"a", "b", "c", "d"} {
		tr.AddLeaf(cred(name), []byte(name+"-key"))
	}
	assert.Equal(t, []domain.NodeIndex{0, 2, 4, 6}, tr.Resolution(3))
	require.NoError(t, tr.BlankPath(0))
	assert.Equal(t, []domain.NodeIndex{2, 4, 6}, tr.Resolution(3))

	assert.Empty(t, tr.Resolution(0))
}
