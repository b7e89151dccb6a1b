package treekem

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"treegroup/internal/domain"
)

func TestNodeMath(t *testing.T) {
	assert.Equal(t, uint32(0), NodeWidth(0))
	assert.Equal(t, uint32(7), NodeWidth(4))
	assert.Equal(t, domain.NodeIndex(0), Root(1))
	assert.Equal(t, domain.NodeIndex(3), Root(3))
	assert.Equal(t, domain.NodeIndex(3), Root(4))
	assert.Equal(t, domain.NodeIndex(7), Root(5))

	assert.Equal(t, []domain.NodeIndex{1, 3}, DirectPath(0, 4))
	assert.Equal(t, []domain.NodeIndex{2, 5}, Copath(0, 4))
	assert.Equal(t, []domain.NodeIndex{5, 3}, DirectPath(6, 4))
	assert.Equal(t, []domain.NodeIndex{4, 1}, Copath(6, 4))

	// Truncated right edge.
	assert.Equal(t, []domain.NodeIndex{3}, DirectPath(4, 3))
	assert.Equal(t, []domain.NodeIndex{1}, Copath(4, 3))
	assert.Equal(t, []domain.NodeIndex{7}, DirectPath(8, 5))
	assert.Equal(t, []domain.NodeIndex{3}, Copath(8, 5))
	assert.Equal(t, domain.NodeIndex(4), right(3, 3))

	assert.Empty(t, DirectPath(0, 1))
	assert.Empty(t, Copath(0, 1))
}

func TestInSubtree(t *testing.T) {
	assert.True(t, inSubtree(0, 3))
	assert.True(t, inSubtree(6, 3))
	assert.False(t, inSubtree(8, 3))
	assert.True(t, inSubtree(4, 4))
	assert.False(t, inSubtree(2, 4))
}

func TestCopathCoversEveryOtherLeaf(t *testing.T) {
	for n := uint32(1); n <= 9; n++ {
		for a := uint32(0); a < n; a++ {
			x := LeafNode(domain.LeafIndex(a))
			cp := Copath(x, n)
			for b := uint32(0); b < n; b++ {
				if a == b {
					continue
				}
				hits := 0
				for _, c := range cp {
					if inSubtree(LeafNode(domain.LeafIndex(b)), c) {
						hits++
					}
				}
				assert.Equal(t, 1, hits, "n=%d a=%d b=%d", n, a, b)
			}
		}
	}
}
