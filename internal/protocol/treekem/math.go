package treekem

import "treegroup/internal/domain"

// Node index arithmetic for a left-balanced tree with n leaves.

func log2(x uint32) uint32 {
	if x == 0 {
		return 0
	}
	k := uint32(0)
	for (x >> k) > 1 {
		k++
	}
	return k
}

func level(x domain.NodeIndex) uint32 {
	if x&1 == 0 {
		return 0
	}
	k := uint32(0)
	for (x>>k)&1 == 1 {
		k++
	}
	return k
}

// NodeWidth is the number of array slots a tree with n leaves occupies.
func NodeWidth(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return 2*(n-1) + 1
}

// Root returns the root node index of a tree with n leaves.
func Root(n uint32) domain.NodeIndex {
	w := NodeWidth(n)
	return domain.NodeIndex((uint32(1) << log2(w)) - 1)
}

// LeafNode maps a leaf index to its node index.
func LeafNode(l domain.LeafIndex) domain.NodeIndex { return domain.NodeIndex(2 * uint32(l)) }

func isLeaf(x domain.NodeIndex) bool { return x&1 == 0 }

func left(x domain.NodeIndex) domain.NodeIndex {
	k := level(x)
	if k == 0 {
		return x
	}
	return x ^ (1 << (k - 1))
}

func right(x domain.NodeIndex, n uint32) domain.NodeIndex {
	k := level(x)
	if k == 0 {
		return x
	}
	r := x ^ (3 << (k - 1))
	for uint32(r) >= NodeWidth(n) {
		r = left(r)
	}
	return r
}

func parentStep(x domain.NodeIndex) domain.NodeIndex {
	k := level(x)
	b := (x >> (k + 1)) & 1
	return (x | (1 << k)) ^ (b << (k + 1))
}

func parent(x domain.NodeIndex, n uint32) domain.NodeIndex {
	if x == Root(n) {
		return x
	}
	p := parentStep(x)
	for uint32(p) >= NodeWidth(n) {
		p = parentStep(p)
	}
	return p
}

func sibling(x domain.NodeIndex, n uint32) domain.NodeIndex {
	p := parent(x, n)
	if x < p {
		return right(p, n)
	}
	return left(p)
}

// DirectPath lists the ancestors of x from its parent up to the root.
func DirectPath(x domain.NodeIndex, n uint32) []domain.NodeIndex {
	r := Root(n)
	var d []domain.NodeIndex
	for x != r {
		x = parent(x, n)
		d = append(d, x)
	}
	return d
}

// Copath lists, for each node of x's direct path, its child that is not on
// the path. Copath(x)[i] is a child of DirectPath(x)[i].
func Copath(x domain.NodeIndex, n uint32) []domain.NodeIndex {
	dp := DirectPath(x, n)
	if len(dp) == 0 {
		return nil
	}
	below := append([]domain.NodeIndex{x}, dp[:len(dp)-1]...)
	out := make([]domain.NodeIndex, len(below))
	for i, y := range below {
		out[i] = sibling(y, n)
	}
	return out
}

// inSubtree reports whether x lies in the subtree rooted at c.
func inSubtree(x, c domain.NodeIndex) bool {
	span := int64(1)<<level(c) - 1
	d := int64(x) - int64(c)
	if d < 0 {
		d = -d
	}
	return d <= span
}
