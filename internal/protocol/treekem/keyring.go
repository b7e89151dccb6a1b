package treekem

import "treegroup/internal/domain"

// Keyring holds the HPKE private keys one party knows, by node index.
type Keyring map[domain.NodeIndex]*domain.X25519Private

// Set stores a copy of priv at x, wiping any key it replaces.
func (k Keyring) Set(x domain.NodeIndex, priv domain.X25519Private) {
	if old, ok := k[x]; ok {
		old.Wipe()
	}
	p := priv
	k[x] = &p
}

// Clone returns an independent copy of k.
func (k Keyring) Clone() Keyring {
	out := make(Keyring, len(k))
	for i, v := range k {
		c := *v
		out[i] = &c
	}
	return out
}

// Wipe zeroes and removes every key.
func (k Keyring) Wipe() {
	for i, v := range k {
		v.Wipe()
		delete(k, i)
	}
}

// Prune drops keys for nodes that are blank in t.
func (k Keyring) Prune(t *Tree) {
	for i, v := range k {
		if t.PublicKey(i) == nil {
			v.Wipe()
			delete(k, i)
		}
	}
}
