package types

// TreeNode is the public content of one non-blank ratchet tree node. Blank
// nodes are omitted from snapshots.
type TreeNode struct {
	Index      NodeIndex   `json:"index"`
	PublicKey  []byte      `json:"public_key"`
	Credential *Credential `json:"credential,omitempty"` // leaves only
}

// HPKECiphertext is a single-shot HPKE encryption.
type HPKECiphertext struct {
	KEMOutput  []byte `json:"kem_output"`
	Ciphertext []byte `json:"ciphertext"`
}

// UpdatePathNode carries the new public key of one direct-path node and its
// path secret encrypted to every node in the resolution of the copath child.
type UpdatePathNode struct {
	PublicKey           []byte           `json:"public_key"`
	EncryptedPathSecret []HPKECiphertext `json:"encrypted_path_secret"`
}

// UpdatePath re-keys the direct path of Leaf, bottom-up.
type UpdatePath struct {
	Leaf    LeafIndex        `json:"leaf"`
	LeafKey []byte           `json:"leaf_key,omitempty"` // set when the leaf itself is re-keyed
	Nodes   []UpdatePathNode `json:"nodes"`
}
