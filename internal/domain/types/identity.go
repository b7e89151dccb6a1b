package types

// Identity holds a long-term Ed25519 signing key pair. The engine signs
// commits and welcomes with it; members sign their key packages with theirs.
type Identity struct {
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}

// Credential is the public, long-term identity a member presents to a group.
type Credential struct {
	Identity     []byte        `json:"identity"`
	SignatureKey Ed25519Public `json:"signature_key"`
}

// KeyPackage is what a prospective member publishes so it can be added:
// its credential, a fresh HPKE init key, and a signature over both made with
// the credential's signing key.
type KeyPackage struct {
	Credential Credential `json:"credential"`
	InitKey    []byte     `json:"init_key"`
	Signature  []byte     `json:"signature"`
}

// MemberIdentity is a credential bound to the leaf it occupies.
type MemberIdentity struct {
	Credential Credential `json:"credential"`
	Leaf       LeafIndex  `json:"leaf"`
}
