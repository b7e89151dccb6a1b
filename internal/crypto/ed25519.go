package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"treegroup/internal/domain"
)

// GenerateEd25519 returns a new Ed25519 signing key pair.
func GenerateEd25519() (priv domain.Ed25519Private, pub domain.Ed25519Public, err error) {
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return priv, pub, err
	}
	copy(priv[:], sk)
	copy(pub[:], pk)
	return priv, pub, nil
}

// SignEd25519 signs msg with priv and returns the signature.
func SignEd25519(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// VerifyEd25519 verifies sig over msg with pub.
func VerifyEd25519(pub domain.Ed25519Public, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}

// IdentitySigner signs with a long-term identity.
type IdentitySigner struct {
	id domain.Identity
}

var _ domain.Signer = (*IdentitySigner)(nil)

// NewSigner wraps id. The signer keeps a copy of the private key.
func NewSigner(id domain.Identity) *IdentitySigner {
	return &IdentitySigner{id: id}
}

// NewEphemeralSigner returns a signer over a freshly generated identity.
func NewEphemeralSigner() (*IdentitySigner, error) {
	priv, pub, err := GenerateEd25519()
	if err != nil {
		return nil, err
	}
	return NewSigner(domain.Identity{EdPub: pub, EdPriv: priv}), nil
}

// Sign implements domain.Signer.
func (s *IdentitySigner) Sign(msg []byte) []byte { return SignEd25519(s.id.EdPriv, msg) }

// PublicKey implements domain.Signer.
func (s *IdentitySigner) PublicKey() domain.Ed25519Public { return s.id.EdPub }
