package member

import (
	"bytes"
	"fmt"
	"io"

	"treegroup/internal/crypto"
	"treegroup/internal/domain"
	"treegroup/internal/protocol/codec"
)

// Pending holds the private half of a published key package until the
// matching welcome arrives.
type Pending struct {
	kp       domain.KeyPackage
	initPriv domain.X25519Private
	signer   domain.Signer
}

// NewKeyPackage creates a key package for identity, signed by signer.
func NewKeyPackage(r io.Reader, signer domain.Signer, identity []byte) (domain.KeyPackage, *Pending, error) {
	if len(identity) == 0 {
		return domain.KeyPackage{}, nil, fmt.Errorf("%w: empty identity", domain.ErrInvalidProposal)
	}
	pub, priv, err := crypto.GenerateKeyPair(r)
	if err != nil {
		return domain.KeyPackage{}, nil, err
	}
	kp := domain.KeyPackage{
		Credential: domain.Credential{Identity: bytes.Clone(identity), SignatureKey: signer.PublicKey()},
		InitKey:    pub,
	}
	kp.Signature = signer.Sign(codec.KeyPackageTBS(kp))
	return kp, &Pending{kp: kp, initPriv: priv, signer: signer}, nil
}

// KeyPackage returns the public key package.
func (p *Pending) KeyPackage() domain.KeyPackage { return p.kp }

// Discard wipes the init private key.
func (p *Pending) Discard() { p.initPriv.Wipe() }
