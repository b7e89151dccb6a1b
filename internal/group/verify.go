package group

import (
	"fmt"
	"io"

	"treegroup/internal/crypto"
	"treegroup/internal/domain"
	"treegroup/internal/protocol/codec"
	"treegroup/internal/protocol/treekem"
)

const welcomeInfo = "treegroup welcome"

// VerifyKeyPackage checks that kp is signed by its own credential and
// carries a usable init key.
func VerifyKeyPackage(kp domain.KeyPackage) error {
	if len(kp.Credential.Identity) == 0 {
		return fmt.Errorf("%w: key package has no identity", domain.ErrInvalidProposal)
	}
	if len(kp.InitKey) != len(domain.X25519Public{}) {
		return fmt.Errorf("%w: init key is %d bytes", domain.ErrInvalidProposal, len(kp.InitKey))
	}
	if !crypto.VerifyEd25519(kp.Credential.SignatureKey, codec.KeyPackageTBS(kp), kp.Signature) {
		return fmt.Errorf("%w: key package signature", domain.ErrAuthentication)
	}
	return nil
}

// VerifyCommit checks the engine's signature on c.
func VerifyCommit(c domain.Commit, engine domain.Ed25519Public) error {
	if !crypto.VerifyEd25519(engine, codec.CommitTBS(c), c.Signature) {
		return fmt.Errorf("%w: commit signature", domain.ErrAuthentication)
	}
	return nil
}

// VerifyWelcome checks the engine's signature on w.
func VerifyWelcome(w domain.Welcome) error {
	if !crypto.VerifyEd25519(w.SignerKey, codec.WelcomeTBS(w), w.Signature) {
		return fmt.Errorf("%w: welcome signature", domain.ErrAuthentication)
	}
	return nil
}

func welcomeAAD(w domain.Welcome) []byte {
	return append(treekem.PathAAD(w.GroupID, w.Epoch), byte(w.Leaf>>24), byte(w.Leaf>>16), byte(w.Leaf>>8), byte(w.Leaf))
}

func sealWelcome(r io.Reader, initKey []byte, w domain.Welcome, secrets []byte) (domain.HPKECiphertext, error) {
	return crypto.Seal(r, initKey, []byte(welcomeInfo), welcomeAAD(w), secrets)
}

// OpenWelcome decrypts the group secrets of w with the init private key of
// the key package it was addressed to.
func OpenWelcome(w domain.Welcome, initPriv domain.X25519Private) (codec.GroupSecrets, error) {
	pt, err := crypto.Open(initPriv, []byte(welcomeInfo), welcomeAAD(w), w.Secrets)
	if err != nil {
		return codec.GroupSecrets{}, fmt.Errorf("%w: welcome secrets: %v", domain.ErrAuthentication, err)
	}
	return codec.UnmarshalGroupSecrets(pt)
}
