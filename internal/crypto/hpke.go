package crypto

import (
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"

	"treegroup/internal/domain"
	"treegroup/internal/util/memzero"
)

// SeedSize is the length of the seed DeriveKeyPair expects.
const SeedSize = 32

var (
	suite  = hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305)
	scheme = hpke.KEM_X25519_HKDF_SHA256.Scheme()
)

// ErrHPKEOpen is returned when an HPKE ciphertext cannot be opened.
var ErrHPKEOpen = errors.New("hpke: open failed")

// DeriveKeyPair deterministically derives an HPKE key pair from a 32-byte
// seed. The same seed always yields the same pair.
func DeriveKeyPair(seed []byte) (pub []byte, priv domain.X25519Private, err error) {
	if len(seed) != scheme.SeedSize() {
		return nil, priv, fmt.Errorf("%w: hpke seed is %d bytes, want %d", domain.ErrDerivation, len(seed), scheme.SeedSize())
	}
	pk, sk := scheme.DeriveKeyPair(seed)
	return marshalPair(pk, sk)
}

// GenerateKeyPair draws a fresh seed from r and derives a key pair from it.
func GenerateKeyPair(r io.Reader) (pub []byte, priv domain.X25519Private, err error) {
	seed := make([]byte, scheme.SeedSize())
	defer memzero.Zero(seed)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, priv, fmt.Errorf("hpke keygen: %w", err)
	}
	return DeriveKeyPair(seed)
}

// PublicKeyFor recomputes the public key of priv.
func PublicKeyFor(priv domain.X25519Private) ([]byte, error) {
	sk, err := scheme.UnmarshalBinaryPrivateKey(priv[:])
	if err != nil {
		return nil, err
	}
	return sk.Public().MarshalBinary()
}

// Seal encrypts pt to pub in one shot. info and aad bind the ciphertext to
// its purpose and context.
func Seal(r io.Reader, pub, info, aad, pt []byte) (domain.HPKECiphertext, error) {
	pk, err := scheme.UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return domain.HPKECiphertext{}, fmt.Errorf("hpke seal: %w", err)
	}
	sender, err := suite.NewSender(pk, info)
	if err != nil {
		return domain.HPKECiphertext{}, fmt.Errorf("hpke seal: %w", err)
	}
	enc, sealer, err := sender.Setup(r)
	if err != nil {
		return domain.HPKECiphertext{}, fmt.Errorf("hpke seal: %w", err)
	}
	ct, err := sealer.Seal(pt, aad)
	if err != nil {
		return domain.HPKECiphertext{}, fmt.Errorf("hpke seal: %w", err)
	}
	return domain.HPKECiphertext{KEMOutput: enc, Ciphertext: ct}, nil
}

// Open decrypts ct with priv. Any failure returns ErrHPKEOpen.
func Open(priv domain.X25519Private, info, aad []byte, ct domain.HPKECiphertext) ([]byte, error) {
	sk, err := scheme.UnmarshalBinaryPrivateKey(priv[:])
	if err != nil {
		return nil, ErrHPKEOpen
	}
	receiver, err := suite.NewReceiver(sk, info)
	if err != nil {
		return nil, ErrHPKEOpen
	}
	opener, err := receiver.Setup(ct.KEMOutput)
	if err != nil {
		return nil, ErrHPKEOpen
	}
	pt, err := opener.Open(ct.Ciphertext, aad)
	if err != nil {
		return nil, ErrHPKEOpen
	}
	return pt, nil
}

func marshalPair(pk kem.PublicKey, sk kem.PrivateKey) ([]byte, domain.X25519Private, error) {
	var priv domain.X25519Private
	pub, err := pk.MarshalBinary()
	if err != nil {
		return nil, priv, err
	}
	raw, err := sk.MarshalBinary()
	if err != nil {
		return nil, priv, err
	}
	defer memzero.Zero(raw)
	if len(raw) != len(priv) {
		return nil, priv, fmt.Errorf("%w: unexpected private key size %d", domain.ErrDerivation, len(raw))
	}
	copy(priv[:], raw)
	return pub, priv, nil
}
