package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"treegroup/internal/util/memzero"
)

// envelopeVersion is the current on-disk format of sealed files.
const envelopeVersion = 2

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// sealed file was modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted file")

// KDFParams are the scrypt cost parameters used when sealing.
type KDFParams struct {
	N, R, P int
}

// DefaultKDFParams is used unless a store is configured otherwise.
var DefaultKDFParams = KDFParams{N: 1 << 15, R: 8, P: 1}

// envelope is the on-disk JSON structure holding the ciphertext and the
// parameters needed to re-derive its key.
type envelope struct {
	V       int    `json:"v"`
	Purpose string `json:"purpose"`
	Salt    []byte `json:"salt"`
	N       int    `json:"scrypt_N"`
	R       int    `json:"scrypt_r"`
	P       int    `json:"scrypt_p"`
	Nonce   []byte `json:"nonce"`
	Cipher  []byte `json:"cipher"`
}

func (e envelope) aad() []byte {
	return fmt.Appendf(nil, "treegroup/%d/%s/%x", e.V, e.Purpose, e.Salt)
}

// seal derives a key from passphrase and encrypts raw under it. purpose is
// bound into the ciphertext so a file cannot be swapped for another kind.
func seal(passphrase, purpose string, raw []byte, kp KDFParams) ([]byte, error) {
	env := envelope{V: envelopeVersion, Purpose: purpose, N: kp.N, R: kp.R, P: kp.P}
	env.Salt = make([]byte, 16)
	if _, err := rand.Read(env.Salt); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), env.Salt, kp.N, kp.R, kp.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	env.Nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(env.Nonce); err != nil {
		return nil, err
	}
	env.Cipher = aead.Seal(nil, env.Nonce, raw, env.aad())
	return json.Marshal(env)
}

// open reverses seal.
func open(passphrase, purpose string, b []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("sealed file: %w", err)
	}
	if env.V != envelopeVersion {
		return nil, fmt.Errorf("unsupported sealed file version %d", env.V)
	}
	if env.Purpose != purpose {
		return nil, fmt.Errorf("sealed file holds %q, want %q", env.Purpose, purpose)
	}
	key, err := scrypt.Key([]byte(passphrase), env.Salt, env.N, env.R, env.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := aead.Open(nil, env.Nonce, env.Cipher, env.aad())
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
