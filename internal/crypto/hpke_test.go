package crypto_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treegroup/internal/crypto"
	"treegroup/internal/domain"
)

func TestDeriveKeyPairDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, crypto.SeedSize)
	pub1, priv1, err := crypto.DeriveKeyPair(seed)
	require.NoError(t, err)
	pub2, priv2, err := crypto.DeriveKeyPair(seed)
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2)
	assert.Equal(t, priv1, priv2)

	again, err := crypto.PublicKeyFor(priv1)
	require.NoError(t, err)
	assert.Equal(t, pub1, again)

	_, _, err = crypto.DeriveKeyPair(seed[:16])
	assert.True(t, errors.Is(err, domain.ErrDerivation))
}

func TestSealOpen(t *testing.T) {
	pub, priv, err := crypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	ct, err := crypto.Seal(rand.Reader, pub, []byte("info"), []byte("aad"), []byte("secret"))
	require.NoError(t, err)

	pt, err := crypto.Open(priv, []byte("info"), []byte("aad"), ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), pt)

	_, err = crypto.Open(priv, []byte("info"), []byte("other"), ct)
	assert.ErrorIs(t, err, crypto.ErrHPKEOpen)

	_, other, err := crypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	_, err = crypto.Open(other, []byte("info"), []byte("aad"), ct)
	assert.ErrorIs(t, err, crypto.ErrHPKEOpen)
}

func TestSignerVerifies(t *testing.T) {
	s, err := crypto.NewEphemeralSigner()
	require.NoError(t, err)
	sig := s.Sign([]byte("commit"))
	assert.True(t, crypto.VerifyEd25519(s.PublicKey(), []byte("commit"), sig))
	assert.False(t, crypto.VerifyEd25519(s.PublicKey(), []byte("commit!"), sig))
	assert.False(t, crypto.VerifyEd25519(s.PublicKey(), []byte("commit"), sig[:10]))
}
