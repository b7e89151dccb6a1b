package keyschedule_test

import (
	"bytes"
	"errors"
	"testing"

	"treegroup/internal/domain"
	"treegroup/internal/protocol/keyschedule"
)

func transcript(epoch domain.Epoch, commit byte) keyschedule.Transcript {
	return keyschedule.Transcript{
		GroupID:      domain.GroupID("group-1"),
		Epoch:        epoch,
		TreeHash:     bytes.Repeat([]byte{0xaa}, 32),
		ChangeDigest: bytes.Repeat([]byte{0xbb}, 32),
		CommitSecret: bytes.Repeat([]byte{commit}, keyschedule.SecretSize),
	}
}

func TestDeriveEpochSecret_Deterministic(t *testing.T) {
	prev := bytes.Repeat([]byte{1}, keyschedule.SecretSize)
	a, err := keyschedule.DeriveEpochSecret(prev, transcript(2, 9))
	if err != nil {
		t.Fatalf("DeriveEpochSecret: %v", err)
	}
	b, err := keyschedule.DeriveEpochSecret(prev, transcript(2, 9))
	if err != nil {
		t.Fatalf("DeriveEpochSecret: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("same inputs produced different secrets")
	}
	if bytes.Equal(a, prev) {
		t.Fatalf("epoch secret equals previous secret")
	}
}

func TestDeriveEpochSecret_InputsMatter(t *testing.T) {
	prev := bytes.Repeat([]byte{1}, keyschedule.SecretSize)
	base, _ := keyschedule.DeriveEpochSecret(prev, transcript(2, 9))

	cases := map[string]func() ([]byte, error){
		"commit secret": func() ([]byte, error) { return keyschedule.DeriveEpochSecret(prev, transcript(2, 8)) },
		"epoch":         func() ([]byte, error) { return keyschedule.DeriveEpochSecret(prev, transcript(3, 9)) },
		"previous": func() ([]byte, error) {
			return keyschedule.DeriveEpochSecret(bytes.Repeat([]byte{2}, keyschedule.SecretSize), transcript(2, 9))
		},
		"tree hash": func() ([]byte, error) {
			tr := transcript(2, 9)
			tr.TreeHash = []byte{1}
			return keyschedule.DeriveEpochSecret(prev, tr)
		},
	}
	for name, fn := range cases {
		got, err := fn()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if bytes.Equal(got, base) {
			t.Fatalf("%s: changing input did not change the secret", name)
		}
	}
}

func TestJoinerPathMatchesFullDerivation(t *testing.T) {
	prev := bytes.Repeat([]byte{5}, keyschedule.SecretSize)
	tr := transcript(7, 3)
	full, err := keyschedule.DeriveEpochSecret(prev, tr)
	if err != nil {
		t.Fatalf("DeriveEpochSecret: %v", err)
	}
	joiner, err := keyschedule.JoinerSecret(prev, tr)
	if err != nil {
		t.Fatalf("JoinerSecret: %v", err)
	}
	viaJoiner, err := keyschedule.EpochFromJoiner(joiner, tr)
	if err != nil {
		t.Fatalf("EpochFromJoiner: %v", err)
	}
	if !bytes.Equal(full, viaJoiner) {
		t.Fatalf("joiner path diverged")
	}
}

func TestDeriveMessageKey_PerSender(t *testing.T) {
	epoch := bytes.Repeat([]byte{3}, keyschedule.SecretSize)
	seen := map[string]domain.LeafIndex{}
	for s := domain.LeafIndex(0); s < 8; s++ {
		k, err := keyschedule.DeriveMessageKey(epoch, s)
		if err != nil {
			t.Fatalf("DeriveMessageKey(%d): %v", s, err)
		}
		if len(k) != keyschedule.SecretSize {
			t.Fatalf("key length %d", len(k))
		}
		if prev, ok := seen[string(k)]; ok {
			t.Fatalf("senders %d and %d share a key", prev, s)
		}
		seen[string(k)] = s
	}
}

func TestDerivation_RejectsWrongLength(t *testing.T) {
	short := make([]byte, 16)
	if _, err := keyschedule.DeriveEpochSecret(short, transcript(2, 1)); !errors.Is(err, domain.ErrDerivation) {
		t.Fatalf("short previous: got %v", err)
	}
	tr := transcript(2, 1)
	tr.CommitSecret = short
	if _, err := keyschedule.DeriveEpochSecret(make([]byte, keyschedule.SecretSize), tr); !errors.Is(err, domain.ErrDerivation) {
		t.Fatalf("short commit secret: got %v", err)
	}
	if _, err := keyschedule.DeriveMessageKey(nil, 0); !errors.Is(err, domain.ErrDerivation) {
		t.Fatalf("empty epoch secret: got %v", err)
	}
}

func TestConfirmationTag(t *testing.T) {
	epoch := bytes.Repeat([]byte{4}, keyschedule.SecretSize)
	tr := transcript(2, 1)
	tag, err := keyschedule.ConfirmationTag(epoch, tr)
	if err != nil {
		t.Fatalf("ConfirmationTag: %v", err)
	}
	if !keyschedule.VerifyConfirmationTag(epoch, tr, tag) {
		t.Fatalf("tag did not verify")
	}
	other := transcript(3, 1)
	if keyschedule.VerifyConfirmationTag(epoch, other, tag) {
		t.Fatalf("tag verified for a different transcript")
	}
}
