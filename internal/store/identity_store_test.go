package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"treegroup/internal/domain"
	"treegroup/internal/store"
)

var fastKDF = store.KDFParams{N: 1 << 10, R: 8, P: 1}

func TestIdentity_SaveLoad_OK(t *testing.T) {
	home := t.TempDir()
	pass := "correct horse battery"

	var ids domain.IdentityStore = store.NewIdentityFileStore(home).WithKDFParams(fastKDF)

	id := domain.Identity{
		EdPub:  domain.Ed25519Public{3},
		EdPriv: domain.Ed25519Private{4},
	}

	if err := ids.SaveIdentity(pass, id); err != nil {
		t.Fatalf("save identity: %v", err)
	}

	got, err := ids.LoadIdentity(pass)
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got != id {
		t.Fatalf("mismatch after load")
	}

	info, err := os.Stat(filepath.Join(home, "identity.json.enc"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("identity file mode %v", info.Mode().Perm())
	}
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	ids := store.NewIdentityFileStore(home).WithKDFParams(fastKDF)

	if err := ids.SaveIdentity("correct", domain.Identity{EdPub: domain.Ed25519Public{1}}); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if _, err := ids.LoadIdentity("wrong"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestIdentity_Missing(t *testing.T) {
	ids := store.NewIdentityFileStore(filepath.Join(t.TempDir(), "nested"))
	if _, err := ids.LoadIdentity("x"); !errors.Is(err, store.ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}
