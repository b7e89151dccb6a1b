package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"

	"treegroup/internal/domain"
	"treegroup/internal/util/memzero"
)

const (
	idFilename = "identity.json.enc"
	idPurpose  = "engine-identity"
)

// ErrNoIdentity is returned by LoadIdentity before any identity was saved.
var ErrNoIdentity = errors.New("no identity saved")

// IdentityFileStore persists the engine's signing identity to disk.
type IdentityFileStore struct {
	dir string
	kdf KDFParams
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir, kdf: DefaultKDFParams}
}

// WithKDFParams overrides the scrypt cost used for new files.
func (s *IdentityFileStore) WithKDFParams(kp KDFParams) *IdentityFileStore {
	s.kdf = kp
	return s
}

// SaveIdentity seals id and writes it to disk, replacing any previous one.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)
	ct, err := seal(passphrase, idPurpose, raw, s.kdf)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, idFilename), ct, 0o600)
}

// LoadIdentity reads and decrypts the identity.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(filepath.Join(s.dir, idFilename))
	if err != nil {
		return domain.Identity{}, err
	}
	if b == nil {
		return domain.Identity{}, ErrNoIdentity
	}
	pt, err := open(passphrase, idPurpose, b)
	if err != nil {
		return domain.Identity{}, err
	}
	defer memzero.Zero(pt)
	var id domain.Identity
	if err := json.Unmarshal(pt, &id); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
