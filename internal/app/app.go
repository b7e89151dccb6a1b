package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"treegroup/internal/crypto"
	"treegroup/internal/domain"
	"treegroup/internal/services/identity"
	"treegroup/internal/storage/sqlite"
	"treegroup/internal/store"
)

// App holds the long-lived dependencies shared by every command.
type App struct {
	Config   Config
	Logger   *slog.Logger
	Identity *identity.Service
	Epochs   *sqlite.EpochLog
}

// New resolves cfg, creates the home directory and opens the epoch log.
func New(cfg Config) (*App, error) {
	cfg, err := cfg.WithDefaults()
	if err != nil {
		return nil, err
	}
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, fmt.Errorf("create home: %w", err)
	}
	epochs, err := sqlite.Open(cfg.Home, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Logger:   logger,
		Identity: identity.New(store.NewIdentityFileStore(cfg.Home)),
		Epochs:   epochs,
	}, nil
}

// Signer returns the saved identity's signer when a passphrase is configured.
// Without one, or when no identity has been saved, it falls back to a fresh
// ephemeral key that lives only as long as the process.
func (a *App) Signer() (domain.Signer, error) {
	if a.Config.Passphrase != "" {
		s, err := a.Identity.Signer(a.Config.Passphrase)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, store.ErrNoIdentity) {
			return nil, err
		}
	}
	a.Logger.Warn("no saved identity, signing with an ephemeral key")
	return crypto.NewEphemeralSigner()
}

// Close releases the epoch log.
func (a *App) Close() error {
	if a.Epochs == nil {
		return nil
	}
	return a.Epochs.Close()
}
