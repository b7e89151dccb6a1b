package app

import (
	"treegroup/internal/domain"
	groupsvc "treegroup/internal/services/group"
	messagesvc "treegroup/internal/services/message"
	"treegroup/internal/store"
)

// Engine bundles the in-memory group store and the services built on it.
type Engine struct {
	Store    *store.GroupStore
	Groups   *groupsvc.Service
	Messages *messagesvc.Service
}

// NewEngine constructs the group engine signing with signer. Every epoch it
// produces is recorded in the app's epoch log.
func (a *App) NewEngine(signer domain.Signer) (*Engine, error) {
	gs, err := store.NewGroupStore(a.Config.StoreCapacity, a.Logger)
	if err != nil {
		return nil, err
	}
	groups, err := groupsvc.New(groupsvc.Config{
		Store:         gs,
		Signer:        signer,
		Recorder:      a.Epochs,
		RecordTimeout: a.Config.RecordTimeout,
		Logger:        a.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{
		Store:    gs,
		Groups:   groups,
		Messages: messagesvc.New(gs, nil, a.Logger),
	}, nil
}

// Close drops every live group, destroying its secrets.
func (e *Engine) Close() { e.Store.Close() }
