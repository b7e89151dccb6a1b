package store

import (
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"treegroup/internal/domain"
	"treegroup/internal/group"
)

// DefaultCapacity bounds the number of live groups kept in memory.
const DefaultCapacity = 10000

type entry struct {
	mu    sync.Mutex
	state *group.State // nil once destroyed
}

// GroupStore maps group ids to their current state.
type GroupStore struct {
	cache  *lru.Cache[domain.GroupID, *entry]
	logger *slog.Logger
}

// NewGroupStore returns a store holding at most capacity groups. When full,
// the least recently used group is evicted and its state destroyed.
func NewGroupStore(capacity int, logger *slog.Logger) (*GroupStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &GroupStore{logger: logger}
	cache, err := lru.NewWithEvict[domain.GroupID, *entry](capacity, s.onEvict)
	if err != nil {
		return nil, fmt.Errorf("group cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// onEvict runs outside the cache lock.
func (s *GroupStore) onEvict(id domain.GroupID, e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return
	}
	s.logger.Warn("dropping group state", "group", id.String(), "epoch", e.state.Epoch())
	e.state.Destroy()
	e.state = nil
}

// Create stores st under its id.
func (s *GroupStore) Create(st *group.State) error {
	if ok, _ := s.cache.ContainsOrAdd(st.ID(), &entry{state: st}); ok {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, st.ID())
	}
	return nil
}

// View runs fn with the current state of id while holding the group's lock.
// fn must not retain st.
func (s *GroupStore) View(id domain.GroupID, fn func(st *group.State) error) error {
	e, ok := s.cache.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return fn(e.state)
}

// Commit replaces the state of id with the one fn returns, under the
// group's lock. If fn fails nothing changes. Otherwise the previous state is
// destroyed, and when the new state has no members left after a removal the
// group is dropped and destroyed reports true.
func (s *GroupStore) Commit(id domain.GroupID, fn func(cur *group.State) (*group.State, error)) (destroyed bool, err error) {
	e, ok := s.cache.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	e.mu.Lock()
	if e.state == nil {
		e.mu.Unlock()
		return false, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	next, err := fn(e.state)
	if err != nil {
		e.mu.Unlock()
		return false, err
	}
	prev := e.state
	e.state = next
	prev.Destroy()

	empty := next.MemberCount() == 0 && next.Change() == domain.ProposalRemove
	if empty {
		next.Destroy()
		e.state = nil
	}
	e.mu.Unlock()

	if empty {
		// The entry is already dead; the evict callback sees a nil state.
		s.cache.Remove(id)
	}
	return empty, nil
}

// Delete drops id and destroys its state.
func (s *GroupStore) Delete(id domain.GroupID) error {
	if !s.cache.Remove(id) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

// Len returns the number of stored groups.
func (s *GroupStore) Len() int { return s.cache.Len() }

// Close destroys every stored state.
func (s *GroupStore) Close() { s.cache.Purge() }
