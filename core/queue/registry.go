package queue

import "sync"

// Registry hands out the per-user queue manager for the lifetime of the
// process. Sessions are created lazily on first use.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Manager
	factory  func(userID int64) *Manager
}

// NewRegistry creates a Registry using factory to build per-user managers.
func NewRegistry(factory func(userID int64) *Manager) *Registry {
	return &Registry{
		sessions: make(map[int64]*Manager),
		factory:  factory,
	}
}

// Get returns the user's queue manager, creating it if needed.
func (r *Registry) Get(userID int64) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.sessions[userID]; ok {
		return m
	}
	m := r.factory(userID)
	r.sessions[userID] = m
	return m
}

// Drop removes a user's session entirely, e.g. on logout.
func (r *Registry) Drop(userID int64) {
	r.mu.Lock()
	delete(r.sessions, userID)
	r.mu.Unlock()
}
