package directory

import (
	"sync"
	"time"
)

// Registry keeps one ListModel per session. Models idle for longer than the
// TTL are dropped on the next lookup.
type Registry struct {
	remote Remote
	ttl    time.Duration
	now    func() time.Time

	mu     sync.Mutex
	models map[string]*registryEntry
}

type registryEntry struct {
	model    *ListModel
	lastSeen time.Time
}

// NewRegistry builds a Registry. A non-positive ttl disables expiry.
func NewRegistry(remote Remote, ttl time.Duration) *Registry {
	return &Registry{
		remote: remote,
		ttl:    ttl,
		now:    time.Now,
		models: make(map[string]*registryEntry),
	}
}

// Model returns the session's model, creating it on first use.
func (r *Registry) Model(sessionID string) *ListModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweepLocked(now)
	entry, ok := r.models[sessionID]
	if !ok {
		entry = &registryEntry{model: NewListModel(r.remote)}
		r.models[sessionID] = entry
	}
	entry.lastSeen = now
	return entry.model
}

// Forget drops the session's model. It is called on logout.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, sessionID)
}

// Len reports how many sessions currently hold a model.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.models)
}

func (r *Registry) sweepLocked(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for id, entry := range r.models {
		if now.Sub(entry.lastSeen) > r.ttl {
			delete(r.models, id)
		}
	}
}
