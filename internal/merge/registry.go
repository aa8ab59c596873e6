package merge

import (
	"sync"
	"time"
)

// Registry is a thread-safe session store with TTL eviction, one
// session per document.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Delete removes and closes a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	s := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if s != nil {
		s.Close()
	}
}

// Cleanup evicts sessions idle past the TTL and reports how many were
// removed. Generating sessions are skipped; their settlement or abort
// refreshes the timestamp anyway.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	now := time.Now()
	var evict []*Session
	for id, s := range r.sessions {
		if s.State() == StateGenerating {
			continue
		}
		if now.Sub(s.UpdatedAt()) > r.ttl {
			evict = append(evict, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range evict {
		s.Close()
	}
	return len(evict)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
