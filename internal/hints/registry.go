package hints

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/domlens/domlens/internal/config"
)

// Registry tracks live page sessions by id so transports can address
// them across calls.
type Registry struct {
	cfg config.Config

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(cfg config.Config) *Registry {
	return &Registry{cfg: cfg, sessions: make(map[string]*Session)}
}

// Attach wraps a host in a session, starts it and hands back its id.
func (r *Registry) Attach(ctx context.Context, host Host) (string, *Session) {
	s := NewSession(host, r.cfg)
	s.Attach(ctx)

	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return id, s
}

// Get resolves a session id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Detach stops and forgets a session.
func (r *Registry) Detach(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no session %s", id)
	}
	s.Detach()
	return nil
}

// Sessions lists live session ids, sorted.
func (r *Registry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close detaches everything.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range sessions {
		s.Detach()
	}
}
