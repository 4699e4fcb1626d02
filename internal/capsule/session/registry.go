// Package session holds the in-memory session registry. Sessions are a
// single-process concern: tokens live only in this map and die with the
// process, so a restart logs everyone out.
package session

import (
	"sync"
	"time"

	"github.com/orinotech/timecapsule/pkg/cryptox"
)

// DefaultTTL is the sliding session lifetime used when none is configured.
const DefaultTTL = 24 * time.Hour

type entry struct {
	accountID string
	deadline  time.Time // zero when expiry is disabled
}

// Registry maps live session tokens to account identities. Construct one
// with NewRegistry and inject it; it must never be package-global state.
//
// All methods are safe for concurrent use; a single mutex makes Create,
// Resolve and Delete atomic with respect to each other.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry returns an empty registry. ttl <= 0 disables expiry.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create mints a new session token for the account and stores the mapping.
// The mapping is visible to Resolve as soon as Create returns.
func (r *Registry) Create(accountID string) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[token] = entry{
		accountID: accountID,
		deadline:  r.deadline(),
	}
	return token, nil
}

// Resolve returns the owning account id for a live token. Unknown, deleted
// and expired tokens all report false; none of them is an error. A hit
// refreshes the sliding deadline.
func (r *Registry) Resolve(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[token]
	if !ok {
		return "", false
	}
	if !e.deadline.IsZero() && r.now().After(e.deadline) {
		delete(r.sessions, token)
		return "", false
	}

	// Sliding expiry: activity keeps the session alive.
	e.deadline = r.deadline()
	r.sessions[token] = e
	return e.accountID, true
}

// Delete removes the mapping if present; deleting an unknown token is a
// no-op, never an error.
func (r *Registry) Delete(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}

// DeleteAccount removes every session belonging to the account and returns
// how many were dropped. Used when a password reset completes.
func (r *Registry) DeleteAccount(accountID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for token, e := range r.sessions {
		if e.accountID == accountID {
			delete(r.sessions, token)
			n++
		}
	}
	return n
}

// Purge drops expired sessions and returns how many were removed.
// Housekeeping calls this so idle expired sessions don't accumulate.
func (r *Registry) Purge() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for token, e := range r.sessions {
		if !e.deadline.IsZero() && now.After(e.deadline) {
			delete(r.sessions, token)
			n++
		}
	}
	return n
}

// TTL returns the configured session lifetime. Zero means sessions
// never expire.
func (r *Registry) TTL() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	return r.ttl
}

// Len reports the number of live entries, expired or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) deadline() time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	return r.now().Add(r.ttl)
}
