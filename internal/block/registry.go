// Package block tracks which users are currently blocked from matchmaking.
// Entries are kept in memory as user -> expiry instant, with a sentinel for
// permanent blocks. Expired entries are removed lazily on the next lookup,
// so no background sweep is needed.
package block

import (
	"sync"
	"time"
)

// Forever is the sentinel expiry for a permanent block. Permanent blocks are
// terminal: no clearing operation is exposed, they last until restart.
var Forever = time.Unix(1<<62, 0)

// Registry answers "is this user currently blocked" and records new blocks.
type Registry struct {
	mu      sync.Mutex
	expires map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// IsBlocked reports whether the user is currently blocked. A non-permanent
// entry whose expiry has passed is deleted as a side effect, so a lookup
// after the expiry instant always transitions the user back to unblocked.
func (r *Registry) IsBlocked(user string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.expires[user]
	if !ok {
		return false
	}
	if until.Equal(Forever) {
		return true
	}
	if r.now().After(until) {
		delete(r.expires, user)
		return false
	}
	return true
}

// Block blocks the user for the given duration from now.
func (r *Registry) Block(user string, d time.Duration) {
	r.mu.Lock()
	r.expires[user] = r.now().Add(d)
	r.mu.Unlock()
}

// BlockUntil blocks the user until the given instant. Passing Forever makes
// the block permanent.
func (r *Registry) BlockUntil(user string, until time.Time) {
	r.mu.Lock()
	r.expires[user] = until
	r.mu.Unlock()
}

// BlockForever permanently blocks the user.
func (r *Registry) BlockForever(user string) {
	r.BlockUntil(user, Forever)
}

// BlockedUntil returns the expiry instant for a user's block. ok is false if
// the user is not blocked (expired entries are removed, as in IsBlocked).
func (r *Registry) BlockedUntil(user string) (until time.Time, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok = r.expires[user]
	if !ok {
		return time.Time{}, false
	}
	if !until.Equal(Forever) && r.now().After(until) {
		delete(r.expires, user)
		return time.Time{}, false
	}
	return until, true
}
