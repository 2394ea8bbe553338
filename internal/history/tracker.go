// Package history records, per user, the handles of messages delivered to
// them in their current chat so the whole conversation can be retracted when
// the user re-pairs.
package history

import (
	"context"
	"log"
	"sync"

	"github.com/maskchat/pairbot/internal/transport"
)

// Retractor revokes a previously delivered message. Satisfied by
// transport.Outbox.
type Retractor interface {
	Retract(ctx context.Context, user string, handle transport.Handle) error
}

// Tracker is the per-user delivered-handle log.
type Tracker struct {
	mu        sync.Mutex
	delivered map[string][]transport.Handle
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{delivered: make(map[string][]transport.Handle)}
}

// Append records a handle delivered to user.
func (t *Tracker) Append(user string, handle transport.Handle) {
	t.mu.Lock()
	t.delivered[user] = append(t.delivered[user], handle)
	t.mu.Unlock()
}

// Handles returns a copy of the user's recorded handles in delivery order.
func (t *Tracker) Handles(user string) []transport.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]transport.Handle(nil), t.delivered[user]...)
}

// Clear empties the user's log and asks the retractor to revoke every
// recorded handle. Individual revoke failures (already expired, user gone)
// are logged and skipped; the log is emptied regardless. The retraction
// round-trips run outside the tracker's lock.
func (t *Tracker) Clear(ctx context.Context, user string, retract Retractor) {
	t.mu.Lock()
	handles := t.delivered[user]
	delete(t.delivered, user)
	t.mu.Unlock()

	for _, handle := range handles {
		if err := retract.Retract(ctx, user, handle); err != nil {
			log.Printf("[history] retract %s for user=%s: %v", handle, user, err)
		}
	}
}
