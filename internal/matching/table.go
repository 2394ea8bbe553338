// Package matching owns the routing state of the relay: the waiting set of
// users looking for a partner and the symmetric session table of active
// pairings. Both live behind a single mutex so that a user can never appear
// in the waiting set and the session table at the same time, and so both
// directions of a pairing are created and torn down atomically.
package matching

import (
	"sync"

	"github.com/maskchat/pairbot/internal/block"
)

// FindAction selects the variant of a find request. The two variants differ
// in their full effect set, not just wording: a rejoin dequeues the
// requester if they were still waiting and clears delivery history — the
// requester's, and on a successful match the found partner's as well, so
// both sides of the fresh pairing start without stale messages.
type FindAction int

const (
	// FindFresh is a plain find request.
	FindFresh FindAction = iota
	// FindRejoin is a find request after leaving a chat, with
	// history clearing.
	FindRejoin
)

// FindStatus is the outcome class of a find request.
type FindStatus int

const (
	// FindMatched means a partner was found and the pairing is live.
	FindMatched FindStatus = iota
	// FindQueued means no partner was available; the user is now waiting.
	FindQueued
	// FindBlocked means the user is blocked and nothing changed.
	FindBlocked
	// FindAlreadyPaired means the user already has a partner and nothing
	// changed.
	FindAlreadyPaired
)

// FindResult reports what a find request did. ClearHistory lists the users
// whose delivery history the caller must now clear; the table itself does no
// transport I/O, so retraction happens after the lock is released.
type FindResult struct {
	Status       FindStatus
	Partner      string
	ClearHistory []string
}

// Table is the waiting set plus the session table.
type Table struct {
	mu       sync.Mutex
	waiting  map[string]struct{}
	partners map[string]string // symmetric: partners[a]=b implies partners[b]=a
	blocks   *block.Registry
}

// NewTable returns an empty routing table gated by the given block registry.
func NewTable(blocks *block.Registry) *Table {
	return &Table{
		waiting:  make(map[string]struct{}),
		partners: make(map[string]string),
		blocks:   blocks,
	}
}

// FindPartner runs the pairing algorithm for user. Guards are checked in
// order: a blocked user is rejected first, then a user who is already
// paired. The scan over the waiting set is map-iteration order, i.e.
// deliberately unordered — no FIFO fairness is promised. Blocked candidates
// are skipped but stay queued; their block status is re-checked on every
// scan, so an expired block makes them matchable again without re-joining.
func (t *Table) FindPartner(user string, action FindAction) FindResult {
	if t.blocks.IsBlocked(user) {
		return FindResult{Status: FindBlocked}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, paired := t.partners[user]; paired {
		return FindResult{Status: FindAlreadyPaired}
	}

	var clear []string
	if action == FindRejoin {
		delete(t.waiting, user)
		clear = append(clear, user)
	}

	for candidate := range t.waiting {
		if candidate == user {
			continue
		}
		if t.blocks.IsBlocked(candidate) {
			continue // stays queued, lazily filtered
		}

		delete(t.waiting, candidate)
		t.partners[user] = candidate
		t.partners[candidate] = user

		if action == FindRejoin {
			clear = append(clear, candidate)
		}
		return FindResult{Status: FindMatched, Partner: candidate, ClearHistory: clear}
	}

	t.waiting[user] = struct{}{}
	return FindResult{Status: FindQueued, ClearHistory: clear}
}

// EndSession tears down the user's pairing, removing both directions
// atomically. ok is false (and nothing changes) if the user has no partner.
func (t *Table) EndSession(user string) (partner string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	partner, ok = t.partners[user]
	if !ok {
		return "", false
	}
	delete(t.partners, user)
	delete(t.partners, partner)
	return partner, true
}

// Partner returns the user's current partner, if any.
func (t *Table) Partner(user string) (partner string, ok bool) {
	t.mu.Lock()
	partner, ok = t.partners[user]
	t.mu.Unlock()
	return partner, ok
}

// Waiting reports whether the user is in the waiting set.
func (t *Table) Waiting(user string) bool {
	t.mu.Lock()
	_, ok := t.waiting[user]
	t.mu.Unlock()
	return ok
}

// Leave removes the user from the waiting set if present. Used when a
// waiting user disconnects.
func (t *Table) Leave(user string) {
	t.mu.Lock()
	delete(t.waiting, user)
	t.mu.Unlock()
}

// Stats returns the current waiting-set size and number of active pairs.
func (t *Table) Stats() (waiting, pairs int) {
	t.mu.Lock()
	waiting = len(t.waiting)
	pairs = len(t.partners) / 2
	t.mu.Unlock()
	return waiting, pairs
}
