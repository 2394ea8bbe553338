// Package report tallies abuse reports per user and derives block durations
// from the cumulative tally. The tally is in-memory and monotonically
// non-decreasing until restart; there is no decay and no admin reset.
package report

import (
	"sync"
	"time"

	"github.com/maskchat/pairbot/internal/block"
)

// Block duration tiers. The tier is a step function of the cumulative tally,
// re-evaluated on every report, so a user deep into a tier keeps having that
// tier's duration re-applied from "now".
const (
	Tier1Reports = 3  // 5 minutes
	Tier2Reports = 10 // 30 minutes
	Tier3Reports = 20 // 24 hours
	Tier4Reports = 30 // permanent

	Tier1Duration = 5 * time.Minute
	Tier2Duration = 30 * time.Minute
	Tier3Duration = 24 * time.Hour
)

// Outcome is the result of filing one report: the new cumulative tally and
// the block that was applied, if any.
type Outcome struct {
	Tally     int
	Duration  time.Duration // zero when Permanent or no block applied
	Permanent bool
}

// Blocked reports whether this outcome applied any block.
func (o Outcome) Blocked() bool {
	return o.Permanent || o.Duration > 0
}

// Ledger counts reports against users and applies the derived blocks to a
// block registry.
type Ledger struct {
	mu     sync.Mutex
	tally  map[string]int
	blocks *block.Registry
}

// NewLedger returns a ledger that writes derived blocks into blocks.
func NewLedger(blocks *block.Registry) *Ledger {
	return &Ledger{
		tally:  make(map[string]int),
		blocks: blocks,
	}
}

// Report increments the user's tally by exactly one, applies the block tier
// the new tally falls into, and returns the outcome.
func (l *Ledger) Report(user string) Outcome {
	l.mu.Lock()
	l.tally[user]++
	tally := l.tally[user]
	l.mu.Unlock()

	duration, permanent := blockDuration(tally)
	switch {
	case permanent:
		l.blocks.BlockForever(user)
	case duration > 0:
		l.blocks.Block(user, duration)
	}

	return Outcome{Tally: tally, Duration: duration, Permanent: permanent}
}

// Tally returns the current report count against a user.
func (l *Ledger) Tally(user string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tally[user]
}

// blockDuration maps a cumulative tally to the highest block tier met.
func blockDuration(tally int) (d time.Duration, permanent bool) {
	switch {
	case tally >= Tier4Reports:
		return 0, true
	case tally >= Tier3Reports:
		return Tier3Duration, false
	case tally >= Tier2Reports:
		return Tier2Duration, false
	case tally >= Tier1Reports:
		return Tier1Duration, false
	default:
		return 0, false
	}
}
