// Package dispatch is the single entry point invoked by the transport layer.
// It translates inbound actions and payloads into calls on the routing
// table, report ledger, history tracker, and relay engine, and sends the
// resulting notifications. All transport I/O happens after the core state
// mutations, outside any core lock.
package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/maskchat/pairbot/internal/block"
	"github.com/maskchat/pairbot/internal/history"
	"github.com/maskchat/pairbot/internal/matching"
	"github.com/maskchat/pairbot/internal/metrics"
	"github.com/maskchat/pairbot/internal/moderation"
	"github.com/maskchat/pairbot/internal/relay"
	"github.com/maskchat/pairbot/internal/report"
	"github.com/maskchat/pairbot/internal/transport"
)

// Action is a structured request from a user, already parsed by the
// transport layer. Commands never reach the relay as chat content.
type Action int

const (
	ActionStart Action = iota
	ActionFind
	ActionFindAgain
	ActionStop
	ActionReport
	ActionHelp
	ActionPremium
)

// Auditor receives a copy of every filed report for out-of-band archiving.
// Implementations must not block for long; publishing happens on the
// dispatch path.
type Auditor interface {
	ReportFiled(ev moderation.ReportEvent)
}

// Dispatcher wires the core components together behind one entry point per
// inbound event class.
type Dispatcher struct {
	table   *matching.Table
	blocks  *block.Registry
	ledger  *report.Ledger
	history *history.Tracker
	relay   *relay.Engine
	out     transport.Outbox
	audit   Auditor // optional; nil disables audit publishing
}

// New builds a dispatcher. audit may be nil.
func New(table *matching.Table, blocks *block.Registry, ledger *report.Ledger,
	tracker *history.Tracker, engine *relay.Engine, out transport.Outbox, audit Auditor) *Dispatcher {
	return &Dispatcher{
		table:   table,
		blocks:  blocks,
		ledger:  ledger,
		history: tracker,
		relay:   engine,
		out:     out,
		audit:   audit,
	}
}

// HandleAction processes one structured action request from user.
func (d *Dispatcher) HandleAction(ctx context.Context, user string, action Action) {
	switch action {
	case ActionStart:
		d.send(ctx, user, notice(textWelcome))
	case ActionFind:
		d.find(ctx, user, matching.FindFresh)
	case ActionFindAgain:
		d.find(ctx, user, matching.FindRejoin)
	case ActionStop:
		d.stop(ctx, user, true)
	case ActionReport:
		d.report(ctx, user)
	case ActionHelp:
		d.send(ctx, user, notice(textHelp))
	case ActionPremium:
		d.send(ctx, user, notice(textPremium))
	default:
		log.Printf("[dispatch] unknown action %d from user=%s", action, user)
	}
}

// HandleCallback maps a pressed option button to its action.
func (d *Dispatcher) HandleCallback(ctx context.Context, user string, callback string) {
	switch callback {
	case transport.OptionFindAgain:
		d.HandleAction(ctx, user, ActionFindAgain)
	case transport.OptionReport:
		d.HandleAction(ctx, user, ActionReport)
	case transport.OptionStop:
		d.HandleAction(ctx, user, ActionStop)
	default:
		log.Printf("[dispatch] unknown callback %q from user=%s", callback, user)
	}
}

// HandlePayload relays a chat payload from user to their partner. A relay
// failure is logged and swallowed; it must not affect the next event.
func (d *Dispatcher) HandlePayload(ctx context.Context, user string, p transport.Payload) {
	if err := d.relay.Relay(ctx, user, p); err != nil {
		log.Printf("[dispatch] relay from user=%s: %v", user, err)
	}
}

// HandleDisconnect cleans up after a user's connection is gone: a waiting
// user is dequeued, a paired user's session ends with the usual partner
// notice. The vanished user gets nothing.
func (d *Dispatcher) HandleDisconnect(ctx context.Context, user string) {
	d.table.Leave(user)
	if partner, ok := d.table.EndSession(user); ok {
		d.send(ctx, partner, noticeWithOptions(textPartnerLeft))
	}
	d.updateStats()
}

// find runs the pairing algorithm and delivers the resulting notifications.
// History retraction for the users the table names happens here, after the
// lock-protected mutation.
func (d *Dispatcher) find(ctx context.Context, user string, action matching.FindAction) {
	res := d.table.FindPartner(user, action)

	for _, u := range res.ClearHistory {
		d.history.Clear(ctx, u, d.out)
	}

	switch res.Status {
	case matching.FindBlocked:
		until, _ := d.blocks.BlockedUntil(user)
		d.send(ctx, user, blockedNotice(until, until.Equal(block.Forever)))
	case matching.FindAlreadyPaired:
		d.send(ctx, user, notice(textAlreadyPaired))
	case matching.FindMatched:
		d.send(ctx, user, notice(textMatched))
		d.send(ctx, res.Partner, notice(textMatched))
	case matching.FindQueued:
		if action == matching.FindRejoin {
			d.send(ctx, user, notice(textWaitingRejoin))
		} else {
			d.send(ctx, user, notice(textWaitingFresh))
		}
	}

	d.updateStats()
}

// stop ends the user's session. A user with no partner gets nothing — not
// even a notice — so repeated stops are harmless. The leaving party's
// notice carries buttons only when withOptions is set; the remaining
// party's notice always does.
func (d *Dispatcher) stop(ctx context.Context, user string, withOptions bool) {
	partner, ok := d.table.EndSession(user)
	if !ok {
		return
	}

	if withOptions {
		d.send(ctx, user, noticeWithOptions(textLeft))
	} else {
		d.send(ctx, user, notice(textLeft))
	}
	d.send(ctx, partner, noticeWithOptions(textPartnerLeft))

	d.updateStats()
}

// report files a report against the user's current partner. The session is
// torn down first (atomically, so the partner cannot change mid-report),
// then the tally and any derived block are applied, then both sides are
// notified and the event is published for archiving.
func (d *Dispatcher) report(ctx context.Context, user string) {
	partner, ok := d.table.EndSession(user)
	if !ok {
		d.send(ctx, user, notice(textNotReportable))
		return
	}

	outcome := d.ledger.Report(partner)
	metrics.ReportsTotal.Inc()
	if outcome.Blocked() {
		metrics.BlocksTotal.WithLabelValues(blockTier(outcome)).Inc()
		log.Printf("[dispatch] user=%s blocked (tally=%d tier=%s) after report by user=%s",
			partner, outcome.Tally, blockTier(outcome), user)
	}

	d.send(ctx, user, noticeWithOptions(textReportFiled))
	d.send(ctx, partner, noticeWithOptions(textPartnerLeft))

	if d.audit != nil {
		d.audit.ReportFiled(moderation.NewReportEvent(
			user, partner, outcome.Tally, outcome.Duration, outcome.Permanent))
	}

	d.updateStats()
}

// send delivers a service notice. Delivery failures are non-fatal and only
// logged; notices are not recorded in history.
func (d *Dispatcher) send(ctx context.Context, user string, msg transport.TextMessage) {
	if _, err := d.out.DeliverText(ctx, user, msg); err != nil {
		metrics.DeliveryFailures.Inc()
		log.Printf("[dispatch] notify user=%s: %v", user, err)
	}
}

// updateStats refreshes the waiting/pairs gauges from the table.
func (d *Dispatcher) updateStats() {
	waiting, pairs := d.table.Stats()
	metrics.WaitingUsers.Set(float64(waiting))
	metrics.ActivePairs.Set(float64(pairs))
}

// blockTier labels an outcome's block tier for metrics.
func blockTier(o report.Outcome) string {
	switch {
	case o.Permanent:
		return "permanent"
	case o.Duration == 24*time.Hour:
		return "24h"
	case o.Duration == 30*time.Minute:
		return "30m"
	default:
		return "5m"
	}
}
