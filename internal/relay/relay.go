// Package relay forwards chat payloads between paired users. It is the only
// component that both reads the routing table and talks to the outbound
// delivery channel; every delivered message is recorded in the receiver's
// history so it can be retracted later.
package relay

import (
	"context"
	"fmt"

	"github.com/maskchat/pairbot/internal/history"
	"github.com/maskchat/pairbot/internal/metrics"
	"github.com/maskchat/pairbot/internal/transport"
)

// PartnerLookup resolves a user's current chat partner. Satisfied by
// *matching.Table.
type PartnerLookup interface {
	Partner(user string) (partner string, ok bool)
}

// Engine forwards payloads from one session participant to the other.
type Engine struct {
	table   PartnerLookup
	history *history.Tracker
	out     transport.Outbox
}

// NewEngine returns a relay engine over the given routing table, history
// tracker, and outbox.
func NewEngine(table PartnerLookup, tracker *history.Tracker, out transport.Outbox) *Engine {
	return &Engine{table: table, history: tracker, out: out}
}

// Relay delivers the payload to from's partner and records the delivery
// handle in the partner's history. It is a no-op when from has no partner or
// the payload kind is unsupported. A delivery failure is returned so the
// caller can log it, but it leaves all state intact — the next relay is
// unaffected.
func (e *Engine) Relay(ctx context.Context, from string, p transport.Payload) error {
	partner, ok := e.table.Partner(from)
	if !ok {
		return nil
	}

	var (
		handle transport.Handle
		err    error
	)

	switch p.Kind {
	case transport.KindText:
		handle, err = e.out.DeliverText(ctx, partner, transport.TextMessage{Text: p.Text})
	case transport.KindDocument:
		handle, err = e.out.DeliverDocument(ctx, partner, p.File, p.Caption)
	case transport.KindPhoto:
		best, found := p.LargestPhoto()
		if !found {
			return nil
		}
		handle, err = e.out.DeliverPhoto(ctx, partner, best, p.Caption)
	case transport.KindAudio:
		handle, err = e.out.DeliverAudio(ctx, partner, p.File, p.Caption)
	case transport.KindVideo:
		handle, err = e.out.DeliverVideo(ctx, partner, p.File, p.Caption)
	case transport.KindVoice:
		handle, err = e.out.DeliverVoice(ctx, partner, p.File, p.Caption)
	default:
		// Unknown kinds are dropped, not errors.
		return nil
	}

	if err != nil {
		metrics.DeliveryFailures.Inc()
		return fmt.Errorf("relay: deliver %s to %s: %w", p.Kind, partner, err)
	}

	e.history.Append(partner, handle)
	metrics.RelayedTotal.WithLabelValues(string(p.Kind)).Inc()
	return nil
}
