package ws

import (
	"context"
	"log"

	"github.com/maskchat/pairbot/internal/dispatch"
	"github.com/maskchat/pairbot/internal/protocol"
)

// actionTypes maps the bare action message types to dispatcher actions.
var actionTypes = map[string]dispatch.Action{
	protocol.TypeStart:     dispatch.ActionStart,
	protocol.TypeFind:      dispatch.ActionFind,
	protocol.TypeFindAgain: dispatch.ActionFindAgain,
	protocol.TypeStop:      dispatch.ActionStop,
	protocol.TypeReport:    dispatch.ActionReport,
	protocol.TypeHelp:      dispatch.ActionHelp,
	protocol.TypePremium:   dispatch.ActionPremium,
}

// Router translates raw WebSocket frames into dispatcher calls. It handles
// the ping/pong keepalive itself and answers malformed or unsupported frames
// with a structured error, so the dispatcher only ever sees valid requests.
type Router struct {
	d *dispatch.Dispatcher
}

// NewRouter creates a Router forwarding to the given dispatcher.
func NewRouter(d *dispatch.Dispatcher) *Router {
	return &Router{d: d}
}

// HandleFrame is the server's onMessage callback. It runs on the
// connection's reader goroutine; the connection's session ID is the user
// identity passed down to the dispatcher.
func (r *Router) HandleFrame(conn *Connection, data []byte) {
	msgType, msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		log.Printf("[ws] parse error session=%s: %v", conn.ID, err)
		r.sendError(conn, "parse_error", "invalid message format")
		return
	}

	ctx := context.Background()

	if action, ok := actionTypes[msgType]; ok {
		r.d.HandleAction(ctx, conn.ID, action)
		return
	}

	switch m := msg.(type) {
	case protocol.CallbackMsg:
		r.d.HandleCallback(ctx, conn.ID, m.Action)
	case protocol.PayloadMsg:
		r.d.HandlePayload(ctx, conn.ID, m.Payload)
	case protocol.ActionMsg:
		// Only ping reaches here; the named actions were routed above.
		r.sendPong(conn)
	default:
		log.Printf("[ws] unsupported message type=%q session=%s", msgType, conn.ID)
		r.sendError(conn, "unsupported_type", "unsupported message type")
	}
}

// HandleDisconnect is the server's onDisconnect callback.
func (r *Router) HandleDisconnect(connID string) {
	r.d.HandleDisconnect(context.Background(), connID)
}

// sendError sends a structured error frame. Failures are logged, not
// propagated.
func (r *Router) sendError(conn *Connection, code, message string) {
	data, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
		Code:    code,
		Message: message,
	})
	if err != nil {
		log.Printf("[ws] build error message session=%s: %v", conn.ID, err)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		log.Printf("[ws] send error message session=%s: %v", conn.ID, err)
	}
}

// sendPong answers a client-level ping.
func (r *Router) sendPong(conn *Connection) {
	data, err := protocol.NewServerMessage(protocol.TypePong, protocol.PongMsg{})
	if err != nil {
		log.Printf("[ws] build pong session=%s: %v", conn.ID, err)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		log.Printf("[ws] send pong session=%s: %v", conn.ID, err)
	}
}
