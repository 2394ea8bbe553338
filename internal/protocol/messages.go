// Package protocol defines the WebSocket message types and structures used
// for communication between the client and the relay. All messages are
// serialized as JSON and follow a consistent envelope format with a type
// discriminator.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/maskchat/pairbot/internal/transport"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types. The action types carry no payload beyond
// the discriminator; "callback" echoes a pressed option button; "message" is
// a chat payload to be relayed to the partner.
const (
	TypeStart     = "start"
	TypeFind      = "find"
	TypeFindAgain = "find_again"
	TypeStop      = "stop"
	TypeReport    = "report"
	TypeHelp      = "help"
	TypePremium   = "premium"
	TypeCallback  = "callback"
	TypeMessage   = "message"
	TypePing      = "ping"
)

// Server -> Client message types. TypeMessage is shared: server-delivered
// payloads (relayed chat content and service notices alike) arrive as
// "message" frames carrying a delivery handle.
const (
	TypeSessionCreated = "session_created"
	TypeRetract        = "retract"
	TypeError          = "error"
	TypePong           = "pong"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// ActionMsg covers the bare action requests: start, find, find_again, stop,
// report, help, premium, ping.
type ActionMsg struct {
	Type string `json:"type"`
}

// CallbackMsg is sent when the client presses an option button attached to a
// notice. Action is the option's callback ID (find_again, report, stop).
type CallbackMsg struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

// PayloadMsg is a chat payload to be relayed to the current partner.
// Commands are never relayed as chat content: an action request and a
// payload are distinct message types by construction.
type PayloadMsg struct {
	Type    string            `json:"type"`
	Payload transport.Payload `json:"payload"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// SessionCreatedMsg is sent by the server when a new session is established.
type SessionCreatedMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// DeliveredMsg is a payload delivered to the client: either chat content
// relayed from the partner or a service notice from the relay itself.
// Handle identifies the message for later retraction. Options are the
// notice's action buttons, if any.
type DeliveredMsg struct {
	Type    string                `json:"type"`
	Handle  string                `json:"handle"`
	Kind    transport.Kind        `json:"kind"`
	Text    string                `json:"text,omitempty"`
	Caption string                `json:"caption,omitempty"`
	File    *transport.FileRef    `json:"file,omitempty"`
	Photo   []transport.PhotoSize `json:"photo,omitempty"`
	Options []transport.Option    `json:"options,omitempty"`
}

// RetractMsg asks the client to remove a previously delivered message.
type RetractMsg struct {
	Type   string `json:"type"`
	Handle string `json:"handle"`
}

// ErrorMsg is sent by the server to communicate an error condition.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeStart, TypeFind, TypeFindAgain, TypeStop, TypeReport,
		TypeHelp, TypePremium, TypePing:
		var m ActionMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeCallback:
		var m CallbackMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMessage:
		var m PayloadMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
