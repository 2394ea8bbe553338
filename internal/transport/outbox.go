package transport

import "context"

// Handle is an opaque reference to a delivered message, usable later to
// request its retraction. Handles are only meaningful to the Outbox that
// issued them.
type Handle string

// Option is an action button attached to a notification, identified by a
// callback ID the client echoes back when the button is pressed.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Well-known option callback IDs.
const (
	OptionFindAgain = "find_again"
	OptionReport    = "report"
	OptionStop      = "stop"
)

// TextMessage is a service notification: plain text plus optional action
// buttons.
type TextMessage struct {
	Text    string   `json:"text"`
	Options []Option `json:"options,omitempty"`
}

// Outbox is the outbound delivery capability provided by the transport
// layer. Each deliver method sends one payload of its kind to a user and
// yields a handle for later retraction. Delivery errors are non-fatal to the
// core; callers log and move on.
type Outbox interface {
	DeliverText(ctx context.Context, user string, msg TextMessage) (Handle, error)
	DeliverDocument(ctx context.Context, user string, file FileRef, caption string) (Handle, error)
	DeliverPhoto(ctx context.Context, user string, photo PhotoSize, caption string) (Handle, error)
	DeliverAudio(ctx context.Context, user string, file FileRef, caption string) (Handle, error)
	DeliverVideo(ctx context.Context, user string, file FileRef, caption string) (Handle, error)
	DeliverVoice(ctx context.Context, user string, file FileRef, caption string) (Handle, error)

	// Retract asks the channel to revoke a previously delivered message.
	// Best-effort: a failure (expired handle, disconnected user) must be
	// swallowed by the caller.
	Retract(ctx context.Context, user string, handle Handle) error
}
