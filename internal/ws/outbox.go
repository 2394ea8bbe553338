package ws

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/maskchat/pairbot/internal/protocol"
	"github.com/maskchat/pairbot/internal/transport"
)

// Outbox delivers payloads over the WebSocket server. Every delivered frame
// carries a fresh UUID handle; Retract sends a retract frame naming that
// handle, and the client removes the message from its view. The relay keeps
// no copy of delivered content, only the handles.
type Outbox struct {
	server *Server
}

// NewOutbox returns an Outbox sending through the given server.
func NewOutbox(server *Server) *Outbox {
	return &Outbox{server: server}
}

var _ transport.Outbox = (*Outbox)(nil)

// deliver sends one message frame and returns its handle.
func (o *Outbox) deliver(user string, msg protocol.DeliveredMsg) (transport.Handle, error) {
	handle := transport.Handle(uuid.New().String())
	msg.Handle = string(handle)

	data, err := protocol.NewServerMessage(protocol.TypeMessage, msg)
	if err != nil {
		return "", fmt.Errorf("ws: build delivery for %s: %w", user, err)
	}
	if err := o.server.SendMessage(user, data); err != nil {
		return "", err
	}
	return handle, nil
}

// DeliverText sends a text message with its optional action buttons.
func (o *Outbox) DeliverText(_ context.Context, user string, msg transport.TextMessage) (transport.Handle, error) {
	return o.deliver(user, protocol.DeliveredMsg{
		Kind:    transport.KindText,
		Text:    msg.Text,
		Options: msg.Options,
	})
}

// DeliverDocument sends a document reference with an optional caption.
func (o *Outbox) DeliverDocument(_ context.Context, user string, file transport.FileRef, caption string) (transport.Handle, error) {
	return o.deliver(user, protocol.DeliveredMsg{
		Kind:    transport.KindDocument,
		File:    &file,
		Caption: caption,
	})
}

// DeliverPhoto sends a single photo variant with an optional caption.
func (o *Outbox) DeliverPhoto(_ context.Context, user string, photo transport.PhotoSize, caption string) (transport.Handle, error) {
	return o.deliver(user, protocol.DeliveredMsg{
		Kind:    transport.KindPhoto,
		Photo:   []transport.PhotoSize{photo},
		Caption: caption,
	})
}

// DeliverAudio sends an audio file reference with an optional caption.
func (o *Outbox) DeliverAudio(_ context.Context, user string, file transport.FileRef, caption string) (transport.Handle, error) {
	return o.deliver(user, protocol.DeliveredMsg{
		Kind:    transport.KindAudio,
		File:    &file,
		Caption: caption,
	})
}

// DeliverVideo sends a video file reference with an optional caption.
func (o *Outbox) DeliverVideo(_ context.Context, user string, file transport.FileRef, caption string) (transport.Handle, error) {
	return o.deliver(user, protocol.DeliveredMsg{
		Kind:    transport.KindVideo,
		File:    &file,
		Caption: caption,
	})
}

// DeliverVoice sends a voice note reference with an optional caption.
func (o *Outbox) DeliverVoice(_ context.Context, user string, file transport.FileRef, caption string) (transport.Handle, error) {
	return o.deliver(user, protocol.DeliveredMsg{
		Kind:    transport.KindVoice,
		File:    &file,
		Caption: caption,
	})
}

// Retract asks the client to remove a previously delivered message. Fails if
// the user is no longer connected; callers treat that as best-effort.
func (o *Outbox) Retract(_ context.Context, user string, handle transport.Handle) error {
	data, err := protocol.NewServerMessage(protocol.TypeRetract, protocol.RetractMsg{
		Handle: string(handle),
	})
	if err != nil {
		return fmt.Errorf("ws: build retract for %s: %w", user, err)
	}
	return o.server.SendMessage(user, data)
}
