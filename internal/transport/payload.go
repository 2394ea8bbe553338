// Package transport defines the boundary between the core engine and the
// delivery channel: relayable payload kinds, the per-kind delivery
// capabilities, and the opaque handles used for later retraction. The core
// never talks to a socket directly; it only sees this interface.
package transport

// Kind discriminates the payload types that can be relayed between partners.
type Kind string

// The six relayable payload kinds. Anything else is dropped by the relay.
const (
	KindText     Kind = "text"
	KindDocument Kind = "document"
	KindPhoto    Kind = "photo"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindVoice    Kind = "voice"
)

// FileRef points at an uploaded piece of media. The ID is opaque to the core;
// the delivery channel resolves it.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	MIME string `json:"mime,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// PhotoSize is one resolution variant of a photo payload.
type PhotoSize struct {
	File   FileRef `json:"file"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// Payload is an inbound chat payload from a user, tagged with its kind.
// Exactly one of Text, File, or Photo is meaningful depending on Kind.
type Payload struct {
	Kind    Kind        `json:"kind"`
	Text    string      `json:"text,omitempty"`
	Caption string      `json:"caption,omitempty"`
	File    FileRef     `json:"file,omitempty"`
	Photo   []PhotoSize `json:"photo,omitempty"`
}

// LargestPhoto returns the highest-resolution variant of a photo payload,
// measured by pixel area. ok is false when the payload carries no variants.
func (p Payload) LargestPhoto() (best PhotoSize, ok bool) {
	for _, size := range p.Photo {
		if !ok || size.Width*size.Height > best.Width*best.Height {
			best = size
			ok = true
		}
	}
	return best, ok
}
