package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/maskchat/pairbot/internal/block"
	"github.com/maskchat/pairbot/internal/history"
	"github.com/maskchat/pairbot/internal/matching"
	"github.com/maskchat/pairbot/internal/transport"
)

// delivery records one outbound send made by the fake outbox.
type delivery struct {
	user string
	kind transport.Kind
	text string
	file transport.FileRef
}

// fakeOutbox implements transport.Outbox in memory, issuing sequential
// handles. Setting failNext makes the next delivery fail.
type fakeOutbox struct {
	deliveries []delivery
	retracted  []transport.Handle
	next       int
	failNext   bool
}

func (f *fakeOutbox) deliver(user string, kind transport.Kind, text string, file transport.FileRef) (transport.Handle, error) {
	if f.failNext {
		f.failNext = false
		return "", errors.New("transport down")
	}
	f.deliveries = append(f.deliveries, delivery{user: user, kind: kind, text: text, file: file})
	f.next++
	return transport.Handle(fmt.Sprintf("h%d", f.next)), nil
}

func (f *fakeOutbox) DeliverText(_ context.Context, user string, msg transport.TextMessage) (transport.Handle, error) {
	return f.deliver(user, transport.KindText, msg.Text, transport.FileRef{})
}
func (f *fakeOutbox) DeliverDocument(_ context.Context, user string, file transport.FileRef, caption string) (transport.Handle, error) {
	return f.deliver(user, transport.KindDocument, caption, file)
}
func (f *fakeOutbox) DeliverPhoto(_ context.Context, user string, photo transport.PhotoSize, caption string) (transport.Handle, error) {
	return f.deliver(user, transport.KindPhoto, caption, photo.File)
}
func (f *fakeOutbox) DeliverAudio(_ context.Context, user string, file transport.FileRef, caption string) (transport.Handle, error) {
	return f.deliver(user, transport.KindAudio, caption, file)
}
func (f *fakeOutbox) DeliverVideo(_ context.Context, user string, file transport.FileRef, caption string) (transport.Handle, error) {
	return f.deliver(user, transport.KindVideo, caption, file)
}
func (f *fakeOutbox) DeliverVoice(_ context.Context, user string, file transport.FileRef, caption string) (transport.Handle, error) {
	return f.deliver(user, transport.KindVoice, caption, file)
}
func (f *fakeOutbox) Retract(_ context.Context, _ string, handle transport.Handle) error {
	f.retracted = append(f.retracted, handle)
	return nil
}

func pairedEngine(t *testing.T) (*Engine, *fakeOutbox, *history.Tracker) {
	t.Helper()
	table := matching.NewTable(block.NewRegistry())
	table.FindPartner("a", matching.FindFresh)
	if res := table.FindPartner("b", matching.FindFresh); res.Status != matching.FindMatched {
		t.Fatalf("setup: expected a and b paired, got %+v", res)
	}
	out := &fakeOutbox{}
	tracker := history.NewTracker()
	return NewEngine(table, tracker, out), out, tracker
}

func TestRelay_TextToPartnerRecordsHistory(t *testing.T) {
	engine, out, tracker := pairedEngine(t)

	err := engine.Relay(context.Background(), "a", transport.Payload{
		Kind: transport.KindText,
		Text: "hello",
	})
	if err != nil {
		t.Fatalf("Relay() error: %v", err)
	}

	if len(out.deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(out.deliveries))
	}
	d := out.deliveries[0]
	if d.user != "b" || d.kind != transport.KindText || d.text != "hello" {
		t.Errorf("delivery = %+v, want text %q to b", d, "hello")
	}

	if got := tracker.Handles("b"); len(got) != 1 {
		t.Errorf("partner history = %v, want one handle", got)
	}
	if got := tracker.Handles("a"); len(got) != 0 {
		t.Errorf("sender history = %v, want empty", got)
	}
}

func TestRelay_NoPartnerIsNoop(t *testing.T) {
	table := matching.NewTable(block.NewRegistry())
	out := &fakeOutbox{}
	engine := NewEngine(table, history.NewTracker(), out)

	if err := engine.Relay(context.Background(), "loner", transport.Payload{
		Kind: transport.KindText,
		Text: "anyone?",
	}); err != nil {
		t.Fatalf("Relay() error: %v", err)
	}
	if len(out.deliveries) != 0 {
		t.Errorf("expected no deliveries, got %v", out.deliveries)
	}
}

func TestRelay_PhotoForwardsLargestVariant(t *testing.T) {
	engine, out, _ := pairedEngine(t)

	payload := transport.Payload{
		Kind:    transport.KindPhoto,
		Caption: "sunset",
		Photo: []transport.PhotoSize{
			{File: transport.FileRef{ID: "small"}, Width: 90, Height: 60},
			{File: transport.FileRef{ID: "large"}, Width: 1280, Height: 960},
			{File: transport.FileRef{ID: "medium"}, Width: 320, Height: 240},
		},
	}
	if err := engine.Relay(context.Background(), "a", payload); err != nil {
		t.Fatalf("Relay() error: %v", err)
	}

	if len(out.deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(out.deliveries))
	}
	if out.deliveries[0].file.ID != "large" {
		t.Errorf("forwarded variant = %q, want the largest", out.deliveries[0].file.ID)
	}
}

func TestRelay_PhotoWithoutVariantsIsDropped(t *testing.T) {
	engine, out, _ := pairedEngine(t)

	if err := engine.Relay(context.Background(), "a", transport.Payload{Kind: transport.KindPhoto}); err != nil {
		t.Fatalf("Relay() error: %v", err)
	}
	if len(out.deliveries) != 0 {
		t.Errorf("expected no deliveries, got %v", out.deliveries)
	}
}

func TestRelay_MediaKinds(t *testing.T) {
	kinds := []transport.Kind{
		transport.KindDocument,
		transport.KindAudio,
		transport.KindVideo,
		transport.KindVoice,
	}
	for _, kind := range kinds {
		engine, out, tracker := pairedEngine(t)
		err := engine.Relay(context.Background(), "b", transport.Payload{
			Kind: kind,
			File: transport.FileRef{ID: "f1"},
		})
		if err != nil {
			t.Fatalf("Relay(%s) error: %v", kind, err)
		}
		if len(out.deliveries) != 1 || out.deliveries[0].kind != kind || out.deliveries[0].user != "a" {
			t.Errorf("kind %s: deliveries = %+v", kind, out.deliveries)
		}
		if len(tracker.Handles("a")) != 1 {
			t.Errorf("kind %s: expected one handle recorded for a", kind)
		}
	}
}

func TestRelay_UnknownKindSilentlyDropped(t *testing.T) {
	engine, out, tracker := pairedEngine(t)

	if err := engine.Relay(context.Background(), "a", transport.Payload{Kind: "sticker"}); err != nil {
		t.Fatalf("Relay() error: %v", err)
	}
	if len(out.deliveries) != 0 {
		t.Errorf("unsupported kind must not be delivered, got %v", out.deliveries)
	}
	if len(tracker.Handles("b")) != 0 {
		t.Error("unsupported kind must not be recorded")
	}
}

func TestRelay_DeliveryFailureDoesNotPoisonNextRelay(t *testing.T) {
	engine, out, tracker := pairedEngine(t)
	out.failNext = true

	err := engine.Relay(context.Background(), "a", transport.Payload{
		Kind: transport.KindText,
		Text: "lost",
	})
	if err == nil {
		t.Fatal("expected the failed delivery to surface an error")
	}
	if len(tracker.Handles("b")) != 0 {
		t.Error("failed delivery must not be recorded in history")
	}

	// The next relay goes through untouched.
	if err := engine.Relay(context.Background(), "a", transport.Payload{
		Kind: transport.KindText,
		Text: "retry",
	}); err != nil {
		t.Fatalf("second Relay() error: %v", err)
	}
	if len(out.deliveries) != 1 || out.deliveries[0].text != "retry" {
		t.Errorf("deliveries = %+v, want just the retry", out.deliveries)
	}
}
