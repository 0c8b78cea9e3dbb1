package chat

import (
	"context"
	"sync"
)

// Recorder is an in-memory Transport and Source for tests. Sends are recorded
// and assigned increasing message ids; inbound events are pushed with Push and
// drained through Next.
type Recorder struct {
	rw     sync.RWMutex
	nextID int64
	sent   []Sent
	events chan Event
}

// Sent is one recorded outbound operation.
type Sent struct {
	Op       string // "send" / "edit" / "editControls" / "media" / "answer"
	Ref      MessageRef
	Channel  ChannelID
	Text     string
	Media    MediaRef
	Controls Controls
	Callback string
	Alert    bool
}

func NewRecorder() *Recorder {
	return &Recorder{
		events: make(chan Event, 64),
	}
}

func (rec *Recorder) SendMessage(ctx context.Context, ch ChannelID, text string, ctl Controls) (MessageRef, error) {
	rec.rw.Lock()
	defer rec.rw.Unlock()
	rec.nextID++
	ref := MessageRef{Channel: ch, ID: rec.nextID}
	rec.sent = append(rec.sent, Sent{Op: "send", Ref: ref, Channel: ch, Text: text, Controls: ctl})
	return ref, nil
}

func (rec *Recorder) EditMessage(ctx context.Context, ref MessageRef, text string, ctl Controls) error {
	rec.rw.Lock()
	defer rec.rw.Unlock()
	rec.sent = append(rec.sent, Sent{Op: "edit", Ref: ref, Channel: ref.Channel, Text: text, Controls: ctl})
	return nil
}

func (rec *Recorder) EditControls(ctx context.Context, ref MessageRef, ctl Controls) error {
	rec.rw.Lock()
	defer rec.rw.Unlock()
	rec.sent = append(rec.sent, Sent{Op: "editControls", Ref: ref, Channel: ref.Channel, Controls: ctl})
	return nil
}

func (rec *Recorder) SendMedia(ctx context.Context, ch ChannelID, media MediaRef, caption string, ctl Controls) (MessageRef, error) {
	rec.rw.Lock()
	defer rec.rw.Unlock()
	rec.nextID++
	ref := MessageRef{Channel: ch, ID: rec.nextID}
	rec.sent = append(rec.sent, Sent{Op: "media", Ref: ref, Channel: ch, Media: media, Text: caption, Controls: ctl})
	return ref, nil
}

func (rec *Recorder) Answer(ctx context.Context, callback string, text string, alert bool) error {
	rec.rw.Lock()
	defer rec.rw.Unlock()
	rec.sent = append(rec.sent, Sent{Op: "answer", Callback: callback, Text: text, Alert: alert})
	return nil
}

// Push queues an inbound event for Next.
func (rec *Recorder) Push(ev Event) {
	rec.events <- ev
}

func (rec *Recorder) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-rec.events:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Recorded returns a snapshot of all recorded operations.
func (rec *Recorder) Recorded() []Sent {
	rec.rw.RLock()
	defer rec.rw.RUnlock()
	out := make([]Sent, len(rec.sent))
	copy(out, rec.sent)
	return out
}

// LastTo returns the most recent operation targeting the given channel.
func (rec *Recorder) LastTo(ch ChannelID) (Sent, bool) {
	rec.rw.RLock()
	defer rec.rw.RUnlock()
	for i := len(rec.sent) - 1; i >= 0; i-- {
		if rec.sent[i].Channel == ch {
			return rec.sent[i], true
		}
	}
	return Sent{}, false
}
