package chat

import (
	"context"
)

// ChannelID identifies a chat channel on the transport side.
type ChannelID int64

// MediaRef is an opaque transport handle for an uploaded media object.
type MediaRef string

// MessageRef points at a message previously sent through the transport,
// precise enough to edit it later.
type MessageRef struct {
	Channel ChannelID
	ID      int64
}

func (ref MessageRef) Zero() bool {
	return ref.ID == 0
}

type Button struct {
	Label string
	Data  string
}

// Controls is an inline keyboard: rows of buttons. Nil means no controls,
// and on edit it strips any controls the message carried.
type Controls [][]Button

func SingleButton(label, data string) Controls {
	return Controls{{{Label: label, Data: data}}}
}

type Actor struct {
	ID        int64
	Username  string
	FirstName string
}

func (a Actor) DisplayName() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	return a.FirstName
}

type EventKind int32

const (
	EventCommand EventKind = iota + 1
	EventText
	EventButton
	EventMedia
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventButton:
		return "button"
	case EventMedia:
		return "media"
	default:
		return "unknown"
	}
}

// MediaVariant is one stored resolution of an inbound media object.
type MediaVariant struct {
	Ref    MediaRef
	Width  int
	Height int
}

// Event is one inbound transport event. Which fields are set depends on Kind:
// Command/Text carry Text, Button carries Data, Callback and Origin, Media
// carries Variants.
type Event struct {
	Kind     EventKind
	Actor    Actor
	Channel  ChannelID
	Text     string
	Data     string
	Callback string
	Origin   MessageRef
	Variants []MediaVariant
}

// Transport is the outbound messaging capability the coordinator consumes.
// Implementations own delivery details; callers treat every call as
// best-effort.
type Transport interface {
	SendMessage(ctx context.Context, ch ChannelID, text string, ctl Controls) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, text string, ctl Controls) error
	EditControls(ctx context.Context, ref MessageRef, ctl Controls) error
	SendMedia(ctx context.Context, ch ChannelID, media MediaRef, caption string, ctl Controls) (MessageRef, error)
	Answer(ctx context.Context, callback string, text string, alert bool) error
}

// Source yields inbound events. Next blocks until an event is available or
// ctx ends.
type Source interface {
	Next(ctx context.Context) (Event, error)
}
