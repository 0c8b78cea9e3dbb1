package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/feynman-go/proctor/authoring"
	"github.com/feynman-go/proctor/chat"
	"github.com/feynman-go/proctor/emit"
	"github.com/feynman-go/proctor/router"
	"github.com/feynman-go/proctor/session"
)

const (
	adminCh  chat.ChannelID = -100
	workerCh chat.ChannelID = -200
)

func TestCoordinatorProcessesEvents(t *testing.T) {
	rec := chat.NewRecorder()
	store := session.NewStore()
	dialogue := authoring.NewDialogue()
	emitter := emit.New(rec, workerCh, adminCh, store, emit.Option{})
	rt := router.New(store, dialogue, emitter, adminCh, workerCh, router.Option{})

	// One worker keeps the two authoring events ordered.
	co := New(rec, rt, Option{Workers: 1})
	co.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := co.CloseWithContext(ctx); err != nil {
			t.Fatal(err)
		}
	}()

	author := chat.Actor{ID: 1, Username: "author"}
	rec.Push(chat.Event{Kind: chat.EventCommand, Actor: author, Channel: adminCh, Text: "/test"})
	rec.Push(chat.Event{Kind: chat.EventText, Actor: author, Channel: adminCh, Text: "Task A"})

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never created through the event loop")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, ok := rec.LastTo(workerCh); !ok {
		t.Fatal("advertisement never reached the worker channel")
	}
}

func TestCoordinatorStops(t *testing.T) {
	rec := chat.NewRecorder()
	store := session.NewStore()
	emitter := emit.New(rec, workerCh, adminCh, store, emit.Option{})
	rt := router.New(store, authoring.NewDialogue(), emitter, adminCh, workerCh, router.Option{})

	co := New(rec, rt, Option{})
	co.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := co.CloseWithContext(ctx); err != nil {
		t.Fatal("coordinator did not stop:", err)
	}
}
