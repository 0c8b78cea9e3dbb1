package authoring

import (
	"testing"

	"github.com/feynman-go/proctor/chat"
)

func TestDialogueLifecycle(t *testing.T) {
	d := NewDialogue()
	if d.Pending(1) {
		t.Fatal("fresh dialogue should have no pending author")
	}

	ref := chat.MessageRef{Channel: 10, ID: 5}
	d.Begin(1, ref)
	if !d.Pending(1) {
		t.Fatal("author not pending after Begin")
	}

	got, ok := d.Take(1)
	if !ok || got != ref {
		t.Fatal("Take returned", got, ok)
	}
	if d.Pending(1) {
		t.Fatal("author still pending after Take")
	}
	if _, ok := d.Take(1); ok {
		t.Fatal("second Take succeeded")
	}
}

func TestDialogueReentryResetsPrompt(t *testing.T) {
	d := NewDialogue()
	d.Begin(1, chat.MessageRef{Channel: 10, ID: 1})
	d.Begin(1, chat.MessageRef{Channel: 10, ID: 2})

	got, ok := d.Take(1)
	if !ok || got.ID != 2 {
		t.Fatal("re-entry kept the old prompt ref:", got)
	}
}

func TestDialogueIsPerAuthor(t *testing.T) {
	d := NewDialogue()
	d.Begin(1, chat.MessageRef{Channel: 10, ID: 1})
	if d.Pending(2) {
		t.Fatal("unrelated author pending")
	}
	if _, ok := d.Take(2); ok {
		t.Fatal("unrelated author took the dialogue")
	}
}
