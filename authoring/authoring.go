// Package authoring tracks the two-step dialogue that produces a session:
// an author enters "awaiting assignment text" mode, then either supplies the
// text or cancels. The dialogue is scoped to the author and is not part of
// the session state machine.
package authoring

import (
	"sync"

	"github.com/feynman-go/proctor/chat"
)

type Dialogue struct {
	rw      sync.RWMutex
	pending map[int64]chat.MessageRef
}

func NewDialogue() *Dialogue {
	return &Dialogue{
		pending: map[int64]chat.MessageRef{},
	}
}

// Begin puts the author into awaiting-text mode. prompt is the message that
// asked for the text, kept so a cancel can edit it. Re-entering resets the
// previous prompt ref.
func (d *Dialogue) Begin(authorID int64, prompt chat.MessageRef) {
	d.rw.Lock()
	d.pending[authorID] = prompt
	d.rw.Unlock()
}

// Take consumes the author's awaiting-text mode. ok is false when the author
// was not in the dialogue.
func (d *Dialogue) Take(authorID int64) (chat.MessageRef, bool) {
	d.rw.Lock()
	defer d.rw.Unlock()
	ref, ok := d.pending[authorID]
	if ok {
		delete(d.pending, authorID)
	}
	return ref, ok
}

// Pending reports whether the author is in awaiting-text mode.
func (d *Dialogue) Pending(authorID int64) bool {
	d.rw.RLock()
	defer d.rw.RUnlock()
	_, ok := d.pending[authorID]
	return ok
}
