package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrNoActorSession = errors.New("no session claimed by actor")
	ErrActorBusy      = errors.New("actor already holds a session")
)

// Store is the process-wide registry of sessions. Every mutation of a session
// runs as a single read-modify-write under that session's own lock, and the
// actorID -> sessionID index is maintained inside the same critical section,
// so readers never observe a half-updated claim and an actor can never hold
// two sessions at once. Different sessions update fully in parallel.
//
// The registry starts empty and is simply discarded on shutdown; sessions are
// never deleted.
type Store struct {
	rw       sync.RWMutex
	sessions map[string]*container
	byActor  map[int64]string
}

type container struct {
	mu sync.Mutex
	s  Session
}

func NewStore() *Store {
	return &Store{
		sessions: map[string]*container{},
		byActor:  map[int64]string{},
	}
}

// Create registers a new Active session for the given prompt. The
// advertisement message ref is bound later via Update, once the transport
// acknowledged the send.
func (store *Store) Create(prompt string) Session {
	s := Session{
		ID:     uuid.New().String(),
		Prompt: prompt,
		Status: StatusActive,
	}
	store.rw.Lock()
	store.sessions[s.ID] = &container{s: s}
	store.rw.Unlock()
	return s
}

// Get returns a snapshot of the session. The snapshot shares nothing with the
// stored record.
func (store *Store) Get(id string) (Session, bool) {
	store.rw.RLock()
	ctn := store.sessions[id]
	store.rw.RUnlock()
	if ctn == nil {
		return Session{}, false
	}
	ctn.mu.Lock()
	s := ctn.s.clone()
	ctn.mu.Unlock()
	return s, true
}

// ByActor resolves the session currently claimed by the actor through the
// secondary index.
func (store *Store) ByActor(actorID int64) (Session, bool) {
	store.rw.RLock()
	id, ok := store.byActor[actorID]
	store.rw.RUnlock()
	if !ok {
		return Session{}, false
	}
	return store.Get(id)
}

// Update runs fn against a working copy of the session under the session
// lock. If fn returns nil the copy is committed and the actor index
// reconciled atomically with the commit; if fn errors the session is left
// untouched. The committed (or unchanged) snapshot is returned either way.
func (store *Store) Update(id string, fn func(s *Session) error) (Session, error) {
	store.rw.RLock()
	ctn := store.sessions[id]
	store.rw.RUnlock()
	if ctn == nil {
		return Session{}, ErrNotFound
	}

	ctn.mu.Lock()
	defer ctn.mu.Unlock()
	return store.applyLocked(ctn, fn)
}

// UpdateByActor is Update addressed through the actor index, for submissions
// that carry no session id. The index membership is re-checked after the
// session lock is taken, so a concurrent reset cannot leave fn running
// against a session the actor no longer claims.
func (store *Store) UpdateByActor(actorID int64, fn func(s *Session) error) (Session, error) {
	for {
		store.rw.RLock()
		id, ok := store.byActor[actorID]
		ctn := store.sessions[id]
		store.rw.RUnlock()
		if !ok || ctn == nil {
			return Session{}, ErrNoActorSession
		}

		ctn.mu.Lock()
		store.rw.RLock()
		current := store.byActor[actorID] == id
		store.rw.RUnlock()
		if !current {
			ctn.mu.Unlock()
			continue
		}
		s, err := store.applyLocked(ctn, fn)
		ctn.mu.Unlock()
		return s, err
	}
}

// Len reports the registry size. Sessions are retained forever, so this only
// grows; see package doc for the accepted resource tradeoff.
func (store *Store) Len() int {
	store.rw.RLock()
	defer store.rw.RUnlock()
	return len(store.sessions)
}

// applyLocked requires ctn.mu held. An actor may hold at most one session:
// a commit that would bind an actor already indexed against a different
// session is rejected with ErrActorBusy, leaving both sessions untouched.
func (store *Store) applyLocked(ctn *container, fn func(s *Session) error) (Session, error) {
	next := ctn.s.clone()
	if err := fn(&next); err != nil {
		return ctn.s.clone(), err
	}

	store.rw.Lock()
	if next.Claim != nil {
		if bound, ok := store.byActor[next.Claim.ActorID]; ok && bound != next.ID {
			store.rw.Unlock()
			return ctn.s.clone(), errors.WithMessagef(ErrActorBusy, "actor %d holds %s", next.Claim.ActorID, bound)
		}
	}
	store.reindex(ctn.s, next)
	store.rw.Unlock()
	ctn.s = next
	return next.clone(), nil
}

// reindex requires store.rw held for writing.
func (store *Store) reindex(old, next Session) {
	if old.Claim != nil && (next.Claim == nil || next.Claim.ActorID != old.Claim.ActorID) {
		if store.byActor[old.Claim.ActorID] == old.ID {
			delete(store.byActor, old.Claim.ActorID)
		}
	}
	if next.Claim != nil {
		store.byActor[next.Claim.ActorID] = next.ID
	}
}
