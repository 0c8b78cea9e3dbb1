package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
)

func claimBy(actor int64) func(s *Session) error {
	return func(s *Session) error {
		if s.Status != StatusActive {
			return errors.New("stale")
		}
		s.Status = StatusInProgress
		s.Claim = &Claim{ActorID: actor, DisplayName: "actor"}
		return nil
	}
}

func TestStoreSingleClaimant(t *testing.T) {
	store := NewStore()
	s := store.Create("prompt")

	var wins int32
	wg := &sync.WaitGroup{}
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(actor int64) {
			defer wg.Done()
			if _, err := store.Update(s.ID, claimBy(actor)); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if wins != 1 {
		t.Fatal("expected exactly one winning claim, got", wins)
	}
	got, ok := store.Get(s.ID)
	if !ok {
		t.Fatal("session not found")
	}
	if got.Status != StatusInProgress {
		t.Fatal("unexpected status", got.Status)
	}
	if got.Claim == nil {
		t.Fatal("winner left no claim")
	}
	byActor, ok := store.ByActor(got.Claim.ActorID)
	if !ok || byActor.ID != s.ID {
		t.Fatal("winner not resolvable through actor index")
	}
}

func TestStoreUpdateErrorLeavesStateUntouched(t *testing.T) {
	store := NewStore()
	s := store.Create("prompt")

	_, err := store.Update(s.ID, func(s *Session) error {
		s.Status = StatusResolved
		s.Claim = &Claim{ActorID: 7}
		return errors.New("reject")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	got, _ := store.Get(s.ID)
	if got.Status != StatusActive || got.Claim != nil {
		t.Fatal("rejected update leaked into the store")
	}
	if _, ok := store.ByActor(7); ok {
		t.Fatal("rejected update leaked into the actor index")
	}
}

func TestStoreActorIndexFollowsClaim(t *testing.T) {
	store := NewStore()
	s := store.Create("prompt")

	if _, err := store.Update(s.ID, claimBy(11)); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.ByActor(11); !ok {
		t.Fatal("claimant missing from index")
	}

	// Failed resolution resets the session in place.
	_, err := store.Update(s.ID, func(s *Session) error {
		s.Status = StatusActive
		s.Claim = nil
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.ByActor(11); ok {
		t.Fatal("cleared claimant still in index")
	}

	if _, err := store.Update(s.ID, claimBy(12)); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.ByActor(11); ok {
		t.Fatal("old claimant matched after re-claim")
	}
	if got, ok := store.ByActor(12); !ok || got.ID != s.ID {
		t.Fatal("new claimant not matched")
	}
}

func TestStoreRejectsSecondClaimByActor(t *testing.T) {
	store := NewStore()
	a := store.Create("first")
	b := store.Create("second")

	if _, err := store.Update(a.ID, claimBy(7)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Update(b.ID, claimBy(7)); errors.Cause(err) != ErrActorBusy {
		t.Fatal("expected ErrActorBusy, got", err)
	}

	gotB, _ := store.Get(b.ID)
	if gotB.Status != StatusActive || gotB.Claim != nil {
		t.Fatal("rejected claim leaked into the second session:", gotB.Status, gotB.Claim)
	}
	byActor, ok := store.ByActor(7)
	if !ok || byActor.ID != a.ID {
		t.Fatal("actor index moved off the held session")
	}

	// The held session stays completable through the actor index.
	got, err := store.UpdateByActor(7, func(s *Session) error {
		s.Claim.Evidence = "file-1"
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != a.ID || got.Claim.Evidence != "file-1" {
		t.Fatal("submission did not land on the held session")
	}

	// Another actor can still claim the second session.
	if _, err := store.Update(b.ID, claimBy(8)); err != nil {
		t.Fatal(err)
	}
}

func TestStoreUpdateByActor(t *testing.T) {
	store := NewStore()
	s := store.Create("prompt")

	if _, err := store.UpdateByActor(5, func(s *Session) error { return nil }); errors.Cause(err) != ErrNoActorSession {
		t.Fatal("expected ErrNoActorSession, got", err)
	}

	if _, err := store.Update(s.ID, claimBy(5)); err != nil {
		t.Fatal(err)
	}
	got, err := store.UpdateByActor(5, func(s *Session) error {
		s.Claim.Evidence = "file-1"
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Claim == nil || got.Claim.Evidence != "file-1" {
		t.Fatal("evidence not committed")
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	store := NewStore()
	s := store.Create("prompt")
	if _, err := store.Update(s.ID, claimBy(9)); err != nil {
		t.Fatal(err)
	}

	snap, _ := store.Get(s.ID)
	snap.Claim.Evidence = "tampered"
	snap.Status = StatusResolved

	got, _ := store.Get(s.ID)
	if got.Claim.Evidence != "" || got.Status != StatusInProgress {
		t.Fatal("snapshot mutation reached the store")
	}
}

func TestStoreNoLostUpdateAcrossSessions(t *testing.T) {
	store := NewStore()
	a := store.Create("a")
	b := store.Create("b")
	if _, err := store.Update(a.ID, claimBy(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Update(b.ID, claimBy(2)); err != nil {
		t.Fatal(err)
	}

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		store.UpdateByActor(1, func(s *Session) error {
			s.Claim.Evidence = "ev-a"
			return nil
		})
		store.UpdateByActor(1, func(s *Session) error {
			s.Claim.Code = "1111"
			s.Status = StatusAwaitingReview
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		store.UpdateByActor(2, func(s *Session) error {
			s.Claim.Evidence = "ev-b"
			return nil
		})
	}()
	wg.Wait()

	got, _ := store.Get(a.ID)
	if got.Status != StatusAwaitingReview || got.Claim.Evidence != "ev-a" || got.Claim.Code != "1111" {
		t.Fatal("lost update on session a:", got.Status, got.Claim)
	}
}
