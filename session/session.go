package session

import (
	"github.com/feynman-go/proctor/chat"
)

type Status int32

const (
	StatusActive Status = iota + 1
	StatusInProgress
	StatusAwaitingReview
	StatusResolved
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInProgress:
		return "inProgress"
	case StatusAwaitingReview:
		return "awaitingReview"
	case StatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Claim binds one actor to one session while the assignment is being worked
// on. Evidence and Code are each set at most once.
type Claim struct {
	ActorID     int64
	DisplayName string
	Evidence    chat.MediaRef
	Code        string
}

// Session is one assignment's full lifecycle record. Claim is non-nil only
// while Status is InProgress or AwaitingReview.
type Session struct {
	ID        string
	Prompt    string
	Status    Status
	TargetMsg chat.MessageRef
	Claim     *Claim
}

func (s Session) clone() Session {
	if s.Claim != nil {
		c := *s.Claim
		s.Claim = &c
	}
	return s
}
