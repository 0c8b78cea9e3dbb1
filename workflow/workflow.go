// Package workflow holds the assignment lifecycle state machine. Apply is
// pure transition logic: it mutates only the session record it is handed and
// declares outbound effects, leaving locking to the session store and
// delivery to the emitter.
package workflow

import (
	"fmt"

	"github.com/feynman-go/proctor/chat"
	"github.com/feynman-go/proctor/session"
	"github.com/pkg/errors"
)

// CodeLength is the fixed length of the numeric completion code.
const CodeLength = 4

type ActionKind int32

const (
	ActionClaim ActionKind = iota + 1
	ActionSubmitEvidence
	ActionSubmitCode
	ActionResolvePass
	ActionResolveFail
)

func (k ActionKind) String() string {
	switch k {
	case ActionClaim:
		return "claim"
	case ActionSubmitEvidence:
		return "submitEvidence"
	case ActionSubmitCode:
		return "submitCode"
	case ActionResolvePass:
		return "resolvePass"
	case ActionResolveFail:
		return "resolveFail"
	default:
		return "unknown"
	}
}

// Action is one inbound request against a session. Origin is the message the
// triggering button was attached to, when the action came from a button.
type Action struct {
	Kind     ActionKind
	Actor    chat.Actor
	Evidence chat.MediaRef
	Code     string
	Origin   chat.MessageRef
}

type Dest int32

const (
	DestWorker Dest = iota + 1
	DestAdmin
)

type EffectKind int32

const (
	EffectSend EffectKind = iota + 1
	EffectEdit
	EffectEditControls
	EffectSendMedia
)

// Effect is one declared outbound operation. AdvertFor, when set, tells the
// emitter to bind the sent message's ref back to that session as its new
// advertisement.
type Effect struct {
	Kind      EffectKind
	Dest      Dest
	Ref       chat.MessageRef
	Text      string
	Media     chat.MediaRef
	Controls  chat.Controls
	AdvertFor string
}

// Apply computes the transition for act against s. On success s is mutated to
// the next state and the effects to dispatch are returned; on failure an
// error kind is returned and s must be treated as untouched.
func Apply(s *session.Session, act Action) ([]Effect, error) {
	switch act.Kind {
	case ActionClaim:
		return applyClaim(s, act)
	case ActionSubmitEvidence:
		return applyEvidence(s, act)
	case ActionSubmitCode:
		return applyCode(s, act)
	case ActionResolvePass:
		return applyResolve(s, act, true)
	case ActionResolveFail:
		return applyResolve(s, act, false)
	default:
		return nil, errors.Errorf("unknown action kind %d", act.Kind)
	}
}

func applyClaim(s *session.Session, act Action) ([]Effect, error) {
	if s.Status != session.StatusActive {
		return nil, errors.WithMessage(ErrStale, "claim")
	}

	name := act.Actor.DisplayName()
	s.Status = session.StatusInProgress
	s.Claim = &session.Claim{ActorID: act.Actor.ID, DisplayName: name}

	return []Effect{
		{
			Kind: EffectEdit,
			Ref:  s.TargetMsg,
			Text: AdvertText(s.Prompt) + "\n\n👤 Claimed by " + name,
		},
		{
			Kind: EffectSend,
			Dest: DestWorker,
			Text: fmt.Sprintf("%s, to complete the assignment send:\n1. A screenshot of the result\n2. The last %d digits of the number", name, CodeLength),
		},
	}, nil
}

func applyEvidence(s *session.Session, act Action) ([]Effect, error) {
	if s.Status != session.StatusInProgress || s.Claim == nil || s.Claim.ActorID != act.Actor.ID {
		return nil, errors.WithMessage(ErrStale, "submit evidence")
	}
	if s.Claim.Evidence != "" {
		return nil, errors.WithMessage(ErrEvidenceSet, "submit evidence")
	}

	s.Claim.Evidence = act.Evidence
	return []Effect{
		{
			Kind: EffectSend,
			Dest: DestWorker,
			Text: fmt.Sprintf("✅ Screenshot received! Now send the %d digits of the number.", CodeLength),
		},
	}, nil
}

func applyCode(s *session.Session, act Action) ([]Effect, error) {
	if s.Status != session.StatusInProgress || s.Claim == nil || s.Claim.ActorID != act.Actor.ID {
		return nil, errors.WithMessage(ErrStale, "submit code")
	}
	if !ValidCode(act.Code) {
		return nil, errors.WithMessagef(ErrMalformedCode, "code %q", act.Code)
	}
	if s.Claim.Evidence == "" {
		return nil, errors.WithMessage(ErrEvidenceMissing, "submit code")
	}

	s.Status = session.StatusAwaitingReview
	s.Claim.Code = act.Code

	return []Effect{
		{
			Kind:  EffectSendMedia,
			Dest:  DestAdmin,
			Media: s.Claim.Evidence,
			Text:  fmt.Sprintf("🛑 Review\n\nCode: %s\nFrom: %s", act.Code, s.Claim.DisplayName),
			Controls: chat.Controls{
				{{Label: "✅ Passed", Data: PayloadPass(s.ID)}},
				{{Label: "❌ Failed", Data: PayloadFail(s.ID)}},
			},
		},
		{
			Kind: EffectSend,
			Dest: DestWorker,
			Text: "✅ Submitted for review!",
		},
	}, nil
}

func applyResolve(s *session.Session, act Action, passed bool) ([]Effect, error) {
	if s.Status != session.StatusAwaitingReview || s.Claim == nil {
		return nil, errors.WithMessage(ErrStale, "resolve")
	}

	name := s.Claim.DisplayName
	effects := []Effect{
		{Kind: EffectEditControls, Ref: act.Origin},
	}

	if passed {
		s.Status = session.StatusResolved
		s.Claim = nil
		effects = append(effects, Effect{
			Kind: EffectSend,
			Dest: DestWorker,
			Text: fmt.Sprintf("✅ Assignment passed by %s!", name),
		})
		return effects, nil
	}

	// Failed resolution restarts the lifecycle in place: same prompt, fresh
	// advertisement bound once the send is acknowledged.
	s.Status = session.StatusActive
	s.Claim = nil
	s.TargetMsg = chat.MessageRef{}

	text, ctl := Advertisement(s.ID, s.Prompt)
	effects = append(effects,
		Effect{
			Kind: EffectSend,
			Dest: DestWorker,
			Text: fmt.Sprintf("❌ Assignment failed by %s. Reposting.", name),
		},
		Effect{
			Kind:      EffectSend,
			Dest:      DestWorker,
			Text:      text,
			Controls:  ctl,
			AdvertFor: s.ID,
		},
	)
	return effects, nil
}

// ValidCode reports whether code is exactly CodeLength digits.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// AdvertText renders the advertisement body for a prompt.
func AdvertText(prompt string) string {
	return "🛑 ASSIGNMENT 🛑\n\n" + prompt
}

// Advertisement renders the full claimable advertisement for a session.
func Advertisement(id, prompt string) (string, chat.Controls) {
	return AdvertText(prompt), chat.SingleButton("✅ I'll do it", PayloadClaim(id))
}
