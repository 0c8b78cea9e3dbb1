// Package router maps inbound chat events onto workflow actions and runs
// them through the session store. It is the error boundary of the process:
// no event, however malformed, may take down the loop.
package router

import (
	"context"
	"strings"

	"github.com/feynman-go/proctor/authoring"
	"github.com/feynman-go/proctor/chat"
	"github.com/feynman-go/proctor/emit"
	"github.com/feynman-go/proctor/session"
	"github.com/feynman-go/proctor/workflow"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// AuthorCommand starts the authoring dialogue in the administrative channel.
const AuthorCommand = "/test"

type Router struct {
	store    *session.Store
	dialogue *authoring.Dialogue
	emitter  *emit.Emitter
	admin    chat.ChannelID
	worker   chat.ChannelID
	variant  chat.VariantPolicy
	logger   *zap.Logger
}

type Option struct {
	Logger *zap.Logger
	// Variant picks which media resolution to keep as evidence. Defaults to
	// second-largest.
	Variant chat.VariantPolicy
}

func New(store *session.Store, dialogue *authoring.Dialogue, emitter *emit.Emitter, admin, worker chat.ChannelID, option Option) *Router {
	if option.Logger == nil {
		option.Logger = zap.L()
	}
	if !option.Variant.Valid() {
		option.Variant = chat.VariantSecondLargest
	}
	return &Router{
		store:    store,
		dialogue: dialogue,
		emitter:  emitter,
		admin:    admin,
		worker:   worker,
		variant:  option.Variant,
		logger:   option.Logger,
	}
}

// Handle processes one inbound event to completion. Safe for concurrent use:
// per-session serialization happens inside the store, not here.
func (rt *Router) Handle(ctx context.Context, ev chat.Event) {
	timer := startTimer(ev.Kind.String())
	defer func() {
		if rc := recover(); rc != nil {
			eventsTotal.WithLabelValues(ev.Kind.String(), "panic").Inc()
			rt.logger.Error("handler panic",
				zap.Any("panic", rc),
				zap.Int64("actor", ev.Actor.ID),
				zap.Int64("channel", int64(ev.Channel)),
				zap.Stringer("kind", ev.Kind))
			rt.apologize(ctx, ev)
		}
		timer.done()
	}()

	result := rt.route(ctx, ev)
	eventsTotal.WithLabelValues(ev.Kind.String(), result).Inc()
}

func (rt *Router) route(ctx context.Context, ev chat.Event) string {
	switch ev.Kind {
	case chat.EventCommand:
		return rt.handleCommand(ctx, ev)
	case chat.EventButton:
		return rt.handleButton(ctx, ev)
	case chat.EventText:
		if ev.Channel == rt.admin && rt.dialogue.Pending(ev.Actor.ID) {
			return rt.createSession(ctx, ev)
		}
		if ev.Channel == rt.worker {
			return rt.submitCode(ctx, ev)
		}
		return "ignored"
	case chat.EventMedia:
		if ev.Channel == rt.worker {
			return rt.submitEvidence(ctx, ev)
		}
		return "ignored"
	default:
		rt.logger.Warn("unknown event kind", zap.Int32("kind", int32(ev.Kind)))
		return "ignored"
	}
}

func (rt *Router) handleCommand(ctx context.Context, ev chat.Event) string {
	if ev.Channel != rt.admin || ev.Text != AuthorCommand {
		return "ignored"
	}
	ref, err := rt.emitter.SendAdmin(ctx, "Send the assignment text:",
		chat.SingleButton("❌ Cancel", workflow.PayloadCancel))
	if err != nil {
		rt.logger.Error("send authoring prompt", zap.Error(err))
		return "error"
	}
	rt.dialogue.Begin(ev.Actor.ID, ref)
	return "ok"
}

func (rt *Router) createSession(ctx context.Context, ev chat.Event) string {
	prompt := strings.TrimSpace(ev.Text)
	if prompt == "" {
		return "ignored"
	}
	rt.dialogue.Take(ev.Actor.ID)

	s := rt.store.Create(prompt)
	text, ctl := workflow.Advertisement(s.ID, s.Prompt)
	rt.emitter.Dispatch(ctx, []workflow.Effect{{
		Kind:      workflow.EffectSend,
		Dest:      workflow.DestWorker,
		Text:      text,
		Controls:  ctl,
		AdvertFor: s.ID,
	}})
	if _, err := rt.emitter.SendAdmin(ctx, "✅ Template sent to the worker chat!", nil); err != nil {
		rt.logger.Warn("acknowledge author", zap.Error(err))
	}
	rt.logger.Info("session created", zap.String("session", s.ID))
	return "ok"
}

func (rt *Router) handleButton(ctx context.Context, ev chat.Event) string {
	if ev.Data == workflow.PayloadCancel {
		return rt.cancelAuthoring(ctx, ev)
	}

	kind, id, ok := workflow.ParsePayload(ev.Data)
	if !ok {
		rt.logger.Warn("unrecognized button payload", zap.String("data", ev.Data))
		if err := rt.emitter.Answer(ctx, ev.Callback, "", false); err != nil {
			rt.logger.Warn("answer button", zap.Error(err))
		}
		return "ignored"
	}

	act := workflow.Action{Kind: kind, Actor: ev.Actor, Origin: ev.Origin}
	var effects []workflow.Effect
	_, err := rt.store.Update(id, func(s *session.Session) error {
		var err error
		effects, err = workflow.Apply(s, act)
		return err
	})
	switch {
	case err == nil:
		if err := rt.emitter.Answer(ctx, ev.Callback, "", false); err != nil {
			rt.logger.Warn("answer button", zap.Error(err))
		}
		rt.emitter.Dispatch(ctx, effects)
		return "ok"
	case errors.Cause(err) == session.ErrNotFound || workflow.IsStale(err):
		if err := rt.emitter.Answer(ctx, ev.Callback, staleNotice(kind), true); err != nil {
			rt.logger.Warn("answer stale button", zap.Error(err))
		}
		return "stale"
	case errors.Cause(err) == session.ErrActorBusy:
		if err := rt.emitter.Answer(ctx, ev.Callback, "⚠ Finish your current assignment first", true); err != nil {
			rt.logger.Warn("answer busy claimant", zap.Error(err))
		}
		return "rejected"
	default:
		rt.logger.Error("apply button action",
			zap.String("session", id), zap.Stringer("action", kind), zap.Error(err))
		rt.apologize(ctx, ev)
		return "error"
	}
}

func (rt *Router) cancelAuthoring(ctx context.Context, ev chat.Event) string {
	if _, ok := rt.dialogue.Take(ev.Actor.ID); !ok {
		if err := rt.emitter.Answer(ctx, ev.Callback, "", false); err != nil {
			rt.logger.Warn("answer button", zap.Error(err))
		}
		return "stale"
	}
	if err := rt.emitter.Answer(ctx, ev.Callback, "", false); err != nil {
		rt.logger.Warn("answer button", zap.Error(err))
	}
	if err := rt.emitter.Edit(ctx, ev.Origin, "❌ Assignment creation canceled", nil); err != nil {
		rt.logger.Warn("edit authoring prompt", zap.Error(err))
	}
	return "ok"
}

func (rt *Router) submitEvidence(ctx context.Context, ev chat.Event) string {
	media := rt.variant.Pick(ev.Variants)
	if media == "" {
		return "ignored"
	}

	act := workflow.Action{Kind: workflow.ActionSubmitEvidence, Actor: ev.Actor, Evidence: media}
	var effects []workflow.Effect
	_, err := rt.store.UpdateByActor(ev.Actor.ID, func(s *session.Session) error {
		var err error
		effects, err = workflow.Apply(s, act)
		return err
	})
	switch {
	case err == nil:
		rt.emitter.Dispatch(ctx, effects)
		return "ok"
	case errors.Cause(err) == session.ErrNoActorSession:
		// No claim context to reply into.
		rt.logger.Warn("evidence from unknown actor", zap.Int64("actor", ev.Actor.ID))
		return "unknownActor"
	case errors.Cause(err) == workflow.ErrEvidenceSet:
		rt.replyWorker(ctx, "✅ Screenshot already received — now send the 4 digits of the number.")
		return "rejected"
	case workflow.IsStale(err):
		rt.logger.Warn("stale evidence submission", zap.Int64("actor", ev.Actor.ID), zap.Error(err))
		return "stale"
	default:
		rt.logger.Error("apply evidence", zap.Int64("actor", ev.Actor.ID), zap.Error(err))
		rt.apologize(ctx, ev)
		return "error"
	}
}

func (rt *Router) submitCode(ctx context.Context, ev chat.Event) string {
	act := workflow.Action{Kind: workflow.ActionSubmitCode, Actor: ev.Actor, Code: strings.TrimSpace(ev.Text)}
	var effects []workflow.Effect
	_, err := rt.store.UpdateByActor(ev.Actor.ID, func(s *session.Session) error {
		var err error
		effects, err = workflow.Apply(s, act)
		return err
	})
	switch {
	case err == nil:
		rt.emitter.Dispatch(ctx, effects)
		return "ok"
	case errors.Cause(err) == session.ErrNoActorSession:
		rt.logger.Debug("text from actor without claim", zap.Int64("actor", ev.Actor.ID))
		return "unknownActor"
	case errors.Cause(err) == workflow.ErrMalformedCode:
		rt.replyWorker(ctx, "❌ Send exactly 4 digits of the number.")
		return "rejected"
	case errors.Cause(err) == workflow.ErrEvidenceMissing:
		rt.replyWorker(ctx, "Send the screenshot first, then the 4 digits.")
		return "rejected"
	case workflow.IsStale(err):
		rt.logger.Warn("stale code submission", zap.Int64("actor", ev.Actor.ID), zap.Error(err))
		return "stale"
	default:
		rt.logger.Error("apply code", zap.Int64("actor", ev.Actor.ID), zap.Error(err))
		rt.apologize(ctx, ev)
		return "error"
	}
}

func (rt *Router) replyWorker(ctx context.Context, text string) {
	if _, err := rt.emitter.SendWorker(ctx, text, nil); err != nil {
		rt.logger.Warn("reply to worker channel", zap.Error(err))
	}
}

// apologize is the last-resort user-facing reply after an unexpected failure.
func (rt *Router) apologize(ctx context.Context, ev chat.Event) {
	const text = "❌ Something went wrong while processing. Try again."
	var err error
	switch {
	case ev.Callback != "":
		err = rt.emitter.Answer(ctx, ev.Callback, "⚠ Something went wrong", true)
	case ev.Channel == rt.worker:
		_, err = rt.emitter.SendWorker(ctx, text, nil)
	case ev.Channel == rt.admin:
		_, err = rt.emitter.SendAdmin(ctx, text, nil)
	}
	if err != nil {
		rt.logger.Warn("send apology", zap.Error(err))
	}
}

func staleNotice(kind workflow.ActionKind) string {
	if kind == workflow.ActionClaim {
		return "⚠ This assignment is already taken"
	}
	return "⚠ Assignment not found or already resolved"
}
