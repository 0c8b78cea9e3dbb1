// Package emit turns declared workflow effects into transport calls.
// Dispatch is best-effort and runs after the session state is committed: a
// failed send is logged and counted, never rolled back into session state.
package emit

import (
	"context"

	"github.com/feynman-go/proctor/chat"
	"github.com/feynman-go/proctor/session"
	"github.com/feynman-go/proctor/workflow"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Emitter struct {
	tr      chat.Transport
	worker  chat.ChannelID
	admin   chat.ChannelID
	store   *session.Store
	limiter *rate.Limiter
	logger  *zap.Logger
}

type Option struct {
	Logger *zap.Logger
	// Limiter throttles all outbound calls. Nil means no throttling.
	Limiter *rate.Limiter
}

func New(tr chat.Transport, worker, admin chat.ChannelID, store *session.Store, option Option) *Emitter {
	if option.Logger == nil {
		option.Logger = zap.L()
	}
	return &Emitter{
		tr:      tr,
		worker:  worker,
		admin:   admin,
		store:   store,
		limiter: option.Limiter,
		logger:  option.Logger,
	}
}

// Dispatch delivers each effect in order. Failures are logged per effect and
// do not stop the rest of the batch.
func (em *Emitter) Dispatch(ctx context.Context, effects []workflow.Effect) {
	for _, ef := range effects {
		if err := em.dispatch(ctx, ef); err != nil {
			transportFailures.WithLabelValues(opLabel(ef.Kind)).Inc()
			em.logger.Error("dispatch effect",
				zap.Int32("kind", int32(ef.Kind)),
				zap.String("advertFor", ef.AdvertFor),
				zap.Error(err))
		}
	}
}

func (em *Emitter) dispatch(ctx context.Context, ef workflow.Effect) error {
	if err := em.wait(ctx); err != nil {
		return err
	}

	switch ef.Kind {
	case workflow.EffectSend:
		ref, err := em.tr.SendMessage(ctx, em.channel(ef.Dest), ef.Text, ef.Controls)
		if err != nil {
			return errors.WithMessage(err, "send")
		}
		if ef.AdvertFor != "" {
			em.bindAdvert(ef.AdvertFor, ref)
		}
		return nil
	case workflow.EffectEdit:
		return errors.WithMessage(em.tr.EditMessage(ctx, ef.Ref, ef.Text, ef.Controls), "edit")
	case workflow.EffectEditControls:
		return errors.WithMessage(em.tr.EditControls(ctx, ef.Ref, ef.Controls), "edit controls")
	case workflow.EffectSendMedia:
		_, err := em.tr.SendMedia(ctx, em.channel(ef.Dest), ef.Media, ef.Text, ef.Controls)
		return errors.WithMessage(err, "send media")
	default:
		return errors.Errorf("unknown effect kind %d", ef.Kind)
	}
}

// bindAdvert records the freshly sent advertisement as the session's target
// message. Only an Active session without a bound advertisement takes the
// ref; anything else means the session moved on and the ref is stale.
func (em *Emitter) bindAdvert(id string, ref chat.MessageRef) {
	_, err := em.store.Update(id, func(s *session.Session) error {
		if s.Status != session.StatusActive || !s.TargetMsg.Zero() {
			return errors.WithMessagef(workflow.ErrStale, "bind advert %s", id)
		}
		s.TargetMsg = ref
		return nil
	})
	if err != nil {
		em.logger.Warn("bind advertisement", zap.String("session", id), zap.Error(err))
	}
}

// SendWorker sends directly to the worker channel, outside the effect path.
func (em *Emitter) SendWorker(ctx context.Context, text string, ctl chat.Controls) (chat.MessageRef, error) {
	if err := em.wait(ctx); err != nil {
		return chat.MessageRef{}, err
	}
	return em.tr.SendMessage(ctx, em.worker, text, ctl)
}

// SendAdmin sends directly to the administrative channel.
func (em *Emitter) SendAdmin(ctx context.Context, text string, ctl chat.Controls) (chat.MessageRef, error) {
	if err := em.wait(ctx); err != nil {
		return chat.MessageRef{}, err
	}
	return em.tr.SendMessage(ctx, em.admin, text, ctl)
}

// Edit edits a previously sent message.
func (em *Emitter) Edit(ctx context.Context, ref chat.MessageRef, text string, ctl chat.Controls) error {
	if err := em.wait(ctx); err != nil {
		return err
	}
	return em.tr.EditMessage(ctx, ref, text, ctl)
}

// Answer acknowledges a button press, optionally as an alert popup.
func (em *Emitter) Answer(ctx context.Context, callback, text string, alert bool) error {
	if callback == "" {
		return nil
	}
	if err := em.wait(ctx); err != nil {
		return err
	}
	return em.tr.Answer(ctx, callback, text, alert)
}

func (em *Emitter) wait(ctx context.Context) error {
	if em.limiter == nil {
		return nil
	}
	if err := em.limiter.Wait(ctx); err != nil {
		return errors.WithMessage(err, "rate limited")
	}
	return nil
}

func (em *Emitter) channel(dest workflow.Dest) chat.ChannelID {
	if dest == workflow.DestAdmin {
		return em.admin
	}
	return em.worker
}

func opLabel(kind workflow.EffectKind) string {
	switch kind {
	case workflow.EffectSend:
		return "send"
	case workflow.EffectEdit:
		return "edit"
	case workflow.EffectEditControls:
		return "editControls"
	case workflow.EffectSendMedia:
		return "sendMedia"
	default:
		return "unknown"
	}
}
