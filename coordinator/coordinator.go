// Package coordinator owns the event-processing lifecycle: it pulls inbound
// events from the transport source and hands them to the router on a small
// pool of handler goroutines. Events for different sessions process in
// parallel; per-session ordering is the store's job.
package coordinator

import (
	"context"
	"time"

	"github.com/feynman-go/proctor/chat"
	"github.com/feynman-go/proctor/router"
	"github.com/feynman-go/proctor/syncrun"
	"github.com/feynman-go/proctor/syncrun/prob"
	"go.uber.org/zap"
)

const _defaultWorkers = 4

type Coordinator struct {
	pb      *prob.Prob
	source  chat.Source
	router  *router.Router
	logger  *zap.Logger
	workers int
}

type Option struct {
	Logger *zap.Logger
	// Workers is the number of concurrent handler goroutines.
	Workers int
}

func New(source chat.Source, rt *router.Router, option Option) *Coordinator {
	if option.Logger == nil {
		option.Logger = zap.L()
	}
	if option.Workers <= 0 {
		option.Workers = _defaultWorkers
	}
	c := &Coordinator{
		source:  source,
		router:  rt,
		logger:  option.Logger,
		workers: option.Workers,
	}
	c.pb = prob.New(c.run)
	return c
}

func (c *Coordinator) Start() {
	c.pb.Start()
}

func (c *Coordinator) CloseWithContext(ctx context.Context) error {
	return c.pb.StopAndWait(ctx)
}

func (c *Coordinator) Run(ctx context.Context) {
	c.pb.Start()
	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.pb.StopAndWait(stopCtx); err != nil {
			c.logger.Error("stop coordinator", zap.Error(err))
		}
	case <-c.pb.Stopped():
	}
}

func (c *Coordinator) run(ctx context.Context) {
	events := make(chan chat.Event)

	runners := []func(ctx context.Context){
		syncrun.FuncWithRestart(func(ctx context.Context) bool {
			return c.fetch(ctx, events)
		}, syncrun.RandRestart(time.Second, 5*time.Second)),
	}
	for i := 0; i < c.workers; i++ {
		runners = append(runners, func(ctx context.Context) {
			c.handle(ctx, events)
		})
	}

	c.logger.Info("coordinator started", zap.Int("workers", c.workers))
	syncrun.Run(ctx, runners...)
	c.logger.Info("coordinator stopped")
}

func (c *Coordinator) fetch(ctx context.Context, events chan<- chat.Event) bool {
	for ctx.Err() == nil {
		ev, err := c.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			c.logger.Error("read event source", zap.Error(err))
			return true
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return false
}

func (c *Coordinator) handle(ctx context.Context, events <-chan chat.Event) {
	for {
		select {
		case ev := <-events:
			c.router.Handle(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}
