// Package prob is a start/stop lifecycle handle around a long-running
// function.
package prob

import (
	"context"
	"sync"
)

type state int32

const (
	stateInit state = iota
	stateUp
	stateDown
)

// Prob supervises one function. Start runs it in its own goroutine with a
// context canceled by Stop; Stopped is closed once the function returned.
// Start and Stop are both one-shot.
type Prob struct {
	rw      sync.RWMutex
	f       func(ctx context.Context)
	cancel  func()
	state   state
	stopped chan struct{}
	running chan struct{}
}

func New(f func(ctx context.Context)) *Prob {
	return &Prob{
		f:       f,
		stopped: make(chan struct{}),
		running: make(chan struct{}),
	}
}

func (pb *Prob) Start() bool {
	pb.rw.Lock()
	defer pb.rw.Unlock()

	if pb.state != stateInit {
		return false
	}
	pb.state = stateUp
	go pb.run()
	return true
}

func (pb *Prob) run() {
	defer pb.didStop()

	ctx, cancel := context.WithCancel(context.Background())
	pb.rw.Lock()
	if pb.state != stateUp {
		pb.rw.Unlock()
		cancel()
		return
	}
	pb.cancel = cancel
	close(pb.running)
	pb.rw.Unlock()

	if pb.f != nil {
		pb.f(ctx)
	}
}

func (pb *Prob) didStop() {
	pb.rw.Lock()
	defer pb.rw.Unlock()
	pb.cancel = nil
	select {
	case <-pb.stopped:
	default:
		close(pb.stopped)
	}
}

func (pb *Prob) Stop() {
	pb.rw.Lock()
	defer pb.rw.Unlock()

	switch pb.state {
	case stateInit:
		pb.state = stateDown
		close(pb.stopped)
	case stateUp:
		pb.state = stateDown
		if pb.cancel != nil {
			pb.cancel()
		}
	case stateDown:
	}
}

func (pb *Prob) Stopped() <-chan struct{} {
	return pb.stopped
}

func (pb *Prob) Running() <-chan struct{} {
	return pb.running
}

func (pb *Prob) IsStopped() bool {
	select {
	case <-pb.stopped:
		return true
	default:
		return false
	}
}

func (pb *Prob) StopAndWait(ctx context.Context) error {
	pb.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-pb.stopped:
		return nil
	}
}
