// Package syncrun runs groups of goroutines that live and die together.
package syncrun

import (
	"context"
	"sync"
	"time"

	"github.com/valyala/fastrand"
)

// Run starts every runner in its own goroutine and blocks until all return.
// The first runner to return cancels the shared context, taking the rest
// down with it.
func Run(ctx context.Context, runner ...func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := &sync.WaitGroup{}
	for _, f := range runner {
		wg.Add(1)
		go func(f func(ctx context.Context)) {
			defer wg.Done()
			defer cancel()
			if ctx.Err() == nil {
				f(ctx)
			}
		}(f)
	}
	wg.Wait()
}

// FuncWithRestart wraps runFunc into a supervised loop: while the context
// lives and runFunc reports it can restart, it is re-run after waiting the
// duration restartWait yields.
func FuncWithRestart(runFunc func(ctx context.Context) (canRestart bool), restartWait func() time.Duration) func(ctx context.Context) {
	return func(ctx context.Context) {
		for ctx.Err() == nil {
			if !runFunc(ctx) {
				return
			}
			wait := restartWait()
			if wait <= 0 {
				continue
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}

// RandRestart yields jittered waits in [min, max) so restarting loops do not
// hammer a failing dependency in lockstep.
func RandRestart(min, max time.Duration) func() time.Duration {
	return func() time.Duration {
		if min >= max {
			return max
		}
		spanMs := uint32((max - min) / time.Millisecond)
		if spanMs == 0 {
			return min
		}
		return min + time.Duration(fastrand.Uint32n(spanMs))*time.Millisecond
	}
}
