package syncrun

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunFirstExitCancelsGroup(t *testing.T) {
	start := time.Now()
	Run(context.Background(), func(ctx context.Context) {
		// returns immediately, taking the group down
	}, func(ctx context.Context) {
		<-ctx.Done()
	})
	if time.Since(start) > time.Second {
		t.Fatal("group did not cancel on first exit")
	}
}

func TestRunWaitsForAll(t *testing.T) {
	var done int32
	Run(context.Background(), func(ctx context.Context) {
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&done, 1)
	}, func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&done, 1)
	})
	if atomic.LoadInt32(&done) != 2 {
		t.Fatal("Run returned before all runners finished")
	}
}

func TestFuncWithRestart(t *testing.T) {
	var runs int32
	f := FuncWithRestart(func(ctx context.Context) bool {
		return atomic.AddInt32(&runs, 1) < 3
	}, func() time.Duration { return time.Millisecond })

	f(context.Background())
	if atomic.LoadInt32(&runs) != 3 {
		t.Fatal("unexpected run count", runs)
	}
}

func TestFuncWithRestartStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	f := FuncWithRestart(func(ctx context.Context) bool {
		if atomic.AddInt32(&runs, 1) == 1 {
			cancel()
		}
		return true
	}, func() time.Duration { return time.Millisecond })

	f(ctx)
	if atomic.LoadInt32(&runs) != 1 {
		t.Fatal("restarted after context cancel:", runs)
	}
}

func TestRandRestartBounds(t *testing.T) {
	wait := RandRestart(time.Second, 3*time.Second)
	for i := 0; i < 100; i++ {
		d := wait()
		if d < time.Second || d >= 3*time.Second {
			t.Fatal("wait out of bounds:", d)
		}
	}
	if RandRestart(time.Second, time.Second)() != time.Second {
		t.Fatal("degenerate range broken")
	}
	// Swapped bounds settle on the shorter wait.
	if RandRestart(3*time.Second, time.Second)() != time.Second {
		t.Fatal("swapped bounds did not settle on the shorter wait")
	}
}
