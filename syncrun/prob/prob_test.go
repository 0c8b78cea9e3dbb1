package prob

import (
	"context"
	"testing"
	"time"
)

func TestProbStartStop(t *testing.T) {
	pb := New(func(ctx context.Context) {
		<-ctx.Done()
	})
	if !pb.Start() {
		t.Fatal("first start refused")
	}
	if pb.Start() {
		t.Fatal("second start accepted")
	}

	select {
	case <-pb.Running():
	case <-time.After(time.Second):
		t.Fatal("prob did not reach running")
	}
	if pb.IsStopped() {
		t.Fatal("stopped while running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pb.StopAndWait(ctx); err != nil {
		t.Fatal(err)
	}
	if !pb.IsStopped() {
		t.Fatal("not stopped after StopAndWait")
	}
}

func TestProbStopBeforeStart(t *testing.T) {
	pb := New(func(ctx context.Context) {
		t.Error("function ran after pre-start stop")
	})
	pb.Stop()
	select {
	case <-pb.Stopped():
	case <-time.After(time.Second):
		t.Fatal("stopped channel not closed")
	}
	if pb.Start() {
		t.Fatal("start accepted after stop")
	}
}

func TestProbStoppedWhenFuncReturns(t *testing.T) {
	pb := New(func(ctx context.Context) {})
	pb.Start()
	select {
	case <-pb.Stopped():
	case <-time.After(time.Second):
		t.Fatal("prob not stopped after function returned")
	}
}
