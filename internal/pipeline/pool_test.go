package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool, err := NewPool(context.Background(), 4, 8)
	if err != nil {
		t.Fatal(err)
	}

	var done atomic.Int64
	for i := 0; i < 20; i++ {
		if err := pool.Submit(context.Background(), func(context.Context) {
			done.Add(1)
		}); err != nil {
			t.Fatal(err)
		}
	}
	pool.Close()

	if done.Load() != 20 {
		t.Errorf("ran %d jobs, want 20", done.Load())
	}
}

func TestPoolRejectsInvalidSizes(t *testing.T) {
	if _, err := NewPool(context.Background(), 0, 1); err == nil {
		t.Error("expected error for zero concurrency")
	}
	if _, err := NewPool(context.Background(), 1, 0); err == nil {
		t.Error("expected error for zero queue size")
	}
}

func TestPoolCloseWaitsForInFlightJobs(t *testing.T) {
	pool, err := NewPool(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	var done atomic.Int64
	if err := pool.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
		done.Add(1)
	}); err != nil {
		t.Fatal(err)
	}

	<-started
	go func() { close(release) }()
	pool.Close()

	if done.Load() != 1 {
		t.Error("Close returned before the in-flight job finished")
	}
}
