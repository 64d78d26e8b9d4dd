package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestQueueRunsTasks(t *testing.T) {
	q := New(8, 2, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		ok := q.Enqueue(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		if !ok {
			t.Fatalf("enqueue %d rejected", i)
		}
	}

	q.Close()
	if got := ran.Load(); got != 5 {
		t.Fatalf("expected 5 tasks to run, got %d", got)
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := New(1, 1, zap.NewNop())
	// Workers not started: the single buffer slot fills and the rest drop.

	if !q.Enqueue(func(ctx context.Context) error { return nil }) {
		t.Fatalf("expected first enqueue to succeed")
	}
	if q.Enqueue(func(ctx context.Context) error { return nil }) {
		t.Fatalf("expected enqueue on a full queue to be dropped")
	}
}

func TestQueueTaskErrorsDoNotStopWorkers(t *testing.T) {
	q := New(8, 1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	done := make(chan struct{})
	q.Enqueue(func(ctx context.Context) error { return errors.New("boom") })
	q.Enqueue(func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker stopped after a task error")
	}
	q.Close()
}

func TestQueueEnqueueAfterClose(t *testing.T) {
	q := New(4, 1, zap.NewNop())
	ctx := context.Background()
	q.Start(ctx)
	q.Close()

	if q.Enqueue(func(ctx context.Context) error { return nil }) {
		t.Fatalf("expected enqueue after close to be rejected")
	}
}
