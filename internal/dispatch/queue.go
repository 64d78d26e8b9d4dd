package dispatch

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is a unit of background work. Errors are logged, never propagated:
// the queue exists precisely to keep best-effort work off the request path.
type Task func(ctx context.Context) error

// Queue is a bounded fire-and-forget task queue with a small worker pool.
// Enqueue never blocks; when the buffer is full the task is dropped, which
// the caller can observe and log.
type Queue struct {
	tasks   chan Task
	workers int
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a new Queue instance
func New(size, workers int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		tasks:   make(chan Task, size),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker pool. Workers run until the queue is closed or
// the context is cancelled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-q.tasks:
					if !ok {
						return
					}
					if err := task(ctx); err != nil {
						q.logger.Error("background task failed", zap.Error(err))
					}
				}
			}
		}()
	}
}

// Enqueue submits a task without blocking. It reports false when the queue
// is full or already closed.
func (q *Queue) Enqueue(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	select {
	case q.tasks <- task:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks, lets the workers drain the buffer, and waits
// for them to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	q.wg.Wait()
}
