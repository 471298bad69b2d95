// Package prewarm schedules background scrapes of upcoming days so that later
// requests are served from disk.
package prewarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrQueueClosed is returned by Dequeue after Close once the queue drains.
var ErrQueueClosed = errors.New("queue closed")

// Task asks for one date to be present on disk.
type Task struct {
	Date   string
	Reason string
	// NextDay defers to the anchored tomorrow at run time. Date then holds the
	// submit-time value, used for de-duplication and logs.
	NextDay bool
}

// Queue is a bounded in-memory queue. Producers never block.
type Queue struct {
	ch      chan Task
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch: make(chan Task, capacity),
	}
}

// TryEnqueue adds the task if there is room. It reports false when the queue
// is full or closed.
func (q *Queue) TryEnqueue(task Task) bool {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- task:
		return true
	default:
		return false
	}
}

// Dequeue pops the next task, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (Task, error) {
	select {
	case <-ctx.Done():
		return Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task, ok := <-q.ch:
		if !ok {
			return Task{}, ErrQueueClosed
		}
		return task, nil
	}
}

// Len reports queued tasks.
func (q *Queue) Len() int { return len(q.ch) }

// Close stops accepting tasks. Already queued tasks can still be dequeued.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
