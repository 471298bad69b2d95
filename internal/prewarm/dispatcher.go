package prewarm

import (
	"context"
	"errors"
	"sync"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/metrics"
)

// Ensurer makes sure an archive exists for a date. Implementations log their
// own failures.
type Ensurer interface {
	EnsureDayExists(ctx context.Context, date string)
	EnsureNextDayExists(ctx context.Context)
}

// Dispatcher fans queued tasks out to a fixed pool of workers.
type Dispatcher struct {
	queue   *Queue
	ensurer Ensurer
	workers int
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// New creates a Dispatcher. workers below one is treated as one.
func New(queue *Queue, ensurer Ensurer, workers int, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		ensurer: ensurer,
		workers: workers,
		logger:  logger,
		pending: make(map[string]struct{}),
	}
}

// Submit schedules task without blocking. A date that is already queued or
// running is skipped; a full queue drops the task.
func (d *Dispatcher) Submit(task Task) bool {
	d.mu.Lock()
	if _, dup := d.pending[task.Date]; dup {
		d.mu.Unlock()
		metrics.ObservePrewarm("duplicate")
		d.logger.Debug("pre-warm already pending", zap.String("date", task.Date))
		return false
	}
	d.pending[task.Date] = struct{}{}
	d.mu.Unlock()

	if !d.queue.TryEnqueue(task) {
		d.release(task.Date)
		metrics.ObservePrewarm("dropped")
		d.logger.Warn("pre-warm queue full; task dropped",
			zap.String("date", task.Date),
			zap.String("reason", task.Reason),
		)
		return false
	}
	metrics.ObservePrewarm("queued")
	return true
}

// Run starts all workers and blocks until the context finishes or the queue
// is closed and drained. A worker panic is re-raised here.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg conc.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Go(func() { d.work(ctx, i) })
	}
	wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	logger := d.logger.With(zap.Int("worker", id))
	for {
		task, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, ErrQueueClosed) {
				logger.Error("dequeue failed", zap.Error(err))
				continue
			}
			return
		}
		logger.Debug("pre-warm started", zap.String("date", task.Date), zap.String("reason", task.Reason))
		if task.NextDay {
			d.ensurer.EnsureNextDayExists(ctx)
		} else {
			d.ensurer.EnsureDayExists(ctx, task.Date)
		}
		d.release(task.Date)
		metrics.ObservePrewarm("completed")
	}
}

func (d *Dispatcher) release(date string) {
	d.mu.Lock()
	delete(d.pending, date)
	d.mu.Unlock()
}
