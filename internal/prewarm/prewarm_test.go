package prewarm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueTryEnqueueNeverBlocks(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	require.True(t, q.TryEnqueue(Task{Date: "2014-01-01"}))
	require.False(t, q.TryEnqueue(Task{Date: "2014-01-02"}))
	require.Equal(t, 1, q.Len())

	q.Close()
	q.Close()
	require.False(t, q.TryEnqueue(Task{Date: "2014-01-03"}))

	task, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2014-01-01", task.Date)
	_, err = q.Dequeue(context.Background())
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueDequeueHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := NewQueue(1).Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcherRunsTasks(t *testing.T) {
	t.Parallel()

	ensurer := &recordingEnsurer{}
	q := NewQueue(4)
	d := New(q, ensurer, 2, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.True(t, d.Submit(Task{Date: "2014-10-16", Reason: "today"}))
	require.True(t, d.Submit(Task{Date: "2014-10-17", Reason: "date"}))

	require.Eventually(t, func() bool {
		return len(ensurer.seen()) == 2
	}, time.Second, 5*time.Millisecond)
	require.ElementsMatch(t, []string{"2014-10-16", "2014-10-17"}, ensurer.seen())

	// Completed dates may be submitted again.
	require.Eventually(t, func() bool {
		return d.Submit(Task{Date: "2014-10-16"})
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcherSkipsPendingDuplicates(t *testing.T) {
	t.Parallel()

	d := New(NewQueue(4), &recordingEnsurer{}, 1, nil)
	require.True(t, d.Submit(Task{Date: "2014-10-16"}))
	require.False(t, d.Submit(Task{Date: "2014-10-16"}))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	t.Parallel()

	d := New(NewQueue(1), &recordingEnsurer{}, 1, nil)
	require.True(t, d.Submit(Task{Date: "2014-10-16"}))
	require.False(t, d.Submit(Task{Date: "2014-10-17"}))
	// The dropped date is not left marked as pending.
	d.mu.Lock()
	_, pending := d.pending["2014-10-17"]
	d.mu.Unlock()
	require.False(t, pending)
}

func TestDispatcherStopsWhenQueueClosed(t *testing.T) {
	t.Parallel()

	ensurer := &recordingEnsurer{}
	q := NewQueue(2)
	d := New(q, ensurer, 1, nil)
	require.True(t, d.Submit(Task{Date: "2014-10-16"}))
	q.Close()

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not drain and stop")
	}
	require.Equal(t, []string{"2014-10-16"}, ensurer.seen())
}

func TestDispatcherResolvesNextDayTasks(t *testing.T) {
	t.Parallel()

	ensurer := &recordingEnsurer{}
	q := NewQueue(4)
	d := New(q, ensurer, 1, nil)
	require.True(t, d.Submit(Task{Date: "2014-10-16", Reason: "today", NextDay: true}))
	require.True(t, d.Submit(Task{Date: "2014-10-20", Reason: "date"}))
	q.Close()

	d.Run(context.Background())
	require.Equal(t, []string{"next", "2014-10-20"}, ensurer.seen())
}

type recordingEnsurer struct {
	mu    sync.Mutex
	dates []string
}

func (r *recordingEnsurer) EnsureNextDayExists(_ context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, "next")
}

func (r *recordingEnsurer) EnsureDayExists(_ context.Context, date string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, date)
}

func (r *recordingEnsurer) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.dates...)
}
