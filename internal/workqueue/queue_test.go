package workqueue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

func identity(s string) string { return s }

func newQueue(t *testing.T, workers int, handler workqueue.Handler[string]) *workqueue.Queue[string] {
	t.Helper()
	q, err := workqueue.New(workqueue.Options[string]{
		Name:    "test",
		Workers: workers,
		Key:     identity,
		Handler: handler,
	})
	require.NoError(t, err)
	t.Cleanup(q.Close)
	return q
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := workqueue.New(workqueue.Options[string]{Name: "x", Workers: 0, Key: identity})
	assert.Error(t, err)
	_, err = workqueue.New(workqueue.Options[string]{Name: "x", Workers: 1})
	assert.Error(t, err)
}

func TestSubmitIsIdempotentWhileQueuedOrRunning(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int32
	q := newQueue(t, 1, func(ctx context.Context, job *workqueue.Job, item string) error {
		runs.Add(1)
		<-release
		return nil
	})
	q.Start(context.Background())

	accepted, err := q.Submit("a")
	require.NoError(t, err)
	assert.True(t, accepted)
	require.Eventually(t, func() bool { return q.Status().Active == 1 }, time.Second, 5*time.Millisecond)

	accepted, err = q.Submit("a")
	require.NoError(t, err)
	assert.False(t, accepted, "running key must be rejected")

	accepted, _ = q.Submit("b")
	assert.True(t, accepted)
	accepted, _ = q.Submit("b")
	assert.False(t, accepted, "queued key must be rejected")

	close(release)
	require.Eventually(t, func() bool { return q.Status().Completed == 2 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, runs.Load())
}

func TestWorkerBudgetIsNeverExceeded(t *testing.T) {
	const workers = 2
	var active, peak atomic.Int32
	var done sync.WaitGroup
	done.Add(6)
	q := newQueue(t, workers, func(ctx context.Context, job *workqueue.Job, item string) error {
		defer done.Done()
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return nil
	})
	q.Start(context.Background())

	n, err := q.SubmitBatch([]string{"1", "2", "3", "4", "5", "6"})
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	done.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(workers))
	require.Eventually(t, func() bool { return q.Status().Completed == 6 }, time.Second, 5*time.Millisecond)
}

func TestDispatchIsFIFO(t *testing.T) {
	var mu sync.Mutex
	var order []string
	q := newQueue(t, 1, func(ctx context.Context, job *workqueue.Job, item string) error {
		mu.Lock()
		order = append(order, item)
		mu.Unlock()
		return nil
	})
	_, err := q.SubmitBatch([]string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 3, q.Status().Queued, "nothing runs before Start")

	q.Start(context.Background())
	require.Eventually(t, func() bool { return q.Status().Completed == 3 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestFailuresAndPanicsDoNotStopDispatch(t *testing.T) {
	q := newQueue(t, 1, func(ctx context.Context, job *workqueue.Job, item string) error {
		switch item {
		case "boom":
			panic("kaboom")
		case "bad":
			return errors.New("bad item")
		}
		return nil
	})
	q.Start(context.Background())
	_, err := q.SubmitBatch([]string{"boom", "bad", "ok"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st := q.Status()
		return st.Completed == 1 && st.Failed == 2
	}, time.Second, 5*time.Millisecond)
}

func TestResetInvalidatesOutstandingWork(t *testing.T) {
	started := make(chan struct{})
	guardErr := make(chan error, 1)
	var ran atomic.Int32
	q := newQueue(t, 1, func(ctx context.Context, job *workqueue.Job, item string) error {
		ran.Add(1)
		if item != "first" {
			return nil
		}
		close(started)
		<-ctx.Done()
		err := job.Guard(func() error {
			t.Error("guarded mutation ran after reset")
			return nil
		})
		guardErr <- err
		return err
	})
	q.Start(context.Background())
	_, err := q.SubmitBatch([]string{"first", "second", "third"})
	require.NoError(t, err)
	<-started

	q.Reset()

	select {
	case err := <-guardErr:
		assert.ErrorIs(t, err, workqueue.ErrStale)
	case <-time.After(time.Second):
		t.Fatal("in-flight job did not observe cancellation")
	}

	st := q.Status()
	assert.Zero(t, st.Queued)
	assert.Zero(t, st.Active)
	assert.Zero(t, st.Failed)
	assert.EqualValues(t, 1, st.Generation)
	assert.EqualValues(t, 1, ran.Load(), "queued items must not run after reset")

	accepted, err := q.Submit("first")
	require.NoError(t, err)
	assert.True(t, accepted, "keys are accepted again after reset")
}

func TestPauseHoldsDispatchUntilResume(t *testing.T) {
	var runs atomic.Int32
	q := newQueue(t, 1, func(ctx context.Context, job *workqueue.Job, item string) error {
		runs.Add(1)
		return nil
	})
	q.Start(context.Background())
	q.Pause(time.Hour)
	_, err := q.Submit("a")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	st := q.Status()
	assert.True(t, st.Paused)
	require.NotNil(t, st.PausedUntil)
	assert.Zero(t, runs.Load())

	q.Resume()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, q.Status().Paused)
}

func TestPauseExpiresOnItsOwn(t *testing.T) {
	var runs atomic.Int32
	q := newQueue(t, 1, func(ctx context.Context, job *workqueue.Job, item string) error {
		runs.Add(1)
		return nil
	})
	q.Start(context.Background())
	q.Pause(30 * time.Millisecond)
	_, _ = q.Submit("a")
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRequeuePutsItemBack(t *testing.T) {
	var attempts atomic.Int32
	q := newQueue(t, 1, func(ctx context.Context, job *workqueue.Job, item string) error {
		if attempts.Add(1) < 3 {
			return workqueue.ErrRequeue
		}
		return nil
	})
	q.Start(context.Background())
	_, _ = q.Submit("a")

	require.Eventually(t, func() bool { return q.Status().Completed == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 3, attempts.Load())
	assert.Zero(t, q.Status().Failed)
}

func TestCancelDropsQueuedItem(t *testing.T) {
	q := newQueue(t, 1, func(ctx context.Context, job *workqueue.Job, item string) error { return nil })
	_, _ = q.SubmitBatch([]string{"a", "b"})
	assert.True(t, q.Contains("b"))
	assert.True(t, q.Cancel("b"))
	assert.False(t, q.Contains("b"))
	assert.False(t, q.Cancel("missing"))
	assert.Equal(t, 1, q.Status().Queued)
}

func TestStatusHookObservesChanges(t *testing.T) {
	var mu sync.Mutex
	var snapshots []workqueue.Status
	q, err := workqueue.New(workqueue.Options[string]{
		Name:    "hooked",
		Workers: 1,
		Key:     identity,
		Handler: func(ctx context.Context, job *workqueue.Job, item string) error { return nil },
		OnStatus: func(st workqueue.Status) {
			mu.Lock()
			snapshots = append(snapshots, st)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	t.Cleanup(q.Close)
	q.Start(context.Background())
	_, _ = q.Submit("a")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snapshots) > 0 && snapshots[len(snapshots)-1].Completed == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hooked", snapshots[0].Pipeline)
	assert.Equal(t, 1, snapshots[0].WorkerBudget)
}

func TestSubmitAfterCloseFails(t *testing.T) {
	q := newQueue(t, 1, func(ctx context.Context, job *workqueue.Job, item string) error { return nil })
	q.Close()
	_, err := q.Submit("a")
	assert.ErrorIs(t, err, workqueue.ErrClosed)
}
