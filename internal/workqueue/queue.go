package workqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
)

// ErrStale is returned by Job.Guard once a reset has superseded the job.
var ErrStale = errors.New("job superseded by reset")

// ErrRequeue asks the queue to put the item back at the tail once the
// handler returns. It counts as neither completed nor failed.
var ErrRequeue = errors.New("requeue item")

// ErrClosed is returned when submitting to a closed queue.
var ErrClosed = errors.New("queue closed")

// Handler processes one item. Returning ErrStale (or any error after the
// job went stale) is not counted as a failure.
type Handler[T any] func(ctx context.Context, job *Job, item T) error

// Options configures a Queue.
type Options[T any] struct {
	Name     string
	Workers  int
	Key      func(T) string
	Handler  Handler[T]
	Logger   *slog.Logger
	OnStatus func(Status)
}

// Status is a point-in-time snapshot of a queue.
type Status struct {
	Pipeline     string     `json:"pipeline"`
	Queued       int        `json:"queued"`
	Active       int        `json:"active"`
	WorkerBudget int        `json:"worker_budget"`
	Completed    int        `json:"completed"`
	Failed       int        `json:"failed"`
	Paused       bool       `json:"paused"`
	PausedUntil  *time.Time `json:"paused_until,omitempty"`
	Generation   uint64     `json:"generation"`
}

type entry[T any] struct {
	key  string
	item T
}

// Queue is a keyed, bounded, self-dispatching FIFO.
type Queue[T any] struct {
	name     string
	workers  int
	key      func(T) string
	handler  Handler[T]
	logger   *slog.Logger
	onStatus func(Status)

	gen *generation

	mu        sync.Mutex
	baseCtx   context.Context
	runCtx    context.Context
	cancelRun context.CancelFunc
	sem       *semaphore.Weighted
	pending   []entry[T]
	queued    map[string]struct{}
	inflight  map[string]uint64
	completed int
	failed    int
	paused    time.Time
	timer     *time.Timer
	started   bool
	closed    bool
	wg        sync.WaitGroup
}

// New constructs a queue. Call Start to begin dispatching.
func New[T any](opts Options[T]) (*Queue[T], error) {
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("workqueue %q: workers must be positive", opts.Name)
	}
	if opts.Key == nil || opts.Handler == nil {
		return nil, fmt.Errorf("workqueue %q: key and handler are required", opts.Name)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue[T]{
		name:     opts.Name,
		workers:  opts.Workers,
		key:      opts.Key,
		handler:  opts.Handler,
		logger:   logging.NewComponentLogger(logger, "workqueue").With(logging.String(logging.FieldPipeline, opts.Name)),
		onStatus: opts.OnStatus,
		gen:      &generation{},
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		queued:   make(map[string]struct{}),
		inflight: make(map[string]uint64),
	}, nil
}

// Name returns the pipeline name.
func (q *Queue[T]) Name() string { return q.name }

// Start begins dispatching queued items. Handlers run under a context
// derived from ctx.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.baseCtx = ctx
	q.runCtx, q.cancelRun = context.WithCancel(ctx)
	q.mu.Unlock()
	q.dispatch()
}

// Close cancels running handlers, drops queued items, and waits for handlers
// to return.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.cancelRun != nil {
		q.cancelRun()
	}
	if q.timer != nil {
		q.timer.Stop()
	}
	q.pending = nil
	clear(q.queued)
	q.mu.Unlock()
	q.wg.Wait()
}

// Submit enqueues item unless an item with the same key is already queued
// or running. It reports whether the item was accepted.
func (q *Queue[T]) Submit(item T) (bool, error) {
	accepted, err := q.enqueue(item)
	if accepted {
		q.notify()
		q.dispatch()
	}
	return accepted, err
}

// SubmitBatch enqueues items in order and returns how many were accepted.
func (q *Queue[T]) SubmitBatch(items []T) (int, error) {
	count := 0
	for _, item := range items {
		accepted, err := q.enqueue(item)
		if err != nil {
			return count, err
		}
		if accepted {
			count++
		}
	}
	if count > 0 {
		q.notify()
		q.dispatch()
	}
	return count, nil
}

func (q *Queue[T]) enqueue(item T) (bool, error) {
	key := q.key(item)
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false, ErrClosed
	}
	if _, ok := q.queued[key]; ok {
		return false, nil
	}
	if _, ok := q.inflight[key]; ok {
		return false, nil
	}
	q.queued[key] = struct{}{}
	q.pending = append(q.pending, entry[T]{key: key, item: item})
	return true, nil
}

// Contains reports whether key is queued or running.
func (q *Queue[T]) Contains(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, queued := q.queued[key]
	_, running := q.inflight[key]
	return queued || running
}

// Cancel drops a queued item. Running items are not affected.
func (q *Queue[T]) Cancel(key string) bool {
	q.mu.Lock()
	if _, ok := q.queued[key]; !ok {
		q.mu.Unlock()
		return false
	}
	delete(q.queued, key)
	for i, e := range q.pending {
		if e.key == key {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	q.mu.Unlock()
	q.notify()
	return true
}

// Pause holds dispatch for d. Running items continue. A later call replaces
// the window.
func (q *Queue[T]) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.paused = time.Now().Add(d)
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(d, q.Resume)
	q.mu.Unlock()
	q.logger.Warn("queue paused",
		logging.Duration("backoff", d),
		logging.String(logging.FieldEventType, "queue_paused"),
		logging.String(logging.FieldImpact, "no new items start until the window ends"),
	)
	q.notify()
}

// Resume ends a pause window early.
func (q *Queue[T]) Resume() {
	q.mu.Lock()
	wasPaused := !q.paused.IsZero()
	q.paused = time.Time{}
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.mu.Unlock()
	if wasPaused {
		q.logger.Info("queue resumed", logging.String(logging.FieldEventType, "queue_resumed"))
		q.notify()
	}
	q.dispatch()
}

// Reset drops queued items, forgets in-flight keys, and invalidates running
// jobs. It waits for any Guard call in progress, so once Reset returns no
// superseded job can mutate state.
func (q *Queue[T]) Reset() {
	q.gen.mu.Lock()
	q.mu.Lock()
	q.gen.current.Add(1)
	if q.cancelRun != nil {
		q.cancelRun()
		q.runCtx, q.cancelRun = context.WithCancel(q.baseCtx)
	}
	dropped := len(q.pending) + len(q.inflight)
	q.pending = nil
	clear(q.queued)
	clear(q.inflight)
	q.sem = semaphore.NewWeighted(int64(q.workers))
	q.completed, q.failed = 0, 0
	q.paused = time.Time{}
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	current := q.gen.load()
	q.mu.Unlock()
	q.gen.mu.Unlock()

	q.logger.Info("queue reset",
		logging.Int("dropped", dropped),
		logging.Int64("generation", int64(current)),
		logging.String(logging.FieldEventType, "queue_reset"),
	)
	q.notify()
}

// Status returns a snapshot of the queue.
func (q *Queue[T]) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statusLocked()
}

func (q *Queue[T]) statusLocked() Status {
	st := Status{
		Pipeline:     q.name,
		Queued:       len(q.pending),
		Active:       len(q.inflight),
		WorkerBudget: q.workers,
		Completed:    q.completed,
		Failed:       q.failed,
		Generation:   q.gen.load(),
	}
	if !q.paused.IsZero() {
		until := q.paused
		st.Paused = true
		st.PausedUntil = &until
	}
	return st
}

func (q *Queue[T]) notify() {
	if q.onStatus == nil {
		return
	}
	q.onStatus(q.Status())
}

// dispatch starts as many queued items as free slots allow.
func (q *Queue[T]) dispatch() {
	for {
		q.mu.Lock()
		if !q.started || q.closed || !q.paused.IsZero() || len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		sem := q.sem
		if !sem.TryAcquire(1) {
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending[0] = entry[T]{}
		q.pending = q.pending[1:]
		delete(q.queued, next.key)
		gen := q.gen.load()
		q.inflight[next.key] = gen
		ctx := q.runCtx
		q.wg.Add(1)
		q.mu.Unlock()

		q.notify()
		go q.run(ctx, sem, gen, next)
	}
}

func (q *Queue[T]) run(ctx context.Context, sem *semaphore.Weighted, gen uint64, e entry[T]) {
	defer q.wg.Done()

	job := &Job{
		Key:           e.key,
		Generation:    gen,
		CorrelationID: uuid.NewString(),
		gen:           q.gen,
	}
	ctx = services.WithPipeline(ctx, q.name)
	ctx = services.WithRequestID(ctx, job.CorrelationID)
	ctx = services.WithSessionID(ctx, e.key)

	err := q.invoke(ctx, job, e.item)

	sem.Release(1)
	q.mu.Lock()
	if owner, ok := q.inflight[e.key]; ok && owner == gen {
		delete(q.inflight, e.key)
	}
	stale := q.gen.load() != gen
	if !stale && !q.closed {
		switch {
		case err == nil:
			q.completed++
		case errors.Is(err, ErrRequeue):
			if _, ok := q.queued[e.key]; !ok {
				q.queued[e.key] = struct{}{}
				q.pending = append(q.pending, e)
			}
		case !errors.Is(err, ErrStale):
			q.failed++
		}
	}
	q.mu.Unlock()

	if stale {
		logging.WithContext(ctx, q.logger).Debug("superseded job finished", logging.String(logging.FieldEventType, "job_stale"))
		return
	}
	q.notify()
	q.dispatch()
}

func (q *Queue[T]) invoke(ctx context.Context, job *Job, item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			logging.ErrorWithContext(logging.WithContext(ctx, q.logger), "queue handler panicked", "job_panic",
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "report this as a bug"),
			)
		}
	}()
	return q.handler(ctx, job, item)
}
