// Package eventloop implements the N-worker thread pool draining an
// execqueue.Queue, plus the add_promise convenience that wraps a callable
// in a future.BusyPromise.
package eventloop

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/appshiftgo/memorypool/execqueue"
	"github.com/appshiftgo/memorypool/future"
	"github.com/appshiftgo/memorypool/internal/obslog"
	"github.com/appshiftgo/memorypool/runtimetune"
)

// DefaultMaxEventsPerPop is used when New is given maxEventsPerPop <= 0.
const DefaultMaxEventsPerPop = 256

// Loop is a fixed-size pool of worker goroutines draining a single
// execqueue.Queue. Workers start immediately in New; Close signals
// shutdown, drains remaining work, and joins every worker.
type Loop struct {
	q               *execqueue.Queue
	maxEventsPerPop int
	logger          *obslog.Logger
	name            string

	eg        *errgroup.Group
	stopping  chan struct{}
	closeOnce sync.Once
}

// LoopOption configures a Loop at construction.
type LoopOption func(*loopOptions)

type loopOptions struct {
	logger        *obslog.Logger
	name          string
	queueCapacity int
	autoTune      bool
}

// WithLogger attaches a diagnostic logger, used both for the loop itself
// and the queue it owns.
func WithLogger(l *obslog.Logger) LoopOption { return func(o *loopOptions) { o.logger = l } }

// WithName sets the loop's diagnostic name.
func WithName(name string) LoopOption { return func(o *loopOptions) { o.name = name } }

// WithQueueCapacity sets the per-block capacity of the owned queue (<=0
// selects execqueue.DefaultCapacity).
func WithQueueCapacity(n int) LoopOption { return func(o *loopOptions) { o.queueCapacity = n } }

// WithAutoTune, when true, makes New call runtimetune.Init() before
// computing a zero-valued workerCount from the now-tuned GOMAXPROCS.
func WithAutoTune(v bool) LoopOption { return func(o *loopOptions) { o.autoTune = v } }

func resolveLoopOptions(opts []LoopOption) loopOptions {
	var o loopOptions
	for _, fn := range opts {
		fn(&o)
	}
	if o.name == "" {
		o.name = "eventloop"
	}
	return o
}

// New starts workerCount workers (<=0 selects runtimetune.DefaultWorkerCount)
// draining a freshly constructed queue, each popping up to maxEventsPerPop
// (<=0 selects DefaultMaxEventsPerPop) callables at a time.
func New(workerCount, maxEventsPerPop int, opts ...LoopOption) *Loop {
	o := resolveLoopOptions(opts)
	if o.autoTune {
		runtimetune.Init()
	}
	if workerCount <= 0 {
		workerCount = runtimetune.DefaultWorkerCount()
	}
	if maxEventsPerPop <= 0 {
		maxEventsPerPop = DefaultMaxEventsPerPop
	}

	l := &Loop{
		q:               execqueue.New(o.queueCapacity, execqueue.WithLogger(o.logger)),
		maxEventsPerPop: maxEventsPerPop,
		logger:          o.logger,
		name:            o.name,
		eg:              new(errgroup.Group),
		stopping:        make(chan struct{}),
	}
	for i := 0; i < workerCount; i++ {
		id := i
		l.eg.Go(func() error {
			l.workerLoop(id)
			return nil
		})
	}
	return l
}

func (l *Loop) stopped() bool {
	select {
	case <-l.stopping:
		return true
	default:
		return false
	}
}

func (l *Loop) workerLoop(id int) {
	for !l.stopped() || !l.q.IsEmpty() {
		r := l.q.Pop(l.maxEventsPerPop, true)
		if r.Len() == 0 {
			continue
		}
		l.run(id, r)
	}
}

func (l *Loop) run(worker int, r execqueue.PopResult) {
	defer r.Drop()
	for i := 0; i < r.Len(); i++ {
		callOne(l.logger, worker, r.At(i))
	}
}

func callOne(logger *obslog.Logger, worker int, c execqueue.Callable) {
	defer func() {
		if rec := recover(); rec != nil {
			obslog.WorkerPanic(logger, worker, rec)
		}
	}()
	c()
}

// AddEvent enqueues c for some worker to run.
func (l *Loop) AddEvent(c execqueue.Callable) { l.q.Push(c) }

// DrainOnce pops and runs one bounded batch of callables, returning at once
// if the queue is empty. It satisfies future.Drainer, letting any goroutine
// (worker or not) cooperatively drive the loop forward while waiting on a
// future.
func (l *Loop) DrainOnce() {
	r := l.q.Pop(l.maxEventsPerPop, false)
	if r.Len() == 0 {
		return
	}
	l.run(-1, r)
}

// Wait drains up to maxEventsPerPop callables at a time until pred
// returns true.
func (l *Loop) Wait(pred func() bool) {
	for !pred() {
		l.DrainOnce()
	}
}

// AddPromise wraps fn in a callable enqueued via AddEvent; fn's result is
// published through a future.BusyPromise whose future is returned
// immediately.
func AddPromise[T any](l *Loop, fn func() T) *future.BusyFuture[T] {
	p := future.NewPromise[T](l)
	l.AddEvent(func() { p.SetValue(fn()) })
	return p.GetFuture()
}

// AddPromiseVoid is the void-result counterpart of AddPromise.
func AddPromiseVoid(l *Loop, fn func()) *future.BusyFutureVoid {
	p := future.NewPromiseVoid(l)
	l.AddEvent(func() { fn(); p.SetDone() })
	return p.GetFuture()
}

// Close signals shutdown, drains what's queued, and joins every worker.
// It is safe to call AddEvent/AddPromise concurrently with Close, but any
// event added after the queue observes empty-and-draining may never run.
func (l *Loop) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopping)
		l.q.SetDrainOnEmpty(true)
	})
	return l.eg.Wait()
}

// Stats exposes the owned queue's diagnostic counters.
func (l *Loop) Stats() execqueue.QueueStats { return l.q.Stats() }
