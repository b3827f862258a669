// Package execqueue implements the block-chained FIFO queue of callables
// that the event loop drains: a growing ring of fixed-capacity blocks,
// with reference-counted blocks so consumers can pop batches without
// copying, condition-variable gated.
package execqueue

import (
	"sync"

	"github.com/appshiftgo/memorypool/internal/obslog"
)

// Callable is a unit of work enqueued on a Queue.
type Callable func()

// DefaultCapacity is the per-block slot capacity used when New is given
// capacity <= 0, per the documented default of 2^20 callables.
const DefaultCapacity = 1 << 20

type block struct {
	next     *block
	capacity int
	refCount int
	slots    []Callable
}

func newBlock(capacity int) *block {
	return &block{capacity: capacity, slots: make([]Callable, capacity)}
}

// QueueStats is a diagnostic snapshot, restored from the original
// implementation's console pretty-printer support, not required by any
// correctness property.
type QueueStats struct {
	BlocksAllocated int
	// BlocksReleased is always 0: this implementation's ring only grows
	// (new blocks are spliced in under contention) and never shrinks, so
	// no block is ever released. The field is retained for parity with
	// the original structure and for any caller-supplied monitoring that
	// expects it to exist.
	BlocksReleased int
	// HighWaterMark is the largest ref_count any single block has reached.
	HighWaterMark int
}

// Queue is a single-producer-oriented (see spec ordering note:
// multi-producer order is push-mutex-acquisition order), multi-consumer
// FIFO of Callables.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	first *block
	front int

	current *block
	rear    int

	capacity     int
	drainOnEmpty bool

	logger *obslog.Logger
	stats  QueueStats
}

// New constructs a Queue with the given per-block capacity (<=0 selects
// DefaultCapacity), starting as a ring of one block.
func New(capacity int, opts ...Option) *Queue {
	o := resolveOptions(opts)
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := newBlock(capacity)
	b.next = b
	q := &Queue{first: b, current: b, capacity: capacity, logger: o.logger, stats: QueueStats{BlocksAllocated: 1}}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Option configures a Queue at construction.
type Option func(*options)

type options struct {
	logger *obslog.Logger
}

// WithLogger attaches a diagnostic logger. Passing nil (the default) is a
// supported quiet mode.
func WithLogger(l *obslog.Logger) Option { return func(o *options) { o.logger = l } }

func resolveOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (q *Queue) isEmptyLocked() bool {
	return q.first == q.current && q.front == q.rear
}

// normalizeFrontLocked advances first/front past any block that has been
// fully drained by the consumer and is no longer the producer's current
// block, so a stale front never masks data in a later block.
func (q *Queue) normalizeFrontLocked() {
	for q.front == q.first.capacity && q.first != q.current {
		q.first = q.first.next
		q.front = 0
	}
}

// Push appends c to the queue and wakes one waiting consumer.
func (q *Queue) Push(c Callable) {
	q.mu.Lock()
	if q.rear == q.current.capacity {
		next := q.current.next
		if next == q.first || next.refCount > 0 {
			nb := newBlock(q.capacity)
			nb.next = next
			q.current.next = nb
			q.stats.BlocksAllocated++
			obslog.QueueOverload(q.logger, q.capacity)
			next = nb
		}
		q.current = next
		q.rear = 0
	}
	q.current.slots[q.rear] = c
	q.rear++
	q.cond.Signal()
	q.mu.Unlock()
}

// PopResult is a borrowed half-open slice of callables, plus a handle that
// releases the underlying queue block's reference when dropped.
type PopResult struct {
	q       *Queue
	blk     *block
	start   int
	count   int
	dropped bool
}

// Len returns the number of callables in this result.
func (r PopResult) Len() int { return r.count }

// At returns the i'th callable in this result, 0 <= i < Len().
func (r PopResult) At(i int) Callable { return r.blk.slots[r.start+i] }

// Drop releases this result's reference on its underlying block. It must
// be called exactly once per PopResult that has Len() > 0; calling it on
// an empty result is a safe no-op.
func (r *PopResult) Drop() {
	if r.dropped || r.blk == nil {
		return
	}
	r.dropped = true
	r.q.mu.Lock()
	r.blk.refCount--
	r.q.mu.Unlock()
}

// Pop removes up to maxCount callables from the front of the queue. If the
// queue is empty, it blocks until data arrives, drain-on-empty is set, or
// waitIfEmpty is false (in which case it returns immediately with an
// empty result).
func (q *Queue) Pop(maxCount int, waitIfEmpty bool) PopResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.normalizeFrontLocked()
	for q.isEmptyLocked() && !q.drainOnEmpty && waitIfEmpty {
		q.cond.Wait()
		q.normalizeFrontLocked()
	}
	if q.isEmptyLocked() {
		return PopResult{}
	}

	b := q.first
	avail := q.rear - q.front
	if b != q.current {
		avail = b.capacity - q.front
	}
	count := maxCount
	if avail < count {
		count = avail
	}
	if count <= 0 {
		return PopResult{}
	}

	start := q.front
	b.refCount++
	if b.refCount > q.stats.HighWaterMark {
		q.stats.HighWaterMark = b.refCount
	}
	q.front += count
	q.normalizeFrontLocked()

	return PopResult{q: q, blk: b, start: start, count: count}
}

// IsEmpty reports whether the queue currently holds no callables.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isEmptyLocked()
}

// SetDrainOnEmpty, once set true, makes every blocked and future Pop
// return immediately with an empty result once the queue is drained,
// rather than waiting for more data. It is not meant to be unset.
func (q *Queue) SetDrainOnEmpty(v bool) {
	q.mu.Lock()
	q.drainOnEmpty = v
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Len is an approximate, racy diagnostic: the number of callables
// currently queued, valid only at the instant it was computed. It is not
// part of any correctness property.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.first == q.current {
		return q.rear - q.front
	}
	n := q.first.capacity - q.front
	for b := q.first.next; b != q.current; b = b.next {
		n += b.capacity
	}
	return n + q.rear
}

// Stats returns a snapshot of diagnostic counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}
