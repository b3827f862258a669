package stackpool

import (
	"fmt"
	"io"
	"sync"

	"github.com/appshiftgo/memorypool/internal/blk"
	"github.com/appshiftgo/memorypool/internal/gid"
	"github.com/appshiftgo/memorypool/internal/obslog"
)

// registry is process-wide: every TSLF stack pool, regardless of which Go
// value constructed it, shares block chains keyed by (goroutine,
// default_block_size), per spec.
var registry = blk.NewChainRegistry()

// TSLF is the thread-safe lock-free variant: the pool's state is
// thread-local. Every public operation touches only the calling
// goroutine's chain; TSLF pools constructed with an identical
// default_block_size share that chain, on a given goroutine, via a
// reference count released when the last such pool is closed.
//
// A single TSLF value may be used from multiple goroutines (each then
// participates in its own per-goroutine shared chain, lazily, on first
// use); Close releases every reference this value has acquired across
// all goroutines it has been used from.
type TSLF struct {
	key              string
	defaultBlockSize int
	maxSize          int
	logger           *obslog.Logger
	name             string

	mu       sync.Mutex
	acquired map[uint64]*blk.ChainEntry
}

// NewTSLF constructs a pool sharing its per-goroutine chain with every
// other live TSLF pool that specifies the same defaultBlockSize (0 selects
// DefaultBlockSize).
func NewTSLF(defaultBlockSize int, opts ...Option) *TSLF {
	o := resolveOptions(opts)
	if defaultBlockSize <= 0 {
		defaultBlockSize = DefaultBlockSize
	}
	return &TSLF{
		key:              fmt.Sprintf("stack:%d", defaultBlockSize),
		defaultBlockSize: defaultBlockSize,
		maxSize:          o.maxSize,
		logger:           o.logger,
		name:             o.name,
		acquired:         make(map[uint64]*blk.ChainEntry),
	}
}

// entryState resolves the calling goroutine's shared state, acquiring a
// reference to it (tracked for release by Close) on first use from that
// goroutine.
func (p *TSLF) entryState() *state {
	g := gid.Current()
	p.mu.Lock()
	e, ok := p.acquired[g]
	if !ok {
		e = registry.Acquire(g, p.key)
		p.acquired[g] = e
		if e.Extra == nil {
			e.Extra = &shared{}
			obslog.ChainShared(p.logger, p.name, p.key, true)
		}
	}
	p.mu.Unlock()
	return newStateOnShared(e.Extra.(*shared), p.name, p.defaultBlockSize, p.maxSize, p.logger)
}

// Close releases this pool's reference to every per-goroutine shared chain
// it acquired. It must be called exactly once when the pool is no longer
// needed, analogous to the thread-local instance's destructor running on
// each thread that used it.
func (p *TSLF) Close() {
	p.mu.Lock()
	acquired := p.acquired
	p.acquired = nil
	p.mu.Unlock()
	for g, e := range acquired {
		registry.Release(g, p.key, e)
	}
}

func (p *TSLF) Allocate(size int) (blk.Ptr, error)                  { return p.entryState().allocate(size) }
func (p *TSLF) Reallocate(ptr blk.Ptr, newSize int) (blk.Ptr, error) { return p.entryState().reallocate(ptr, newSize) }
func (p *TSLF) Free(ptr blk.Ptr) error                               { return p.entryState().free(ptr) }
func (p *TSLF) StartScope()                                         { p.entryState().startScope() }
func (p *TSLF) EndScope()                                           { p.entryState().endScope() }
func (p *TSLF) Dump(w io.Writer)                                    { p.entryState().dump(w) }
