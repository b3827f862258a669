package stackpool

import (
	"io"
	"sync"

	"github.com/appshiftgo/memorypool/internal/blk"
)

// TSL is the thread-safe lock-based variant: a single mutex guards every
// public operation end-to-end. Re-entrant calls from the same goroutine are
// not supported (the mutex is not reentrant, matching spec).
type TSL struct {
	mu sync.Mutex
	st *state
}

// NewTSL constructs a pool with the given default block size (0 selects
// DefaultBlockSize).
func NewTSL(defaultBlockSize int, opts ...Option) *TSL {
	o := resolveOptions(opts)
	return &TSL{st: newState(o.name, defaultBlockSize, o.maxSize, o.logger)}
}

func (p *TSL) Allocate(size int) (blk.Ptr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.allocate(size)
}

func (p *TSL) Reallocate(ptr blk.Ptr, newSize int) (blk.Ptr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.reallocate(ptr, newSize)
}

func (p *TSL) Free(ptr blk.Ptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.free(ptr)
}

func (p *TSL) StartScope() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.startScope()
}

func (p *TSL) EndScope() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.endScope()
}

func (p *TSL) Dump(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.dump(w)
}
