package segregated

import (
	"io"
	"sync"

	"github.com/appshiftgo/memorypool/internal/blk"
)

// TSL is the thread-safe lock-based variant: a single mutex guards every
// public operation end-to-end.
type TSL struct {
	mu sync.Mutex
	st *state
}

// NewTSL constructs a pool of fixed-size itemSize slots, itemsPerBlock per
// block (<=0 selects DefaultItemsPerBlock).
func NewTSL(itemSize, itemsPerBlock int, opts ...Option) *TSL {
	o := resolveOptions(opts)
	return &TSL{st: newState(o.name, itemSize, itemsPerBlock, o.logger)}
}

func (p *TSL) Allocate() (blk.Ptr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.allocate()
}

func (p *TSL) Free(ptr blk.Ptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.free(ptr)
}

func (p *TSL) Dump(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.st.dump(w)
}
