package segregated

import (
	"fmt"
	"io"
	"sync"

	"github.com/appshiftgo/memorypool/internal/blk"
	"github.com/appshiftgo/memorypool/internal/gid"
	"github.com/appshiftgo/memorypool/internal/obslog"
)

// registry is process-wide: every TSLF segregated pool shares block chains
// keyed by (goroutine, item_size, items_per_block), per spec.
var registry = blk.NewChainRegistry()

// TSLF is the thread-safe lock-free variant: state is thread-local,
// shared per-goroutine by every TSLF pool with identical (itemSize,
// itemsPerBlock), refcounted exactly as stackpool.TSLF.
type TSLF struct {
	key           string
	itemSize      int
	itemsPerBlock int
	logger        *obslog.Logger
	name          string

	mu       sync.Mutex
	acquired map[uint64]*blk.ChainEntry
}

// NewTSLF constructs a pool sharing its per-goroutine chain with every
// other live TSLF pool that specifies identical (itemSize, itemsPerBlock).
func NewTSLF(itemSize, itemsPerBlock int, opts ...Option) *TSLF {
	o := resolveOptions(opts)
	if itemsPerBlock <= 0 {
		itemsPerBlock = DefaultItemsPerBlock
	}
	return &TSLF{
		key:           fmt.Sprintf("seg:%d:%d", itemSize, itemsPerBlock),
		itemSize:      itemSize,
		itemsPerBlock: itemsPerBlock,
		logger:        o.logger,
		name:          o.name,
		acquired:      make(map[uint64]*blk.ChainEntry),
	}
}

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
	return newStateOnShared(e.Extra.(*shared), p.name, p.itemSize, p.itemsPerBlock, p.logger)
}

// Close releases this pool's reference to every per-goroutine shared chain
// it acquired.
func (p *TSLF) Close() {
	p.mu.Lock()
	acquired := p.acquired
	p.acquired = nil
	p.mu.Unlock()
	for g, e := range acquired {
		registry.Release(g, p.key, e)
	}
}

func (p *TSLF) Allocate() (blk.Ptr, error) { return p.entryState().allocate() }
func (p *TSLF) Free(ptr blk.Ptr) error      { return p.entryState().free(ptr) }
func (p *TSLF) Dump(w io.Writer)            { p.entryState().dump(w) }
