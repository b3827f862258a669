// Package stackpool implements a bump/LIFO arena of linked blocks with
// in-block free-list reuse, nested scopes, and in-place growth on
// reallocation, in three concurrency shapes: NTS, TSL, TSLF.
package stackpool

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/appshiftgo/memorypool/internal/blk"
	"github.com/appshiftgo/memorypool/internal/obslog"
	"github.com/appshiftgo/memorypool/poolerr"
)

// DefaultBlockSize is the block size a pool uses when none is configured,
// per the documented default of 1 MiB.
const DefaultBlockSize = 1 << 20

// Allocator is the contract implemented by NTS, TSL, and TSLF.
type Allocator interface {
	Allocate(size int) (blk.Ptr, error)
	Reallocate(p blk.Ptr, newSize int) (blk.Ptr, error)
	Free(p blk.Ptr) error
	StartScope()
	EndScope()
	Dump(w io.Writer)
}

// Sentinel errors, matching by Kind via poolerr.Error.Is.
var (
	ErrCannotCreatePool  = poolerr.New(poolerr.CannotCreatePool, "stackpool", nil)
	ErrCannotCreateBlock = poolerr.New(poolerr.CannotCreateBlock, "stackpool", nil)
	ErrExceedsMaxSize    = poolerr.New(poolerr.ExceedsMaxSize, "stackpool", nil)
	ErrOutOfPool         = poolerr.New(poolerr.OutOfPool, "stackpool", nil)
)

type scopeRecord struct {
	block  *blk.Block
	offset int
}

// shared is the chain and scope stack, held either exclusively (NTS, TSL)
// or shared across every TSLF pool on one goroutine with matching
// parameters (via internal/blk.ChainEntry.Extra).
type shared struct {
	chain  blk.Chain
	scopes []scopeRecord
}

// state holds one pool's view of the algorithm: a reference to its (owned
// or shared) chain/scope data plus its own tuning knobs. NTS and TSL each
// own an exclusive shared struct; every TSLF pool sharing a (goroutine,
// default_block_size) key points sh at the same struct.
type state struct {
	sh               *shared
	defaultBlockSize int
	maxSize          int
	tag              uintptr
	logger           *obslog.Logger
	name             string
}

func newState(name string, defaultBlockSize, maxSize int, logger *obslog.Logger) *state {
	if defaultBlockSize <= 0 {
		defaultBlockSize = DefaultBlockSize
	}
	s := &state{sh: &shared{}, defaultBlockSize: defaultBlockSize, maxSize: maxSize, logger: logger, name: name}
	s.tag = uintptr(unsafe.Pointer(s))
	return s
}

// newStateOnShared builds a state that operates on an already-shared
// chain/scope struct, for the TSLF variant.
func newStateOnShared(sh *shared, name string, defaultBlockSize, maxSize int, logger *obslog.Logger) *state {
	if defaultBlockSize <= 0 {
		defaultBlockSize = DefaultBlockSize
	}
	s := &state{sh: sh, defaultBlockSize: defaultBlockSize, maxSize: maxSize, logger: logger, name: name}
	s.tag = uintptr(unsafe.Pointer(sh))
	return s
}

func safeNewBlock(id uint32, size int, tag uintptr) (b *blk.Block, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = poolerr.New(poolerr.CannotCreateBlock, "stackpool", fmt.Errorf("%v", r))
		}
	}()
	b = blk.NewBlock(id, size, tag)
	return b, nil
}

func (s *state) appendBlock(size int) (*blk.Block, error) {
	nb, err := safeNewBlock(s.sh.chain.NextID(), size, s.tag)
	if err != nil {
		obslog.BlockAllocFailed(s.logger, s.name, size, err)
		return nil, err
	}
	s.sh.chain.AppendBlock(nb)
	return nb, nil
}

func (s *state) ownsTag(tag uintptr) bool { return tag == s.tag }

func (s *state) bumpFrom(b *blk.Block, size int) blk.Ptr {
	off := b.Offset
	b.Offset += size
	b.Live++
	return blk.Ptr{Blk: b, Offset: off, Length: size}
}

func (s *state) recomputeLargestFree(b *blk.Block) {
	m := 0
	for _, fs := range b.Free {
		if fs.Length > m {
			m = fs.Length
		}
	}
	b.LargestFree = m
}

// tryFreeList walks blocks newest-to-oldest, and within a block walks its
// free list from most-recently-freed to least, first-fit. No splitting: a
// larger-than-requested slot is consumed whole and the excess becomes
// permanently unreachable padding, per spec.
func (s *state) tryFreeList(size int) (blk.Ptr, bool) {
	for b := s.sh.chain.Current; b != nil; b = b.Prev {
		if size > b.LargestFree {
			continue
		}
		for i := len(b.Free) - 1; i >= 0; i-- {
			fs := b.Free[i]
			if fs.Length >= size {
				b.Free = append(b.Free[:i], b.Free[i+1:]...)
				b.Live++
				s.recomputeLargestFree(b)
				return blk.Ptr{Blk: b, Offset: fs.Offset, Length: size}, true
			}
		}
	}
	return blk.Ptr{}, false
}

func (s *state) addFree(b *blk.Block, fs blk.FreeSlot) {
	for i := len(b.Free) - 1; i >= 0; i-- {
		ex := b.Free[i]
		switch {
		case ex.Offset+ex.Length == fs.Offset:
			fs = blk.FreeSlot{Offset: ex.Offset, Length: ex.Length + fs.Length}
			b.Free = append(b.Free[:i], b.Free[i+1:]...)
			obslog.FreeListMerge(s.logger, s.name, fs.Length)
		case fs.Offset+fs.Length == ex.Offset:
			fs = blk.FreeSlot{Offset: fs.Offset, Length: fs.Length + ex.Length}
			b.Free = append(b.Free[:i], b.Free[i+1:]...)
			obslog.FreeListMerge(s.logger, s.name, fs.Length)
		default:
			continue
		}
		break
	}
	b.Free = append(b.Free, fs)
	if fs.Length > b.LargestFree {
		b.LargestFree = fs.Length
	}
}

func (s *state) allocate(size int) (blk.Ptr, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return blk.Ptr{}, poolerr.New(poolerr.ExceedsMaxSize, "stackpool.Allocate", nil)
	}
	if b := s.sh.chain.Current; b != nil && b.Trailing() >= size {
		return s.bumpFrom(b, size), nil
	}
	if p, ok := s.tryFreeList(size); ok {
		return p, nil
	}
	blockSize := size
	if s.defaultBlockSize > blockSize {
		blockSize = s.defaultBlockSize
	}
	nb, err := s.appendBlock(blockSize)
	if err != nil {
		return blk.Ptr{}, err
	}
	return s.bumpFrom(nb, size), nil
}

func (s *state) reallocate(p blk.Ptr, newSize int) (blk.Ptr, error) {
	if !p.Valid() {
		return s.allocate(newSize)
	}
	if !s.ownsTag(p.Blk.PoolTag) {
		return blk.Ptr{}, poolerr.New(poolerr.OutOfPool, "stackpool.Reallocate", nil)
	}
	if newSize <= p.Length {
		return p, nil
	}
	if s.maxSize > 0 && newSize > s.maxSize {
		return blk.Ptr{}, poolerr.New(poolerr.ExceedsMaxSize, "stackpool.Reallocate", nil)
	}
	b := p.Blk
	if p.Offset+p.Length == b.Offset {
		delta := newSize - p.Length
		if b.Trailing() >= delta {
			b.Offset += delta
			return blk.Ptr{Blk: b, Offset: p.Offset, Length: newSize}, nil
		}
	}
	np, err := s.allocate(newSize)
	if err != nil {
		return blk.Ptr{}, err
	}
	copy(np.Bytes(), p.Bytes())
	if err := s.free(p); err != nil {
		return blk.Ptr{}, err
	}
	return np, nil
}

func (s *state) free(p blk.Ptr) error {
	if !p.Valid() {
		return nil
	}
	b := p.Blk
	if !s.ownsTag(b.PoolTag) {
		return poolerr.New(poolerr.OutOfPool, "stackpool.Free", nil)
	}
	b.Live--
	if b.Live == 0 {
		if s.sh.chain.Count > 1 {
			s.sh.chain.Detach(b)
			return nil
		}
		b.Reset()
		return nil
	}
	if p.Offset+p.Length == b.Offset {
		b.Offset = p.Offset
		return nil
	}
	s.addFree(b, blk.FreeSlot{Offset: p.Offset, Length: p.Length})
	return nil
}

func (s *state) startScope() {
	b := s.sh.chain.Current
	if b == nil {
		nb, err := s.appendBlock(s.defaultBlockSize)
		if err != nil {
			// A scope opened with no block and no way to create one has
			// nothing to restore to; record nothing rather than panic.
			s.sh.scopes = append(s.sh.scopes, scopeRecord{})
			return
		}
		b = nb
	}
	s.sh.scopes = append(s.sh.scopes, scopeRecord{block: b, offset: b.Offset})
}

func (s *state) endScope() {
	if len(s.sh.scopes) == 0 {
		panic("stackpool: EndScope called without a matching StartScope")
	}
	rec := s.sh.scopes[len(s.sh.scopes)-1]
	s.sh.scopes = s.sh.scopes[:len(s.sh.scopes)-1]
	if rec.block == nil {
		return
	}
	for s.sh.chain.Current != rec.block {
		s.sh.chain.Detach(s.sh.chain.Current)
	}
	rec.block.Offset = rec.offset
}

func (s *state) dump(w io.Writer) {
	fmt.Fprintf(w, "stackpool %q: %d block(s)\n", s.name, s.sh.chain.Count)
	i := 0
	for b := s.sh.chain.First; b != nil; b = b.Next {
		fmt.Fprintf(w, "  block[%d] id=%d offset=%d/%d live=%d largest_free=%d free_slots=%d\n",
			i, b.ID, b.Offset, b.Size(), b.Live, b.LargestFree, len(b.Free))
		i++
	}
}
