// Package segregated implements a fixed-size object pool backed by a chain
// of blocks and a single pool-wide LIFO free list, in three concurrency
// shapes: NTS, TSL, TSLF.
package segregated

import (
	"fmt"
	"io"
	"unsafe"

	"github.com/appshiftgo/memorypool/internal/blk"
	"github.com/appshiftgo/memorypool/internal/obslog"
	"github.com/appshiftgo/memorypool/poolerr"
)

// DefaultItemsPerBlock is used when a pool is constructed with
// itemsPerBlock <= 0, per the documented default of 128 items per block.
const DefaultItemsPerBlock = 128

// Allocator is the contract implemented by NTS, TSL, and TSLF.
type Allocator interface {
	Allocate() (blk.Ptr, error)
	Free(p blk.Ptr) error
	Dump(w io.Writer)
}

// Sentinel errors, matching by Kind via poolerr.Error.Is.
var (
	ErrCannotCreatePool  = poolerr.New(poolerr.CannotCreatePool, "segregated", nil)
	ErrCannotCreateBlock = poolerr.New(poolerr.CannotCreateBlock, "segregated", nil)
	ErrOutOfPool         = poolerr.New(poolerr.OutOfPool, "segregated", nil)
)

// shared is the block chain and pool-wide free list, held either
// exclusively (NTS, TSL) or shared across every TSLF pool on one goroutine
// with matching parameters.
type shared struct {
	chain blk.Chain
	free  []blk.Ptr
}

type state struct {
	sh            *shared
	itemSize      int
	itemsPerBlock int
	tag           uintptr
	logger        *obslog.Logger
	name          string
}

func newState(name string, itemSize, itemsPerBlock int, logger *obslog.Logger) *state {
	if itemsPerBlock <= 0 {
		itemsPerBlock = DefaultItemsPerBlock
	}
	s := &state{sh: &shared{}, itemSize: itemSize, itemsPerBlock: itemsPerBlock, logger: logger, name: name}
	s.tag = uintptr(unsafe.Pointer(s))
	return s
}

func newStateOnShared(sh *shared, name string, itemSize, itemsPerBlock int, logger *obslog.Logger) *state {
	if itemsPerBlock <= 0 {
		itemsPerBlock = DefaultItemsPerBlock
	}
	s := &state{sh: sh, itemSize: itemSize, itemsPerBlock: itemsPerBlock, logger: logger, name: name}
	s.tag = uintptr(unsafe.Pointer(sh))
	return s
}

func safeNewBlock(id uint32, size int, tag uintptr) (b *blk.Block, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = poolerr.New(poolerr.CannotCreateBlock, "segregated", fmt.Errorf("%v", r))
		}
	}()
	b = blk.NewBlock(id, size, tag)
	return b, nil
}

func (s *state) appendBlock() (*blk.Block, error) {
	size := s.itemSize * s.itemsPerBlock
	nb, err := safeNewBlock(s.sh.chain.NextID(), size, s.tag)
	if err != nil {
		obslog.BlockAllocFailed(s.logger, s.name, size, err)
		return nil, err
	}
	s.sh.chain.AppendBlock(nb)
	return nb, nil
}

func (s *state) ownsTag(tag uintptr) bool { return tag == s.tag }

func (s *state) allocate() (blk.Ptr, error) {
	if n := len(s.sh.free); n > 0 {
		p := s.sh.free[n-1]
		s.sh.free = s.sh.free[:n-1]
		p.Blk.Live++
		return p, nil
	}
	b := s.sh.chain.Current
	if b == nil || b.Trailing() < s.itemSize {
		nb, err := s.appendBlock()
		if err != nil {
			return blk.Ptr{}, err
		}
		b = nb
	}
	off := b.Offset
	b.Offset += s.itemSize
	b.Live++
	return blk.Ptr{Blk: b, Offset: off, Length: s.itemSize}, nil
}

func (s *state) free(p blk.Ptr) error {
	if !p.Valid() {
		return nil
	}
	if !s.ownsTag(p.Blk.PoolTag) {
		return poolerr.New(poolerr.OutOfPool, "segregated.Free", nil)
	}
	p.Blk.Live--
	s.sh.free = append(s.sh.free, p)
	return nil
}

func (s *state) dump(w io.Writer) {
	fmt.Fprintf(w, "segregated %q: item_size=%d items_per_block=%d blocks=%d free=%d\n",
		s.name, s.itemSize, s.itemsPerBlock, s.sh.chain.Count, len(s.sh.free))
	i := 0
	for b := s.sh.chain.First; b != nil; b = b.Next {
		fmt.Fprintf(w, "  block[%d] id=%d offset=%d/%d live=%d\n", i, b.ID, b.Offset, b.Size(), b.Live)
		i++
	}
}
