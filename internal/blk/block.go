// Package blk implements the block and pointer primitives shared by the
// stackpool and segregated allocators: a contiguous byte-backed Block,
// a chain of Blocks owned by a pool, and Ptr, the opaque handle this
// module hands back to callers in place of a bare unsafe pointer.
//
// Go's garbage collector does not scan a []byte backing array for
// pointers, so this package never stores a live Go pointer inside a
// Block's payload bytes. Bookkeeping that the originating C/C++ design
// threads through the payload itself (free-list links, owner
// back-pointers) is instead kept as ordinary Go fields on Block and Ptr.
// This is the "unsafe lowering boundary" the design calls for, expressed
// in a way that is actually safe under the Go memory model: unsafe.Pointer
// is used only to compute numeric addresses for best-effort containment
// checks, never to reconstruct or store a pointer.
package blk

import "unsafe"

// FreeSlot records a freed, variable-length unit within a Block's payload,
// for use by the stack pool's per-block free list.
type FreeSlot struct {
	Offset int
	Length int
}

// Block is a single contiguous allocation backing zero or more live units
// (stack pool) or fixed-size slots (segregated pool). A Block is owned by
// exactly one chain at a time.
type Block struct {
	Prev, Next *Block

	// ID is unique within the owning pool/chain, used only for diagnostics
	// (Dump).
	ID uint32

	// PoolTag is stamped by the owning pool at creation and checked
	// (best effort, per spec) by Reallocate/Free against the pointer's
	// originating pool, to catch OutOfPool misuse.
	PoolTag uintptr

	Data   []byte
	Offset int // bytes used, 0 <= Offset <= len(Data)
	Live   int // live unit/slot count

	// Free is the stack pool's free list: freed variable-length units in
	// this block, oldest-to-newest (the most recently freed slot is last,
	// matching the newest-to-oldest search order the spec requires). The
	// segregated pool's free list is pool-wide rather than per-block (see
	// package segregated), so it has no block-level field here.
	Free        []FreeSlot
	LargestFree int
}

// NewBlock allocates a Block with a payload of exactly size bytes.
func NewBlock(id uint32, size int, poolTag uintptr) *Block {
	return &Block{ID: id, PoolTag: poolTag, Data: make([]byte, size)}
}

// Size returns the payload capacity of the block.
func (b *Block) Size() int { return len(b.Data) }

// Trailing returns the number of unused bytes after Offset.
func (b *Block) Trailing() int { return len(b.Data) - b.Offset }

// Empty reports whether the block currently has no live units/slots.
func (b *Block) Empty() bool { return b.Live == 0 }

// Reset restores a block to its freshly-allocated state, without releasing
// its backing storage. Used when the pool's sole remaining block becomes
// empty (spec.md's "singleton block recycles to a clean state" rule).
func (b *Block) Reset() {
	b.Offset = 0
	b.Live = 0
	b.Free = b.Free[:0]
	b.LargestFree = 0
}

// BaseAddr returns the numeric address of the block's backing storage. It
// exists solely to support best-effort pointer-containment checks and must
// never be converted back into a pointer.
func (b *Block) BaseAddr() uintptr {
	if len(b.Data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.Data[0]))
}

// Contains reports whether addr (as produced by Ptr.Addr) falls within this
// block's payload.
func (b *Block) Contains(addr uintptr) bool {
	base := b.BaseAddr()
	if base == 0 {
		return false
	}
	return addr >= base && addr < base+uintptr(len(b.Data))
}

// Ptr is the opaque handle returned by Allocate in place of a bare pointer.
// The zero value represents the null pointer.
type Ptr struct {
	Blk    *Block
	Offset int
	Length int
}

// Valid reports whether p refers to an actual allocation.
func (p Ptr) Valid() bool { return p.Blk != nil }

// Bytes returns the writable payload backing p. It aliases the block's
// storage directly; no copy is made.
func (p Ptr) Bytes() []byte {
	if p.Blk == nil {
		return nil
	}
	return p.Blk.Data[p.Offset : p.Offset+p.Length]
}

// Addr returns the numeric address of p's first byte, for best-effort
// OutOfPool containment checks only.
func (p Ptr) Addr() uintptr {
	if p.Blk == nil || len(p.Blk.Data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&p.Blk.Data[p.Offset]))
}

// Chain is a doubly-linked list of Blocks, in creation order, with the
// most-recently-appended Block as Current.
type Chain struct {
	First, Current *Block
	Count          int
	nextID         uint32
}

// Append creates a new Block of the given size, links it to the end of the
// chain, and returns it.
func (c *Chain) Append(size int, poolTag uintptr) *Block {
	nb := NewBlock(c.NextID(), size, poolTag)
	c.AppendBlock(nb)
	return nb
}

// NextID reserves and returns the next block id; each call consumes one id.
// Append uses it, and callers that must build a Block before linking it
// with AppendBlock (e.g. a fallible block constructor) call it themselves,
// since AppendBlock does not assign ids.
func (c *Chain) NextID() uint32 {
	c.nextID++
	return c.nextID
}

// AppendBlock links an already-constructed Block to the end of the chain.
func (c *Chain) AppendBlock(nb *Block) {
	if c.First == nil {
		c.First = nb
	} else {
		nb.Prev = c.Current
		c.Current.Next = nb
	}
	c.Current = nb
	c.Count++
}

// Detach unlinks b from the chain. b must not be the chain's sole block.
func (c *Chain) Detach(b *Block) {
	if b.Prev != nil {
		b.Prev.Next = b.Next
	}
	if b.Next != nil {
		b.Next.Prev = b.Prev
	}
	if c.First == b {
		c.First = b.Next
	}
	if c.Current == b {
		c.Current = b.Prev
	}
	b.Prev, b.Next = nil, nil
	c.Count--
}
