// Package objpool provides a typed facade over a segregated.Allocator,
// parameterized by unsafe.Sizeof(T), per spec.md's ObjectPool<T, N, Mode>.
package objpool

import (
	"unsafe"

	"github.com/appshiftgo/memorypool/internal/blk"
	"github.com/appshiftgo/memorypool/segregated"
)

// Ptr is the typed handle returned by Allocate, standing in for spec.md's
// bare T* in the same way blk.Ptr stands in for a bare pointer at the
// lower layers: it carries the information needed to locate and free the
// slot without requiring a side-table keyed by address. The zero value
// represents the null pointer.
type Ptr[T any] struct {
	underlying blk.Ptr
}

// Valid reports whether p refers to an actual allocation.
func (p Ptr[T]) Valid() bool { return p.underlying.Valid() }

// Value returns the pointer to the live T backing p. No constructor is
// run; the caller is responsible for the object's lifetime within the raw
// storage, per spec.
func (p Ptr[T]) Value() *T {
	if !p.underlying.Valid() {
		return nil
	}
	b := p.underlying.Bytes()
	return (*T)(unsafe.Pointer(&b[0]))
}

// ObjectPool[T] is a thin, same-size-allocation facade over a
// segregated.Allocator sized for T. No constructor/destructor invocation
// is part of the contract; allocate/free forward directly.
type ObjectPool[T any] struct {
	seg segregated.Allocator
}

// NewNTS wraps a segregated.NTS sized for T, itemsPerBlock per block
// (<=0 selects segregated.DefaultItemsPerBlock).
func NewNTS[T any](itemsPerBlock int, opts ...segregated.Option) *ObjectPool[T] {
	return &ObjectPool[T]{seg: segregated.NewNTS(itemSizeOf[T](), itemsPerBlock, opts...)}
}

// NewTSL wraps a segregated.TSL sized for T.
func NewTSL[T any](itemsPerBlock int, opts ...segregated.Option) *ObjectPool[T] {
	return &ObjectPool[T]{seg: segregated.NewTSL(itemSizeOf[T](), itemsPerBlock, opts...)}
}

// NewTSLF wraps a segregated.TSLF sized for T. The returned pool's
// underlying TSLF must be released via Close when no longer needed.
func NewTSLF[T any](itemsPerBlock int, opts ...segregated.Option) *ObjectPool[T] {
	return &ObjectPool[T]{seg: segregated.NewTSLF(itemSizeOf[T](), itemsPerBlock, opts...)}
}

func itemSizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Allocate returns a handle to sizeof(T) writable, zeroed-on-first-use
// bytes reinterpreted as *T.
func (p *ObjectPool[T]) Allocate() (Ptr[T], error) {
	bp, err := p.seg.Allocate()
	if err != nil {
		return Ptr[T]{}, err
	}
	return Ptr[T]{underlying: bp}, nil
}

// Free returns ptr's slot to the pool. Free of the zero Ptr is a no-op.
func (p *ObjectPool[T]) Free(ptr Ptr[T]) error {
	return p.seg.Free(ptr.underlying)
}

// Close releases the underlying allocator's resources, if it holds any
// (only meaningful when the pool wraps a segregated.TSLF).
func (p *ObjectPool[T]) Close() {
	if c, ok := p.seg.(interface{ Close() }); ok {
		c.Close()
	}
}
