package segregated

import (
	"bytes"
	"testing"

	"github.com/appshiftgo/memorypool/internal/blk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStackLikeReuse covers S4: exhausting a block appends a new one, and
// freeing then reallocating reclaims the freed slot LIFO, leaving both
// blocks retained with zero live units once everything is freed.
func TestStackLikeReuse(t *testing.T) {
	p := NewNTS(16, 4)

	p1, err := p.Allocate()
	require.NoError(t, err)
	p2, err := p.Allocate()
	require.NoError(t, err)
	p3, err := p.Allocate()
	require.NoError(t, err)
	p4, err := p.Allocate()
	require.NoError(t, err)
	require.Same(t, p1.Blk, p4.Blk, "first block holds all four items")

	p5, err := p.Allocate()
	require.NoError(t, err)
	require.NotSame(t, p1.Blk, p5.Blk, "exhausting the block appends a new one")

	require.NoError(t, p.Free(p3))

	p6, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, p3, p6, "freed slot is reclaimed LIFO")

	require.NoError(t, p.Free(p6))
	require.NoError(t, p.Free(p2))
	require.NoError(t, p.Free(p1))
	require.NoError(t, p.Free(p4))
	require.NoError(t, p.Free(p5))

	assert.Equal(t, 0, p1.Blk.Live)
	assert.Equal(t, 0, p5.Blk.Live)
	assert.NotSame(t, p1.Blk, p5.Blk, "both blocks are retained, neither released")
}

func TestPointersAreNeverRelocated(t *testing.T) {
	p := NewNTS(32, 8)
	a, err := p.Allocate()
	require.NoError(t, err)
	for i := range a.Bytes() {
		a.Bytes()[i] = 0xAB
	}
	for i := 0; i < 8; i++ {
		_, err := p.Allocate()
		require.NoError(t, err)
	}
	for _, v := range a.Bytes() {
		assert.Equal(t, byte(0xAB), v)
	}
}

func TestFreeNilIsNoOp(t *testing.T) {
	p := NewNTS(16, 4)
	assert.NoError(t, p.Free(blk.Ptr{}))
}

func TestOutOfPoolDetection(t *testing.T) {
	p1 := NewNTS(16, 4)
	p2 := NewNTS(16, 4)
	foreign, err := p2.Allocate()
	require.NoError(t, err)
	assert.ErrorIs(t, p1.Free(foreign), ErrOutOfPool)
}

func TestDumpDoesNotPanic(t *testing.T) {
	p := NewNTS(16, 4, WithName("segdump"))
	_, err := p.Allocate()
	require.NoError(t, err)
	var buf bytes.Buffer
	p.Dump(&buf)
	assert.Contains(t, buf.String(), "segdump")
}

func TestTSLFSharesChainPerGoroutineAndParameters(t *testing.T) {
	p1 := NewTSLF(16, 4)
	p2 := NewTSLF(16, 4)
	defer p1.Close()
	defer p2.Close()

	a, err := p1.Allocate()
	require.NoError(t, err)
	b, err := p2.Allocate()
	require.NoError(t, err)
	assert.Same(t, a.Blk, b.Blk)
}
