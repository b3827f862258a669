package objpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int64
}

func TestAllocateAndWriteThroughValue(t *testing.T) {
	p := NewNTS[point](4)

	ptr, err := p.Allocate()
	require.NoError(t, err)
	require.True(t, ptr.Valid())

	v := ptr.Value()
	v.X, v.Y = 3, 4
	assert.Equal(t, int64(3), ptr.Value().X)
	assert.Equal(t, int64(4), ptr.Value().Y)
}

func TestFreeThenReallocateReusesSlot(t *testing.T) {
	p := NewNTS[point](4)
	a, err := p.Allocate()
	require.NoError(t, err)
	require.NoError(t, p.Free(a))

	b, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestZeroPtrIsInvalid(t *testing.T) {
	var p Ptr[point]
	assert.False(t, p.Valid())
	assert.Nil(t, p.Value())
}

func TestTSLFCloseReleasesSharedChain(t *testing.T) {
	p := NewTSLF[point](4)
	_, err := p.Allocate()
	require.NoError(t, err)
	p.Close()
}
