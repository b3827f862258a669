package blk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAcquireShareAndRelease(t *testing.T) {
	r := NewChainRegistry()

	e1 := r.Acquire(1, "key")
	e2 := r.Acquire(1, "key")
	assert.Same(t, e1, e2, "same goroutine id + key must share one entry")

	e1.Extra = "payload"
	assert.Equal(t, "payload", e2.Extra)

	r.Release(1, "key", e1)
	// still referenced once more (by e2's acquisition)
	e3 := r.Acquire(1, "key")
	assert.Same(t, e2, e3)

	r.Release(1, "key", e2)
	r.Release(1, "key", e3)

	e4 := r.Acquire(1, "key")
	assert.NotSame(t, e1, e4, "entry must be freshly created once refcount drains to zero")
}

func TestRegistryPartitionsByGoroutineAndKey(t *testing.T) {
	r := NewChainRegistry()

	a := r.Acquire(1, "k1")
	b := r.Acquire(2, "k1")
	c := r.Acquire(1, "k2")
	require.NotSame(t, a, b)
	require.NotSame(t, a, c)
	require.NotSame(t, b, c)
}
