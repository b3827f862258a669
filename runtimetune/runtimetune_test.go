package runtimetune

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWorkerCountIsAtLeastOne(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkerCount(), 1)
}

func TestDefaultArenaCapacityIsAtLeastSpecDefault(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultArenaCapacity(), 1<<20)
}

func TestInitIsIdempotentAndDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}
