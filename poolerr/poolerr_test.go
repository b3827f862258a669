package poolerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKindOnly(t *testing.T) {
	sentinel := New(OutOfPool, "stackpool", nil)
	wrapped := New(OutOfPool, "stackpool.Free", errors.New("boom"))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, New(ExceedsMaxSize, "stackpool", nil)))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := New(CannotCreateBlock, "stackpool.appendBlock", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "OutOfPool", OutOfPool.String())
	assert.Equal(t, "CannotCreatePool", CannotCreatePool.String())
}

func TestErrorMessageIncludesOpAndKind(t *testing.T) {
	err := New(ExceedsMaxSize, "stackpool.Allocate", nil)
	assert.Contains(t, err.Error(), "stackpool.Allocate")
	assert.Contains(t, err.Error(), "ExceedsMaxSize")
}
