package obslog

import (
	"errors"
	"testing"
)

// These helpers must be safe to call on a nil *Logger (the default for
// callers that opt out of diagnostics) and must not panic on any input.

func TestHelpersAreNilSafe(t *testing.T) {
	var l *Logger
	BlockAllocFailed(l, "stackpool", 64, errors.New("boom"))
	FreeListMerge(l, "stackpool", 128)
	QueueOverload(l, 1024)
	WorkerPanic(l, 2, "recovered value")
	ChainShared(l, "stackpool", "key", true)
	ChainShared(l, "stackpool", "key", false)
}

func TestHelpersWorkWithDefaultLogger(t *testing.T) {
	BlockAllocFailed(Default, "stackpool", 64, errors.New("boom"))
	FreeListMerge(Default, "stackpool", 128)
	QueueOverload(Default, 1024)
	WorkerPanic(Default, 2, "recovered value")
	ChainShared(Default, "stackpool", "key", true)
}
