// Package obslog provides the structured diagnostic logger shared by every
// pool and the execution core. It wraps github.com/joeycumines/logiface with
// the github.com/joeycumines/stumpy JSON backend, the same facade the
// eventloop package this module is grounded on depends on directly.
//
// Logging here is strictly diagnostic: it never changes control flow, and
// every method on the wrapped logiface.Logger is nil-receiver-safe, so a
// caller may pass a nil *Logger anywhere one is accepted as a documented
// "quiet" mode.
package obslog

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the logger type threaded through this module's pools and
// queues.
type Logger = logiface.Logger[*stumpy.Event]

// Default writes newline-delimited JSON diagnostics to stderr (stumpy's
// own default writer). It is never applied implicitly: a pool, queue or
// loop given no Logger logs nothing, and callers that want output pass
// Default (or their own Logger) explicitly.
var Default = stumpy.L.New(stumpy.L.WithStumpy())

// BlockAllocFailed logs a block allocation failure. l may be nil.
func BlockAllocFailed(l *Logger, pool string, size int, err error) {
	l.Err().Str(`pool`, pool).Int(`size`, size).Err(err).Log(`block allocation failed`)
}

// FreeListMerge logs an adjacency merge performed while freeing a unit.
// l may be nil.
func FreeListMerge(l *Logger, pool string, mergedLength int) {
	l.Debug().Str(`pool`, pool).Int(`merged_length`, mergedLength).Log(`free list adjacency merge`)
}

// QueueOverload logs a push onto a queue that had to splice in a fresh
// block because the next block in the ring was still referenced. l may be
// nil.
func QueueOverload(l *Logger, capacity int) {
	l.Warning().Int(`capacity`, capacity).Log(`execution queue spliced a fresh block, producer lapped a referenced block`)
}

// WorkerPanic logs a panic recovered while executing a queued callable. l
// may be nil.
func WorkerPanic(l *Logger, worker int, recovered any) {
	l.Err().Int(`worker`, worker).Any(`recovered`, recovered).Log(`worker recovered from a panicking callable`)
}

// ChainShared logs creation or release of a thread-local shared block
// chain (TSLF). l may be nil.
func ChainShared(l *Logger, pool string, key string, created bool) {
	if created {
		l.Trace().Str(`pool`, pool).Str(`key`, key).Log(`thread-local chain created`)
		return
	}
	l.Trace().Str(`pool`, pool).Str(`key`, key).Log(`thread-local chain released`)
}
