package execqueue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFOSingleProducer(t *testing.T) {
	q := New(4)
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		q.Push(func() { got = append(got, i) })
	}
	for !q.IsEmpty() {
		r := q.Pop(3, false)
		for i := 0; i < r.Len(); i++ {
			r.At(i)()
		}
		r.Drop()
	}
	require.Len(t, got, 10)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPopWithoutWaitOnEmptyReturnsImmediately(t *testing.T) {
	q := New(4)
	r := q.Pop(1, false)
	assert.Equal(t, 0, r.Len())
}

func TestPushSplicesNewBlockOnContention(t *testing.T) {
	q := New(2)
	q.Push(func() {})
	q.Push(func() {})
	r := q.Pop(1, false)
	require.Equal(t, 1, r.Len())
	// first block not yet dropped: ref_count > 0, forcing a splice when the
	// producer wraps back onto it.
	q.Push(func() {})
	q.Push(func() {})
	assert.GreaterOrEqual(t, q.Stats().BlocksAllocated, 2)
	r.Drop()
}

func TestSetDrainOnEmptyUnblocksWaitingPop(t *testing.T) {
	q := New(4)
	done := make(chan PopResult, 1)
	go func() {
		done <- q.Pop(8, true)
	}()
	time.Sleep(20 * time.Millisecond)
	q.SetDrainOnEmpty(true)
	select {
	case r := <-done:
		assert.Equal(t, 0, r.Len())
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock after SetDrainOnEmpty")
	}
}

func TestPopDeliversPushedDataToBlockedWaiter(t *testing.T) {
	q := New(4)
	done := make(chan PopResult, 1)
	go func() {
		done <- q.Pop(8, true)
	}()
	time.Sleep(20 * time.Millisecond)
	var ran atomic.Bool
	q.Push(func() { ran.Store(true) })
	select {
	case r := <-done:
		require.Equal(t, 1, r.Len())
		r.At(0)()
		r.Drop()
		assert.True(t, ran.Load())
	case <-time.After(time.Second):
		t.Fatal("Pop never observed the pushed callable")
	}
}

func TestConcurrentProducersPreserveAllCallables(t *testing.T) {
	q := New(8)
	const producers = 8
	const perProducer = 500
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(func() {})
			}
		}()
	}
	wg.Wait()
	q.SetDrainOnEmpty(true)
	n := 0
	for {
		r := q.Pop(16, true)
		if r.Len() == 0 {
			break
		}
		n += r.Len()
		r.Drop()
	}
	assert.Equal(t, producers*perProducer, n)
}

func TestLenApproximatesQueuedCount(t *testing.T) {
	q := New(4)
	assert.Equal(t, 0, q.Len())
	q.Push(func() {})
	q.Push(func() {})
	assert.Equal(t, 2, q.Len())
	r := q.Pop(1, false)
	assert.Equal(t, 1, q.Len())
	r.Drop()
}
