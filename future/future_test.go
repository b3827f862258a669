package future

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeDrainer simulates a queue that, once drained n times, has run the
// callable that would fulfill the future under test.
type fakeDrainer struct {
	drains int
	fulfil func()
	after  int
}

func (d *fakeDrainer) DrainOnce() {
	d.drains++
	if d.drains >= d.after && d.fulfil != nil {
		f := d.fulfil
		d.fulfil = nil
		f()
	}
}

func TestBusyFutureWaitDrainsUntilReady(t *testing.T) {
	p := NewPromise[int](nil)
	d := &fakeDrainer{after: 3, fulfil: func() { p.SetValue(7) }}
	p.sh.d = d

	f := p.GetFuture()
	assert.False(t, f.IsReady())
	assert.Equal(t, 7, f.Get())
	assert.True(t, f.IsReady())
	assert.GreaterOrEqual(t, d.drains, 3)
}

func TestBusyFutureIsReadyMonotonic(t *testing.T) {
	p := NewPromise[string](&fakeDrainer{})
	f := p.GetFuture()
	assert.False(t, f.IsReady())
	p.SetValue("done")
	assert.True(t, f.IsReady())
	assert.True(t, f.IsReady())
	assert.Equal(t, "done", f.Get())
	assert.Equal(t, "done", f.Get())
}

func TestBusyPromiseVoidSignalsCompletion(t *testing.T) {
	p := NewPromiseVoid(&fakeDrainer{})
	f := p.GetFuture()
	assert.False(t, f.IsReady())
	p.SetDone()
	f.Get()
	assert.True(t, f.IsReady())
}

func TestBusyFutureVoidWaitDrains(t *testing.T) {
	p := NewPromiseVoid(nil)
	d := &fakeDrainer{after: 2, fulfil: p.SetDone}
	p.sh.d = d

	f := p.GetFuture()
	f.Wait()
	assert.True(t, f.IsReady())
	assert.GreaterOrEqual(t, d.drains, 2)
}
