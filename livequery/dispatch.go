package livequery

import (
	"sync"
)

// Dispatcher serializes all observer-facing delivery onto one logical "main"
// execution context. Upstream subscription work runs on its own goroutine per
// active key; everything an observer callback sees flows through a single
// Dispatcher, which is what guarantees that every observer of a key sees the
// same total order of values.
type Dispatcher interface {
	Dispatch(fn func())
}

// SerialDispatcher runs tasks on a single goroutine in FIFO order. The queue
// is unbounded so that upstream pumps never block on slow observers.
type SerialDispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
}

// NewSerialDispatcher creates and starts a serial dispatcher.
func NewSerialDispatcher() *SerialDispatcher {
	d := &SerialDispatcher{}
	d.cond = sync.NewCond(&d.mu)
	go d.run()

	return d
}

// Dispatch enqueues a task. Tasks submitted after Close are dropped.
func (d *SerialDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.queue = append(d.queue, fn)
	d.cond.Signal()
}

// Close stops the dispatcher after draining already-queued tasks.
func (d *SerialDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.cond.Signal()
}

func (d *SerialDispatcher) run() {
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}

		if len(d.queue) == 0 && d.closed {
			d.mu.Unlock()
			return
		}

		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		fn()
	}
}

// DirectDispatcher runs tasks inline on the calling goroutine. Intended for
// tests and for short-circuit paths that never leave the caller's context.
//
// Deliveries run while the registry still holds the entry's lock, so observer
// callbacks must not call back into the registry synchronously. In particular
// an observer that cancels itself from inside its own OnValues callback will
// deadlock; use the default SerialDispatcher when callbacks need to release.
type DirectDispatcher struct{}

// Dispatch runs the task immediately.
func (DirectDispatcher) Dispatch(fn func()) {
	fn()
}
