// Package thread pins a goroutine to an OS thread and serializes calls
// onto it. The render thread owns the device and the immediate command
// list; everything that must happen there is marshaled through a
// Thread.
package thread

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Thread is a dedicated OS thread. All submitted functions execute on
// the same locked thread, in submission order.
type Thread struct {
	funcs   chan func()
	done    chan struct{}
	running atomic.Bool
}

// New starts a thread locked to an OS thread
// (runtime.LockOSThread) and returns once it is ready.
func New() *Thread {
	t := &Thread{
		funcs: make(chan func(), 16),
		done:  make(chan struct{}),
	}
	t.running.Store(true)

	var ready sync.WaitGroup
	ready.Add(1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		ready.Done()
		for {
			select {
			case f := <-t.funcs:
				f()
			case <-t.done:
				return
			}
		}
	}()
	ready.Wait()
	return t
}

// Call executes f on the thread and returns its result.
func (t *Thread) Call(f func() any) any {
	if !t.running.Load() {
		return nil
	}
	result := make(chan any, 1)
	t.funcs <- func() {
		result <- f()
	}
	return <-result
}

// CallVoid executes f on the thread and waits for completion.
func (t *Thread) CallVoid(f func()) {
	if !t.running.Load() {
		return
	}
	done := make(chan struct{})
	t.funcs <- func() {
		f()
		close(done)
	}
	<-done
}

// CallAsync executes f on the thread without waiting. When the queue is
// full it degrades to a synchronous call rather than deadlocking.
func (t *Thread) CallAsync(f func()) {
	if !t.running.Load() {
		return
	}
	select {
	case t.funcs <- f:
	default:
		t.CallVoid(f)
	}
}

// Stop stops the thread. Pending queued calls are dropped.
func (t *Thread) Stop() {
	if t.running.Swap(false) {
		close(t.done)
	}
}

// IsRunning reports whether the thread accepts calls.
func (t *Thread) IsRunning() bool {
	return t.running.Load()
}
