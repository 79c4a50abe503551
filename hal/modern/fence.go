package modern

import (
	"sync"
	"sync/atomic"
)

// timelineFence is a monotonically increasing fence. Waiters block on
// the condition variable until the value they need is reached.
type timelineFence struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value uint64
}

func newTimelineFence() *timelineFence {
	f := &timelineFence{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Signal advances the fence to value. Values never regress.
func (f *timelineFence) Signal(value uint64) {
	f.mu.Lock()
	if value > f.value {
		f.value = value
		f.cond.Broadcast()
	}
	f.mu.Unlock()
}

// Value returns the last signaled value.
func (f *timelineFence) Value() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// IsComplete reports whether the fence has reached value.
func (f *timelineFence) IsComplete(value uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value >= value
}

// Wait blocks until the fence reaches value.
func (f *timelineFence) Wait(value uint64) {
	f.mu.Lock()
	for f.value < value {
		f.cond.Wait()
	}
	f.mu.Unlock()
}

// semaphore is a binary queue-to-queue synchronization primitive.
type semaphore struct {
	signaled atomic.Bool
}

// Signal raises the semaphore.
func (s *semaphore) Signal() { s.signaled.Store(true) }

// Reset lowers the semaphore, consuming the signal.
func (s *semaphore) Reset() { s.signaled.Store(false) }

// Signaled reports whether the semaphore has been signaled since the
// last Reset.
func (s *semaphore) Signaled() bool { return s.signaled.Load() }

// frameFence gates CPU reuse of one frame-in-flight slot. It starts
// signaled so the first frames do not block.
type frameFence struct {
	mu       sync.Mutex
	cond     *sync.Cond
	signaled bool
}

func newFrameFence() *frameFence {
	f := &frameFence{signaled: true}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Reset arms the fence for a new submission.
func (f *frameFence) Reset() {
	f.mu.Lock()
	f.signaled = false
	f.mu.Unlock()
}

// Signal releases waiters.
func (f *frameFence) Signal() {
	f.mu.Lock()
	f.signaled = true
	f.cond.Broadcast()
	f.mu.Unlock()
}

// Wait blocks until the fence signals.
func (f *frameFence) Wait() {
	f.mu.Lock()
	for !f.signaled {
		f.cond.Wait()
	}
	f.mu.Unlock()
}
