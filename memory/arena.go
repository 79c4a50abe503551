package memory

import (
	"sync/atomic"
	"unsafe"
)

// frameArena is the per-frame bump allocator. Allocation is lock-free
// via CAS on the offset; FrameReset drops everything at once. Growth is
// caller-serialized: the owning thread grows the arena between frames,
// concurrent growth is undefined.
type frameArena struct {
	buf         []byte
	base        uintptr
	capacity    uint64
	offset      atomic.Uint64
	peak        atomic.Uint64
	allocations atomic.Uint64
}

func (a *frameArena) init(capacity uint64) {
	a.buf = make([]byte, capacity)
	a.base = uintptr(unsafe.Pointer(&a.buf[0]))
	a.capacity = capacity
	a.offset.Store(0)
	a.peak.Store(0)
	a.allocations.Store(0)
}

// FrameAlloc bump-allocates size bytes with the given alignment from
// the frame arena. Pointers become dangling at the next FrameReset;
// callers must not retain them across it. Returns nil for size 0.
func (m *MemorySystem) FrameAlloc(size, alignment uint64) unsafe.Pointer {
	a := &m.arena
	if size == 0 {
		return nil
	}
	if alignment == 0 {
		alignment = 1
	}
	a.allocations.Add(1)

	current := a.offset.Load()
	for {
		aligned := alignUp(uint64(a.base)+current, alignment) - uint64(a.base)
		next := aligned + size
		if next <= a.capacity {
			if a.offset.CompareAndSwap(current, next) {
				for {
					peak := a.peak.Load()
					if next <= peak || a.peak.CompareAndSwap(peak, next) {
						break
					}
				}
				return unsafe.Pointer(a.base + uintptr(aligned))
			}
			current = a.offset.Load()
			continue
		}

		// Out of space: grow and restart. Growth is owner-serialized; the
		// buffer swap invalidates all outstanding frame pointers.
		newCap := a.capacity * 2
		if grown := alignUp(size, 4096); grown > newCap {
			newCap = grown
		}
		a.buf = make([]byte, newCap)
		a.base = uintptr(unsafe.Pointer(&a.buf[0]))
		a.capacity = newCap
		a.offset.Store(0)
		current = 0
	}
}

// FrameReset discards all frame allocations in bulk. Idempotent.
// Existing frame pointers dangle afterwards.
func (m *MemorySystem) FrameReset() {
	m.arena.offset.Store(0)
}

// FramePeak returns the high-water offset since the last ResetStats.
func (m *MemorySystem) FramePeak() uint64 { return m.arena.peak.Load() }

// FrameCapacity returns the arena capacity in bytes.
func (m *MemorySystem) FrameCapacity() uint64 { return m.arena.capacity }

// FrameAllocatedBytes returns the current bump offset.
func (m *MemorySystem) FrameAllocatedBytes() uint64 { return m.arena.offset.Load() }
