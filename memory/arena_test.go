package memory_test

import (
	"sync"
	"testing"

	"github.com/gogpu/rhi/memory"
)

// TestFrameArenaSequence verifies ordering, alignment, and that reset
// rewinds to the same base pointer.
func TestFrameArenaSequence(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	p1 := m.FrameAlloc(100, 8)
	if p1 == nil {
		t.Fatal("FrameAlloc(100, 8) returned nil")
	}
	p2 := m.FrameAlloc(200, 16)
	if p2 == nil {
		t.Fatal("FrameAlloc(200, 16) returned nil")
	}
	if uintptr(p2)-uintptr(p1) < 100 {
		t.Errorf("p2 - p1 = %d, want >= 100", uintptr(p2)-uintptr(p1))
	}
	if uintptr(p2)%16 != 0 {
		t.Errorf("p2 = %p not 16-aligned", p2)
	}

	m.FrameReset()
	p3 := m.FrameAlloc(100, 8)
	if p3 != p1 {
		t.Errorf("after reset, p3 = %p, want %p", p3, p1)
	}
}

// TestFrameResetIdempotent verifies two resets equal one.
func TestFrameResetIdempotent(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	m.FrameAlloc(64, 8)
	m.FrameReset()
	m.FrameReset()
	if got := m.FrameAllocatedBytes(); got != 0 {
		t.Errorf("allocated bytes after double reset = %d, want 0", got)
	}
}

// TestFrameArenaPeak verifies the peak tracks the high-water offset
// across resets.
func TestFrameArenaPeak(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	m.FrameAlloc(1000, 8)
	m.FrameReset()
	m.FrameAlloc(100, 8)
	if peak := m.FramePeak(); peak < 1000 {
		t.Errorf("peak = %d, want >= 1000", peak)
	}
	if peak, off := m.FramePeak(), m.FrameAllocatedBytes(); peak < off {
		t.Errorf("peak %d below current offset %d", peak, off)
	}
}

// TestFrameArenaGrowth verifies a request beyond capacity grows the
// buffer rather than failing.
func TestFrameArenaGrowth(t *testing.T) {
	m := memory.NewMemorySystem(memory.Config{FrameArenaBytes: 4096})

	p := m.FrameAlloc(16384, 8)
	if p == nil {
		t.Fatal("FrameAlloc beyond capacity returned nil, want growth")
	}
	if cap := m.FrameCapacity(); cap < 16384 {
		t.Errorf("capacity after growth = %d, want >= 16384", cap)
	}
}

// TestFrameArenaConcurrent verifies CAS bump allocation hands out
// disjoint regions under contention.
func TestFrameArenaConcurrent(t *testing.T) {
	m := memory.NewMemorySystem(memory.Config{FrameArenaBytes: 1 << 20})

	const workers = 8
	const perWorker = 100
	var mu sync.Mutex
	seen := make(map[uintptr]bool)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				p := m.FrameAlloc(128, 16)
				if p == nil {
					t.Error("FrameAlloc returned nil")
					return
				}
				mu.Lock()
				if seen[uintptr(p)] {
					t.Errorf("duplicate frame pointer %p", p)
				}
				seen[uintptr(p)] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if got := m.FrameAllocatedBytes(); got < workers*perWorker*128 {
		t.Errorf("allocated bytes = %d, want >= %d", got, workers*perWorker*128)
	}
}
