package memory_test

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/gogpu/rhi/memory"
)

// TestSmallAllocAlignment verifies each small allocation is aligned to
// at least its size rounded up to a power of two.
func TestSmallAllocAlignment(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	sizes := []uint64{1, 16, 17, 32, 48, 64, 100, 256, 500, 1024}
	rounded := []uint64{16, 16, 32, 32, 64, 64, 128, 256, 512, 1024}
	for i, size := range sizes {
		p := m.Alloc(size)
		if p == nil {
			t.Fatalf("Alloc(%d) returned nil", size)
		}
		if uintptr(p)%uintptr(rounded[i]) != 0 {
			t.Errorf("Alloc(%d): pointer %p not aligned to %d", size, p, rounded[i])
		}
		m.Free(p, size)
	}
}

// TestAllocFreeRoundTrip verifies allocate-then-free leaves the binned
// byte accounting where it started.
func TestAllocFreeRoundTrip(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	before := m.SmallAllocatedBytes()
	p := m.Alloc(96)
	if p == nil {
		t.Fatal("Alloc(96) returned nil")
	}
	if got := m.SmallAllocatedBytes(); got != before+128 {
		t.Errorf("allocated bytes = %d, want %d", got, before+128)
	}
	m.Free(p, 96)
	if got := m.SmallAllocatedBytes(); got != before {
		t.Errorf("allocated bytes after free = %d, want %d", got, before)
	}
}

// TestZeroSizeAlloc verifies size-0 allocations return a non-nil
// placeholder and freeing it is a no-op.
func TestZeroSizeAlloc(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	p := m.Alloc(0)
	if p == nil {
		t.Fatal("Alloc(0) returned nil, want placeholder")
	}
	q := m.Alloc(0)
	if p != q {
		t.Errorf("Alloc(0) placeholder not stable: %p vs %p", p, q)
	}
	before := m.GetStats()
	m.Free(p, 0)
	after := m.GetStats()
	if before.SmallFrees != after.SmallFrees {
		t.Error("freeing the zero-size placeholder touched the bins")
	}
}

// TestSmallBinBoundary verifies the max bin size routes through the
// small path and one byte more routes through the system fallback.
func TestSmallBinBoundary(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	p := m.Alloc(memory.SmallBinMaxSize)
	if p == nil {
		t.Fatal("Alloc(max) returned nil")
	}
	if got := m.SmallAllocatedBytes(); got != memory.SmallBinMaxSize {
		t.Errorf("allocated bytes = %d, want %d (small path)", got, memory.SmallBinMaxSize)
	}
	m.Free(p, memory.SmallBinMaxSize)

	q := m.Alloc(memory.SmallBinMaxSize + 1)
	if q == nil {
		t.Fatal("Alloc(max+1) returned nil")
	}
	if got := m.SmallAllocatedBytes(); got != 0 {
		t.Errorf("allocated bytes = %d, want 0 (system fallback)", got)
	}
	m.Free(q, memory.SmallBinMaxSize+1)
}

// TestWritableAllocations verifies allocations are independently
// writable through their full size.
func TestWritableAllocations(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	ptrs := make([]unsafe.Pointer, 32)
	for i := range ptrs {
		ptrs[i] = m.Alloc(64)
		buf := memory.ByteSlice(ptrs[i], 64)
		for j := range buf {
			buf[j] = byte(i)
		}
	}
	for i, p := range ptrs {
		buf := memory.ByteSlice(p, 64)
		for j := range buf {
			if buf[j] != byte(i) {
				t.Fatalf("allocation %d corrupted at byte %d", i, j)
			}
		}
		m.Free(p, 64)
	}
	if !m.ValidateHeap() {
		t.Error("heap validation failed after round trip")
	}
}

// TestRealloc verifies content survives a grow-realloc.
func TestRealloc(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	p := m.Alloc(32)
	buf := memory.ByteSlice(p, 32)
	for i := range buf {
		buf[i] = byte(i)
	}
	q := m.Realloc(p, 32, 200)
	if q == nil {
		t.Fatal("Realloc returned nil")
	}
	got := memory.ByteSlice(q, 32)
	for i := range got {
		if got[i] != byte(i) {
			t.Fatalf("realloc lost content at byte %d", i)
		}
	}
	m.Free(q, 200)
}

// TestAllocatorStress runs 4 workers doing paired alloc-free across the
// size-class spectrum, with per-worker caches.
func TestAllocatorStress(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	const workers = 4
	const iterations = 10000
	sizes := []uint64{16, 48, 96, 192, 384, 768, 1100}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache := m.NewThreadCache()
			for i := 0; i < iterations; i++ {
				for _, size := range sizes {
					p := cache.Alloc(size)
					if p == nil {
						t.Errorf("Alloc(%d) returned nil", size)
						return
					}
					cache.Free(p, size)
				}
			}
			cache.Release()
		}()
	}
	wg.Wait()

	if got := m.SmallAllocatedBytes(); got != 0 {
		t.Errorf("small allocated bytes after join = %d, want 0", got)
	}
	stats := m.GetStats()
	if rate := stats.CacheHitRate(); rate < 0.70 {
		t.Errorf("cache hit rate = %.2f, want >= 0.70", rate)
	}
	if !m.ValidateHeap() {
		t.Error("heap validation failed after stress")
	}
}

// TestPageAccounting verifies free counts match element counts once
// everything is freed, and trimming keeps the retention threshold.
func TestPageAccounting(t *testing.T) {
	m := memory.NewMemorySystem(memory.DefaultConfig())

	// Force several pages in the 1024 bin: a 64 KiB page holds at most 64
	// slots of 1 KiB, 63 when its base is not 1 KiB aligned.
	const n = 300
	ptrs := make([]unsafe.Pointer, n)
	for i := range ptrs {
		ptrs[i] = m.Alloc(1024)
	}
	stats := m.GetStats()
	if stats.SmallPageCount < 5 {
		t.Fatalf("page count = %d, want >= 5", stats.SmallPageCount)
	}
	for _, p := range ptrs {
		m.Free(p, 1024)
	}

	stats = m.GetStats()
	if stats.SmallEmptyPageCount != stats.SmallPageCount {
		t.Errorf("empty pages = %d, total pages = %d, want all empty",
			stats.SmallEmptyPageCount, stats.SmallPageCount)
	}

	m.TrimEmptyPages()
	stats = m.GetStats()
	if stats.SmallEmptyPageCount > 4 {
		t.Errorf("empty pages after trim = %d, want <= 4", stats.SmallEmptyPageCount)
	}
	if !m.ValidateHeap() {
		t.Error("heap validation failed after trim")
	}
}
