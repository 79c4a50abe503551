package memory_test

import (
	"testing"
	"unsafe"

	"github.com/gogpu/rhi/memory"
)

// TestTexturePoolAlignment verifies all pool allocations are 256-byte
// aligned.
func TestTexturePoolAlignment(t *testing.T) {
	m := memory.NewMemorySystem(memory.Config{TextureBlockBytes: 1 << 20})

	for _, size := range []uint64{1, 100, 4096, 100000} {
		p := m.TextureAlloc(size, 256)
		if p == nil {
			t.Fatalf("TextureAlloc(%d) returned nil", size)
		}
		if uintptr(p)%256 != 0 {
			t.Errorf("TextureAlloc(%d) = %p, not 256-aligned", size, p)
		}
	}
	if !m.ValidateTextureBlocks() {
		t.Error("block accounting mismatch")
	}
}

// TestTexturePoolFreeReuse verifies freed regions are found again by the
// free-list tier before new bump space is carved.
func TestTexturePoolFreeReuse(t *testing.T) {
	m := memory.NewMemorySystem(memory.Config{TextureBlockBytes: 1 << 20})

	p1 := m.TextureAlloc(4096, 256)
	p2 := m.TextureAlloc(4096, 256)
	if p1 == nil || p2 == nil {
		t.Fatal("initial allocations failed")
	}
	used := m.TextureUsedBytes()

	m.TextureFree(p1, 4096)
	if got := m.TextureUsedBytes(); got != used-4096 {
		t.Errorf("used bytes after free = %d, want %d", got, used-4096)
	}

	p3 := m.TextureAlloc(4096, 256)
	if p3 != p1 {
		t.Errorf("free-list tier not reused: got %p, want %p", p3, p1)
	}
	if !m.ValidateTextureBlocks() {
		t.Error("block accounting mismatch after reuse")
	}
}

// TestTexturePoolCompact verifies adjacent free regions merge and that
// compaction is idempotent.
func TestTexturePoolCompact(t *testing.T) {
	m := memory.NewMemorySystem(memory.Config{TextureBlockBytes: 1 << 20})

	ptrs := make([]unsafe.Pointer, 4)
	for i := range ptrs {
		ptrs[i] = m.TextureAlloc(1024, 256)
	}
	// Free all four adjacent regions, out of order.
	m.TextureFree(ptrs[2], 1024)
	m.TextureFree(ptrs[0], 1024)
	m.TextureFree(ptrs[3], 1024)
	m.TextureFree(ptrs[1], 1024)

	m.CompactTextureBlocks()
	statsAfterOne := m.GetStats()
	if statsAfterOne.TextureFreeRegions != 1 {
		t.Errorf("free regions after compact = %d, want 1", statsAfterOne.TextureFreeRegions)
	}

	m.CompactTextureBlocks()
	statsAfterTwo := m.GetStats()
	if statsAfterTwo.TextureFreeRegions != statsAfterOne.TextureFreeRegions {
		t.Error("compact not idempotent")
	}

	// The merged region satisfies an allocation no single fragment could.
	p := m.TextureAlloc(4096, 256)
	if p == nil {
		t.Fatal("allocation from merged region failed")
	}
	if p != ptrs[0] {
		t.Errorf("merged region not reused: got %p, want %p", p, ptrs[0])
	}
}

// TestTexturePoolGrowsBlocks verifies an oversized request gets its own
// block of at least the requested size.
func TestTexturePoolGrowsBlocks(t *testing.T) {
	m := memory.NewMemorySystem(memory.Config{TextureBlockBytes: 1 << 20})

	p := m.TextureAlloc(4<<20, 256)
	if p == nil {
		t.Fatal("oversized allocation returned nil")
	}
	if got := m.TextureReservedBytes(); got < 4<<20 {
		t.Errorf("reserved bytes = %d, want >= %d", got, 4<<20)
	}
	stats := m.GetStats()
	if stats.TextureBlockCount != 1 {
		t.Errorf("block count = %d, want 1", stats.TextureBlockCount)
	}
}

// TestTextureFreeUnsized verifies the unsized free path is a no-op that
// leaves accounting untouched.
func TestTextureFreeUnsized(t *testing.T) {
	m := memory.NewMemorySystem(memory.Config{TextureBlockBytes: 1 << 20})

	p := m.TextureAlloc(1024, 256)
	used := m.TextureUsedBytes()
	m.TextureFreeUnsized(p)
	if got := m.TextureUsedBytes(); got != used {
		t.Errorf("used bytes after unsized free = %d, want %d", got, used)
	}
}
