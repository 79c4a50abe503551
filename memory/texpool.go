package memory

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/rhi/hal"
)

// TexturePoolAlignment is the minimum alignment of texture pool
// allocations.
const TexturePoolAlignment = 256

// hugePageSize is the huge-page granule; blocks at least this large are
// eligible for huge-page backing.
const hugePageSize = 2 << 20

// minSplitLeftover is the smallest free-region remainder worth keeping
// after a split.
const minSplitLeftover = 64

// freeRegion is one node of a block's free-list, kept sorted by offset
// so adjacent regions can be coalesced.
type freeRegion struct {
	offset uint64
	size   uint64
	next   *freeRegion
}

// textureBlock is one large sub-allocated region. New space is carved by
// bumping offset; freed space returns to the sorted free-list. The mutex
// guards the free-list; the bump offset is CAS-advanced without it.
type textureBlock struct {
	mu            sync.Mutex
	buf           []byte
	base          uintptr
	capacity      uint64
	offset        atomic.Uint64
	usedBytes     atomic.Uint64
	freeList      *freeRegion
	usesHugePages bool
}

func (b *textureBlock) owns(addr uintptr) bool {
	return addr >= b.base && addr < b.base+uintptr(b.capacity)
}

// allocFromFreeList carves an aligned region out of the block's
// free-list, splitting when the leftover is worth keeping.
func (b *textureBlock) allocFromFreeList(size, alignment uint64) unsafe.Pointer {
	b.mu.Lock()
	defer b.mu.Unlock()

	var prev *freeRegion
	for region := b.freeList; region != nil; prev, region = region, region.next {
		alignedOff := alignUp(uint64(b.base)+region.offset, alignment) - uint64(b.base)
		if alignedOff+size > region.offset+region.size {
			continue
		}
		ptr := unsafe.Pointer(b.base + uintptr(alignedOff))
		used := (alignedOff - region.offset) + size
		if region.size > used+minSplitLeftover {
			region.offset += used
			region.size -= used
		} else {
			// Too small to keep: absorb the remainder into the allocation.
			used = region.size
			if prev != nil {
				prev.next = region.next
			} else {
				b.freeList = region.next
			}
		}
		b.usedBytes.Add(used)
		return ptr
	}
	return nil
}

// tryBump CAS-advances the block's bump offset.
func (b *textureBlock) tryBump(size, alignment uint64) unsafe.Pointer {
	for {
		off := b.offset.Load()
		alignedOff := alignUp(uint64(b.base)+off, alignment) - uint64(b.base)
		next := alignedOff + size
		if next > b.capacity {
			return nil
		}
		if b.offset.CompareAndSwap(off, next) {
			// Alignment padding is accounted as used so the carved prefix
			// stays fully covered by used + free regions.
			b.usedBytes.Add(next - off)
			return unsafe.Pointer(b.base + uintptr(alignedOff))
		}
	}
}

// addToFreeList inserts a region sorted by offset.
func (b *textureBlock) addToFreeList(offset, size uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	region := &freeRegion{offset: offset, size: size}
	if b.freeList == nil || b.freeList.offset > offset {
		region.next = b.freeList
		b.freeList = region
	} else {
		current := b.freeList
		for current.next != nil && current.next.offset < offset {
			current = current.next
		}
		region.next = current.next
		current.next = region
	}
	b.usedBytes.Add(^(size) + 1)
}

// mergeAdjacent coalesces regions where one ends exactly where the next
// begins.
func (b *textureBlock) mergeAdjacent() {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.freeList
	for current != nil && current.next != nil {
		if current.offset+current.size == current.next.offset {
			current.size += current.next.size
			current.next = current.next.next
		} else {
			current = current.next
		}
	}
}

// freeBytes is the block's reusable space: free-list regions plus the
// un-carved bump tail.
func (b *textureBlock) freeBytes() uint64 {
	b.mu.Lock()
	var listed uint64
	for r := b.freeList; r != nil; r = r.next {
		listed += r.size
	}
	b.mu.Unlock()
	return listed + (b.capacity - b.offset.Load())
}

// TextureAlloc sub-allocates from the texture pool. The search runs in
// three tiers: existing free-lists, bump space in existing blocks, then
// a new block of max(default block size, size). Blocks of at least 2 MiB
// use huge-page backing when enabled; failure falls back silently.
// Alignment is raised to TexturePoolAlignment.
func (m *MemorySystem) TextureAlloc(size, alignment uint64) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	if alignment < TexturePoolAlignment {
		alignment = TexturePoolAlignment
	}
	alignedSize := alignUp(size, alignment)
	m.texAllocations.Add(1)

	m.texBlocksMu.Lock()
	blocks := m.texBlocks
	m.texBlocksMu.Unlock()

	for _, b := range blocks {
		if ptr := b.allocFromFreeList(alignedSize, alignment); ptr != nil {
			m.texUsedBytes.Add(alignedSize)
			return ptr
		}
	}
	for _, b := range blocks {
		if ptr := b.tryBump(alignedSize, alignment); ptr != nil {
			m.texUsedBytes.Add(alignedSize)
			return ptr
		}
	}

	m.texBlocksMu.Lock()
	defer m.texBlocksMu.Unlock()

	// Leave headroom for base alignment so the first carve always fits.
	blockSize := m.texBlockSize
	if alignedSize+alignment > blockSize {
		blockSize = alignedSize + alignment
	}

	b := &textureBlock{capacity: blockSize}
	if m.useHugePages && blockSize >= hugePageSize {
		if buf, err := allocHugePages(blockSize); err == nil {
			b.buf = buf
			b.usesHugePages = true
			hal.Logger().Info("memory: texture block backed by huge pages", "bytes", blockSize)
		}
	}
	if b.buf == nil {
		b.buf = make([]byte, blockSize)
	}
	b.base = uintptr(unsafe.Pointer(&b.buf[0]))

	alignedOff := alignUp(uint64(b.base), alignment) - uint64(b.base)
	b.offset.Store(alignedOff + alignedSize)
	b.usedBytes.Store(alignedOff + alignedSize)
	m.texBlocks = append(m.texBlocks, b)
	m.texReservedBytes.Add(blockSize)
	m.texUsedBytes.Add(alignedSize)
	return unsafe.Pointer(b.base + uintptr(alignedOff))
}

// TextureFree returns a region to its owning block's free-list. size
// must be the size passed to TextureAlloc (it is re-aligned the same
// way). Unknown pointers are logged and ignored.
func (m *MemorySystem) TextureFree(ptr unsafe.Pointer, size uint64) {
	if ptr == nil || size == 0 {
		return
	}
	alignedSize := alignUp(size, TexturePoolAlignment)
	m.texFrees.Add(1)

	addr := uintptr(ptr)
	m.texBlocksMu.Lock()
	blocks := m.texBlocks
	m.texBlocksMu.Unlock()

	for _, b := range blocks {
		if b.owns(addr) {
			b.addToFreeList(uint64(addr-b.base), alignedSize)
			m.texUsedBytes.Add(^(alignedSize) + 1)
			return
		}
	}
	hal.Logger().Warn("memory: texture free: pointer not found in texture blocks")
}

// TextureFreeUnsized accepts a bare pointer and does nothing beyond a
// warning: per-allocation size tracking is not implemented, so unsized
// frees cannot return memory. Callers that remember their sizes use
// TextureFree.
func (m *MemorySystem) TextureFreeUnsized(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	hal.Logger().Warn("memory: texture free: allocation size tracking not implemented, use sized free")
}

// TextureReleaseAll resets every block to empty without releasing the
// blocks themselves.
func (m *MemorySystem) TextureReleaseAll() {
	m.texBlocksMu.Lock()
	defer m.texBlocksMu.Unlock()
	for _, b := range m.texBlocks {
		b.mu.Lock()
		b.freeList = nil
		b.mu.Unlock()
		b.offset.Store(0)
		b.usedBytes.Store(0)
	}
	m.texUsedBytes.Store(0)
}

// CompactTextureBlocks merges adjacent free regions in every block.
// Idempotent when no allocations happen in between.
func (m *MemorySystem) CompactTextureBlocks() {
	m.texBlocksMu.Lock()
	blocks := m.texBlocks
	m.texBlocksMu.Unlock()
	for _, b := range blocks {
		b.mergeAdjacent()
	}
}

// TextureFreeBytes reports the reusable texture pool space across all
// blocks: free-list regions plus un-carved bump tails.
func (m *MemorySystem) TextureFreeBytes() uint64 {
	m.texBlocksMu.Lock()
	blocks := m.texBlocks
	m.texBlocksMu.Unlock()
	var total uint64
	for _, b := range blocks {
		total += b.freeBytes()
	}
	return total
}

// TextureUsedBytes reports the bytes currently allocated from the pool.
func (m *MemorySystem) TextureUsedBytes() uint64 { return m.texUsedBytes.Load() }

// TextureReservedBytes reports the total block capacity reserved.
func (m *MemorySystem) TextureReservedBytes() uint64 { return m.texReservedBytes.Load() }

// Shutdown releases all texture blocks, unmapping huge-page backing.
// The system must not be used afterwards.
func (m *MemorySystem) Shutdown() {
	m.texBlocksMu.Lock()
	defer m.texBlocksMu.Unlock()
	for _, b := range m.texBlocks {
		if b.usesHugePages {
			freeHugePages(b.buf)
		}
		b.buf = nil
		b.freeList = nil
	}
	m.texBlocks = nil
	m.texReservedBytes.Store(0)
	m.texUsedBytes.Store(0)
}

// ValidateTextureBlocks checks that each block's carved prefix is fully
// covered: Σ(free regions) + used bytes == bump offset.
func (m *MemorySystem) ValidateTextureBlocks() bool {
	m.texBlocksMu.Lock()
	blocks := m.texBlocks
	m.texBlocksMu.Unlock()

	ok := true
	for _, b := range blocks {
		b.mu.Lock()
		var listed uint64
		for r := b.freeList; r != nil; r = r.next {
			listed += r.size
		}
		b.mu.Unlock()
		if listed+b.usedBytes.Load() != b.offset.Load() {
			hal.Logger().Error("memory: texture block accounting mismatch",
				"free", listed, "used", b.usedBytes.Load(), "offset", b.offset.Load())
			ok = false
		}
	}
	return ok
}
