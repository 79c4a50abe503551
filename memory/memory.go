package memory

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gogpu/rhi/hal"
)

// Config sizes the memory system at initialization.
type Config struct {
	// FrameArenaBytes is the initial capacity of the per-frame arena.
	FrameArenaBytes uint64

	// TextureBlockBytes is the default size of texture pool blocks.
	TextureBlockBytes uint64

	// HugePagesForTextures requests huge-page backing for texture blocks
	// of at least 2 MiB. Silently falls back when unsupported.
	HugePagesForTextures bool
}

// DefaultConfig returns the standard sizing: a 16 MiB frame arena and
// 64 MiB texture blocks.
func DefaultConfig() Config {
	return Config{
		FrameArenaBytes:   16 << 20,
		TextureBlockBytes: 64 << 20,
	}
}

// MemorySystem owns the three allocation paths: size-classed small bins,
// the per-frame arena, and the texture block pool.
type MemorySystem struct {
	smallBins [numSmallBins]smallBin

	arena frameArena

	texBlocksMu      sync.Mutex
	texBlocks        []*textureBlock
	texBlockSize     uint64
	useHugePages     bool
	hugePagesOK      bool
	texReservedBytes atomic.Uint64
	texUsedBytes     atomic.Uint64
	texAllocations   atomic.Uint64
	texFrees         atomic.Uint64

	// Large allocations (> SmallBinMaxSize) tracked by pointer so Free
	// can release them through the system allocator.
	largeMu    sync.Mutex
	largeAlloc map[uintptr][]byte

	smallAllocatedBytes atomic.Uint64
	smallReservedBytes  atomic.Uint64
	smallCacheHits      atomic.Uint64
	smallCacheMisses    atomic.Uint64
}

// NewMemorySystem initializes a memory system with the given sizing.
func NewMemorySystem(cfg Config) *MemorySystem {
	if cfg.FrameArenaBytes == 0 {
		cfg.FrameArenaBytes = DefaultConfig().FrameArenaBytes
	}
	if cfg.TextureBlockBytes == 0 {
		cfg.TextureBlockBytes = DefaultConfig().TextureBlockBytes
	}

	m := &MemorySystem{
		texBlockSize: cfg.TextureBlockBytes,
		useHugePages: cfg.HugePagesForTextures,
		largeAlloc:   make(map[uintptr][]byte),
	}

	size := uint32(16)
	for i := 0; i < numSmallBins; i++ {
		m.smallBins[i].elemSize = size
		size <<= 1 // 16, 32, 64, 128, 256, 512, 1024
	}

	m.arena.init(cfg.FrameArenaBytes)

	m.hugePagesOK = detectHugePages()
	if m.hugePagesOK {
		hal.Logger().Info("memory: huge pages (2MiB) available")
	} else if m.useHugePages {
		hal.Logger().Info("memory: huge pages requested but unavailable, using standard allocation")
		m.useHugePages = false
	}

	hal.Logger().Info("memory: initialized",
		"frameArenaBytes", cfg.FrameArenaBytes,
		"textureBlockBytes", cfg.TextureBlockBytes)
	return m
}

var (
	defaultSystem     *MemorySystem
	defaultSystemOnce sync.Once
)

// Default returns the process-wide memory system, created on first use
// with DefaultConfig.
func Default() *MemorySystem {
	defaultSystemOnce.Do(func() {
		defaultSystem = NewMemorySystem(DefaultConfig())
	})
	return defaultSystem
}

// HugePagesAvailable reports whether the platform probe found huge-page
// support at initialization.
func (m *MemorySystem) HugePagesAvailable() bool { return m.hugePagesOK }

// Alloc allocates size bytes. Sizes up to SmallBinMaxSize go through the
// binned path; larger sizes through the system allocator. Size 0 returns
// a shared non-nil placeholder. Returns nil on exhaustion.
func (m *MemorySystem) Alloc(size uint64) unsafe.Pointer {
	if size == 0 {
		return zeroAllocation()
	}
	if size > SmallBinMaxSize {
		return m.allocLarge(size)
	}
	return m.allocSmall(size, nil)
}

// Free releases an allocation of the given size obtained from Alloc.
// Freeing nil or the zero-size placeholder is a no-op. Double-free is
// undefined.
func (m *MemorySystem) Free(ptr unsafe.Pointer, size uint64) {
	if ptr == nil || ptr == zeroAllocation() {
		return
	}
	if size > SmallBinMaxSize {
		m.freeLarge(ptr)
		return
	}
	m.freeSmall(ptr, size, nil)
}

// Realloc resizes an allocation by allocating, copying, and freeing.
func (m *MemorySystem) Realloc(ptr unsafe.Pointer, oldSize, newSize uint64) unsafe.Pointer {
	if ptr == nil || ptr == zeroAllocation() {
		return m.Alloc(newSize)
	}
	if newSize == 0 {
		m.Free(ptr, oldSize)
		return zeroAllocation()
	}
	newPtr := m.Alloc(newSize)
	if newPtr == nil {
		return nil
	}
	copySize := oldSize
	if newSize < copySize {
		copySize = newSize
	}
	copy(ByteSlice(newPtr, copySize), ByteSlice(ptr, copySize))
	m.Free(ptr, oldSize)
	return newPtr
}

// ByteSlice views size bytes at ptr as a slice. The slice aliases the
// allocation; it must not outlive the corresponding Free.
func ByteSlice(ptr unsafe.Pointer, size uint64) []byte {
	return unsafe.Slice((*byte)(ptr), size)
}

func (m *MemorySystem) allocSmall(size uint64, cache *ThreadCache) unsafe.Pointer {
	binIdx := selectSmallBin(size)
	bin := &m.smallBins[binIdx]

	// Lock-free fast path through the worker's cache.
	if cache != nil && cache.count[binIdx] > 0 {
		cache.count[binIdx]--
		p := cache.slots[binIdx][cache.count[binIdx]]
		cache.hits++
		m.smallCacheHits.Add(1)
		m.smallAllocatedBytes.Add(uint64(bin.elemSize))
		bin.allocCount.Add(1)
		return p
	}
	if cache != nil {
		cache.misses++
		m.smallCacheMisses.Add(1)
	}

	bin.mu.Lock()
	defer bin.mu.Unlock()

	// Linear scan for a page with free slots.
	for _, pg := range bin.pages {
		if pg.freeCount > 0 {
			p := pg.pop()
			m.smallAllocatedBytes.Add(uint64(bin.elemSize))
			bin.allocCount.Add(1)
			return p
		}
	}

	// No free slots anywhere: splice on a fresh page.
	pg := newPage(bin.elemSize)
	bin.pages = append(bin.pages, pg)
	m.smallReservedBytes.Add(smallPageSize)

	p := pg.pop()
	m.smallAllocatedBytes.Add(uint64(bin.elemSize))
	bin.allocCount.Add(1)
	return p
}

func (m *MemorySystem) freeSmall(ptr unsafe.Pointer, size uint64, cache *ThreadCache) {
	binIdx := selectSmallBin(size)
	bin := &m.smallBins[binIdx]

	// Cache push fast path.
	if cache != nil && cache.count[binIdx] < threadCacheSize {
		cache.slots[binIdx][cache.count[binIdx]] = ptr
		cache.count[binIdx]++
		m.smallAllocatedBytes.Add(^uint64(bin.elemSize) + 1)
		bin.freeCount.Add(1)
		return
	}

	bin.mu.Lock()
	defer bin.mu.Unlock()
	if m.pushToOwningPage(bin, ptr) {
		m.smallAllocatedBytes.Add(^uint64(bin.elemSize) + 1)
		bin.freeCount.Add(1)
		return
	}
	hal.Logger().Warn("memory: free: pointer not found in bin page range",
		"bin", binIdx, "size", size)
}

// pushToOwningPage locates the page owning ptr by range scan and pushes
// it onto that page's free-list. Caller holds the bin lock.
func (m *MemorySystem) pushToOwningPage(bin *smallBin, ptr unsafe.Pointer) bool {
	addr := uintptr(ptr)
	for _, pg := range bin.pages {
		if pg.owns(addr) {
			pg.push(ptr)
			return true
		}
	}
	return false
}

func (m *MemorySystem) allocLarge(size uint64) unsafe.Pointer {
	buf := make([]byte, size)
	ptr := unsafe.Pointer(&buf[0])
	m.largeMu.Lock()
	m.largeAlloc[uintptr(ptr)] = buf
	m.largeMu.Unlock()
	return ptr
}

func (m *MemorySystem) freeLarge(ptr unsafe.Pointer) {
	m.largeMu.Lock()
	defer m.largeMu.Unlock()
	if _, ok := m.largeAlloc[uintptr(ptr)]; !ok {
		hal.Logger().Warn("memory: free: unknown large allocation")
		return
	}
	delete(m.largeAlloc, uintptr(ptr))
}

// TrimEmptyPages releases fully-free pages beyond the retention
// threshold in each bin, returning memory to the system.
func (m *MemorySystem) TrimEmptyPages() {
	for i := 0; i < numSmallBins; i++ {
		bin := &m.smallBins[i]
		bin.mu.Lock()

		empty := 0
		for _, pg := range bin.pages {
			if pg.freeCount == pg.elemCount {
				empty++
			}
		}
		if empty > emptyPageThreshold {
			kept := bin.pages[:0]
			released := 0
			for _, pg := range bin.pages {
				if pg.freeCount == pg.elemCount && released < empty-emptyPageThreshold {
					released++
					m.smallReservedBytes.Add(^uint64(smallPageSize) + 1)
					continue
				}
				kept = append(kept, pg)
			}
			bin.pages = kept
			if released > 0 {
				hal.Logger().Info("memory: trimmed empty pages", "bin", i, "pages", released)
			}
		}
		bin.mu.Unlock()
	}
}

// ValidateHeap walks every bin page and confirms free-list integrity:
// the chain length matches the free count and every link stays inside
// the page. Intended for validation builds.
func (m *MemorySystem) ValidateHeap() bool {
	ok := true
	for i := 0; i < numSmallBins; i++ {
		bin := &m.smallBins[i]
		bin.mu.Lock()
		for _, pg := range bin.pages {
			if pg.freeCount > pg.elemCount {
				hal.Logger().Error("memory: heap validation failed: free count exceeds element count", "bin", i)
				ok = false
				continue
			}
			n := uint32(0)
			for addr := pg.freeHead; addr != 0; addr = *(*uintptr)(unsafe.Pointer(addr)) {
				if !pg.owns(addr) {
					hal.Logger().Error("memory: heap validation failed: free-list link outside page", "bin", i)
					ok = false
					break
				}
				n++
				if n > pg.elemCount {
					hal.Logger().Error("memory: heap validation failed: free-list cycle", "bin", i)
					ok = false
					break
				}
			}
			if n != pg.freeCount {
				hal.Logger().Error("memory: heap validation failed: free-list length mismatch",
					"bin", i, "chain", n, "freeCount", pg.freeCount)
				ok = false
			}
		}
		bin.mu.Unlock()
	}
	return ok
}

// Stats is a snapshot of allocator counters.
type Stats struct {
	SmallAllocatedBytes uint64
	SmallReservedBytes  uint64
	SmallCacheHits      uint64
	SmallCacheMisses    uint64
	SmallPageCount      uint64
	SmallEmptyPageCount uint64
	SmallAllocations    uint64
	SmallFrees          uint64

	FrameAllocatedBytes uint64
	FrameCapacityBytes  uint64
	FramePeakBytes      uint64
	FrameAllocations    uint64

	TextureReservedBytes uint64
	TextureUsedBytes     uint64
	TextureBlockCount    uint64
	TextureAllocations   uint64
	TextureFrees         uint64
	TextureFreeRegions   uint64

	TotalAllocatedBytes uint64
	TotalReservedBytes  uint64
}

// CacheHitRate returns hits/(hits+misses), or 0 with no samples.
func (s Stats) CacheHitRate() float64 {
	total := s.SmallCacheHits + s.SmallCacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.SmallCacheHits) / float64(total)
}

// GetStats snapshots all counters.
func (m *MemorySystem) GetStats() Stats {
	var s Stats
	s.SmallAllocatedBytes = m.smallAllocatedBytes.Load()
	s.SmallReservedBytes = m.smallReservedBytes.Load()
	s.SmallCacheHits = m.smallCacheHits.Load()
	s.SmallCacheMisses = m.smallCacheMisses.Load()

	for i := 0; i < numSmallBins; i++ {
		bin := &m.smallBins[i]
		s.SmallAllocations += bin.allocCount.Load()
		s.SmallFrees += bin.freeCount.Load()
		bin.mu.Lock()
		s.SmallPageCount += uint64(len(bin.pages))
		for _, pg := range bin.pages {
			if pg.freeCount == pg.elemCount {
				s.SmallEmptyPageCount++
			}
		}
		bin.mu.Unlock()
	}

	s.FrameAllocatedBytes = m.arena.offset.Load()
	s.FrameCapacityBytes = m.arena.capacity
	s.FramePeakBytes = m.arena.peak.Load()
	s.FrameAllocations = m.arena.allocations.Load()

	s.TextureReservedBytes = m.texReservedBytes.Load()
	s.TextureUsedBytes = m.texUsedBytes.Load()
	s.TextureAllocations = m.texAllocations.Load()
	s.TextureFrees = m.texFrees.Load()
	m.texBlocksMu.Lock()
	s.TextureBlockCount = uint64(len(m.texBlocks))
	for _, b := range m.texBlocks {
		b.mu.Lock()
		for r := b.freeList; r != nil; r = r.next {
			s.TextureFreeRegions++
		}
		b.mu.Unlock()
	}
	m.texBlocksMu.Unlock()

	s.TotalAllocatedBytes = s.SmallAllocatedBytes + s.FrameAllocatedBytes + s.TextureUsedBytes
	s.TotalReservedBytes = s.SmallReservedBytes + s.FrameCapacityBytes + s.TextureReservedBytes
	return s
}

// ResetStats zeroes the sampling counters (cache hit/miss, peaks,
// per-bin alloc/free totals). Byte accounting is left untouched.
func (m *MemorySystem) ResetStats() {
	m.smallCacheHits.Store(0)
	m.smallCacheMisses.Store(0)
	m.arena.peak.Store(0)
	m.arena.allocations.Store(0)
	m.texAllocations.Store(0)
	m.texFrees.Store(0)
	for i := 0; i < numSmallBins; i++ {
		m.smallBins[i].allocCount.Store(0)
		m.smallBins[i].freeCount.Store(0)
	}
}

// SmallAllocatedBytes returns the bytes currently handed out by the
// binned path.
func (m *MemorySystem) SmallAllocatedBytes() uint64 {
	return m.smallAllocatedBytes.Load()
}
