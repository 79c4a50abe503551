package streaming

import (
	"sort"
	"sync"
	"unsafe"

	"github.com/gogpu/rhi/fileio"
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/memory"
)

// Config sizes the streaming manager.
type Config struct {
	// PoolSizeBytes is the texture pool budget. Total pool-allocated
	// bytes never exceed it.
	PoolSizeBytes uint64

	// MaxConcurrentAsyncUploads caps in-flight stream-ins per frame.
	MaxConcurrentAsyncUploads int

	// AsyncUpload selects fence-tracked uploads; when false, loaded mips
	// upload synchronously and become resident immediately.
	AsyncUpload bool

	// LoaderWorkers is the async file loader pool size.
	LoaderWorkers int
}

// DefaultConfig returns a 64 MiB pool with four concurrent uploads and
// two loader workers, async mode on.
func DefaultConfig() Config {
	return Config{
		PoolSizeBytes:             64 << 20,
		MaxConcurrentAsyncUploads: 4,
		AsyncUpload:               true,
		LoaderWorkers:             2,
	}
}

// poolAlloc records one pool region backing a streamed-in count range.
type poolAlloc struct {
	ptr       unsafe.Pointer
	size      uint64
	fromCount uint32
	toCount   uint32
}

// entry is the tracked state of one registered texture.
type entry struct {
	tex        StreamableTexture
	resident   uint32
	requested  uint32
	priority   float32
	distance   float32
	screenSize float32

	pending       bool
	pendingFences []uint64
	pendingEnd    uint32 // resident count once the pending upload lands
	loadInFlight  bool   // disk read issued, GPU upload not yet queued
	allocs        []poolAlloc
}

// Stats is a snapshot of streaming state.
type Stats struct {
	NumStreamingTextures uint32
	NumResidentTextures  uint32
	AllocatedMemory      uint64
	PoolSize             uint64
	PendingStreamIns     uint32
}

// Manager runs the per-frame streaming control loop.
type Manager struct {
	cfg    Config
	mem    *memory.MemorySystem
	loader *fileio.Loader

	mu        sync.Mutex
	entries   map[StreamableTexture]*entry
	allocated uint64
}

// NewManager creates a streaming manager with its own pool backing and
// loader pool.
func NewManager(cfg Config) *Manager {
	if cfg.PoolSizeBytes == 0 {
		cfg.PoolSizeBytes = DefaultConfig().PoolSizeBytes
	}
	if cfg.MaxConcurrentAsyncUploads <= 0 {
		cfg.MaxConcurrentAsyncUploads = DefaultConfig().MaxConcurrentAsyncUploads
	}
	if cfg.LoaderWorkers <= 0 {
		cfg.LoaderWorkers = DefaultConfig().LoaderWorkers
	}
	m := &Manager{
		cfg: cfg,
		mem: memory.NewMemorySystem(memory.Config{
			TextureBlockBytes: cfg.PoolSizeBytes,
		}),
		loader:  fileio.Init(cfg.LoaderWorkers),
		entries: make(map[StreamableTexture]*entry),
	}
	hal.Logger().Info("streaming: manager initialized",
		"poolBytes", cfg.PoolSizeBytes, "maxConcurrent", cfg.MaxConcurrentAsyncUploads)
	return m
}

// Shutdown drains outstanding work and releases the pool.
func (m *Manager) Shutdown() {
	m.loader.WaitForAll()
	m.WaitForAllPending()
	m.loader.Shutdown()

	m.mu.Lock()
	for _, e := range m.entries {
		m.freeAllocsLocked(e, 0)
	}
	m.entries = make(map[StreamableTexture]*entry)
	m.mu.Unlock()
	m.mem.Shutdown()
}

// RegisterTexture adds a texture to the streaming registry with an
// initial camera distance.
func (m *Manager) RegisterTexture(tex StreamableTexture, distance float32) {
	if tex == nil {
		return
	}
	if distance < 1 {
		distance = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[tex]; ok {
		return
	}
	m.entries[tex] = &entry{
		tex:        tex,
		resident:   tex.ResidentMips(),
		distance:   distance,
		screenSize: 1,
	}
}

// UnregisterTexture removes a texture, waiting out any in-flight upload
// and returning its pool memory.
func (m *Manager) UnregisterTexture(tex StreamableTexture) {
	m.mu.Lock()
	e, ok := m.entries[tex]
	if !ok {
		m.mu.Unlock()
		return
	}
	fences := append([]uint64(nil), e.pendingFences...)
	m.mu.Unlock()

	for _, f := range fences {
		tex.WaitForAsyncUpload(f)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.freeAllocsLocked(e, 0)
	delete(m.entries, tex)
}

// SetDistance updates a texture's camera distance for the next tick.
func (m *Manager) SetDistance(tex StreamableTexture, distance float32) {
	if distance < 1 {
		distance = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[tex]; ok {
		e.distance = distance
	}
}

// SetScreenSize updates a texture's projected screen coverage factor.
func (m *Manager) SetScreenSize(tex StreamableTexture, screenSize float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[tex]; ok {
		e.screenSize = screenSize
	}
}

// computePriority folds distance and screen coverage into [0, 1].
func computePriority(distance, screenSize float32) float32 {
	if distance < 1 {
		distance = 1
	}
	p := screenSize / distance
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// requestedForPriority maps a priority to a requested mip count.
func requestedForPriority(priority float32, total uint32) uint32 {
	var want uint32
	switch {
	case priority > 0.8:
		want = total
	case priority > 0.5:
		if total > 2 {
			want = total - 2
		} else {
			want = 1
		}
	case priority > 0.2:
		want = total / 2
	default:
		want = 1
	}
	if want < 1 {
		want = 1
	}
	if want > total {
		want = total
	}
	return want
}

// Update runs one tick of the streaming control loop.
func (m *Manager) Update(dt float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Priorities and requested mip counts.
	for _, e := range m.entries {
		e.priority = computePriority(e.distance, e.screenSize)
		e.requested = requestedForPriority(e.priority, e.tex.TotalMips())
	}

	// Advance pending uploads whose fences have all signaled.
	for _, e := range m.entries {
		if !e.pending {
			continue
		}
		done := true
		for _, f := range e.pendingFences {
			if !e.tex.IsAsyncUploadComplete(f) {
				done = false
				break
			}
		}
		if done {
			e.resident = e.pendingEnd
			e.tex.UpdateResidentMips(e.resident)
			e.pending = false
			e.pendingFences = e.pendingFences[:0]
			hal.Logger().Debug("streaming: async upload complete",
				"texture", e.tex.FilePath(), "resident", e.resident)
		}
	}

	// Highest priority first.
	ordered := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].priority > ordered[j].priority })

	inFlight := 0
	for _, e := range m.entries {
		if e.pending || e.loadInFlight {
			inFlight++
		}
	}

	for _, e := range ordered {
		switch {
		case e.requested > e.resident && !e.pending && !e.loadInFlight:
			if inFlight >= m.cfg.MaxConcurrentAsyncUploads {
				continue
			}
			if m.streamInLocked(e) {
				inFlight++
			}
		case e.requested < e.resident && !e.pending && !e.loadInFlight:
			m.streamOutLocked(e, e.requested)
		}
	}
}

// streamInLocked allocates pool memory for the mip range and issues the
// disk read. Returns true when a load was started.
func (m *Manager) streamInLocked(e *entry) bool {
	total := e.tex.TotalMips()
	startLevel := total - e.requested
	endLevel := total - e.resident

	var sizeNeeded uint64
	for level := startLevel; level < endLevel; level++ {
		sizeNeeded += e.tex.MipSize(level)
	}
	if sizeNeeded == 0 {
		return false
	}

	if m.allocated+sizeNeeded > m.cfg.PoolSizeBytes {
		if !m.evictLowPriorityLocked(sizeNeeded, e) {
			hal.Logger().Warn("streaming: cannot stream in mips, insufficient pool memory",
				"texture", e.tex.FilePath(), "needed", sizeNeeded)
			return false
		}
	}

	ptr := m.mem.TextureAlloc(sizeNeeded, memory.TexturePoolAlignment)
	if ptr == nil {
		hal.Logger().Warn("streaming: pool allocation failed",
			"texture", e.tex.FilePath(), "needed", sizeNeeded)
		return false
	}
	m.allocated += sizeNeeded
	e.allocs = append(e.allocs, poolAlloc{
		ptr: ptr, size: sizeNeeded,
		fromCount: e.resident, toCount: e.requested,
	})
	e.loadInFlight = true
	target := e.requested

	dest := memory.ByteSlice(ptr, sizeNeeded)
	m.loader.ReadAsync(fileio.ReadRequest{
		FilePath: e.tex.FilePath(),
		Offset:   e.tex.MipFileOffset(startLevel),
		Size:     int64(sizeNeeded),
		Dest:     dest,
		OnComplete: func(success bool, bytesRead int64) {
			m.onMipLoadComplete(e.tex, target, dest, success)
		},
	})
	hal.Logger().Debug("streaming: stream-in started",
		"texture", e.tex.FilePath(), "from", e.resident, "to", e.requested)
	return true
}

// onMipLoadComplete runs on a loader worker once the disk read lands:
// it splits the contiguous buffer into per-mip pointers and queues the
// GPU uploads, recording one fence per mip.
func (m *Manager) onMipLoadComplete(tex StreamableTexture, targetCount uint32, buf []byte, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[tex]
	if !ok {
		return
	}
	e.loadInFlight = false

	if !success {
		// Disk error: discard the allocation, leave residency unchanged.
		m.dropLastAllocLocked(e)
		hal.Logger().Warn("streaming: disk load failed", "texture", tex.FilePath())
		return
	}

	total := tex.TotalMips()
	startLevel := total - targetCount
	endLevel := total - e.resident
	if startLevel >= endLevel {
		return
	}

	mips := make([][]byte, 0, endLevel-startLevel)
	var offset uint64
	for level := startLevel; level < endLevel; level++ {
		size := tex.MipSize(level)
		mips = append(mips, buf[offset:offset+size])
		offset += size
	}

	if !m.cfg.AsyncUpload {
		if err := tex.UploadMipData(startLevel, endLevel, mips); err != nil {
			hal.Logger().Warn("streaming: sync upload failed", "texture", tex.FilePath(), "err", err)
			m.dropLastAllocLocked(e)
			return
		}
		e.resident = targetCount
		tex.UpdateResidentMips(targetCount)
		return
	}

	fences, err := tex.UploadMipDataAsync(startLevel, endLevel, mips)
	if err != nil {
		hal.Logger().Warn("streaming: async upload submission failed",
			"texture", tex.FilePath(), "err", err)
		m.dropLastAllocLocked(e)
		return
	}
	e.pending = true
	e.pendingFences = append(e.pendingFences[:0], fences...)
	e.pendingEnd = targetCount
}

// dropLastAllocLocked returns the most recent stream-in allocation to
// the pool after a failed load.
func (m *Manager) dropLastAllocLocked(e *entry) {
	if len(e.allocs) == 0 {
		return
	}
	last := e.allocs[len(e.allocs)-1]
	e.allocs = e.allocs[:len(e.allocs)-1]
	m.mem.TextureFree(last.ptr, last.size)
	m.allocated -= last.size
}

// streamOutLocked sheds resident mips down to newCount, returning their
// pool memory.
func (m *Manager) streamOutLocked(e *entry, newCount uint32) {
	if newCount >= e.resident {
		return
	}
	m.freeAllocsLocked(e, newCount)
	e.resident = newCount
	e.tex.UpdateResidentMips(newCount)
	hal.Logger().Debug("streaming: streamed out",
		"texture", e.tex.FilePath(), "resident", newCount)
}

// freeAllocsLocked returns pool memory for every mip count above
// keepCount. Allocations entirely above the kept range are freed whole;
// an allocation straddling the boundary sheds its front (the largest
// mips sit first in the contiguous buffer), rounded down to the pool
// alignment so the kept tail is never clipped.
func (m *Manager) freeAllocsLocked(e *entry, keepCount uint32) uint64 {
	total := e.tex.TotalMips()
	var freed uint64
	kept := e.allocs[:0]
	for _, a := range e.allocs {
		switch {
		case a.fromCount >= keepCount:
			m.mem.TextureFree(a.ptr, a.size)
			m.allocated -= a.size
			freed += a.size
		case a.toCount <= keepCount:
			kept = append(kept, a)
		default:
			var shed uint64
			for level := total - a.toCount; level < total-keepCount; level++ {
				shed += e.tex.MipSize(level)
			}
			freeable := shed &^ uint64(memory.TexturePoolAlignment-1)
			if freeable > 0 {
				m.mem.TextureFree(a.ptr, freeable)
				m.allocated -= freeable
				freed += freeable
				a.ptr = unsafe.Add(a.ptr, freeable)
				a.size -= freeable
			}
			a.toCount = keepCount
			kept = append(kept, a)
		}
	}
	e.allocs = kept
	return freed
}

// evictLowPriorityLocked halves the residency of low-priority entries,
// lowest priority first, until the accumulated free bytes cover
// required. Entries with in-flight streams are skipped so residency
// stays monotonic between completions.
func (m *Manager) evictLowPriorityLocked(required uint64, exclude *entry) bool {
	candidates := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		if e == exclude || e.pending || e.loadInFlight {
			continue
		}
		if e.priority < 0.5 && e.resident > 1 {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].priority < candidates[j].priority })

	for _, e := range candidates {
		newCount := e.resident / 2
		if newCount < 1 {
			newCount = 1
		}
		m.streamOutLocked(e, newCount)
		if m.allocated+required <= m.cfg.PoolSizeBytes {
			return true
		}
	}
	return m.allocated+required <= m.cfg.PoolSizeBytes
}

// WaitForAllPending blocks until every in-flight upload lands and
// applies the residency updates.
func (m *Manager) WaitForAllPending() {
	m.loader.WaitForAll()

	m.mu.Lock()
	type waiter struct {
		tex    StreamableTexture
		fences []uint64
	}
	var waiters []waiter
	for _, e := range m.entries {
		if e.pending {
			waiters = append(waiters, waiter{e.tex, append([]uint64(nil), e.pendingFences...)})
		}
	}
	m.mu.Unlock()

	for _, w := range waiters {
		for _, f := range w.fences {
			w.tex.WaitForAsyncUpload(f)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.pending {
			e.resident = e.pendingEnd
			e.tex.UpdateResidentMips(e.resident)
			e.pending = false
			e.pendingFences = e.pendingFences[:0]
		}
	}
}

// AllocatedMemory returns the pool bytes currently backing resident
// mips.
func (m *Manager) AllocatedMemory() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocated
}

// PoolSize returns the pool budget.
func (m *Manager) PoolSize() uint64 { return m.cfg.PoolSizeBytes }

// Loader exposes the file loader for host-side statistics.
func (m *Manager) Loader() *fileio.Loader { return m.loader }

// GetStats snapshots the streaming state.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		PoolSize:        m.cfg.PoolSizeBytes,
		AllocatedMemory: m.allocated,
	}
	for _, e := range m.entries {
		s.NumStreamingTextures++
		if e.resident == e.tex.TotalMips() {
			s.NumResidentTextures++
		}
		if e.pending || e.loadInFlight {
			s.PendingStreamIns++
		}
	}
	return s
}
