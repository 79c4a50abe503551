package streaming_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/rhi"
	_ "github.com/gogpu/rhi/hal/modern"
	"github.com/gogpu/rhi/streaming"
	"github.com/gogpu/rhi/types"
)

// sparseFile creates a file of the given size without writing data.
func sparseFile(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mips.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func newStreamingDevice(t *testing.T) *rhi.Device {
	t.Helper()
	cfg := rhi.DefaultConfig()
	cfg.PreferredBackend = types.PreferModern
	device, err := rhi.Init(cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(device.Destroy)
	return device
}

// newStreamingTexture creates a BC3 streamable texture backed by a
// sparse file covering its full mip chain.
func newStreamingTexture(t *testing.T, device *rhi.Device, name string, dim, mips uint32) *streaming.Texture2D {
	t.Helper()
	desc := &types.TextureDesc{
		DebugName: name,
		Width:     dim,
		Height:    dim,
		MipLevels: mips,
		Format:    types.FormatBC3Unorm,
		Usage:     types.BufferUsageShaderResource | types.BufferUsageTransferDst,
	}
	var total int64
	for level := uint32(0); level < mips; level++ {
		total += int64(desc.MipByteSize(level))
	}
	tex, err := streaming.NewTexture2D(device, desc, sparseFile(t, total))
	if err != nil {
		t.Fatalf("NewTexture2D(%s): %v", name, err)
	}
	t.Cleanup(tex.Release)
	return tex
}

// TestStreamingControlLoop is the end-to-end priority scenario: a close
// texture requests its full chain, a distant one a single mip.
func TestStreamingControlLoop(t *testing.T) {
	device := newStreamingDevice(t)

	mgr := streaming.NewManager(streaming.Config{PoolSizeBytes: 64 << 20})
	defer mgr.Shutdown()

	texA := newStreamingTexture(t, device, "A", 4096, 13) // ~22 MiB
	texB := newStreamingTexture(t, device, "B", 8192, 14) // ~85 MiB full chain

	mgr.RegisterTexture(texA, 1)   // priority 1.0: request all mips
	mgr.RegisterTexture(texB, 100) // priority 0.01: request 1 mip

	mgr.Update(0.016)

	stats := mgr.GetStats()
	if stats.PendingStreamIns == 0 {
		t.Fatal("no stream-ins submitted")
	}

	mgr.WaitForAllPending()

	if got := texA.ResidentMips(); got != 13 {
		t.Errorf("A resident mips = %d, want 13", got)
	}
	if got := texB.ResidentMips(); got != 1 {
		t.Errorf("B resident mips = %d, want 1", got)
	}
	if used := mgr.AllocatedMemory(); used > mgr.PoolSize() {
		t.Errorf("pool allocated %d exceeds pool size %d", used, mgr.PoolSize())
	}
	// A's full chain fits; B held back to its smallest mip.
	if used := mgr.AllocatedMemory(); used < 20<<20 {
		t.Errorf("pool allocated %d, want at least A's chain (~22 MiB)", used)
	}
}

// TestStreamOutWhenPriorityDrops verifies resident mips shed when the
// texture moves away.
func TestStreamOutWhenPriorityDrops(t *testing.T) {
	device := newStreamingDevice(t)
	mgr := streaming.NewManager(streaming.Config{PoolSizeBytes: 64 << 20})
	defer mgr.Shutdown()

	tex := newStreamingTexture(t, device, "Fading", 1024, 11)
	mgr.RegisterTexture(tex, 1)

	mgr.Update(0.016)
	mgr.WaitForAllPending()
	if got := tex.ResidentMips(); got != 11 {
		t.Fatalf("resident after stream-in = %d, want 11", got)
	}
	allocatedBefore := mgr.AllocatedMemory()

	mgr.SetDistance(tex, 1000)
	mgr.Update(0.016)

	if got := tex.ResidentMips(); got != 1 {
		t.Errorf("resident after stream-out = %d, want 1", got)
	}
	if got := mgr.AllocatedMemory(); got >= allocatedBefore {
		t.Errorf("allocated bytes %d -> %d, want memory returned", allocatedBefore, got)
	}
}

// TestEvictionMakesRoom verifies low-priority residency is halved to
// satisfy a higher-priority stream-in.
func TestEvictionMakesRoom(t *testing.T) {
	device := newStreamingDevice(t)

	// Pool fits one 1024² chain (~1.33 MiB) but not two.
	mgr := streaming.NewManager(streaming.Config{PoolSizeBytes: 2 << 20})
	defer mgr.Shutdown()

	cold := newStreamingTexture(t, device, "Cold", 1024, 11)
	mgr.RegisterTexture(cold, 1)
	mgr.Update(0.016)
	mgr.WaitForAllPending()
	if got := cold.ResidentMips(); got != 11 {
		t.Fatalf("cold resident = %d, want 11", got)
	}

	// The cold texture recedes below the eviction threshold; a new hot
	// texture needs the space.
	mgr.SetDistance(cold, 3) // priority ~0.33: keeps half its mips
	hot := newStreamingTexture(t, device, "Hot", 1024, 11)
	mgr.RegisterTexture(hot, 1)

	mgr.Update(0.016)
	mgr.WaitForAllPending()
	// One more tick in case the first had to evict before streaming.
	mgr.Update(0.016)
	mgr.WaitForAllPending()

	if got := hot.ResidentMips(); got != 11 {
		t.Errorf("hot resident = %d, want 11", got)
	}
	if got := cold.ResidentMips(); got >= 11 {
		t.Errorf("cold resident = %d, want evicted below 11", got)
	}
	if used := mgr.AllocatedMemory(); used > mgr.PoolSize() {
		t.Errorf("pool allocated %d exceeds pool size %d", used, mgr.PoolSize())
	}
}

// TestDiskFailureLeavesResidencyUnchanged verifies a failed read drops
// the allocation and leaves the texture at its previous residency.
func TestDiskFailureLeavesResidencyUnchanged(t *testing.T) {
	device := newStreamingDevice(t)
	mgr := streaming.NewManager(streaming.Config{PoolSizeBytes: 16 << 20})
	defer mgr.Shutdown()

	desc := &types.TextureDesc{
		DebugName: "Missing",
		Width:     512,
		Height:    512,
		MipLevels: 10,
		Format:    types.FormatBC3Unorm,
		Usage:     types.BufferUsageShaderResource,
	}
	tex, err := streaming.NewTexture2D(device, desc, filepath.Join(t.TempDir(), "missing.bin"))
	if err != nil {
		t.Fatalf("NewTexture2D: %v", err)
	}
	defer tex.Release()

	mgr.RegisterTexture(tex, 1)
	mgr.Update(0.016)
	mgr.WaitForAllPending()

	if got := tex.ResidentMips(); got != 0 {
		t.Errorf("resident after failed load = %d, want 0", got)
	}
	if got := mgr.AllocatedMemory(); got != 0 {
		t.Errorf("allocated after failed load = %d, want 0", got)
	}
}

// TestMipRangeOutsideChain verifies out-of-chain requests fail without
// touching anything.
func TestMipRangeOutsideChain(t *testing.T) {
	device := newStreamingDevice(t)

	tex := newStreamingTexture(t, device, "Bounded", 256, 9)
	if err := tex.UploadMipData(9, 10, [][]byte{nil}); err == nil {
		t.Error("upload with start mip >= total should fail")
	}
	if err := tex.UploadMipData(3, 3, nil); err == nil {
		t.Error("empty mip range should fail")
	}
}

// TestSynchronousMode verifies the fence-free path marks residency
// immediately after the load completes.
func TestSynchronousMode(t *testing.T) {
	device := newStreamingDevice(t)
	mgr := streaming.NewManager(streaming.Config{
		PoolSizeBytes: 16 << 20,
		AsyncUpload:   false,
	})
	defer mgr.Shutdown()

	tex := newStreamingTexture(t, device, "Sync", 512, 10)
	mgr.RegisterTexture(tex, 1)

	mgr.Update(0.016)
	mgr.Loader().WaitForAll()

	if got := tex.ResidentMips(); got != 10 {
		t.Errorf("resident after sync load = %d, want 10", got)
	}
}
