package modern_test

import (
	"testing"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/hal/modern"
	"github.com/gogpu/rhi/types"
)

func openDevice(t *testing.T) hal.Device {
	t.Helper()
	dev, err := modern.API{}.CreateDevice(&hal.DeviceDesc{EnableValidation: true})
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	t.Cleanup(dev.Destroy)
	return dev
}

// TestBackendVariant checks registration and identification.
func TestBackendVariant(t *testing.T) {
	if (modern.API{}).Variant() != types.BackendModern {
		t.Error("wrong variant")
	}
	b, ok := hal.GetBackend(types.BackendModern)
	if !ok {
		t.Fatal("modern backend not registered")
	}
	if b.Variant() != types.BackendModern {
		t.Error("registry returned wrong backend")
	}
}

// TestAsyncUploadFences verifies per-mip fence values signal in order
// and completion is observable.
func TestAsyncUploadFences(t *testing.T) {
	dev := openDevice(t)

	tex, err := dev.CreateTexture(&types.TextureDesc{
		DebugName: "Fenced",
		Width:     64,
		Height:    64,
		MipLevels: 4,
		Format:    types.FormatRGBA8Unorm,
		Usage:     types.BufferUsageShaderResource,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	defer tex.Destroy()

	desc := tex.Desc()
	data := make([][]byte, 4)
	for mip := uint32(0); mip < 4; mip++ {
		data[mip] = make([]byte, desc.MipByteSize(mip))
	}

	fences, err := dev.UploadTextureMipsAsync(tex, 0, 4, data)
	if err != nil {
		t.Fatalf("UploadTextureMipsAsync: %v", err)
	}
	if len(fences) != 4 {
		t.Fatalf("got %d fences, want 4", len(fences))
	}
	for i := 1; i < len(fences); i++ {
		if fences[i] <= fences[i-1] {
			t.Errorf("fence values not increasing: %v", fences)
		}
	}

	for _, f := range fences {
		dev.WaitForUpload(f)
		if !dev.IsUploadComplete(f) {
			t.Errorf("fence %d incomplete after wait", f)
		}
	}

	mt := tex.(*modern.Texture)
	for mip := uint32(0); mip < 4; mip++ {
		if !mt.MipCommitted(mip) {
			t.Errorf("mip %d not committed after upload", mip)
		}
	}
}

// TestUploadMipRangeValidation rejects out-of-chain ranges.
func TestUploadMipRangeValidation(t *testing.T) {
	dev := openDevice(t)

	tex, _ := dev.CreateTexture(&types.TextureDesc{
		Width: 32, Height: 32, MipLevels: 2,
		Format: types.FormatRGBA8Unorm, Usage: types.BufferUsageShaderResource,
	})
	defer tex.Destroy()

	if _, err := dev.UploadTextureMipsAsync(tex, 2, 3, [][]byte{nil}); err == nil {
		t.Error("upload past mip chain accepted")
	}
	if err := dev.UploadTextureMips(tex, 0, 2, [][]byte{nil}); err == nil {
		t.Error("mismatched slice count accepted")
	}
}

// TestDescriptorPoolRecycling verifies frame pools hand the same sets
// out again after a reset.
func TestDescriptorPoolRecycling(t *testing.T) {
	dev := openDevice(t)

	layout, err := dev.CreateDescriptorSetLayout(&types.DescriptorSetLayoutDesc{
		Bindings: []types.DescriptorSetLayoutBinding{
			{Binding: 0, Type: types.DescriptorUniformBuffer, Count: 1},
		},
	})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}

	dev.ResetFramePool(0)
	first, err := dev.AllocateDescriptorSet(layout)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	dev.ResetFramePool(0)
	second, err := dev.AllocateDescriptorSet(layout)
	if err != nil {
		t.Fatalf("allocate after reset: %v", err)
	}
	if first != second {
		t.Error("pool did not recycle the set after reset")
	}
	if second.IsComplete() {
		t.Error("recycled set kept stale bindings")
	}
}

// TestDeferredDeletionWaitsForTimeline verifies DeferDestroy queues
// garbage and CollectGarbage releases it once the device timeline has
// reached the value recorded at queue time (no submission is
// outstanding here, so that value is already reached).
func TestDeferredDeletionWaitsForTimeline(t *testing.T) {
	dev := openDevice(t)
	mdev := dev.(*modern.Device)

	buf, err := dev.CreateBuffer(&types.BufferDesc{Size: 128, Usage: types.BufferUsageVertex})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}

	mdev.DeferDestroy(buf)
	if mdev.PendingGarbage() != 1 {
		t.Fatalf("pending garbage = %d, want 1", mdev.PendingGarbage())
	}
	dev.CollectGarbage()
	if mdev.PendingGarbage() != 0 {
		t.Errorf("pending garbage after collect = %d, want 0", mdev.PendingGarbage())
	}
}
