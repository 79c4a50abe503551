package legacy_test

import (
	"errors"
	"testing"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/hal/legacy"
	"github.com/gogpu/rhi/types"
)

func openDevice(t *testing.T) hal.Device {
	t.Helper()
	dev, err := legacy.API{}.CreateDevice(&hal.DeviceDesc{})
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	t.Cleanup(dev.Destroy)
	return dev
}

// TestBackendVariant checks registration and identification.
func TestBackendVariant(t *testing.T) {
	if (legacy.API{}).Variant() != types.BackendLegacy {
		t.Error("wrong variant")
	}
	if _, ok := hal.GetBackend(types.BackendLegacy); !ok {
		t.Fatal("legacy backend not registered")
	}
}

// TestImmediateUploadsAreComplete verifies the pre-signaled fence
// semantics of the immediate path.
func TestImmediateUploadsAreComplete(t *testing.T) {
	dev := openDevice(t)

	tex, err := dev.CreateTexture(&types.TextureDesc{
		Width: 64, Height: 64, MipLevels: 3,
		Format: types.FormatRGBA8Unorm, Usage: types.BufferUsageShaderResource,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	defer tex.Destroy()

	desc := tex.Desc()
	data := make([][]byte, 3)
	for mip := uint32(0); mip < 3; mip++ {
		data[mip] = make([]byte, desc.MipByteSize(mip))
	}
	fences, err := dev.UploadTextureMipsAsync(tex, 0, 3, data)
	if err != nil {
		t.Fatalf("UploadTextureMipsAsync: %v", err)
	}
	for _, f := range fences {
		if !dev.IsUploadComplete(f) {
			t.Errorf("fence %d not complete on immediate backend", f)
		}
	}

	lt := tex.(*legacy.Texture)
	for mip := uint32(0); mip < 3; mip++ {
		if !lt.MipCommitted(mip) {
			t.Errorf("mip %d not committed", mip)
		}
	}
}

// TestInvalidStateIsNoOp verifies draws in invalid states are dropped
// with a warning rather than failing.
func TestInvalidStateIsNoOp(t *testing.T) {
	dev := openDevice(t)
	cl := dev.ImmediateCommandList()

	// Outside Begin/End: dropped.
	cl.Draw(3, 0)

	if err := cl.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// Inside recording but no render pass: dropped.
	cl.Draw(3, 0)
	if err := cl.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	lcl := cl.(*legacy.CommandList)
	if lcl.DrawCallCount() != 0 {
		t.Errorf("draw calls = %d, want 0 (all dropped)", lcl.DrawCallCount())
	}
}

// TestDrawWithBindingTable verifies the deferred binding table resolves
// at draw time and incomplete tables drop the draw.
func TestDrawWithBindingTable(t *testing.T) {
	dev := openDevice(t)

	layout, err := dev.CreateDescriptorSetLayout(&types.DescriptorSetLayoutDesc{
		Bindings: []types.DescriptorSetLayoutBinding{
			{Binding: 0, Type: types.DescriptorUniformBuffer, Count: 1},
		},
	})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	set, err := dev.AllocateDescriptorSet(layout)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	sc, err := dev.CreateSwapchain(&types.SwapchainDesc{
		Width: 320, Height: 240, Format: types.FormatBGRA8Unorm, BufferCount: 2,
	})
	if err != nil {
		t.Fatalf("swapchain: %v", err)
	}
	defer sc.Destroy()

	cl := dev.ImmediateCommandList()
	cl.Reset()
	if err := cl.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	cl.SetRenderTargets([]hal.Texture{sc.CurrentBackbuffer()}, nil)
	cl.BindDescriptorSet(0, set)

	// Incomplete set: draw dropped.
	cl.Draw(3, 0)
	lcl := cl.(*legacy.CommandList)
	if lcl.DrawCallCount() != 0 {
		t.Fatalf("draw with incomplete set executed")
	}

	buf, err := dev.CreateBuffer(&types.BufferDesc{Size: 64, Usage: types.BufferUsageUniform})
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	defer buf.Destroy()
	if err := set.UpdateUniformBuffer(0, buf, 0, 64); err != nil {
		t.Fatalf("update: %v", err)
	}

	cl.Draw(3, 0)
	if lcl.DrawCallCount() != 1 {
		t.Errorf("draw calls = %d, want 1", lcl.DrawCallCount())
	}
	if err := cl.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
}

// TestGLSLRequired verifies the shader wire contract.
func TestGLSLRequired(t *testing.T) {
	dev := openDevice(t)

	if _, err := dev.CreateVertexShader([]byte{0x03, 0x02, 0x23, 0x07, 0, 0, 0, 0}); !errors.Is(err, hal.ErrInvalidArgument) {
		t.Errorf("SPIR-V on legacy backend: err = %v, want ErrInvalidArgument", err)
	}
	sh, err := dev.CreateVertexShader([]byte("#version 430 core\nvoid main() { gl_Position = vec4(0.0); }\x00"))
	if err != nil {
		t.Fatalf("GLSL shader: %v", err)
	}
	sh.Destroy()
}

// TestPresentSwapsBuffers verifies present rotates the double buffer.
func TestPresentSwapsBuffers(t *testing.T) {
	dev := openDevice(t)

	sc, err := dev.CreateSwapchain(&types.SwapchainDesc{
		Width: 320, Height: 240, Format: types.FormatBGRA8Unorm, BufferCount: 2,
	})
	if err != nil {
		t.Fatalf("swapchain: %v", err)
	}
	defer sc.Destroy()

	before := sc.CurrentBackbufferIndex()
	if status := sc.Present(); status != types.SwapchainOK {
		t.Fatalf("present: %v", status)
	}
	if after := sc.CurrentBackbufferIndex(); after == before {
		t.Error("backbuffer index unchanged after present")
	}
}
