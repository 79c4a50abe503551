package rhi_test

import (
	"testing"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/hal/modern"
	"github.com/gogpu/rhi/types"
)

// newTestSwapchain creates an 800x600 swapchain with a depth buffer.
func newTestSwapchain(t *testing.T, device *rhi.Device) *rhi.Swapchain {
	t.Helper()
	sc, err := device.CreateSwapchain(&types.SwapchainDesc{
		DebugName:   "TestSwapchain",
		Width:       800,
		Height:      600,
		Format:      types.FormatBGRA8Srgb,
		BufferCount: 2,
		PresentMode: types.PresentVSync,
		DepthFormat: types.FormatD32Float,
	})
	if err != nil {
		t.Fatalf("CreateSwapchain: %v", err)
	}
	return sc
}

// renderOneFrame runs a full acquire/record/submit/present cycle.
func renderOneFrame(t *testing.T, device *rhi.Device, ctx *rhi.FrameContext) types.SwapchainStatus {
	t.Helper()
	status := ctx.PrepareForNewFrame()
	if status != types.SwapchainOK {
		return status
	}
	sc := device.CurrentSwapchain()
	cl := ctx.CommandList()
	cl.SetRenderTargets([]*rhi.Texture{sc.CurrentBackbuffer()}, sc.DepthStencilTexture())
	cl.ClearRenderTarget(sc.CurrentBackbuffer(), [4]float32{0, 0, 0, 1})
	cl.EndRenderPass()
	if err := ctx.EndRecording(); err != nil {
		t.Fatalf("EndRecording: %v", err)
	}
	if err := ctx.SubmitCommands(nil, nil); err != nil {
		t.Fatalf("SubmitCommands: %v", err)
	}
	return device.Present()
}

// TestFrameLifecycle runs the basic per-frame loop on both backends.
func TestFrameLifecycle(t *testing.T) {
	for _, pref := range []types.BackendPreference{types.PreferModern, types.PreferLegacy} {
		device := newTestDevice(t, pref)
		newTestSwapchain(t, device)
		ctx := rhi.NewFrameContext(device)

		for frame := 0; frame < 5; frame++ {
			if status := renderOneFrame(t, device, ctx); status != types.SwapchainOK {
				t.Fatalf("%v frame %d: status %v", device.Backend(), frame, status)
			}
		}
		if device.FrameNumber() != 5 {
			t.Errorf("frame number = %d, want 5", device.FrameNumber())
		}
	}
}

// TestSwapchainRecreate verifies the resize protocol: out-of-date
// repeats until Resize, then acquisition recovers with the buffer count
// unchanged and the depth attachment at the new size.
func TestSwapchainRecreate(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)
	sc := newTestSwapchain(t, device)
	ctx := rhi.NewFrameContext(device)

	if status := renderOneFrame(t, device, ctx); status != types.SwapchainOK {
		t.Fatalf("initial frame: status %v", status)
	}
	countBefore := sc.BackbufferCount()

	// Window resized: acquisition must fail until the chain is recreated.
	sc.NotifySurfaceChanged(1024, 768)
	if status := sc.AcquireNextImage(); status != types.SwapchainOutOfDate {
		t.Fatalf("acquire after resize: status %v, want OutOfDate", status)
	}
	if status := sc.AcquireNextImage(); status != types.SwapchainOutOfDate {
		t.Fatalf("acquire repeats: status %v, want OutOfDate", status)
	}

	device.WaitForIdle()
	if !sc.Resize(1024, 768) {
		t.Fatal("Resize failed")
	}

	if status := renderOneFrame(t, device, ctx); status != types.SwapchainOK {
		t.Fatalf("frame after resize: status %v", status)
	}
	if got := sc.BackbufferCount(); got != countBefore {
		t.Errorf("backbuffer count changed: %d -> %d", countBefore, got)
	}
	depth := sc.DepthStencilTexture()
	if depth == nil {
		t.Fatal("depth attachment missing after resize")
	}
	if desc := depth.Desc(); desc.Width != 1024 || desc.Height != 768 {
		t.Errorf("depth dimensions = %dx%d, want 1024x768", desc.Width, desc.Height)
	}
}

// TestFrameContextRecreatesOnOutOfDate verifies PrepareForNewFrame
// performs the recreation itself and the next frame succeeds.
func TestFrameContextRecreatesOnOutOfDate(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)
	sc := newTestSwapchain(t, device)
	ctx := rhi.NewFrameContext(device)

	sc.NotifySurfaceChanged(640, 480)
	if status := ctx.PrepareForNewFrame(); status != types.SwapchainOutOfDate {
		t.Fatalf("prepare: status %v, want OutOfDate (skipped frame)", status)
	}
	if status := renderOneFrame(t, device, ctx); status != types.SwapchainOK {
		t.Fatalf("retry frame: status %v", status)
	}
	if w, h := sc.Dimensions(); w != 640 || h != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", w, h)
	}
}

// TestDescriptorSetCycling allocates and binds per-frame sets for 256
// frames and verifies pool usage stays bounded.
func TestDescriptorSetCycling(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)
	newTestSwapchain(t, device)
	ctx := rhi.NewFrameContext(device)

	perFrame, err := device.CreateDescriptorSetLayout(&types.DescriptorSetLayoutDesc{
		DebugName: "PerFrame",
		SetIndex:  types.SetPerFrame,
		Bindings: []types.DescriptorSetLayoutBinding{
			{Binding: 0, Type: types.DescriptorUniformBuffer, Count: 1, VisibleStages: types.StageVertex},
		},
	})
	if err != nil {
		t.Fatalf("per-frame layout: %v", err)
	}
	defer perFrame.Release()

	perMaterial, err := device.CreateDescriptorSetLayout(&types.DescriptorSetLayoutDesc{
		DebugName: "PerMaterial",
		SetIndex:  types.SetPerMaterial,
		Bindings: []types.DescriptorSetLayoutBinding{
			{Binding: 0, Type: types.DescriptorUniformBuffer, Count: 1, VisibleStages: types.StagePixel},
			{Binding: 1, Type: types.DescriptorCombinedTextureSampler, Count: 1, VisibleStages: types.StagePixel},
		},
	})
	if err != nil {
		t.Fatalf("per-material layout: %v", err)
	}
	defer perMaterial.Release()

	ubo, _ := device.CreateBuffer(&types.BufferDesc{
		DebugName: "FrameUBO", Size: 256, Usage: types.BufferUsageUniform,
	})
	defer ubo.Release()
	albedo := device.Defaults().White
	sampler, _ := device.CreateSampler(&types.SamplerDesc{DebugName: "LinearSampler"})
	defer sampler.Release()

	var maxSetsInUse uint32
	for frame := 0; frame < 256; frame++ {
		if status := ctx.PrepareForNewFrame(); status != types.SwapchainOK {
			t.Fatalf("frame %d: prepare status %v", frame, status)
		}

		frameSet, err := device.AllocateDescriptorSet(perFrame)
		if err != nil {
			t.Fatalf("frame %d: allocate per-frame set: %v", frame, err)
		}
		if err := frameSet.UpdateUniformBuffer(0, ubo, 0, 256); err != nil {
			t.Fatalf("frame %d: update ubo: %v", frame, err)
		}

		materialSet, err := device.AllocateDescriptorSet(perMaterial)
		if err != nil {
			t.Fatalf("frame %d: allocate per-material set: %v", frame, err)
		}
		if err := materialSet.UpdateUniformBuffer(0, ubo, 0, 256); err != nil {
			t.Fatalf("frame %d: update material ubo: %v", frame, err)
		}
		if err := materialSet.UpdateCombinedTextureSampler(1, albedo, sampler); err != nil {
			t.Fatalf("frame %d: update combined: %v", frame, err)
		}

		sc := device.CurrentSwapchain()
		cl := ctx.CommandList()
		cl.SetRenderTargets([]*rhi.Texture{sc.CurrentBackbuffer()}, nil)
		cl.BindDescriptorSet(types.SetPerFrame, frameSet)
		cl.BindDescriptorSet(types.SetPerMaterial, materialSet)
		cl.Draw(3, 0)
		cl.EndRenderPass()

		if dev, ok := device.HAL().(*modern.Device); ok {
			if inUse := dev.DescriptorSetsInUse(); inUse > maxSetsInUse {
				maxSetsInUse = inUse
			}
		}

		if err := ctx.EndRecording(); err != nil {
			t.Fatalf("frame %d: end: %v", frame, err)
		}
		if err := ctx.SubmitCommands(nil, nil); err != nil {
			t.Fatalf("frame %d: submit: %v", frame, err)
		}
		if status := device.Present(); status != types.SwapchainOK {
			t.Fatalf("frame %d: present status %v", frame, status)
		}
	}

	// Pools recycle per frame: usage must not accumulate across frames.
	if maxSetsInUse > 8 {
		t.Errorf("descriptor sets in use peaked at %d, want bounded per-frame count", maxSetsInUse)
	}
}
