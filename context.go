package rhi

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// FrameContext binds together, for each frame: the immediate command
// list, the per-frame descriptor pool, and the acquired swapchain
// image. One context serves the whole frame-in-flight ring; the
// immediate command list pointer returned by the device is owned by
// the context for the current frame.
//
// The frame lifecycle:
//
//	status := ctx.PrepareForNewFrame()   // fence wait, pool reset, acquire
//	... record into ctx.CommandList() ...
//	ctx.EndRecording()
//	ctx.SubmitCommands(nil, nil)
//	device.Present()
type FrameContext struct {
	device    *Device
	swapchain *Swapchain

	frameNumber uint64
}

// NewFrameContext creates the per-frame context for a device and its
// current swapchain.
func NewFrameContext(d *Device) *FrameContext {
	return &FrameContext{device: d, swapchain: d.CurrentSwapchain()}
}

// CommandList returns the immediate command list the context owns for
// the current frame.
func (f *FrameContext) CommandList() *CommandList { return f.device.ImmediateCommandList() }

// FrameNumber returns the device frame number assigned to the frame
// most recently prepared through this context.
func (f *FrameContext) FrameNumber() uint64 { return f.frameNumber }

// PrepareForNewFrame starts a frame: waits on the ring slot's in-flight
// fence, resets that slot's descriptor pool, acquires the next
// swapchain image, and resets the command list into recording. On an
// out-of-date surface the swapchain is recreated at its notified extent
// and SwapchainOutOfDate is returned: the caller skips this frame and
// retries.
func (f *FrameContext) PrepareForNewFrame() types.SwapchainStatus {
	if f.device.Lost() {
		return types.SwapchainError
	}
	sc := f.swapchain
	if sc == nil {
		sc = f.device.CurrentSwapchain()
		f.swapchain = sc
	}
	if sc == nil {
		hal.Logger().Error("rhi: frame prepared without a swapchain")
		return types.SwapchainError
	}

	sc.HAL().WaitForFrameFence()
	f.device.HAL().ResetFramePool(sc.FrameIndex())

	switch status := sc.AcquireNextImage(); status {
	case types.SwapchainOK, types.SwapchainSuboptimal:
	case types.SwapchainOutOfDate:
		w, h := sc.Dimensions()
		f.device.WaitForIdle()
		sc.Resize(w, h)
		return types.SwapchainOutOfDate
	default:
		return types.SwapchainError
	}

	cl := f.CommandList()
	cl.Reset()
	if err := cl.Begin(); err != nil {
		return types.SwapchainError
	}

	f.frameNumber = f.device.frameNumber.Add(1)
	return types.SwapchainOK
}

// RefreshCommandBuffer resets the command list for synchronous
// intra-frame work without re-acquiring a swapchain image.
func (f *FrameContext) RefreshCommandBuffer() error {
	cl := f.CommandList()
	cl.Reset()
	return cl.Begin()
}

// EndRecording closes the command list for submission.
func (f *FrameContext) EndRecording() error {
	return f.CommandList().End()
}

// SubmitCommands submits the frame's command list with image-available
// as an implicit wait and render-finished as an implicit signal, plus
// any extra semaphores the caller passes. The in-flight fence of the
// ring slot completes with the submission.
func (f *FrameContext) SubmitCommands(waits, signals []hal.Semaphore) error {
	sc := f.swapchain
	if sc != nil {
		waits = append([]hal.Semaphore{sc.HAL().ImageAvailableSemaphore()}, waits...)
	}
	return f.device.Submit(f.CommandList(), waits, signals)
}
