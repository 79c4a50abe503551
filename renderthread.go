package rhi

import (
	"sync/atomic"

	"github.com/gogpu/rhi/internal/thread"
	"github.com/gogpu/rhi/renderqueue"
	"github.com/gogpu/rhi/types"
)

// RenderThread is the consumer side of the producer/render split: a
// pinned OS thread that owns the device, drains the render command
// queue, and runs the per-frame context lifecycle. Producers enqueue
// through Queue(); only this thread touches the immediate command list.
type RenderThread struct {
	device  *Device
	ctx     *FrameContext
	queue   *renderqueue.Queue
	worker  *thread.Thread
	stopped atomic.Bool

	// Pending resize, set from the host thread and applied at the next
	// frame boundary on the render thread.
	pendingWidth  atomic.Uint32
	pendingHeight atomic.Uint32
	resizePending atomic.Bool
}

// NewRenderThread spins up the render thread for a device.
func NewRenderThread(device *Device) *RenderThread {
	rt := &RenderThread{
		device: device,
		ctx:    NewFrameContext(device),
		queue:  renderqueue.New(),
		worker: thread.New(),
	}
	rt.queue.AttachConsumer()
	return rt
}

// Queue returns the cross-thread command channel. Enqueue from any
// thread; direct calls into the command list from producers are
// prohibited.
func (rt *RenderThread) Queue() *renderqueue.Queue { return rt.queue }

// Context returns the per-frame context owned by the render thread.
func (rt *RenderThread) Context() *FrameContext { return rt.ctx }

// RequestResize records a host window resize; the swapchain is
// recreated at the next frame boundary on the render thread.
func (rt *RenderThread) RequestResize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	rt.pendingWidth.Store(width)
	rt.pendingHeight.Store(height)
	rt.resizePending.Store(true)
}

// applyPendingResize runs on the render thread at the frame boundary.
func (rt *RenderThread) applyPendingResize() {
	if !rt.resizePending.Swap(false) {
		return
	}
	if sc := rt.device.CurrentSwapchain(); sc != nil {
		sc.NotifySurfaceChanged(rt.pendingWidth.Load(), rt.pendingHeight.Load())
	}
}

// RenderFrame runs one full frame on the render thread: apply pending
// resize, prepare the frame, drain the command queue into the active
// command list, record via the optional callback, then end, submit and
// present. Returns the frame's final swapchain status.
func (rt *RenderThread) RenderFrame(record func(*CommandList)) types.SwapchainStatus {
	if rt.stopped.Load() {
		return types.SwapchainError
	}
	result := rt.worker.Call(func() any {
		rt.applyPendingResize()

		status := rt.ctx.PrepareForNewFrame()
		if status != types.SwapchainOK && status != types.SwapchainSuboptimal {
			// Skipped frame; the queue still drains so producers make
			// progress.
			rt.queue.ExecuteCommands(&renderqueue.Context{FrameNumber: rt.ctx.FrameNumber()})
			return status
		}

		cl := rt.ctx.CommandList()
		rt.queue.ExecuteCommands(&renderqueue.Context{
			CommandList: cl.HAL(),
			FrameNumber: rt.ctx.FrameNumber(),
		})
		if record != nil {
			record(cl)
		}
		if err := rt.ctx.EndRecording(); err != nil {
			return types.SwapchainError
		}
		if err := rt.ctx.SubmitCommands(nil, nil); err != nil {
			return types.SwapchainError
		}
		return rt.device.Present()
	})
	status, ok := result.(types.SwapchainStatus)
	if !ok {
		return types.SwapchainError
	}
	return status
}

// Flush blocks until the queue is drained by the render thread.
func (rt *RenderThread) Flush() {
	rt.worker.CallVoid(func() {
		rt.queue.ExecuteCommands(&renderqueue.Context{FrameNumber: rt.ctx.FrameNumber()})
	})
}

// Stop detaches the queue, drains it inline, and stops the thread.
func (rt *RenderThread) Stop() {
	if rt.stopped.Swap(true) {
		return
	}
	rt.queue.DetachConsumer()
	rt.queue.Flush()
	rt.worker.Stop()
}
