package legacy

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// inertSemaphore satisfies the synchronization contract on a backend
// with implicit synchronization: it always reads as signaled.
type inertSemaphore struct{}

// Signaled implements hal.Semaphore.
func (inertSemaphore) Signaled() bool { return true }

// Swapchain wraps the window's double buffer. Present is a buffer swap;
// the frame synchronization surface is inert.
type Swapchain struct {
	device *Device

	mu              sync.Mutex
	desc            types.SwapchainDesc
	buffers         []*Texture
	depth           *Texture
	frontIndex      uint32
	submittedFrames uint64

	outOfDate atomic.Bool
}

func newSwapchain(d *Device, desc types.SwapchainDesc) *Swapchain {
	if desc.BufferCount < 2 {
		desc.BufferCount = 2
	}
	if desc.VSync {
		desc.PresentMode = types.PresentVSync
	}
	sc := &Swapchain{device: d, desc: desc}
	sc.createBuffers()
	return sc
}

func (sc *Swapchain) createBuffers() {
	sc.buffers = make([]*Texture, sc.desc.BufferCount)
	for i := range sc.buffers {
		tex, _ := sc.device.createTexture(&types.TextureDesc{
			DebugName: sc.desc.DebugName,
			Width:     sc.desc.Width,
			Height:    sc.desc.Height,
			MipLevels: 1,
			Format:    sc.desc.Format,
			Usage:     types.BufferUsageRenderTarget,
		})
		sc.buffers[i] = tex
	}
	if sc.desc.DepthFormat != types.FormatUnknown {
		sc.depth, _ = sc.device.createTexture(&types.TextureDesc{
			DebugName: sc.desc.DebugName,
			Width:     sc.desc.Width,
			Height:    sc.desc.Height,
			MipLevels: 1,
			Format:    sc.desc.DepthFormat,
			Usage:     types.BufferUsageDepthStencil,
		})
	}
}

// CurrentBackbuffer implements hal.Swapchain: the back buffer of the
// double-buffer pair.
func (sc *Swapchain) CurrentBackbuffer() hal.Texture {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.buffers[sc.backIndexLocked()]
}

func (sc *Swapchain) backIndexLocked() uint32 {
	return (sc.frontIndex + 1) % sc.desc.BufferCount
}

// CurrentBackbufferIndex implements hal.Swapchain.
func (sc *Swapchain) CurrentBackbufferIndex() uint32 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.backIndexLocked()
}

// BackbufferCount implements hal.Swapchain.
func (sc *Swapchain) BackbufferCount() uint32 { return sc.desc.BufferCount }

// Format implements hal.Swapchain.
func (sc *Swapchain) Format() types.PixelFormat { return sc.desc.Format }

// Dimensions implements hal.Swapchain.
func (sc *Swapchain) Dimensions() (uint32, uint32) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.desc.Width, sc.desc.Height
}

// AcquireNextImage implements hal.Swapchain. The double buffer always
// has a back buffer available unless the surface went stale.
func (sc *Swapchain) AcquireNextImage() types.SwapchainStatus {
	if sc.outOfDate.Load() {
		return types.SwapchainOutOfDate
	}
	return types.SwapchainOK
}

// Present implements hal.Swapchain: swaps the buffer pair.
func (sc *Swapchain) Present() types.SwapchainStatus {
	if sc.outOfDate.Load() {
		return types.SwapchainOutOfDate
	}
	sc.mu.Lock()
	sc.frontIndex = sc.backIndexLocked()
	sc.submittedFrames++
	sc.mu.Unlock()
	return types.SwapchainOK
}

// NotifySurfaceChanged implements hal.Swapchain.
func (sc *Swapchain) NotifySurfaceChanged(width, height uint32) {
	sc.mu.Lock()
	if width != 0 && height != 0 {
		sc.desc.Width = width
		sc.desc.Height = height
	}
	sc.mu.Unlock()
	sc.outOfDate.Store(true)
}

// Resize implements hal.Swapchain.
func (sc *Swapchain) Resize(width, height uint32) bool {
	if width == 0 || height == 0 {
		return false
	}
	sc.mu.Lock()
	for _, b := range sc.buffers {
		b.Destroy()
	}
	if sc.depth != nil {
		sc.depth.Destroy()
	}
	sc.desc.Width = width
	sc.desc.Height = height
	sc.createBuffers()
	sc.frontIndex = 0
	sc.mu.Unlock()

	sc.outOfDate.Store(false)
	hal.Logger().Info("legacy: swapchain resized", "width", width, "height", height)
	return true
}

// SetVSync implements hal.Swapchain.
func (sc *Swapchain) SetVSync(enabled bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.desc.VSync = enabled
	if enabled {
		sc.desc.PresentMode = types.PresentVSync
	} else if sc.desc.PresentMode == types.PresentVSync {
		sc.desc.PresentMode = types.PresentImmediate
	}
}

// VSyncEnabled implements hal.Swapchain.
func (sc *Swapchain) VSyncEnabled() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.desc.VSync
}

// SetPresentMode implements hal.Swapchain.
func (sc *Swapchain) SetPresentMode(mode types.PresentMode) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.desc.PresentMode = mode
	sc.desc.VSync = mode == types.PresentVSync || mode == types.PresentFIFO
}

// PresentMode implements hal.Swapchain.
func (sc *Swapchain) PresentMode() types.PresentMode {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.desc.PresentMode
}

// DepthStencilTexture implements hal.Swapchain.
func (sc *Swapchain) DepthStencilTexture() hal.Texture {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.depth == nil {
		return nil
	}
	return sc.depth
}

// ImageAvailableSemaphore implements hal.Swapchain.
func (sc *Swapchain) ImageAvailableSemaphore() hal.Semaphore { return inertSemaphore{} }

// RenderFinishedSemaphore implements hal.Swapchain.
func (sc *Swapchain) RenderFinishedSemaphore() hal.Semaphore { return inertSemaphore{} }

// WaitForFrameFence implements hal.Swapchain. Implicit synchronization:
// nothing to wait for.
func (sc *Swapchain) WaitForFrameFence() {}

// FrameIndex implements hal.Swapchain.
func (sc *Swapchain) FrameIndex() uint32 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return uint32(sc.submittedFrames % 2)
}

// Destroy implements hal.Swapchain.
func (sc *Swapchain) Destroy() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, b := range sc.buffers {
		b.Destroy()
	}
	if sc.depth != nil {
		sc.depth.Destroy()
	}
	sc.buffers = nil
	sc.depth = nil
}
