package modern

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// maxFramesInFlight is the depth of the frame synchronization ring.
const maxFramesInFlight = 2

// Swapchain is a ring of backbuffer textures with per-frame-in-flight
// synchronization: an image-available semaphore raised at acquire, a
// render-finished semaphore raised by submission, and an in-flight
// fence gating CPU reuse of the slot.
type Swapchain struct {
	device *Device

	mu              sync.Mutex
	desc            types.SwapchainDesc
	images          []*Texture
	depth           *Texture
	imageIndex      uint32
	imageAcquired   bool
	submittedFrames uint64

	imageAvailable [maxFramesInFlight]*semaphore
	renderFinished [maxFramesInFlight]*semaphore
	inFlight       [maxFramesInFlight]*frameFence

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
	for i := 0; i < maxFramesInFlight; i++ {
		sc.imageAvailable[i] = &semaphore{}
		sc.renderFinished[i] = &semaphore{}
		sc.inFlight[i] = newFrameFence()
	}
	sc.createImages()
	return sc
}

// createImages builds the backbuffer ring and depth attachment at the
// current dimensions.
func (sc *Swapchain) createImages() {
	sc.images = make([]*Texture, sc.desc.BufferCount)
	for i := range sc.images {
		tex, _ := sc.device.newTexture(&types.TextureDesc{
			DebugName: sc.desc.DebugName,
			Width:     sc.desc.Width,
			Height:    sc.desc.Height,
			MipLevels: 1,
			Format:    sc.desc.Format,
			Usage:     types.BufferUsageRenderTarget,
		})
		sc.images[i] = tex
	}
	if sc.desc.DepthFormat != types.FormatUnknown {
		sc.depth, _ = sc.device.newTexture(&types.TextureDesc{
			DebugName: sc.desc.DebugName,
			Width:     sc.desc.Width,
			Height:    sc.desc.Height,
			MipLevels: 1,
			Format:    sc.desc.DepthFormat,
			Usage:     types.BufferUsageDepthStencil,
		})
	}
}

// CurrentBackbuffer implements hal.Swapchain.
func (sc *Swapchain) CurrentBackbuffer() hal.Texture {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.images[sc.imageIndex]
}

// CurrentBackbufferIndex implements hal.Swapchain.
func (sc *Swapchain) CurrentBackbufferIndex() uint32 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.imageIndex
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

// AcquireNextImage implements hal.Swapchain. Once the surface is marked
// out of date, acquisition keeps failing until Resize recreates the
// chain.
func (sc *Swapchain) AcquireNextImage() types.SwapchainStatus {
	if sc.outOfDate.Load() {
		return types.SwapchainOutOfDate
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.imageAcquired {
		hal.Logger().Warn("modern: acquire with image already acquired")
	}
	sc.imageIndex = (sc.imageIndex + 1) % sc.desc.BufferCount
	sc.imageAcquired = true
	sc.imageAvailable[sc.frameIndexLocked()].Signal()
	return types.SwapchainOK
}

// Present implements hal.Swapchain. Checks render-finished: presenting
// a frame whose submission never signaled logs a warning and still
// presents.
func (sc *Swapchain) Present() types.SwapchainStatus {
	if sc.outOfDate.Load() {
		return types.SwapchainOutOfDate
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	slot := sc.frameIndexLocked()
	if !sc.imageAcquired {
		hal.Logger().Warn("modern: present without acquired image")
		return types.SwapchainError
	}
	if !sc.renderFinished[slot].Signaled() {
		hal.Logger().Warn("modern: present before render finished", "slot", slot)
	}
	sc.renderFinished[slot].Reset()
	sc.imageAvailable[slot].Reset()
	sc.imageAcquired = false
	sc.submittedFrames++
	return types.SwapchainOK
}

// Discard drops the acquired image without presenting. Used when a frame
// is abandoned after acquisition.
func (sc *Swapchain) Discard() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	slot := sc.frameIndexLocked()
	sc.imageAvailable[slot].Reset()
	sc.imageAcquired = false
}

// NotifySurfaceChanged implements hal.Swapchain: the host calls this
// when the window geometry changes. The new extent is recorded so the
// recreation path knows the target size; acquire fails until Resize.
func (sc *Swapchain) NotifySurfaceChanged(width, height uint32) {
	sc.mu.Lock()
	if width != 0 && height != 0 {
		sc.desc.Width = width
		sc.desc.Height = height
	}
	sc.mu.Unlock()
	sc.outOfDate.Store(true)
}

// Resize implements hal.Swapchain: waits for the device to go idle,
// recreates the image ring and depth attachment at the new size, and
// clears the out-of-date condition.
func (sc *Swapchain) Resize(width, height uint32) bool {
	if width == 0 || height == 0 {
		return false
	}
	sc.device.WaitForIdle()

	sc.mu.Lock()
	for _, img := range sc.images {
		img.Destroy()
	}
	if sc.depth != nil {
		sc.depth.Destroy()
	}
	sc.desc.Width = width
	sc.desc.Height = height
	sc.createImages()
	sc.imageIndex = 0
	sc.imageAcquired = false
	sc.mu.Unlock()

	sc.outOfDate.Store(false)
	hal.Logger().Info("modern: swapchain resized", "width", width, "height", height)
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
func (sc *Swapchain) ImageAvailableSemaphore() hal.Semaphore {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.imageAvailable[sc.frameIndexLocked()]
}

// RenderFinishedSemaphore implements hal.Swapchain.
func (sc *Swapchain) RenderFinishedSemaphore() hal.Semaphore {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.renderFinished[sc.frameIndexLocked()]
}

// WaitForFrameFence implements hal.Swapchain.
func (sc *Swapchain) WaitForFrameFence() {
	sc.mu.Lock()
	fence := sc.inFlight[sc.frameIndexLocked()]
	sc.mu.Unlock()
	fence.Wait()
}

// FrameIndex implements hal.Swapchain.
func (sc *Swapchain) FrameIndex() uint32 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.frameIndexLocked()
}

func (sc *Swapchain) frameIndexLocked() uint32 {
	return uint32(sc.submittedFrames % maxFramesInFlight)
}

// frameSync returns the current slot's synchronization objects for
// submission.
func (sc *Swapchain) frameSync() (*semaphore, *frameFence) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	slot := sc.frameIndexLocked()
	return sc.renderFinished[slot], sc.inFlight[slot]
}

// Destroy implements hal.Swapchain.
func (sc *Swapchain) Destroy() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, img := range sc.images {
		img.Destroy()
	}
	if sc.depth != nil {
		sc.depth.Destroy()
	}
	sc.images = nil
	sc.depth = nil
}
