package rhi

import (
	"sync"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// Swapchain is the frontend over a backend swapchain. Backbuffer and
// depth handles are wrapped once per recreation and cached, so repeated
// CurrentBackbuffer calls return stable handles.
type Swapchain struct {
	device *Device
	sc     hal.Swapchain

	mu       sync.Mutex
	wrappers map[hal.Texture]*Texture
}

func newSwapchain(d *Device, raw hal.Swapchain) *Swapchain {
	return &Swapchain{device: d, sc: raw, wrappers: make(map[hal.Texture]*Texture)}
}

// HAL returns the backend swapchain.
func (s *Swapchain) HAL() hal.Swapchain { return s.sc }

// wrap caches a frontend handle for a swapchain-owned texture.
func (s *Swapchain) wrap(raw hal.Texture) *Texture {
	if raw == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.wrappers[raw]; ok {
		return t
	}
	t := s.device.wrapTexture(raw)
	s.wrappers[raw] = t
	return t
}

// CurrentBackbuffer returns the texture acquired for the current frame.
func (s *Swapchain) CurrentBackbuffer() *Texture {
	return s.wrap(s.sc.CurrentBackbuffer())
}

// CurrentBackbufferIndex returns the ring index of the current image.
func (s *Swapchain) CurrentBackbufferIndex() uint32 { return s.sc.CurrentBackbufferIndex() }

// BackbufferCount returns the ring size.
func (s *Swapchain) BackbufferCount() uint32 { return s.sc.BackbufferCount() }

// Format returns the backbuffer pixel format.
func (s *Swapchain) Format() types.PixelFormat { return s.sc.Format() }

// Dimensions returns the current surface dimensions.
func (s *Swapchain) Dimensions() (uint32, uint32) { return s.sc.Dimensions() }

// AcquireNextImage acquires the next available image.
func (s *Swapchain) AcquireNextImage() types.SwapchainStatus { return s.sc.AcquireNextImage() }

// Present queues the current image for display.
func (s *Swapchain) Present() types.SwapchainStatus { return s.sc.Present() }

// NotifySurfaceChanged records a window geometry change; acquisition
// fails with SwapchainOutOfDate until Resize.
func (s *Swapchain) NotifySurfaceChanged(width, height uint32) {
	s.sc.NotifySurfaceChanged(width, height)
}

// Resize recreates the swapchain at the new dimensions and drops the
// stale backbuffer wrappers.
func (s *Swapchain) Resize(width, height uint32) bool {
	ok := s.sc.Resize(width, height)
	if ok {
		s.mu.Lock()
		s.wrappers = make(map[hal.Texture]*Texture)
		s.mu.Unlock()
	}
	return ok
}

// SetVSync toggles vertical sync.
func (s *Swapchain) SetVSync(enabled bool) { s.sc.SetVSync(enabled) }

// VSyncEnabled reports the vsync state.
func (s *Swapchain) VSyncEnabled() bool { return s.sc.VSyncEnabled() }

// SetPresentMode selects the presentation policy.
func (s *Swapchain) SetPresentMode(mode types.PresentMode) { s.sc.SetPresentMode(mode) }

// PresentMode returns the presentation policy.
func (s *Swapchain) PresentMode() types.PresentMode { return s.sc.PresentMode() }

// DepthStencilTexture returns the depth attachment, or nil.
func (s *Swapchain) DepthStencilTexture() *Texture {
	return s.wrap(s.sc.DepthStencilTexture())
}

// FrameIndex returns the current frame-in-flight slot.
func (s *Swapchain) FrameIndex() uint32 { return s.sc.FrameIndex() }

// Destroy releases the swapchain and its textures.
func (s *Swapchain) Destroy() {
	s.mu.Lock()
	s.wrappers = make(map[hal.Texture]*Texture)
	s.mu.Unlock()
	s.sc.Destroy()
}
