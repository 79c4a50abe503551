package hal

import (
	"github.com/gogpu/rhi/types"
)

// Swapchain provides a ring of backbuffer textures, image acquisition
// and presentation.
//
// An image acquired in frame N must be presented or discarded before
// frame N+K, where K is the ring size. After AcquireNextImage returns
// SwapchainOutOfDate, it keeps returning SwapchainOutOfDate until Resize
// recreates the chain.
type Swapchain interface {
	// CurrentBackbuffer returns the texture acquired for the current frame.
	CurrentBackbuffer() Texture

	// CurrentBackbufferIndex returns the ring index of the current image.
	CurrentBackbufferIndex() uint32

	// BackbufferCount returns the ring size.
	BackbufferCount() uint32

	// Format returns the backbuffer pixel format.
	Format() types.PixelFormat

	// Dimensions returns the current backbuffer dimensions.
	Dimensions() (width, height uint32)

	// AcquireNextImage acquires the next available image. May block on
	// the display.
	AcquireNextImage() types.SwapchainStatus

	// Present queues the current image for display.
	Present() types.SwapchainStatus

	// NotifySurfaceChanged records a new surface extent from the host and
	// marks the swapchain out of date; AcquireNextImage keeps failing
	// until Resize recreates the chain.
	NotifySurfaceChanged(width, height uint32)

	// Resize recreates the swapchain (and depth attachment) at the new
	// dimensions. Clears an out-of-date condition.
	Resize(width, height uint32) bool

	// SetVSync toggles vertical sync.
	SetVSync(enabled bool)

	// VSyncEnabled reports the vsync state.
	VSyncEnabled() bool

	// SetPresentMode selects the presentation policy.
	SetPresentMode(mode types.PresentMode)

	// PresentMode returns the presentation policy.
	PresentMode() types.PresentMode

	// DepthStencilTexture returns the depth attachment, or nil when the
	// swapchain was created without one.
	DepthStencilTexture() Texture

	// ImageAvailableSemaphore is signaled when acquisition completes for
	// the current frame-in-flight slot. Inert on the legacy backend.
	ImageAvailableSemaphore() Semaphore

	// RenderFinishedSemaphore is signaled by command submission for the
	// current frame-in-flight slot. Present waits on it. Inert on the
	// legacy backend.
	RenderFinishedSemaphore() Semaphore

	// WaitForFrameFence blocks on the in-flight fence of the current ring
	// slot, gating CPU reuse of per-frame resources. No-op on the legacy
	// backend.
	WaitForFrameFence()

	// FrameIndex returns submittedFrames % ringSize, the current
	// frame-in-flight slot.
	FrameIndex() uint32

	// Destroy releases the swapchain and its textures.
	Destroy()
}
