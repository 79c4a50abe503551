package types

// PresentMode governs how frames are delivered to the display.
type PresentMode uint8

const (
	// PresentImmediate presents without waiting for vertical blank.
	PresentImmediate PresentMode = iota
	// PresentVSync waits for vertical blank.
	PresentVSync
	// PresentMailbox keeps the newest frame, replacing queued ones.
	PresentMailbox
	// PresentFIFO queues frames for vertical blank in order.
	PresentFIFO
)

// SwapchainStatus is the result of acquire/present operations.
type SwapchainStatus uint8

const (
	// SwapchainOK means the operation succeeded.
	SwapchainOK SwapchainStatus = iota
	// SwapchainOutOfDate means the swapchain must be recreated before
	// further use; Resize performs the recreation.
	SwapchainOutOfDate
	// SwapchainSuboptimal means the swapchain works but no longer matches
	// the surface exactly.
	SwapchainSuboptimal
	// SwapchainError means an unrecoverable swapchain error occurred.
	SwapchainError
)

// String returns the status name.
func (s SwapchainStatus) String() string {
	switch s {
	case SwapchainOK:
		return "OK"
	case SwapchainOutOfDate:
		return "OutOfDate"
	case SwapchainSuboptimal:
		return "Suboptimal"
	default:
		return "Error"
	}
}

// SwapchainDesc describes a swapchain to create.
type SwapchainDesc struct {
	// DebugName is an optional label for tooling and logs.
	DebugName string
	// WindowHandle is the native window handle provided by the host, or 0
	// for headless operation.
	WindowHandle uintptr
	// Width and Height are the backbuffer dimensions.
	Width  uint32
	Height uint32
	// Format is the backbuffer pixel format.
	Format PixelFormat
	// BufferCount is the size of the backbuffer ring; at least 2.
	BufferCount uint32
	// PresentMode selects the presentation policy.
	PresentMode PresentMode
	// VSync enables vertical sync (overrides PresentMode to PresentVSync).
	VSync bool
	// DepthFormat optionally creates a matching depth attachment;
	// FormatUnknown for none.
	DepthFormat PixelFormat
}
