package hal

import "errors"

// Common errors shared by all backends. Backends wrap these with
// fmt.Errorf("...: %w", ...) to attach context; callers test with
// errors.Is.
var (
	// ErrBackendNotFound indicates the requested backend is not registered.
	ErrBackendNotFound = errors.New("hal: backend not found")

	// ErrBackendUnavailable indicates the backend is registered but its
	// prerequisites are absent at startup.
	ErrBackendUnavailable = errors.New("hal: backend unavailable")

	// ErrOutOfMemory indicates an allocator or pool cannot satisfy a
	// request.
	ErrOutOfMemory = errors.New("hal: out of memory")

	// ErrInvalidArgument indicates a malformed descriptor: an unknown
	// binding, a zero-sized resource, a misaligned offset.
	ErrInvalidArgument = errors.New("hal: invalid argument")

	// ErrDeviceLost indicates the device has been lost. This is the single
	// unrecoverable kind: the frontend calls the registered panic hook and
	// refuses further submissions.
	ErrDeviceLost = errors.New("hal: device lost")

	// ErrSurfaceLost indicates the window surface has been destroyed.
	ErrSurfaceLost = errors.New("hal: surface lost")

	// ErrSwapchainOutOfDate indicates the swapchain no longer matches the
	// surface and must be recreated via Resize.
	ErrSwapchainOutOfDate = errors.New("hal: swapchain out of date")

	// ErrFileIO indicates a disk read failed or came up short.
	ErrFileIO = errors.New("hal: file i/o error")

	// ErrValidationFailed indicates an internal invariant check failed.
	// Surfaced in validation builds only.
	ErrValidationFailed = errors.New("hal: validation failed")
)
