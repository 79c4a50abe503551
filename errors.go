package rhi

import (
	"sync/atomic"

	"github.com/gogpu/rhi/hal"
)

// Error kinds, re-exported from hal so callers need only this package.
var (
	ErrOutOfMemory        = hal.ErrOutOfMemory
	ErrInvalidArgument    = hal.ErrInvalidArgument
	ErrBackendUnavailable = hal.ErrBackendUnavailable
	ErrBackendNotFound    = hal.ErrBackendNotFound
	ErrSurfaceLost        = hal.ErrSurfaceLost
	ErrSwapchainOutOfDate = hal.ErrSwapchainOutOfDate
	ErrDeviceLost         = hal.ErrDeviceLost
	ErrFileIO             = hal.ErrFileIO
	ErrValidationFailed   = hal.ErrValidationFailed
)

// deviceLostHook holds the registered device-loss handler.
var deviceLostHook atomic.Pointer[func()]

// SetDeviceLostHook registers the handler invoked when the device is
// lost. Device loss is the single unrecoverable error kind: after the
// hook runs, the device refuses further submissions. The default hook
// only logs.
func SetDeviceLostHook(hook func()) {
	if hook == nil {
		deviceLostHook.Store(nil)
		return
	}
	deviceLostHook.Store(&hook)
}

// invokeDeviceLostHook runs the registered hook, if any.
func invokeDeviceLostHook() {
	hal.Logger().Error("rhi: device lost, refusing further submissions")
	if hook := deviceLostHook.Load(); hook != nil {
		(*hook)()
	}
}
