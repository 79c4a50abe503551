package modern

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// API implements hal.Backend for the explicit-submission backend.
type API struct{}

// Variant implements hal.Backend.
func (API) Variant() types.Backend { return types.BackendModern }

// Probe implements hal.Backend. The backend itself is always available;
// the native loader probe only decides headless vs native presentation.
func (API) Probe() error { return nil }

// CreateDevice implements hal.Backend.
func (API) CreateDevice(desc *hal.DeviceDesc) (hal.Device, error) {
	if desc == nil {
		desc = &hal.DeviceDesc{}
	}

	driver := "headless"
	if probeNativeLoader() {
		driver = nativeLibraryName()
	} else {
		hal.Logger().Info("modern: native loader not found, running headless")
	}

	info := types.AdapterInfo{
		Name:                "Modern Explicit Device",
		Driver:              driver,
		Backend:             types.BackendModern,
		MaxTextureDimension: 16384,
		MaxDescriptorSets:   8,
		DeviceLocalBudget:   deviceLocalBudget,
	}
	return newDevice(*desc, info), nil
}
