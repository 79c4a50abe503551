package legacy

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// API implements hal.Backend for the immediate-mode backend.
type API struct{}

// Variant implements hal.Backend.
func (API) Variant() types.Backend { return types.BackendLegacy }

// Probe implements hal.Backend. The backend itself is always available;
// the native probe only decides headless vs native presentation.
func (API) Probe() error { return nil }

// CreateDevice implements hal.Backend.
func (API) CreateDevice(desc *hal.DeviceDesc) (hal.Device, error) {
	if desc == nil {
		desc = &hal.DeviceDesc{}
	}

	driver := probeNativeLoader()
	if driver == "" {
		driver = "headless"
		hal.Logger().Info("legacy: native GL library not found, running headless")
	}

	info := types.AdapterInfo{
		Name:                "Legacy Immediate Device",
		Driver:              driver,
		Backend:             types.BackendLegacy,
		MaxTextureDimension: 8192,
		MaxDescriptorSets:   4,
		DeviceLocalBudget:   deviceLocalBudget,
	}
	return newDevice(*desc, info), nil
}
