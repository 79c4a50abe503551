package hal

import (
	"sync"

	"github.com/gogpu/rhi/types"
)

var (
	// backendsMu protects the backends map.
	backendsMu sync.RWMutex

	// backends stores registered backend implementations.
	backends = make(map[types.Backend]Backend)
)

// RegisterBackend registers a backend implementation. This is typically
// called from init functions in backend packages. Registering the same
// variant twice replaces the previous registration.
func RegisterBackend(backend Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[backend.Variant()] = backend
}

// GetBackend returns a registered backend by variant.
// Returns (nil, false) if the backend is not registered.
func GetBackend(variant types.Backend) (Backend, bool) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	b, ok := backends[variant]
	return b, ok
}

// AvailableBackends returns all registered backend variants.
// The order is non-deterministic.
func AvailableBackends() []types.Backend {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	result := make([]types.Backend, 0, len(backends))
	for v := range backends {
		result = append(result, v)
	}
	return result
}

// SelectBackend resolves a preference to a registered backend.
// PreferAuto tries modern first, then legacy. A named preference fails
// with ErrBackendNotFound when that backend is not registered.
func SelectBackend(pref types.BackendPreference) (Backend, error) {
	var order []types.Backend
	switch pref {
	case types.PreferModern:
		order = []types.Backend{types.BackendModern}
	case types.PreferLegacy:
		order = []types.Backend{types.BackendLegacy}
	default:
		order = []types.Backend{types.BackendModern, types.BackendLegacy}
	}

	for _, variant := range order {
		if b, ok := GetBackend(variant); ok {
			return b, nil
		}
	}
	return nil, ErrBackendNotFound
}
