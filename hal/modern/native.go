package modern

import (
	"runtime"
	"sync"

	"github.com/go-webgpu/goffi/ffi"
)

// nativeLibraryName returns the platform-specific Vulkan loader name.
func nativeLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "vulkan-1.dll"
	case "darwin":
		return "libvulkan.dylib" // MoltenVK
	default: // linux, freebsd, etc.
		return "libvulkan.so.1"
	}
}

var (
	nativeProbeOnce sync.Once
	nativeFound     bool
)

// probeNativeLoader checks whether the native Vulkan loader can be
// opened. The result decides the adapter's driver string and whether
// presentation runs against a real surface or headless; device
// semantics are identical either way.
func probeNativeLoader() bool {
	nativeProbeOnce.Do(func() {
		lib, err := ffi.LoadLibrary(nativeLibraryName())
		if err != nil {
			return
		}
		nativeFound = true
		_ = ffi.FreeLibrary(lib)
	})
	return nativeFound
}
