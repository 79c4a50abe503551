package legacy

import (
	"runtime"
	"sync"

	"github.com/go-webgpu/goffi/ffi"
)

// nativeLibraryNames returns the platform GL entry libraries, tried in
// order.
func nativeLibraryNames() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"opengl32.dll"}
	case "darwin":
		return []string{"/System/Library/Frameworks/OpenGL.framework/OpenGL"}
	default: // linux, freebsd, etc.
		return []string{"libEGL.so.1", "libEGL.so", "libGL.so.1"}
	}
}

var (
	nativeProbeOnce sync.Once
	nativeFoundName string
)

// probeNativeLoader locates the native GL library, if any. Absence means
// headless operation with identical semantics.
func probeNativeLoader() string {
	nativeProbeOnce.Do(func() {
		for _, name := range nativeLibraryNames() {
			lib, err := ffi.LoadLibrary(name)
			if err != nil {
				continue
			}
			nativeFoundName = name
			_ = ffi.FreeLibrary(lib)
			return
		}
	})
	return nativeFoundName
}
