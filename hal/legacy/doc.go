// Package legacy implements the immediate-mode backend.
//
// There are no command buffers: command-list operations translate to
// immediate state changes, Begin/End are bracketing no-ops, and
// barriers do nothing. Descriptor sets are software binding tables that
// bind texture units and uniform-buffer binding points at draw time.
// The swapchain wraps the window's double buffer; present is a buffer
// swap. Invalid record-time states become no-ops with a warning.
//
// Shaders are GLSL source (null-terminated, the wire convention) or
// WGSL source, which is cross-compiled to GLSL 4.30 through naga.
//
// Importing the package registers the backend:
//
//	import _ "github.com/gogpu/rhi/hal/legacy"
package legacy
