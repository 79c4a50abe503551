// Package modern implements the explicit-submission backend.
//
// Command lists record into an operation buffer and execute on queue
// submission. Synchronization is explicit: submissions signal timeline
// fences and binary semaphores, swapchains run a two-deep
// frame-in-flight ring, and texture uploads are serviced by a dedicated
// upload queue whose completions are observed through fence values.
// Descriptor sets come from a per-frame pool ring that is reset at
// frame begin.
//
// The backend probes the native Vulkan loader at device creation to
// populate adapter information; when the loader is absent the device
// runs headless with the same semantics.
//
// Importing the package registers the backend:
//
//	import _ "github.com/gogpu/rhi/hal/modern"
package modern
