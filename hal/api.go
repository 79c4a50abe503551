package hal

import (
	"github.com/gogpu/rhi/types"
)

// Backend identifies a device backend implementation. Backends are
// registered globally and act as device factories.
type Backend interface {
	// Variant returns the backend type identifier.
	Variant() types.Backend

	// Probe reports whether the backend prerequisites are present,
	// without creating a device. Returns ErrBackendUnavailable (wrapped)
	// when they are not.
	Probe() error

	// CreateDevice opens a device. Returns an error if the backend
	// prerequisites are missing or initialization fails.
	CreateDevice(desc *DeviceDesc) (Device, error)
}

// DeviceDesc configures device creation.
type DeviceDesc struct {
	// DebugName is an optional label for tooling and logs.
	DebugName string

	// EnableValidation turns on internal invariant checks. Violations
	// surface as ErrValidationFailed.
	EnableValidation bool

	// EnableDebugMarkers enables BeginEvent/EndEvent/SetMarker recording.
	EnableDebugMarkers bool
}

// PipelineStateDesc describes an immutable pipeline state object.
// It lives in hal rather than types because it references shader handles.
type PipelineStateDesc struct {
	DebugName           string
	VertexShader        Shader
	PixelShader         Shader
	Topology            types.PrimitiveTopology
	Blend               types.BlendState
	Rasterizer          types.RasterizerState
	DepthStencil        types.DepthStencilState
	RenderTargetFormats []types.PixelFormat
	DepthFormat         types.PixelFormat
	VertexLayout        types.VertexInputLayout
}

// Device is a logical device of one backend. Factory calls are safe from
// any thread; the backends serialize internally where required. The
// immediate command list is single-threaded: only the render thread may
// record into it.
type Device interface {
	// Variant returns the backend tag all resources of this device carry.
	Variant() types.Backend

	// AdapterInfo describes the adapter the device runs on.
	AdapterInfo() types.AdapterInfo

	// CreateBuffer creates a buffer. The buffer is mappable iff
	// desc.CPUAccessible.
	CreateBuffer(desc *types.BufferDesc) (Buffer, error)

	// CreateTexture creates a texture, optionally initialized from
	// desc.InitialData.
	CreateTexture(desc *types.TextureDesc) (Texture, error)

	// CreateSampler creates a texture sampler.
	CreateSampler(desc *types.SamplerDesc) (Sampler, error)

	// CreateVertexShader creates a vertex shader from bytecode. The modern
	// backend accepts SPIR-V (WGSL source is cross-compiled to SPIR-V);
	// the legacy backend accepts null-terminated GLSL source (WGSL is
	// cross-compiled to GLSL).
	CreateVertexShader(bytecode []byte) (Shader, error)

	// CreatePixelShader creates a pixel shader from bytecode.
	CreatePixelShader(bytecode []byte) (Shader, error)

	// CreatePipelineState creates an immutable pipeline state object.
	CreatePipelineState(desc *PipelineStateDesc) (PipelineState, error)

	// CreateDescriptorSetLayout creates a set layout.
	CreateDescriptorSetLayout(desc *types.DescriptorSetLayoutDesc) (DescriptorSetLayout, error)

	// CreatePipelineLayout creates a pipeline layout from set layouts.
	CreatePipelineLayout(desc *types.PipelineLayoutDesc) (PipelineLayout, error)

	// AllocateDescriptorSet allocates a set conforming to layout from the
	// current per-frame pool. Must be called on the render thread inside
	// the active frame context.
	AllocateDescriptorSet(layout DescriptorSetLayout) (DescriptorSet, error)

	// CreateSwapchain creates a swapchain for a window surface (or a
	// headless ring when desc.WindowHandle is zero). The device keeps the
	// most recently created swapchain as current.
	CreateSwapchain(desc *types.SwapchainDesc) (Swapchain, error)

	// CurrentSwapchain returns the most recently created swapchain, or nil.
	CurrentSwapchain() Swapchain

	// ImmediateCommandList returns the per-frame-rotated primary command
	// list. Owned by the frame context active for the current frame.
	ImmediateCommandList() CommandList

	// ResetFramePool resets the per-frame descriptor pool for the given
	// frame-in-flight slot. No-op on the legacy backend.
	ResetFramePool(slot uint32)

	// Submit executes a command list on the device queue. waits are
	// semaphores the execution waits on; signals are signaled when the
	// work completes, along with the current frame's in-flight fence.
	Submit(cl CommandList, waits, signals []Semaphore) error

	// UploadTextureMips synchronously uploads a contiguous mip range.
	// data holds one slice per mip in [startMip, endMip).
	UploadTextureMips(t Texture, startMip, endMip uint32, data [][]byte) error

	// UploadTextureMipsAsync queues one upload per mip and returns the
	// fence values that signal their completion, in mip order.
	UploadTextureMipsAsync(t Texture, startMip, endMip uint32, data [][]byte) ([]uint64, error)

	// IsUploadComplete reports whether the upload fence value has signaled.
	IsUploadComplete(fence uint64) bool

	// WaitForUpload blocks until the upload fence value signals.
	WaitForUpload(fence uint64)

	// WaitForIdle blocks until the device timeline has drained.
	WaitForIdle()

	// Present signals the current swapchain image is render-complete and
	// queues it for display.
	Present() types.SwapchainStatus

	// MemoryStats reports device memory usage in bytes.
	MemoryStats() (used, available uint64)

	// DeferDestroy queues a resource's backend handles for deletion once
	// the device timeline no longer references them.
	DeferDestroy(res Resource)

	// CollectGarbage drains the deferred-deletion list, releasing backend
	// handles the device timeline no longer references.
	CollectGarbage()

	// Destroy releases the device. All resources created from it must be
	// destroyed first.
	Destroy()
}

// Semaphore is a queue-to-queue synchronization primitive. On the legacy
// backend semaphores are inert placeholders.
type Semaphore interface {
	// Signaled reports whether the semaphore has been signaled since it
	// was last waited on.
	Signaled() bool
}

// Fence is a CPU-GPU synchronization primitive carrying a monotonically
// increasing value.
type Fence interface {
	// Value returns the last signaled value.
	Value() uint64

	// IsComplete reports whether the fence has reached value.
	IsComplete(value uint64) bool

	// Wait blocks until the fence reaches value.
	Wait(value uint64)
}
