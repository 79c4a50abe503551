package hal

import (
	"github.com/gogpu/rhi/types"
)

// Resource is the base interface for all GPU-visible objects. Every
// resource carries the backend tag of the device that created it, a
// debug name, and its size in bytes.
//
// Destroy releases the backend handles. The frontend calls it from the
// deferred-deletion path once the device timeline no longer references
// the resource; calling Destroy twice is undefined behavior.
type Resource interface {
	// Variant returns the backend tag of the creating device.
	Variant() types.Backend

	// DebugName returns the label given at creation, possibly empty.
	DebugName() string

	// ByteSize returns the resource size in bytes.
	ByteSize() uint64

	// Destroy releases the backend handles.
	Destroy()
}

// Buffer is a contiguous memory region accessible by the device.
type Buffer interface {
	Resource

	// Desc returns the creation descriptor.
	Desc() types.BufferDesc

	// Map returns the buffer's CPU-visible bytes. Fails with
	// ErrInvalidArgument when the buffer was not created CPUAccessible.
	// A mapped buffer cannot be submitted for device read until unmapped.
	Map() ([]byte, error)

	// Unmap ends CPU access started by Map.
	Unmap()

	// IsMapped reports whether the buffer is currently mapped.
	IsMapped() bool
}

// Texture is a multi-dimensional image with a pixel format and mip chain.
type Texture interface {
	Resource

	// Desc returns the creation descriptor.
	Desc() types.TextureDesc
}

// Sampler defines how textures are filtered and addressed.
type Sampler interface {
	Resource

	// Desc returns the creation descriptor.
	Desc() types.SamplerDesc
}

// Shader is a compiled shader of one stage.
type Shader interface {
	Resource

	// Stage returns the pipeline stage the shader runs in.
	Stage() types.ShaderStage
}

// PipelineState is the immutable collection of shaders and fixed-function
// state used by draw calls.
type PipelineState interface {
	Resource

	// Desc returns the creation descriptor.
	Desc() PipelineStateDesc
}

// DescriptorSetLayout is the schema of one descriptor set.
type DescriptorSetLayout interface {
	Resource

	// Desc returns the creation descriptor.
	Desc() types.DescriptorSetLayoutDesc
}

// PipelineLayout is the schema of all descriptor sets and push constants
// for a pipeline.
type PipelineLayout interface {
	Resource

	// Desc returns the creation descriptor.
	Desc() types.PipelineLayoutDesc
}

// DescriptorSet is an allocated instance conforming to one layout. On the
// modern backend it is a pool-allocated, per-frame object; on the legacy
// backend it is a software binding table applied at draw time.
//
// Updates are visible at the next bind; there is no implicit copy.
type DescriptorSet interface {
	Resource

	// Layout returns the layout the set conforms to.
	Layout() DescriptorSetLayout

	// UpdateUniformBuffer binds buf's [offset, offset+size) range to a
	// uniform-buffer binding.
	UpdateUniformBuffer(binding uint32, buf Buffer, offset, size uint64) error

	// UpdateTexture binds tex to a texture binding.
	UpdateTexture(binding uint32, tex Texture) error

	// UpdateSampler binds s to a sampler binding.
	UpdateSampler(binding uint32, s Sampler) error

	// UpdateCombinedTextureSampler binds a texture/sampler pair.
	UpdateCombinedTextureSampler(binding uint32, tex Texture, s Sampler) error

	// IsComplete reports whether every declared binding is populated.
	// Draw-time validation surfaces incomplete sets as errors.
	IsComplete() bool
}
