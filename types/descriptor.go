package types

// DescriptorType is the kind of resource a binding accepts.
type DescriptorType uint8

const (
	// DescriptorUniformBuffer binds a uniform (constant) buffer.
	DescriptorUniformBuffer DescriptorType = iota
	// DescriptorStorageBuffer binds a read-write storage buffer.
	DescriptorStorageBuffer
	// DescriptorTexture binds a sampled texture.
	DescriptorTexture
	// DescriptorStorageTexture binds a read-write storage texture.
	DescriptorStorageTexture
	// DescriptorSampler binds a sampler.
	DescriptorSampler
	// DescriptorCombinedTextureSampler binds a texture and sampler pair.
	DescriptorCombinedTextureSampler
	// DescriptorInputAttachment binds a render-pass input attachment.
	DescriptorInputAttachment
)

// String returns the descriptor type name.
func (t DescriptorType) String() string {
	switch t {
	case DescriptorUniformBuffer:
		return "UniformBuffer"
	case DescriptorStorageBuffer:
		return "StorageBuffer"
	case DescriptorTexture:
		return "Texture"
	case DescriptorStorageTexture:
		return "StorageTexture"
	case DescriptorSampler:
		return "Sampler"
	case DescriptorCombinedTextureSampler:
		return "CombinedTextureSampler"
	case DescriptorInputAttachment:
		return "InputAttachment"
	default:
		return "Unknown"
	}
}

// ShaderStage is a bitset of pipeline stages.
type ShaderStage uint32

const (
	// StageVertex is the vertex shader stage.
	StageVertex ShaderStage = 1 << iota
	// StagePixel is the pixel (fragment) shader stage.
	StagePixel
	// StageCompute is the compute shader stage.
	StageCompute
)

// DescriptorSetLayoutBinding describes one binding slot in a set layout.
type DescriptorSetLayoutBinding struct {
	// Binding is the shader binding index within the set.
	Binding uint32
	// Type is the resource kind the slot accepts.
	Type DescriptorType
	// Count is the array size of the binding; at least 1.
	Count uint32
	// VisibleStages are the stages that can read the binding.
	VisibleStages ShaderStage
}

// DescriptorSetLayoutDesc describes a full set layout.
type DescriptorSetLayoutDesc struct {
	// DebugName is an optional label for tooling and logs.
	DebugName string
	// SetIndex is the set slot the layout occupies in a pipeline layout.
	SetIndex uint32
	// Bindings describe each binding slot.
	Bindings []DescriptorSetLayoutBinding
}

// PushConstantRange describes a push-constant block.
type PushConstantRange struct {
	// Offset in bytes from the start of push-constant storage.
	Offset uint32
	// Size in bytes.
	Size uint32
	// VisibleStages are the stages that can read the range.
	VisibleStages ShaderStage
}

// PipelineLayoutDesc lists the set layouts and push constants a
// pipeline uses. SetLayouts is indexed by set index.
type PipelineLayoutDesc struct {
	// DebugName is an optional label for tooling and logs.
	DebugName string
	// SetLayouts are the set layout descriptions, indexed by SetIndex.
	SetLayouts []DescriptorSetLayoutDesc
	// PushConstants are the push-constant ranges.
	PushConstants []PushConstantRange
}

// Conventional set indices for PBR-class workloads: set 0 holds
// per-frame data, set 1 per-material data, set 2 per-object data.
const (
	SetPerFrame    = 0
	SetPerMaterial = 1
	SetPerObject   = 2
)
