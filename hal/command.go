package hal

import (
	"github.com/gogpu/rhi/types"
)

// CommandListState tracks a command list through its lifecycle.
type CommandListState uint8

const (
	// CommandListInitial is the state after creation or Reset.
	CommandListInitial CommandListState = iota
	// CommandListRecording is the state between Begin and End.
	CommandListRecording
	// CommandListExecutable is the state after End, before submission.
	CommandListExecutable
	// CommandListSubmitted is the state after queue submission.
	CommandListSubmitted
)

// String returns the state name.
func (s CommandListState) String() string {
	switch s {
	case CommandListInitial:
		return "Initial"
	case CommandListRecording:
		return "Recording"
	case CommandListExecutable:
		return "Executable"
	default:
		return "Submitted"
	}
}

// CommandList records graphics work. On the modern backend execution is
// deferred to submission; on the legacy backend each call applies
// immediately and Begin/End are bracketing no-ops.
//
// Within one list, commands execute in recording order. Across lists on
// the same queue, submission order defines execution order.
type CommandList interface {
	// Begin starts recording. Valid from Initial or Executable.
	Begin() error

	// End finishes recording. Valid from Recording.
	End() error

	// Reset returns the list to Initial from any state.
	Reset()

	// State returns the current lifecycle state.
	State() CommandListState

	// SetPipelineState binds the shaders and all fixed-function state.
	SetPipelineState(ps PipelineState)

	// SetVertexBuffers binds vertex buffers starting at startSlot.
	SetVertexBuffers(startSlot uint32, buffers []Buffer)

	// SetIndexBuffer binds the index buffer with the given element width.
	SetIndexBuffer(buf Buffer, format types.IndexFormat)

	// SetConstantBuffer binds a uniform buffer to a slot.
	SetConstantBuffer(slot uint32, buf Buffer)

	// SetShaderResource binds a texture to a slot.
	SetShaderResource(slot uint32, tex Texture)

	// SetSampler binds a sampler to a slot.
	SetSampler(slot uint32, s Sampler)

	// BindDescriptorSet binds a descriptor set at a set index. Draw calls
	// consult the currently bound sets; missing bindings surface at draw
	// time.
	BindDescriptorSet(setIndex uint32, set DescriptorSet)

	// SetViewport sets the viewport transform.
	SetViewport(vp types.Viewport)

	// SetScissorRect sets the scissor rectangle.
	SetScissorRect(rect types.ScissorRect)

	// SetRenderTargets binds color targets and an optional depth-stencil,
	// opening a render pass.
	SetRenderTargets(colors []Texture, depthStencil Texture)

	// EndRenderPass closes the active render pass.
	EndRenderPass()

	// Draw draws vertexCount vertices starting at startVertex.
	Draw(vertexCount, startVertex uint32)

	// DrawIndexed draws indexCount indices starting at startIndex, adding
	// baseVertex to each index.
	DrawIndexed(indexCount, startIndex uint32, baseVertex int32)

	// DrawInstanced draws instanceCount instances.
	DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32)

	// DrawIndexedInstanced draws instanceCount indexed instances.
	DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)

	// ClearRenderTarget clears a color target.
	ClearRenderTarget(tex Texture, color [4]float32)

	// ClearDepthStencil clears the depth and/or stencil aspects.
	ClearDepthStencil(tex Texture, clearDepth, clearStencil bool, depth float32, stencil uint8)

	// TransitionResource records a usage transition barrier. No-op on the
	// legacy backend. Barriers accumulate until ResourceBarrier.
	TransitionResource(res Resource, from, to types.BufferUsage)

	// ResourceBarrier flushes accumulated transitions.
	ResourceBarrier()

	// BeginEvent opens a named debug scope.
	BeginEvent(name string)

	// EndEvent closes the innermost debug scope.
	EndEvent()

	// SetMarker records a named debug marker.
	SetMarker(name string)
}
