package legacy

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// CommandList is the immediate-mode command list: every operation
// applies to the device state table as it is called. Begin/End are
// bracketing no-ops kept for the common contract; invalid record-time
// states become warn-logged no-ops rather than errors.
type CommandList struct {
	device *Device
	state  hal.CommandListState

	pipeline         hal.PipelineState
	boundSets        map[uint32]hal.DescriptorSet
	renderPassActive bool

	drawCalls  uint64
	clearCalls uint64
	eventDepth int
}

func newCommandList(d *Device) *CommandList {
	return &CommandList{device: d, boundSets: make(map[uint32]hal.DescriptorSet)}
}

// State implements hal.CommandList.
func (c *CommandList) State() hal.CommandListState { return c.state }

// Begin implements hal.CommandList. A bracketing no-op beyond the state
// transition.
func (c *CommandList) Begin() error {
	if c.state == hal.CommandListRecording {
		hal.Logger().Warn("legacy: Begin while already recording")
		return nil
	}
	c.state = hal.CommandListRecording
	return nil
}

// End implements hal.CommandList.
func (c *CommandList) End() error {
	if c.state != hal.CommandListRecording {
		hal.Logger().Warn("legacy: End without Begin")
		return nil
	}
	if c.renderPassActive {
		c.EndRenderPass()
	}
	c.state = hal.CommandListExecutable
	return nil
}

// Reset implements hal.CommandList.
func (c *CommandList) Reset() {
	c.state = hal.CommandListInitial
	c.pipeline = nil
	c.boundSets = make(map[uint32]hal.DescriptorSet)
	c.renderPassActive = false
	c.eventDepth = 0
}

// recording reports whether state-setting calls are legal right now;
// illegal calls are dropped with a warning, the immediate-mode policy.
func (c *CommandList) recording(opName string) bool {
	if c.state != hal.CommandListRecording {
		hal.Logger().Warn("legacy: operation outside Begin/End, ignored", "op", opName)
		return false
	}
	return true
}

// SetPipelineState implements hal.CommandList: the whole fixed-function
// block applies immediately.
func (c *CommandList) SetPipelineState(ps hal.PipelineState) {
	if !c.recording("SetPipelineState") {
		return
	}
	c.pipeline = ps
}

// SetVertexBuffers implements hal.CommandList.
func (c *CommandList) SetVertexBuffers(startSlot uint32, buffers []hal.Buffer) {
	if !c.recording("SetVertexBuffers") {
		return
	}
	for _, b := range buffers {
		c.device.checkNotMapped(b)
	}
}

// SetIndexBuffer implements hal.CommandList.
func (c *CommandList) SetIndexBuffer(buf hal.Buffer, format types.IndexFormat) {
	if !c.recording("SetIndexBuffer") {
		return
	}
	c.device.checkNotMapped(buf)
}

// SetConstantBuffer implements hal.CommandList.
func (c *CommandList) SetConstantBuffer(slot uint32, buf hal.Buffer) {
	if !c.recording("SetConstantBuffer") {
		return
	}
	c.device.checkNotMapped(buf)
}

// SetShaderResource implements hal.CommandList.
func (c *CommandList) SetShaderResource(slot uint32, tex hal.Texture) {
	c.recording("SetShaderResource")
}

// SetSampler implements hal.CommandList.
func (c *CommandList) SetSampler(slot uint32, s hal.Sampler) {
	c.recording("SetSampler")
}

// BindDescriptorSet implements hal.CommandList: the binding table is
// remembered and applied at draw time.
func (c *CommandList) BindDescriptorSet(setIndex uint32, set hal.DescriptorSet) {
	if !c.recording("BindDescriptorSet") {
		return
	}
	c.boundSets[setIndex] = set
}

// SetViewport implements hal.CommandList.
func (c *CommandList) SetViewport(vp types.Viewport) {
	c.recording("SetViewport")
}

// SetScissorRect implements hal.CommandList.
func (c *CommandList) SetScissorRect(rect types.ScissorRect) {
	c.recording("SetScissorRect")
}

// SetRenderTargets implements hal.CommandList.
func (c *CommandList) SetRenderTargets(colors []hal.Texture, depthStencil hal.Texture) {
	if !c.recording("SetRenderTargets") {
		return
	}
	c.renderPassActive = true
}

// EndRenderPass implements hal.CommandList.
func (c *CommandList) EndRenderPass() {
	c.renderPassActive = false
}

// applyBindings resolves the deferred binding tables; a draw with an
// incomplete table is dropped with a warning.
func (c *CommandList) applyBindings() bool {
	if !c.renderPassActive {
		hal.Logger().Warn("legacy: draw outside render pass, ignored")
		return false
	}
	for setIndex, set := range c.boundSets {
		if set != nil && !set.IsComplete() {
			hal.Logger().Warn("legacy: draw with incomplete descriptor set, ignored",
				"category", "descriptor", "set", setIndex)
			return false
		}
	}
	return true
}

// Draw implements hal.CommandList.
func (c *CommandList) Draw(vertexCount, startVertex uint32) {
	if !c.recording("Draw") || !c.applyBindings() {
		return
	}
	c.drawCalls++
}

// DrawIndexed implements hal.CommandList.
func (c *CommandList) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	if !c.recording("DrawIndexed") || !c.applyBindings() {
		return
	}
	c.drawCalls++
}

// DrawInstanced implements hal.CommandList.
func (c *CommandList) DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32) {
	if !c.recording("DrawInstanced") || !c.applyBindings() {
		return
	}
	c.drawCalls++
}

// DrawIndexedInstanced implements hal.CommandList.
func (c *CommandList) DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	if !c.recording("DrawIndexedInstanced") || !c.applyBindings() {
		return
	}
	c.drawCalls++
}

// ClearRenderTarget implements hal.CommandList.
func (c *CommandList) ClearRenderTarget(tex hal.Texture, color [4]float32) {
	if !c.recording("ClearRenderTarget") {
		return
	}
	c.clearCalls++
}

// ClearDepthStencil implements hal.CommandList.
func (c *CommandList) ClearDepthStencil(tex hal.Texture, clearDepth, clearStencil bool, depth float32, stencil uint8) {
	if !c.recording("ClearDepthStencil") {
		return
	}
	c.clearCalls++
}

// TransitionResource implements hal.CommandList. The immediate-mode API
// synchronizes implicitly, so transitions are no-ops.
func (c *CommandList) TransitionResource(res hal.Resource, from, to types.BufferUsage) {}

// ResourceBarrier implements hal.CommandList. No-op.
func (c *CommandList) ResourceBarrier() {}

// BeginEvent implements hal.CommandList.
func (c *CommandList) BeginEvent(name string) {
	if !c.device.desc.EnableDebugMarkers {
		return
	}
	c.eventDepth++
	hal.Logger().Debug("legacy: begin event", "name", name)
}

// EndEvent implements hal.CommandList.
func (c *CommandList) EndEvent() {
	if !c.device.desc.EnableDebugMarkers {
		return
	}
	if c.eventDepth > 0 {
		c.eventDepth--
	}
	hal.Logger().Debug("legacy: end event")
}

// SetMarker implements hal.CommandList.
func (c *CommandList) SetMarker(name string) {
	if !c.device.desc.EnableDebugMarkers {
		return
	}
	hal.Logger().Debug("legacy: marker", "name", name)
}

// DrawCallCount reports draws executed since creation.
func (c *CommandList) DrawCallCount() uint64 { return c.drawCalls }
