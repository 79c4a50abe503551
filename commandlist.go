package rhi

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// CommandList is the validated frontend over a backend command list.
// It enforces the lifecycle state machine (Initial → Recording →
// Executable → Submitted, with Reset back to Initial) and the
// render-pass bracketing rules before delegating, and it shared-owns
// every resource recorded into it until the next Reset.
type CommandList struct {
	device *Device
	cl     hal.CommandList

	renderPassActive bool
	retained         []retainable
}

func newCommandList(d *Device, raw hal.CommandList) *CommandList {
	return &CommandList{device: d, cl: raw}
}

// HAL returns the backend command list.
func (c *CommandList) HAL() hal.CommandList { return c.cl }

// State returns the lifecycle state.
func (c *CommandList) State() hal.CommandListState { return c.cl.State() }

// retain shared-owns a resource for the duration of the recording.
func (c *CommandList) retain(r retainable) {
	if r == nil {
		return
	}
	if r.tryRetain() {
		c.retained = append(c.retained, r)
	}
}

// releaseRetained drops the frame's shared ownership.
func (c *CommandList) releaseRetained() {
	for _, r := range c.retained {
		r.Release()
	}
	c.retained = c.retained[:0]
}

// Begin starts recording. Valid from Initial or Executable.
func (c *CommandList) Begin() error {
	s := c.cl.State()
	if s != hal.CommandListInitial && s != hal.CommandListExecutable {
		hal.Logger().Error("rhi: Begin from invalid state", "category", "commandlist", "state", s.String())
		return ErrValidationFailed
	}
	c.renderPassActive = false
	return c.cl.Begin()
}

// End finishes recording. Valid from Recording.
func (c *CommandList) End() error {
	if c.cl.State() != hal.CommandListRecording {
		hal.Logger().Error("rhi: End without Begin", "category", "commandlist")
		return ErrValidationFailed
	}
	if c.renderPassActive {
		c.EndRenderPass()
	}
	return c.cl.End()
}

// Reset returns the list to Initial from any state and drops the shared
// ownership taken during recording.
func (c *CommandList) Reset() {
	c.releaseRetained()
	c.renderPassActive = false
	c.cl.Reset()
}

// prepareSubmit validates the submission precondition for Device.Submit.
func (c *CommandList) prepareSubmit() error {
	if c.cl.State() != hal.CommandListExecutable {
		hal.Logger().Error("rhi: submit of non-executable command list",
			"category", "commandlist", "state", c.cl.State().String())
		return ErrValidationFailed
	}
	return nil
}

// recording gates state-setting calls on the Recording state.
func (c *CommandList) recording(op string) bool {
	if c.cl.State() != hal.CommandListRecording {
		hal.Logger().Warn("rhi: command outside Begin/End ignored", "category", "commandlist", "op", op)
		return false
	}
	return true
}

// drawable gates draw/clear calls: Recording plus an open render pass.
func (c *CommandList) drawable(op string) bool {
	if !c.recording(op) {
		return false
	}
	if !c.renderPassActive {
		hal.Logger().Error("rhi: draw without render target bound", "category", "commandlist", "op", op)
		return false
	}
	return true
}

// SetPipelineState binds shaders and all fixed-function state.
func (c *CommandList) SetPipelineState(ps *PipelineState) {
	if !c.recording("SetPipelineState") || ps == nil {
		return
	}
	c.retain(ps)
	c.cl.SetPipelineState(ps.ps)
}

// SetVertexBuffers binds vertex buffers starting at startSlot.
func (c *CommandList) SetVertexBuffers(startSlot uint32, buffers []*Buffer) {
	if !c.recording("SetVertexBuffers") {
		return
	}
	raw := make([]hal.Buffer, len(buffers))
	for i, b := range buffers {
		if b == nil {
			continue
		}
		c.retain(b)
		raw[i] = b.buf
	}
	c.cl.SetVertexBuffers(startSlot, raw)
}

// SetIndexBuffer binds the index buffer. is32Bit selects the index
// width.
func (c *CommandList) SetIndexBuffer(buf *Buffer, is32Bit bool) {
	if !c.recording("SetIndexBuffer") || buf == nil {
		return
	}
	c.retain(buf)
	format := types.IndexFormatUint16
	if is32Bit {
		format = types.IndexFormatUint32
	}
	c.cl.SetIndexBuffer(buf.buf, format)
}

// SetConstantBuffer binds a uniform buffer to a slot.
func (c *CommandList) SetConstantBuffer(slot uint32, buf *Buffer) {
	if !c.recording("SetConstantBuffer") || buf == nil {
		return
	}
	c.retain(buf)
	c.cl.SetConstantBuffer(slot, buf.buf)
}

// SetShaderResource binds a texture to a slot. A nil texture binds the
// checkerboard fallback so the miss is visible instead of fatal.
func (c *CommandList) SetShaderResource(slot uint32, tex *Texture) {
	if !c.recording("SetShaderResource") {
		return
	}
	if tex == nil || !tex.Valid() {
		tex = c.device.defaults.Checkerboard
	}
	c.retain(tex)
	c.cl.SetShaderResource(slot, tex.tex)
}

// SetSampler binds a sampler to a slot.
func (c *CommandList) SetSampler(slot uint32, smp *Sampler) {
	if !c.recording("SetSampler") || smp == nil {
		return
	}
	c.retain(smp)
	c.cl.SetSampler(slot, smp.smp)
}

// BindDescriptorSet binds a descriptor set at a set index.
func (c *CommandList) BindDescriptorSet(setIndex uint32, set *DescriptorSet) {
	if !c.recording("BindDescriptorSet") || set == nil {
		return
	}
	c.cl.BindDescriptorSet(setIndex, set.set)
}

// SetViewport sets the viewport transform.
func (c *CommandList) SetViewport(vp types.Viewport) {
	if !c.recording("SetViewport") {
		return
	}
	c.cl.SetViewport(vp)
}

// SetScissorRect sets the scissor rectangle.
func (c *CommandList) SetScissorRect(rect types.ScissorRect) {
	if !c.recording("SetScissorRect") {
		return
	}
	c.cl.SetScissorRect(rect)
}

// SetRenderTargets binds color targets and an optional depth-stencil,
// opening a render pass.
func (c *CommandList) SetRenderTargets(colors []*Texture, depthStencil *Texture) {
	if !c.recording("SetRenderTargets") {
		return
	}
	raw := make([]hal.Texture, len(colors))
	for i, t := range colors {
		if t == nil {
			continue
		}
		c.retain(t)
		raw[i] = t.tex
	}
	var depth hal.Texture
	if depthStencil != nil {
		c.retain(depthStencil)
		depth = depthStencil.tex
	}
	c.renderPassActive = true
	c.cl.SetRenderTargets(raw, depth)
}

// EndRenderPass closes the active render pass.
func (c *CommandList) EndRenderPass() {
	if !c.renderPassActive {
		return
	}
	c.renderPassActive = false
	c.cl.EndRenderPass()
}

// Draw draws vertexCount vertices starting at startVertex.
func (c *CommandList) Draw(vertexCount, startVertex uint32) {
	if !c.drawable("Draw") {
		return
	}
	c.cl.Draw(vertexCount, startVertex)
}

// DrawIndexed draws indexCount indices.
func (c *CommandList) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	if !c.drawable("DrawIndexed") {
		return
	}
	c.cl.DrawIndexed(indexCount, startIndex, baseVertex)
}

// DrawInstanced draws instanceCount instances.
func (c *CommandList) DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32) {
	if !c.drawable("DrawInstanced") {
		return
	}
	c.cl.DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance)
}

// DrawIndexedInstanced draws instanceCount indexed instances.
func (c *CommandList) DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	if !c.drawable("DrawIndexedInstanced") {
		return
	}
	c.cl.DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex, baseVertex, startInstance)
}

// ClearRenderTarget clears a color target.
func (c *CommandList) ClearRenderTarget(tex *Texture, color [4]float32) {
	if !c.drawable("ClearRenderTarget") || tex == nil {
		return
	}
	c.retain(tex)
	c.cl.ClearRenderTarget(tex.tex, color)
}

// ClearDepthStencil clears the depth and/or stencil aspects.
func (c *CommandList) ClearDepthStencil(tex *Texture, clearDepth, clearStencil bool, depth float32, stencil uint8) {
	if !c.drawable("ClearDepthStencil") || tex == nil {
		return
	}
	c.retain(tex)
	c.cl.ClearDepthStencil(tex.tex, clearDepth, clearStencil, depth, stencil)
}

// TransitionResource records a usage transition barrier. Invalid inside
// a render pass.
func (c *CommandList) TransitionResource(tex *Texture, from, to types.BufferUsage) {
	if !c.recording("TransitionResource") || tex == nil {
		return
	}
	if c.renderPassActive {
		hal.Logger().Error("rhi: transition inside render pass", "category", "commandlist")
		return
	}
	c.retain(tex)
	c.cl.TransitionResource(tex.tex, from, to)
}

// ResourceBarrier flushes accumulated transitions.
func (c *CommandList) ResourceBarrier() {
	if !c.recording("ResourceBarrier") {
		return
	}
	c.cl.ResourceBarrier()
}

// BeginEvent opens a named debug scope.
func (c *CommandList) BeginEvent(name string) { c.cl.BeginEvent(name) }

// EndEvent closes the innermost debug scope.
func (c *CommandList) EndEvent() { c.cl.EndEvent() }

// SetMarker records a named debug marker.
func (c *CommandList) SetMarker(name string) { c.cl.SetMarker(name) }
