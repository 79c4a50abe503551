package modern

import (
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// execState is the mutable state a command list's operations run
// against during submission.
type execState struct {
	device           *Device
	pipeline         hal.PipelineState
	boundSets        map[uint32]hal.DescriptorSet
	renderPassActive bool
	pendingBarriers  int

	drawCalls  uint64
	clearCalls uint64
}

// op is one recorded command.
type op func(*execState)

// CommandList records operations for deferred execution on submission.
// Recording is single-threaded by contract: only the render thread
// records into the immediate command list.
type CommandList struct {
	device *Device
	state  hal.CommandListState
	ops    []op

	// recordPass mirrors render-pass bracketing at record time so
	// validation can reject malformed recording before submission.
	recordPass bool
	eventDepth int
	markersOn  bool
}

func newCommandList(d *Device) *CommandList {
	return &CommandList{device: d, markersOn: d.desc.EnableDebugMarkers}
}

// State implements hal.CommandList.
func (c *CommandList) State() hal.CommandListState { return c.state }

// Begin implements hal.CommandList.
func (c *CommandList) Begin() error {
	if c.state != hal.CommandListInitial && c.state != hal.CommandListExecutable {
		return hal.ErrValidationFailed
	}
	c.ops = c.ops[:0]
	c.recordPass = false
	c.state = hal.CommandListRecording
	return nil
}

// End implements hal.CommandList.
func (c *CommandList) End() error {
	if c.state != hal.CommandListRecording {
		return hal.ErrValidationFailed
	}
	if c.recordPass {
		// Close a render pass the recorder forgot to end.
		c.EndRenderPass()
	}
	c.state = hal.CommandListExecutable
	return nil
}

// Reset implements hal.CommandList.
func (c *CommandList) Reset() {
	c.ops = c.ops[:0]
	c.recordPass = false
	c.eventDepth = 0
	c.state = hal.CommandListInitial
}

// record appends an operation while in the recording state.
func (c *CommandList) record(f op) {
	if c.state != hal.CommandListRecording {
		hal.Logger().Warn("modern: command recorded outside Begin/End, dropped")
		return
	}
	c.ops = append(c.ops, f)
}

// execute runs the recorded operations. Called by Device.Submit.
func (c *CommandList) execute() execState {
	st := execState{device: c.device, boundSets: make(map[uint32]hal.DescriptorSet)}
	for _, f := range c.ops {
		f(&st)
	}
	return st
}

// SetPipelineState implements hal.CommandList.
func (c *CommandList) SetPipelineState(ps hal.PipelineState) {
	c.record(func(st *execState) { st.pipeline = ps })
}

// SetVertexBuffers implements hal.CommandList.
func (c *CommandList) SetVertexBuffers(startSlot uint32, buffers []hal.Buffer) {
	bufs := append([]hal.Buffer(nil), buffers...)
	c.record(func(st *execState) {
		for _, b := range bufs {
			st.device.checkNotMapped(b)
		}
	})
}

// SetIndexBuffer implements hal.CommandList.
func (c *CommandList) SetIndexBuffer(buf hal.Buffer, format types.IndexFormat) {
	c.record(func(st *execState) { st.device.checkNotMapped(buf) })
}

// SetConstantBuffer implements hal.CommandList.
func (c *CommandList) SetConstantBuffer(slot uint32, buf hal.Buffer) {
	c.record(func(st *execState) { st.device.checkNotMapped(buf) })
}

// SetShaderResource implements hal.CommandList.
func (c *CommandList) SetShaderResource(slot uint32, tex hal.Texture) {
	c.record(func(st *execState) {})
}

// SetSampler implements hal.CommandList.
func (c *CommandList) SetSampler(slot uint32, s hal.Sampler) {
	c.record(func(st *execState) {})
}

// BindDescriptorSet implements hal.CommandList.
func (c *CommandList) BindDescriptorSet(setIndex uint32, set hal.DescriptorSet) {
	c.record(func(st *execState) { st.boundSets[setIndex] = set })
}

// SetViewport implements hal.CommandList.
func (c *CommandList) SetViewport(vp types.Viewport) {
	c.record(func(st *execState) {})
}

// SetScissorRect implements hal.CommandList.
func (c *CommandList) SetScissorRect(rect types.ScissorRect) {
	c.record(func(st *execState) {})
}

// SetRenderTargets implements hal.CommandList. Opens a render pass.
func (c *CommandList) SetRenderTargets(colors []hal.Texture, depthStencil hal.Texture) {
	c.recordPass = true
	c.record(func(st *execState) { st.renderPassActive = true })
}

// EndRenderPass implements hal.CommandList.
func (c *CommandList) EndRenderPass() {
	c.recordPass = false
	c.record(func(st *execState) { st.renderPassActive = false })
}

// validateDraw surfaces draw-time errors: no pass, or an incomplete
// descriptor set bound.
func (st *execState) validateDraw() bool {
	if !st.renderPassActive {
		hal.Logger().Error("modern: draw outside render pass")
		return false
	}
	for setIndex, set := range st.boundSets {
		if set != nil && !set.IsComplete() {
			hal.Logger().Error("modern: draw with incomplete descriptor set",
				"category", "descriptor", "set", setIndex)
			return false
		}
	}
	return true
}

// Draw implements hal.CommandList.
func (c *CommandList) Draw(vertexCount, startVertex uint32) {
	c.record(func(st *execState) {
		if st.validateDraw() {
			st.drawCalls++
		}
	})
}

// DrawIndexed implements hal.CommandList.
func (c *CommandList) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	c.record(func(st *execState) {
		if st.validateDraw() {
			st.drawCalls++
		}
	})
}

// DrawInstanced implements hal.CommandList.
func (c *CommandList) DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32) {
	c.record(func(st *execState) {
		if st.validateDraw() {
			st.drawCalls++
		}
	})
}

// DrawIndexedInstanced implements hal.CommandList.
func (c *CommandList) DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	c.record(func(st *execState) {
		if st.validateDraw() {
			st.drawCalls++
		}
	})
}

// ClearRenderTarget implements hal.CommandList.
func (c *CommandList) ClearRenderTarget(tex hal.Texture, color [4]float32) {
	c.record(func(st *execState) { st.clearCalls++ })
}

// ClearDepthStencil implements hal.CommandList.
func (c *CommandList) ClearDepthStencil(tex hal.Texture, clearDepth, clearStencil bool, depth float32, stencil uint8) {
	c.record(func(st *execState) { st.clearCalls++ })
}

// TransitionResource implements hal.CommandList. Transitions accumulate
// until ResourceBarrier flushes them; recording one inside a render pass
// is invalid.
func (c *CommandList) TransitionResource(res hal.Resource, from, to types.BufferUsage) {
	c.record(func(st *execState) {
		if st.renderPassActive {
			hal.Logger().Error("modern: resource transition inside render pass")
			return
		}
		st.pendingBarriers++
	})
}

// ResourceBarrier implements hal.CommandList.
func (c *CommandList) ResourceBarrier() {
	c.record(func(st *execState) { st.pendingBarriers = 0 })
}

// BeginEvent implements hal.CommandList.
func (c *CommandList) BeginEvent(name string) {
	if !c.markersOn {
		return
	}
	c.eventDepth++
	c.record(func(st *execState) {
		hal.Logger().Debug("modern: begin event", "name", name)
	})
}

// EndEvent implements hal.CommandList.
func (c *CommandList) EndEvent() {
	if !c.markersOn {
		return
	}
	if c.eventDepth > 0 {
		c.eventDepth--
	}
	c.record(func(st *execState) {
		hal.Logger().Debug("modern: end event")
	})
}

// SetMarker implements hal.CommandList.
func (c *CommandList) SetMarker(name string) {
	if !c.markersOn {
		return
	}
	c.record(func(st *execState) {
		hal.Logger().Debug("modern: marker", "name", name)
	})
}
