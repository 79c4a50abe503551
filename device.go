package rhi

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// Device is the frontend device: a factory for reference-counted
// resources over one backend, the owner of the immediate command list
// and the current swapchain.
//
// Factory calls are safe from any thread. The immediate command list is
// single-threaded: only the render thread may record into it.
type Device struct {
	cfg Config
	dev hal.Device

	immediate *CommandList
	swapchain atomic.Pointer[Swapchain]

	defaults DefaultTextures

	frameNumber atomic.Uint64
	lost        atomic.Bool
}

// Init selects a backend per the configuration and opens a device.
// Backends must be linked in by importing their packages.
func Init(cfg Config) (*Device, error) {
	backend, err := hal.SelectBackend(cfg.PreferredBackend)
	if err != nil {
		return nil, err
	}
	if err := backend.Probe(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	raw, err := backend.CreateDevice(&hal.DeviceDesc{
		EnableValidation:   cfg.EnableValidation,
		EnableDebugMarkers: cfg.EnableDebugMarkers,
	})
	if err != nil {
		return nil, err
	}

	d := &Device{cfg: cfg, dev: raw}
	d.immediate = newCommandList(d, raw.ImmediateCommandList())
	if err := d.createDefaultTextures(); err != nil {
		raw.Destroy()
		return nil, err
	}
	hal.Logger().Info("rhi: device initialized",
		"backend", raw.Variant().String(), "driver", raw.AdapterInfo().Driver)
	return d, nil
}

// Backend returns the device's backend tag. Higher layers use it to
// mirror backend-specific conventions (the legacy depth range and Y
// flip live in the projection helper, not here).
func (d *Device) Backend() types.Backend { return d.dev.Variant() }

// AdapterInfo describes the adapter the device runs on.
func (d *Device) AdapterInfo() types.AdapterInfo { return d.dev.AdapterInfo() }

// Config returns the configuration the device was initialized with.
func (d *Device) Config() Config { return d.cfg }

// HAL returns the backend device for hal-level integration.
func (d *Device) HAL() hal.Device { return d.dev }

// Defaults returns the built-in fallback textures.
func (d *Device) Defaults() *DefaultTextures { return &d.defaults }

// FrameNumber returns the number of frames prepared so far.
func (d *Device) FrameNumber() uint64 { return d.frameNumber.Load() }

// Lost reports whether the device has been lost.
func (d *Device) Lost() bool { return d.lost.Load() }

// markLost transitions into the lost state once, invoking the
// registered hook.
func (d *Device) markLost() {
	if d.lost.CompareAndSwap(false, true) {
		invokeDeviceLostHook()
	}
}

// CreateBuffer creates a buffer handle with one strong reference.
// Returns nil and logs on failure.
func (d *Device) CreateBuffer(desc *types.BufferDesc) (*Buffer, error) {
	raw, err := d.dev.CreateBuffer(desc)
	if err != nil {
		hal.Logger().Error("rhi: buffer creation failed", "err", err)
		return nil, err
	}
	b := &Buffer{buf: raw}
	b.resource.init(d, raw)
	return b, nil
}

// CreateTexture creates a texture handle with one strong reference.
func (d *Device) CreateTexture(desc *types.TextureDesc) (*Texture, error) {
	raw, err := d.dev.CreateTexture(desc)
	if err != nil {
		hal.Logger().Error("rhi: texture creation failed", "err", err)
		return nil, err
	}
	return d.wrapTexture(raw), nil
}

func (d *Device) wrapTexture(raw hal.Texture) *Texture {
	t := &Texture{tex: raw}
	t.resource.init(d, raw)
	return t
}

// CreateSampler creates a sampler handle.
func (d *Device) CreateSampler(desc *types.SamplerDesc) (*Sampler, error) {
	raw, err := d.dev.CreateSampler(desc)
	if err != nil {
		hal.Logger().Error("rhi: sampler creation failed", "err", err)
		return nil, err
	}
	s := &Sampler{smp: raw}
	s.resource.init(d, raw)
	return s, nil
}

// CreateVertexShader creates a vertex shader from bytecode. The modern
// backend expects SPIR-V; the legacy backend expects GLSL or WGSL
// source. Invalid bytecode returns nil with the size and magic logged.
func (d *Device) CreateVertexShader(bytecode []byte) (*Shader, error) {
	raw, err := d.dev.CreateVertexShader(bytecode)
	if err != nil {
		return nil, err
	}
	s := &Shader{sh: raw}
	s.resource.init(d, raw)
	return s, nil
}

// CreatePixelShader creates a pixel shader from bytecode.
func (d *Device) CreatePixelShader(bytecode []byte) (*Shader, error) {
	raw, err := d.dev.CreatePixelShader(bytecode)
	if err != nil {
		return nil, err
	}
	s := &Shader{sh: raw}
	s.resource.init(d, raw)
	return s, nil
}

// PipelineStateDesc is the frontend pipeline descriptor, referencing
// frontend shader handles.
type PipelineStateDesc struct {
	DebugName           string
	VertexShader        *Shader
	PixelShader         *Shader
	Topology            types.PrimitiveTopology
	Blend               types.BlendState
	Rasterizer          types.RasterizerState
	DepthStencil        types.DepthStencilState
	RenderTargetFormats []types.PixelFormat
	DepthFormat         types.PixelFormat
	VertexLayout        types.VertexInputLayout
}

// CreatePipelineState creates an immutable pipeline state object.
func (d *Device) CreatePipelineState(desc *PipelineStateDesc) (*PipelineState, error) {
	if desc == nil || desc.VertexShader == nil {
		return nil, fmt.Errorf("%w: pipeline state requires a vertex shader", ErrInvalidArgument)
	}
	halDesc := hal.PipelineStateDesc{
		DebugName:           desc.DebugName,
		VertexShader:        desc.VertexShader.sh,
		Topology:            desc.Topology,
		Blend:               desc.Blend,
		Rasterizer:          desc.Rasterizer,
		DepthStencil:        desc.DepthStencil,
		RenderTargetFormats: desc.RenderTargetFormats,
		DepthFormat:         desc.DepthFormat,
		VertexLayout:        desc.VertexLayout,
	}
	if desc.PixelShader != nil {
		halDesc.PixelShader = desc.PixelShader.sh
	}
	raw, err := d.dev.CreatePipelineState(&halDesc)
	if err != nil {
		hal.Logger().Error("rhi: pipeline state creation failed", "err", err)
		return nil, err
	}
	p := &PipelineState{ps: raw}
	p.resource.init(d, raw)
	return p, nil
}

// CreateDescriptorSetLayout creates a set layout.
func (d *Device) CreateDescriptorSetLayout(desc *types.DescriptorSetLayoutDesc) (*DescriptorSetLayout, error) {
	raw, err := d.dev.CreateDescriptorSetLayout(desc)
	if err != nil {
		hal.Logger().Error("rhi: set layout creation failed", "err", err)
		return nil, err
	}
	l := &DescriptorSetLayout{layout: raw}
	l.resource.init(d, raw)
	return l, nil
}

// CreatePipelineLayout creates a pipeline layout.
func (d *Device) CreatePipelineLayout(desc *types.PipelineLayoutDesc) (*PipelineLayout, error) {
	raw, err := d.dev.CreatePipelineLayout(desc)
	if err != nil {
		hal.Logger().Error("rhi: pipeline layout creation failed", "err", err)
		return nil, err
	}
	l := &PipelineLayout{layout: raw}
	l.resource.init(d, raw)
	return l, nil
}

// AllocateDescriptorSet allocates a set from the current per-frame
// pool. Render-thread only, inside the active frame context.
func (d *Device) AllocateDescriptorSet(layout *DescriptorSetLayout) (*DescriptorSet, error) {
	if layout == nil || !layout.Valid() {
		return nil, ErrInvalidArgument
	}
	raw, err := d.dev.AllocateDescriptorSet(layout.layout)
	if err != nil {
		return nil, err
	}
	return &DescriptorSet{set: raw}, nil
}

// CreateSwapchain creates a swapchain and makes it current.
func (d *Device) CreateSwapchain(desc *types.SwapchainDesc) (*Swapchain, error) {
	raw, err := d.dev.CreateSwapchain(desc)
	if err != nil {
		hal.Logger().Error("rhi: swapchain creation failed", "err", err)
		return nil, err
	}
	sc := newSwapchain(d, raw)
	d.swapchain.Store(sc)
	return sc, nil
}

// CurrentSwapchain returns the most recently created swapchain, or nil.
func (d *Device) CurrentSwapchain() *Swapchain { return d.swapchain.Load() }

// ImmediateCommandList returns the per-frame-rotated primary command
// list. It is owned by the frame context active for the current frame.
func (d *Device) ImmediateCommandList() *CommandList { return d.immediate }

// Submit executes a command list with explicit synchronization. The
// frame context is the usual caller.
func (d *Device) Submit(cl *CommandList, waits, signals []hal.Semaphore) error {
	if d.lost.Load() {
		return ErrDeviceLost
	}
	if err := cl.prepareSubmit(); err != nil {
		return err
	}
	err := d.dev.Submit(cl.cl, waits, signals)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDeviceLost) {
		d.markLost()
	}
	return err
}

// WaitForIdle blocks until the device timeline has drained.
func (d *Device) WaitForIdle() { d.dev.WaitForIdle() }

// Present signals the current swapchain image is render-complete and
// queues display.
func (d *Device) Present() types.SwapchainStatus {
	if d.lost.Load() {
		return types.SwapchainError
	}
	return d.dev.Present()
}

// MemoryStats reports device memory usage in bytes.
func (d *Device) MemoryStats() (used, available uint64) { return d.dev.MemoryStats() }

// CollectGarbage drains the deferred-deletion list.
func (d *Device) CollectGarbage() { d.dev.CollectGarbage() }

// deferDestroy queues backend handles of a dead resource.
func (d *Device) deferDestroy(raw hal.Resource) {
	d.dev.DeferDestroy(raw)
}

// Destroy releases the default textures and the device.
func (d *Device) Destroy() {
	d.defaults.release()
	d.dev.Destroy()
}
