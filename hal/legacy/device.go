package legacy

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// deviceLocalBudget is the advertised memory budget for stats.
const deviceLocalBudget = 1 << 30

// Device implements hal.Device for the immediate-mode backend. There is
// no deferred execution: uploads happen inline and fence values are
// complete the moment they are handed out.
type Device struct {
	desc hal.DeviceDesc
	info types.AdapterInfo

	committedBytes atomic.Uint64
	deviceLost     atomic.Bool

	immediate *CommandList

	swapchainMu sync.Mutex
	swapchain   *Swapchain

	// uploadCounter hands out pre-signaled fence values.
	uploadCounter atomic.Uint64

	garbageMu sync.Mutex
	garbage   []hal.Resource
}

func newDevice(desc hal.DeviceDesc, info types.AdapterInfo) *Device {
	d := &Device{desc: desc, info: info}
	d.immediate = newCommandList(d)
	return d
}

// Variant implements hal.Device.
func (d *Device) Variant() types.Backend { return types.BackendLegacy }

// AdapterInfo implements hal.Device.
func (d *Device) AdapterInfo() types.AdapterInfo { return d.info }

func (d *Device) commitBytes(n uint64)  { d.committedBytes.Add(n) }
func (d *Device) releaseBytes(n uint64) { d.committedBytes.Add(^(n) + 1) }

func (d *Device) checkNotMapped(b hal.Buffer) {
	if b != nil && b.IsMapped() {
		hal.Logger().Warn("legacy: mapped buffer bound for device read",
			"category", "validation", "buffer", b.DebugName())
	}
}

// CreateBuffer implements hal.Device.
func (d *Device) CreateBuffer(desc *types.BufferDesc) (hal.Buffer, error) {
	if desc == nil || desc.Size == 0 {
		return nil, fmt.Errorf("%w: buffer size must be non-zero", hal.ErrInvalidArgument)
	}
	if d.deviceLost.Load() {
		return nil, hal.ErrDeviceLost
	}
	b := &Buffer{device: d, desc: *desc}
	b.data = make([]byte, desc.Size)
	d.commitBytes(desc.Size)
	return b, nil
}

// CreateTexture implements hal.Device.
func (d *Device) CreateTexture(desc *types.TextureDesc) (hal.Texture, error) {
	if d.deviceLost.Load() {
		return nil, hal.ErrDeviceLost
	}
	return d.createTexture(desc)
}

func (d *Device) createTexture(desc *types.TextureDesc) (*Texture, error) {
	if desc == nil || desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: texture dimensions must be non-zero", hal.ErrInvalidArgument)
	}
	if desc.Format == types.FormatUnknown {
		return nil, fmt.Errorf("%w: texture format must be known", hal.ErrInvalidArgument)
	}
	cp := *desc
	if cp.MipLevels == 0 {
		cp.MipLevels = 1
	}
	if cp.ArraySize == 0 {
		cp.ArraySize = 1
	}
	if cp.Depth == 0 {
		cp.Depth = 1
	}
	if cp.Width > d.info.MaxTextureDimension || cp.Height > d.info.MaxTextureDimension {
		return nil, fmt.Errorf("%w: texture %dx%d exceeds limit %d",
			hal.ErrInvalidArgument, cp.Width, cp.Height, d.info.MaxTextureDimension)
	}

	t := &Texture{device: d, desc: cp}
	t.mipData = make([][]byte, cp.MipLevels)
	if cp.InitialData != nil {
		t.commitMip(0, cp.InitialData)
	}
	return t, nil
}

// CreateSampler implements hal.Device.
func (d *Device) CreateSampler(desc *types.SamplerDesc) (hal.Sampler, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil sampler descriptor", hal.ErrInvalidArgument)
	}
	return &Sampler{desc: *desc}, nil
}

// CreateVertexShader implements hal.Device.
func (d *Device) CreateVertexShader(bytecode []byte) (hal.Shader, error) {
	source, err := compileShaderSource(bytecode, types.StageVertex)
	if err != nil {
		return nil, err
	}
	return &Shader{stage: types.StageVertex, source: source}, nil
}

// CreatePixelShader implements hal.Device.
func (d *Device) CreatePixelShader(bytecode []byte) (hal.Shader, error) {
	source, err := compileShaderSource(bytecode, types.StagePixel)
	if err != nil {
		return nil, err
	}
	return &Shader{stage: types.StagePixel, source: source}, nil
}

// CreatePipelineState implements hal.Device.
func (d *Device) CreatePipelineState(desc *hal.PipelineStateDesc) (hal.PipelineState, error) {
	if desc == nil || desc.VertexShader == nil {
		return nil, fmt.Errorf("%w: pipeline state requires a vertex shader", hal.ErrInvalidArgument)
	}
	cp := *desc
	cp.RenderTargetFormats = append([]types.PixelFormat(nil), desc.RenderTargetFormats...)
	if cp.VertexLayout.Stride == 0 {
		cp.VertexLayout.Stride = types.CalculateStride(cp.VertexLayout.Attributes)
	}
	return &PipelineState{desc: cp}, nil
}

// CreateDescriptorSetLayout implements hal.Device.
func (d *Device) CreateDescriptorSetLayout(desc *types.DescriptorSetLayoutDesc) (hal.DescriptorSetLayout, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil set layout descriptor", hal.ErrInvalidArgument)
	}
	seen := make(map[uint32]bool, len(desc.Bindings))
	for _, b := range desc.Bindings {
		if seen[b.Binding] {
			return nil, fmt.Errorf("%w: duplicate binding %d in set %d",
				hal.ErrInvalidArgument, b.Binding, desc.SetIndex)
		}
		seen[b.Binding] = true
	}
	cp := *desc
	cp.Bindings = append([]types.DescriptorSetLayoutBinding(nil), desc.Bindings...)
	return &DescriptorSetLayout{desc: cp}, nil
}

// CreatePipelineLayout implements hal.Device.
func (d *Device) CreatePipelineLayout(desc *types.PipelineLayoutDesc) (hal.PipelineLayout, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil pipeline layout descriptor", hal.ErrInvalidArgument)
	}
	cp := *desc
	cp.SetLayouts = append([]types.DescriptorSetLayoutDesc(nil), desc.SetLayouts...)
	cp.PushConstants = append([]types.PushConstantRange(nil), desc.PushConstants...)
	return &PipelineLayout{desc: cp}, nil
}

// AllocateDescriptorSet implements hal.Device: a lightweight binding
// tracker, no pooling.
func (d *Device) AllocateDescriptorSet(layout hal.DescriptorSetLayout) (hal.DescriptorSet, error) {
	l, ok := layout.(*DescriptorSetLayout)
	if !ok || l == nil {
		return nil, fmt.Errorf("%w: layout from wrong backend", hal.ErrInvalidArgument)
	}
	return newDescriptorSet(l), nil
}

// ResetFramePool implements hal.Device. Nothing is pooled.
func (d *Device) ResetFramePool(slot uint32) {}

// CreateSwapchain implements hal.Device.
func (d *Device) CreateSwapchain(desc *types.SwapchainDesc) (hal.Swapchain, error) {
	if desc == nil || desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: swapchain dimensions must be non-zero", hal.ErrInvalidArgument)
	}
	sc := newSwapchain(d, *desc)
	d.swapchainMu.Lock()
	d.swapchain = sc
	d.swapchainMu.Unlock()
	return sc, nil
}

// CurrentSwapchain implements hal.Device.
func (d *Device) CurrentSwapchain() hal.Swapchain {
	d.swapchainMu.Lock()
	defer d.swapchainMu.Unlock()
	if d.swapchain == nil {
		return nil
	}
	return d.swapchain
}

// ImmediateCommandList implements hal.Device.
func (d *Device) ImmediateCommandList() hal.CommandList { return d.immediate }

// Submit implements hal.Device. Work already executed immediately, so
// submission only completes the state machine.
func (d *Device) Submit(cl hal.CommandList, waits, signals []hal.Semaphore) error {
	if d.deviceLost.Load() {
		return hal.ErrDeviceLost
	}
	c, ok := cl.(*CommandList)
	if !ok {
		return fmt.Errorf("%w: command list from wrong backend", hal.ErrInvalidArgument)
	}
	if c.state == hal.CommandListExecutable {
		c.state = hal.CommandListSubmitted
	}
	return nil
}

// UploadTextureMips implements hal.Device.
func (d *Device) UploadTextureMips(t hal.Texture, startMip, endMip uint32, data [][]byte) error {
	tex, ok := t.(*Texture)
	if !ok {
		return fmt.Errorf("%w: texture from wrong backend", hal.ErrInvalidArgument)
	}
	if startMip >= endMip || endMip > tex.desc.MipLevels {
		return fmt.Errorf("%w: mip range [%d,%d) invalid for texture with %d mips",
			hal.ErrInvalidArgument, startMip, endMip, tex.desc.MipLevels)
	}
	if uint32(len(data)) != endMip-startMip {
		return fmt.Errorf("%w: %d data slices for %d mips",
			hal.ErrInvalidArgument, len(data), endMip-startMip)
	}
	for mip := startMip; mip < endMip; mip++ {
		tex.commitMip(mip, data[mip-startMip])
	}
	return nil
}

// UploadTextureMipsAsync implements hal.Device. The immediate-mode path
// uploads inline; the returned fence values are already complete.
func (d *Device) UploadTextureMipsAsync(t hal.Texture, startMip, endMip uint32, data [][]byte) ([]uint64, error) {
	if err := d.UploadTextureMips(t, startMip, endMip, data); err != nil {
		return nil, err
	}
	fences := make([]uint64, endMip-startMip)
	for i := range fences {
		fences[i] = d.uploadCounter.Add(1)
	}
	return fences, nil
}

// IsUploadComplete implements hal.Device. Uploads are synchronous.
func (d *Device) IsUploadComplete(fence uint64) bool { return true }

// WaitForUpload implements hal.Device. Uploads are synchronous.
func (d *Device) WaitForUpload(fence uint64) {}

// WaitForIdle implements hal.Device: the immediate API has no queue to
// drain beyond the garbage list.
func (d *Device) WaitForIdle() {
	d.CollectGarbage()
}

// Present implements hal.Device.
func (d *Device) Present() types.SwapchainStatus {
	d.swapchainMu.Lock()
	sc := d.swapchain
	d.swapchainMu.Unlock()
	if sc == nil {
		return types.SwapchainError
	}
	return sc.Present()
}

// MemoryStats implements hal.Device.
func (d *Device) MemoryStats() (used, available uint64) {
	used = d.committedBytes.Load()
	if used >= deviceLocalBudget {
		return used, 0
	}
	return used, deviceLocalBudget - used
}

// DeferDestroy queues a resource for CollectGarbage. With implicit
// synchronization the device never holds references past the call, so
// the deferral is one collection cycle.
func (d *Device) DeferDestroy(res hal.Resource) {
	d.garbageMu.Lock()
	d.garbage = append(d.garbage, res)
	d.garbageMu.Unlock()
}

// CollectGarbage implements hal.Device.
func (d *Device) CollectGarbage() {
	d.garbageMu.Lock()
	ready := d.garbage
	d.garbage = nil
	d.garbageMu.Unlock()
	for _, r := range ready {
		r.Destroy()
	}
}

// MarkDeviceLost forces the device into the lost state.
func (d *Device) MarkDeviceLost() {
	d.deviceLost.Store(true)
}

// Destroy implements hal.Device.
func (d *Device) Destroy() {
	d.swapchainMu.Lock()
	if d.swapchain != nil {
		d.swapchain.Destroy()
		d.swapchain = nil
	}
	d.swapchainMu.Unlock()
	d.CollectGarbage()
}
