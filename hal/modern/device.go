package modern

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// deviceLocalBudget is the advertised device memory budget. The backend
// tracks committed bytes against it for MemoryStats.
const deviceLocalBudget = 4 << 30

// uploadJob is one queued mip upload.
type uploadJob struct {
	tex        *Texture
	level      uint32
	data       []byte
	fenceValue uint64
}

// Device implements hal.Device for the explicit-submission backend.
type Device struct {
	desc hal.DeviceDesc
	info types.AdapterInfo

	committedBytes atomic.Uint64
	deviceLost     atomic.Bool

	immediate *CommandList

	swapchainMu sync.Mutex
	swapchain   *Swapchain

	// timeline advances once per submission; deferred deletions are keyed
	// against it.
	timeline       *timelineFence
	submittedCount atomic.Uint64

	// Upload queue: a dedicated worker services mip uploads FIFO and
	// signals the upload fence with each job's value.
	uploadMu       sync.Mutex
	uploadCond     *sync.Cond
	uploadQueue    []uploadJob
	uploadShutdown bool
	uploadDone     sync.WaitGroup
	uploadFence    *timelineFence
	uploadCounter  atomic.Uint64

	// Per-frame descriptor pool ring, cycled by ResetFramePool.
	framePools  [maxFramesInFlight]*descriptorPool
	currentPool atomic.Uint32

	garbageMu sync.Mutex
	garbage   []deferredDeletion
}

// deferredDeletion holds a resource whose backend handles are released
// once the device timeline passes readyAt.
type deferredDeletion struct {
	res     hal.Resource
	readyAt uint64
}

func newDevice(desc hal.DeviceDesc, info types.AdapterInfo) *Device {
	d := &Device{
		desc:        desc,
		info:        info,
		timeline:    newTimelineFence(),
		uploadFence: newTimelineFence(),
	}
	d.uploadCond = sync.NewCond(&d.uploadMu)
	for i := range d.framePools {
		d.framePools[i] = newDescriptorPool()
	}
	d.immediate = newCommandList(d)

	d.uploadDone.Add(1)
	go d.uploadWorker()
	return d
}

// Variant implements hal.Device.
func (d *Device) Variant() types.Backend { return types.BackendModern }

// AdapterInfo implements hal.Device.
func (d *Device) AdapterInfo() types.AdapterInfo { return d.info }

func (d *Device) commitBytes(n uint64)  { d.committedBytes.Add(n) }
func (d *Device) releaseBytes(n uint64) { d.committedBytes.Add(^(n) + 1) }

// checkNotMapped logs a validation error when a mapped buffer reaches
// the device for reading.
func (d *Device) checkNotMapped(b hal.Buffer) {
	if b != nil && b.IsMapped() {
		hal.Logger().Error("modern: mapped buffer submitted for device read",
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
	// Upload, readback and dynamic placements are host-visible; device
	// local buffers still get host backing as the staging shadow.
	b.data = make([]byte, desc.Size)
	d.commitBytes(desc.Size)
	return b, nil
}

// CreateTexture implements hal.Device.
func (d *Device) CreateTexture(desc *types.TextureDesc) (hal.Texture, error) {
	if d.deviceLost.Load() {
		return nil, hal.ErrDeviceLost
	}
	return d.newTexture(desc)
}

func (d *Device) newTexture(desc *types.TextureDesc) (*Texture, error) {
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
	return d.createShader(bytecode, types.StageVertex)
}

// CreatePixelShader implements hal.Device.
func (d *Device) CreatePixelShader(bytecode []byte) (hal.Shader, error) {
	return d.createShader(bytecode, types.StagePixel)
}

// createShader validates SPIR-V bytecode. WGSL source is accepted by
// cross-compiling it to SPIR-V through naga; GLSL is not.
func (d *Device) createShader(bytecode []byte, stage types.ShaderStage) (hal.Shader, error) {
	format := hal.SniffShaderFormat(bytecode)
	if format == hal.ShaderFormatWGSL {
		spirv, err := naga.Compile(string(bytecode))
		if err != nil {
			hal.Logger().Error("modern: WGSL compile failed", "err", err)
			return nil, fmt.Errorf("%w: WGSL compile failed: %v", hal.ErrInvalidArgument, err)
		}
		bytecode = spirv
		format = hal.SniffShaderFormat(bytecode)
	}
	if format != hal.ShaderFormatSPIRV || !hal.ValidateSPIRV(bytecode) {
		var magic uint32
		if len(bytecode) >= 4 {
			magic = uint32(bytecode[0]) | uint32(bytecode[1])<<8 | uint32(bytecode[2])<<16 | uint32(bytecode[3])<<24
		}
		hal.Logger().Error("modern: invalid shader bytecode",
			"size", len(bytecode), "magic", fmt.Sprintf("0x%08x", magic), "detected", format.String())
		return nil, fmt.Errorf("%w: modern backend requires SPIR-V bytecode", hal.ErrInvalidArgument)
	}
	code := append([]byte(nil), bytecode...)
	return &Shader{stage: stage, bytecode: code}, nil
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

// AllocateDescriptorSet implements hal.Device: sets come from the
// current frame's pool and are recycled when the pool resets.
func (d *Device) AllocateDescriptorSet(layout hal.DescriptorSetLayout) (hal.DescriptorSet, error) {
	l, ok := layout.(*DescriptorSetLayout)
	if !ok || l == nil {
		return nil, fmt.Errorf("%w: layout from wrong backend", hal.ErrInvalidArgument)
	}
	pool := d.framePools[d.currentPool.Load()]
	return pool.allocate(l), nil
}

// ResetFramePool implements hal.Device.
func (d *Device) ResetFramePool(slot uint32) {
	slot %= maxFramesInFlight
	d.currentPool.Store(slot)
	d.framePools[slot].reset()
}

// DescriptorSetsInUse reports the live set count of the current frame
// pool; it stays bounded because pools recycle per frame.
func (d *Device) DescriptorSetsInUse() uint32 {
	return d.framePools[d.currentPool.Load()].setsInUse()
}

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

// Submit implements hal.Device: executes the recorded operations,
// advances the device timeline, and signals the given semaphores plus
// the current frame's in-flight fence.
func (d *Device) Submit(cl hal.CommandList, waits, signals []hal.Semaphore) error {
	if d.deviceLost.Load() {
		return hal.ErrDeviceLost
	}
	c, ok := cl.(*CommandList)
	if !ok {
		return fmt.Errorf("%w: command list from wrong backend", hal.ErrInvalidArgument)
	}
	if c.state != hal.CommandListExecutable {
		return fmt.Errorf("%w: submit requires an executable command list, state is %v",
			hal.ErrValidationFailed, c.state)
	}

	for _, w := range waits {
		if w != nil && !w.Signaled() && d.desc.EnableValidation {
			hal.Logger().Warn("modern: submission waits on unsignaled semaphore")
		}
	}

	c.execute()
	c.state = hal.CommandListSubmitted
	d.timeline.Signal(d.submittedCount.Add(1))

	for _, s := range signals {
		if sem, ok := s.(*semaphore); ok && sem != nil {
			sem.Signal()
		}
	}

	d.swapchainMu.Lock()
	sc := d.swapchain
	d.swapchainMu.Unlock()
	if sc != nil {
		renderFinished, inFlight := sc.frameSync()
		renderFinished.Signal()
		inFlight.Signal()
	}
	return nil
}

// uploadWorker services the mip upload queue FIFO, signaling the upload
// fence after each copy.
func (d *Device) uploadWorker() {
	defer d.uploadDone.Done()
	for {
		d.uploadMu.Lock()
		for len(d.uploadQueue) == 0 && !d.uploadShutdown {
			d.uploadCond.Wait()
		}
		if len(d.uploadQueue) == 0 && d.uploadShutdown {
			d.uploadMu.Unlock()
			return
		}
		job := d.uploadQueue[0]
		d.uploadQueue = d.uploadQueue[1:]
		d.uploadMu.Unlock()

		job.tex.commitMip(job.level, job.data)
		d.uploadFence.Signal(job.fenceValue)
	}
}

// validateMipRange checks an upload range against the texture.
func validateMipRange(t *Texture, startMip, endMip uint32, data [][]byte) error {
	if startMip >= endMip || endMip > t.desc.MipLevels {
		return fmt.Errorf("%w: mip range [%d,%d) invalid for texture with %d mips",
			hal.ErrInvalidArgument, startMip, endMip, t.desc.MipLevels)
	}
	if uint32(len(data)) != endMip-startMip {
		return fmt.Errorf("%w: %d data slices for %d mips",
			hal.ErrInvalidArgument, len(data), endMip-startMip)
	}
	return nil
}

// UploadTextureMips implements hal.Device.
func (d *Device) UploadTextureMips(t hal.Texture, startMip, endMip uint32, data [][]byte) error {
	tex, ok := t.(*Texture)
	if !ok {
		return fmt.Errorf("%w: texture from wrong backend", hal.ErrInvalidArgument)
	}
	if err := validateMipRange(tex, startMip, endMip, data); err != nil {
		return err
	}
	for mip := startMip; mip < endMip; mip++ {
		tex.commitMip(mip, data[mip-startMip])
	}
	return nil
}

// UploadTextureMipsAsync implements hal.Device.
func (d *Device) UploadTextureMipsAsync(t hal.Texture, startMip, endMip uint32, data [][]byte) ([]uint64, error) {
	tex, ok := t.(*Texture)
	if !ok {
		return nil, fmt.Errorf("%w: texture from wrong backend", hal.ErrInvalidArgument)
	}
	if err := validateMipRange(tex, startMip, endMip, data); err != nil {
		return nil, err
	}

	fences := make([]uint64, 0, endMip-startMip)
	d.uploadMu.Lock()
	for mip := startMip; mip < endMip; mip++ {
		value := d.uploadCounter.Add(1)
		d.uploadQueue = append(d.uploadQueue, uploadJob{
			tex:        tex,
			level:      mip,
			data:       data[mip-startMip],
			fenceValue: value,
		})
		fences = append(fences, value)
	}
	d.uploadCond.Signal()
	d.uploadMu.Unlock()
	return fences, nil
}

// UploadFence exposes the upload timeline as a hal.Fence.
func (d *Device) UploadFence() hal.Fence { return d.uploadFence }

// IsUploadComplete implements hal.Device.
func (d *Device) IsUploadComplete(fence uint64) bool {
	return d.uploadFence.IsComplete(fence)
}

// WaitForUpload implements hal.Device.
func (d *Device) WaitForUpload(fence uint64) {
	d.uploadFence.Wait(fence)
}

// WaitForIdle implements hal.Device: drains the upload queue and the
// submission timeline, then collects garbage.
func (d *Device) WaitForIdle() {
	d.uploadFence.Wait(d.uploadCounter.Load())
	d.timeline.Wait(d.submittedCount.Load())
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

// DeferDestroy queues a resource for deletion once the current timeline
// value completes.
func (d *Device) DeferDestroy(res hal.Resource) {
	d.garbageMu.Lock()
	d.garbage = append(d.garbage, deferredDeletion{res: res, readyAt: d.submittedCount.Load()})
	d.garbageMu.Unlock()
}

// CollectGarbage implements hal.Device.
func (d *Device) CollectGarbage() {
	done := d.timeline.Value()
	d.garbageMu.Lock()
	kept := d.garbage[:0]
	var ready []deferredDeletion
	for _, g := range d.garbage {
		if g.readyAt <= done {
			ready = append(ready, g)
		} else {
			kept = append(kept, g)
		}
	}
	d.garbage = kept
	d.garbageMu.Unlock()

	for _, g := range ready {
		g.res.Destroy()
	}
}

// PendingGarbage reports how many deletions are still deferred.
func (d *Device) PendingGarbage() int {
	d.garbageMu.Lock()
	defer d.garbageMu.Unlock()
	return len(d.garbage)
}

// MarkDeviceLost forces the device into the lost state; further
// submissions fail with ErrDeviceLost.
func (d *Device) MarkDeviceLost() {
	d.deviceLost.Store(true)
}

// Destroy implements hal.Device.
func (d *Device) Destroy() {
	d.WaitForIdle()

	d.uploadMu.Lock()
	d.uploadShutdown = true
	d.uploadCond.Broadcast()
	d.uploadMu.Unlock()
	d.uploadDone.Wait()

	d.swapchainMu.Lock()
	if d.swapchain != nil {
		d.swapchain.Destroy()
		d.swapchain = nil
	}
	d.swapchainMu.Unlock()
	d.CollectGarbage()
}
