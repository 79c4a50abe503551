package legacy

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// Buffer is an immediate-mode buffer object backed by host memory.
type Buffer struct {
	device *Device
	desc   types.BufferDesc
	data   []byte
	mapped atomic.Bool
}

// Variant implements hal.Resource.
func (b *Buffer) Variant() types.Backend { return types.BackendLegacy }

// DebugName implements hal.Resource.
func (b *Buffer) DebugName() string { return b.desc.DebugName }

// ByteSize implements hal.Resource.
func (b *Buffer) ByteSize() uint64 { return b.desc.Size }

// Desc returns the creation descriptor.
func (b *Buffer) Desc() types.BufferDesc { return b.desc }

// Map returns the buffer bytes for CPU access.
func (b *Buffer) Map() ([]byte, error) {
	if !b.desc.CPUAccessible {
		return nil, fmt.Errorf("%w: buffer %q is not CPU accessible", hal.ErrInvalidArgument, b.desc.DebugName)
	}
	b.mapped.Store(true)
	return b.data, nil
}

// Unmap ends CPU access.
func (b *Buffer) Unmap() { b.mapped.Store(false) }

// IsMapped reports whether the buffer is mapped.
func (b *Buffer) IsMapped() bool { return b.mapped.Load() }

// Destroy releases the buffer backing.
func (b *Buffer) Destroy() {
	b.device.releaseBytes(b.desc.Size)
	b.data = nil
}

// Texture is an immediate-mode texture object. Mip storage commits
// lazily on upload, mirroring streaming residency.
type Texture struct {
	device *Device
	desc   types.TextureDesc

	mipMu   sync.Mutex
	mipData [][]byte
}

// Variant implements hal.Resource.
func (t *Texture) Variant() types.Backend { return types.BackendLegacy }

// DebugName implements hal.Resource.
func (t *Texture) DebugName() string { return t.desc.DebugName }

// ByteSize implements hal.Resource.
func (t *Texture) ByteSize() uint64 { return t.desc.ByteSize() }

// Desc returns the creation descriptor.
func (t *Texture) Desc() types.TextureDesc { return t.desc }

// Destroy releases all committed mip storage.
func (t *Texture) Destroy() {
	t.mipMu.Lock()
	var committed uint64
	for i, m := range t.mipData {
		if m != nil {
			committed += uint64(len(m))
			t.mipData[i] = nil
		}
	}
	t.mipMu.Unlock()
	t.device.releaseBytes(committed)
}

// commitMip stores data as one mip level's contents.
func (t *Texture) commitMip(level uint32, data []byte) {
	t.mipMu.Lock()
	defer t.mipMu.Unlock()
	if t.mipData[level] == nil {
		size := t.desc.MipByteSize(level)
		t.mipData[level] = make([]byte, size)
		t.device.commitBytes(size)
	}
	copy(t.mipData[level], data)
}

// MipCommitted reports whether storage for the mip level is resident.
func (t *Texture) MipCommitted(level uint32) bool {
	t.mipMu.Lock()
	defer t.mipMu.Unlock()
	return level < uint32(len(t.mipData)) && t.mipData[level] != nil
}

// Sampler is an immutable sampler state object.
type Sampler struct {
	desc types.SamplerDesc
}

// Variant implements hal.Resource.
func (s *Sampler) Variant() types.Backend { return types.BackendLegacy }

// DebugName implements hal.Resource.
func (s *Sampler) DebugName() string { return s.desc.DebugName }

// ByteSize implements hal.Resource.
func (s *Sampler) ByteSize() uint64 { return 0 }

// Desc returns the creation descriptor.
func (s *Sampler) Desc() types.SamplerDesc { return s.desc }

// Destroy implements hal.Resource.
func (s *Sampler) Destroy() {}

// Shader holds compiled GLSL source for one stage.
type Shader struct {
	stage  types.ShaderStage
	source string
}

// Variant implements hal.Resource.
func (s *Shader) Variant() types.Backend { return types.BackendLegacy }

// DebugName implements hal.Resource.
func (s *Shader) DebugName() string { return "" }

// ByteSize implements hal.Resource.
func (s *Shader) ByteSize() uint64 { return uint64(len(s.source)) }

// Stage returns the pipeline stage the shader runs in.
func (s *Shader) Stage() types.ShaderStage { return s.stage }

// Source returns the GLSL the shader was compiled from.
func (s *Shader) Source() string { return s.source }

// Destroy implements hal.Resource.
func (s *Shader) Destroy() { s.source = "" }

// PipelineState is the legacy pipeline object: a record of the state to
// apply wholesale when bound.
type PipelineState struct {
	desc hal.PipelineStateDesc
}

// Variant implements hal.Resource.
func (p *PipelineState) Variant() types.Backend { return types.BackendLegacy }

// DebugName implements hal.Resource.
func (p *PipelineState) DebugName() string { return p.desc.DebugName }

// ByteSize implements hal.Resource.
func (p *PipelineState) ByteSize() uint64 { return 0 }

// Desc returns the creation descriptor.
func (p *PipelineState) Desc() hal.PipelineStateDesc { return p.desc }

// Destroy implements hal.Resource.
func (p *PipelineState) Destroy() {}

// DescriptorSetLayout is an immutable set schema.
type DescriptorSetLayout struct {
	desc types.DescriptorSetLayoutDesc
}

// Variant implements hal.Resource.
func (l *DescriptorSetLayout) Variant() types.Backend { return types.BackendLegacy }

// DebugName implements hal.Resource.
func (l *DescriptorSetLayout) DebugName() string { return l.desc.DebugName }

// ByteSize implements hal.Resource.
func (l *DescriptorSetLayout) ByteSize() uint64 { return 0 }

// Desc returns the creation descriptor.
func (l *DescriptorSetLayout) Desc() types.DescriptorSetLayoutDesc { return l.desc }

// Destroy implements hal.Resource.
func (l *DescriptorSetLayout) Destroy() {}

// PipelineLayout is an immutable pipeline schema.
type PipelineLayout struct {
	desc types.PipelineLayoutDesc
}

// Variant implements hal.Resource.
func (l *PipelineLayout) Variant() types.Backend { return types.BackendLegacy }

// DebugName implements hal.Resource.
func (l *PipelineLayout) DebugName() string { return l.desc.DebugName }

// ByteSize implements hal.Resource.
func (l *PipelineLayout) ByteSize() uint64 { return 0 }

// Desc returns the creation descriptor.
func (l *PipelineLayout) Desc() types.PipelineLayoutDesc { return l.desc }

// Destroy implements hal.Resource.
func (l *PipelineLayout) Destroy() {}
