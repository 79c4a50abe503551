package rhi

import (
	"sync/atomic"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// resource is the shared ownership core embedded in every handle type.
// The reference count is atomic: handles cross the game/render thread
// boundary. When the count reaches zero the backend handles are queued
// on the device's deferred-deletion list; they are released once the
// device timeline confirms the GPU no longer references them.
type resource struct {
	device *Device
	raw    hal.Resource
	refs   atomic.Int64
}

func (r *resource) init(device *Device, raw hal.Resource) {
	r.device = device
	r.raw = raw
	r.refs.Store(1)
}

// Retain adds a strong reference. Retaining a dead handle is a
// programming error surfaced through the validation log.
func (r *resource) Retain() {
	if r.refs.Add(1) <= 1 {
		hal.Logger().Error("rhi: retain on destroyed resource",
			"category", "validation", "resource", r.raw.DebugName())
	}
}

// Release drops a strong reference; the last drop queues the backend
// handles for deferred deletion.
func (r *resource) Release() {
	n := r.refs.Add(-1)
	if n == 0 {
		r.device.deferDestroy(r.raw)
	} else if n < 0 {
		hal.Logger().Error("rhi: release past zero",
			"category", "validation", "resource", r.raw.DebugName())
	}
}

// tryRetain is the weak-upgrade primitive: it adds a reference only if
// the strong count is still positive.
func (r *resource) tryRetain() bool {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return false
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Valid reports whether the handle is still dereferenceable.
func (r *resource) Valid() bool { return r.refs.Load() > 0 }

// RefCount returns the current strong count.
func (r *resource) RefCount() int64 { return r.refs.Load() }

// Backend returns the backend tag of the creating device.
func (r *resource) Backend() types.Backend { return r.raw.Variant() }

// DebugName returns the label given at creation.
func (r *resource) DebugName() string { return r.raw.DebugName() }

// ByteSize returns the resource size in bytes.
func (r *resource) ByteSize() uint64 { return r.raw.ByteSize() }

// retainable is satisfied by every handle type in this package; it is
// unexported so weak references can only wrap RHI handles.
type retainable interface {
	tryRetain() bool
	Release()
}

// Weak is a non-owning reference for cache entries that must not extend
// resource lifetime. Upgrade resolves it with an atomic try-retain that
// fails once the strong count has reached zero.
type Weak[T retainable] struct {
	value T
	ok    bool
}

// MakeWeak creates a weak reference to a live handle. The weak
// reference does not contribute to the strong count.
func MakeWeak[T retainable](v T) Weak[T] {
	return Weak[T]{value: v, ok: true}
}

// Upgrade returns a retained strong handle, or false when the resource
// has already been destroyed. The caller owns the returned reference
// and must Release it.
func (w Weak[T]) Upgrade() (T, bool) {
	var zero T
	if !w.ok || !w.value.tryRetain() {
		return zero, false
	}
	return w.value, true
}

// Buffer is a reference-counted buffer handle.
type Buffer struct {
	resource
	buf hal.Buffer
}

// Desc returns the creation descriptor.
func (b *Buffer) Desc() types.BufferDesc { return b.buf.Desc() }

// Map returns the buffer's CPU-visible bytes. A mapped buffer must not
// be submitted for device reads until unmapped.
func (b *Buffer) Map() ([]byte, error) {
	if !b.Valid() {
		return nil, ErrInvalidArgument
	}
	return b.buf.Map()
}

// Unmap ends CPU access.
func (b *Buffer) Unmap() { b.buf.Unmap() }

// IsMapped reports whether the buffer is currently mapped.
func (b *Buffer) IsMapped() bool { return b.buf.IsMapped() }

// HAL returns the backend handle for hal-level integration.
func (b *Buffer) HAL() hal.Buffer { return b.buf }

// Texture is a reference-counted texture handle.
type Texture struct {
	resource
	tex hal.Texture
}

// Desc returns the creation descriptor.
func (t *Texture) Desc() types.TextureDesc { return t.tex.Desc() }

// HAL returns the backend handle for hal-level integration.
func (t *Texture) HAL() hal.Texture { return t.tex }

// Sampler is a reference-counted sampler handle.
type Sampler struct {
	resource
	smp hal.Sampler
}

// Desc returns the creation descriptor.
func (s *Sampler) Desc() types.SamplerDesc { return s.smp.Desc() }

// HAL returns the backend handle for hal-level integration.
func (s *Sampler) HAL() hal.Sampler { return s.smp }

// Shader is a reference-counted shader handle.
type Shader struct {
	resource
	sh hal.Shader
}

// Stage returns the pipeline stage the shader runs in.
func (s *Shader) Stage() types.ShaderStage { return s.sh.Stage() }

// HAL returns the backend handle for hal-level integration.
func (s *Shader) HAL() hal.Shader { return s.sh }

// PipelineState is a reference-counted immutable pipeline handle.
type PipelineState struct {
	resource
	ps hal.PipelineState
}

// HAL returns the backend handle for hal-level integration.
func (p *PipelineState) HAL() hal.PipelineState { return p.ps }

// DescriptorSetLayout is a reference-counted set schema handle.
type DescriptorSetLayout struct {
	resource
	layout hal.DescriptorSetLayout
}

// Desc returns the creation descriptor.
func (l *DescriptorSetLayout) Desc() types.DescriptorSetLayoutDesc { return l.layout.Desc() }

// HAL returns the backend handle for hal-level integration.
func (l *DescriptorSetLayout) HAL() hal.DescriptorSetLayout { return l.layout }

// PipelineLayout is a reference-counted pipeline schema handle.
type PipelineLayout struct {
	resource
	layout hal.PipelineLayout
}

// Desc returns the creation descriptor.
func (l *PipelineLayout) Desc() types.PipelineLayoutDesc { return l.layout.Desc() }

// HAL returns the backend handle for hal-level integration.
func (l *PipelineLayout) HAL() hal.PipelineLayout { return l.layout }

// DescriptorSet is a per-frame set instance. Sets are pool-recycled on
// the modern backend, so they are not reference counted: holding one
// across frames is invalid.
type DescriptorSet struct {
	set hal.DescriptorSet
}

// UpdateUniformBuffer binds a buffer range to a uniform binding.
func (s *DescriptorSet) UpdateUniformBuffer(binding uint32, buf *Buffer, offset, size uint64) error {
	if buf == nil || !buf.Valid() {
		return ErrInvalidArgument
	}
	return s.set.UpdateUniformBuffer(binding, buf.buf, offset, size)
}

// UpdateTexture binds a texture.
func (s *DescriptorSet) UpdateTexture(binding uint32, tex *Texture) error {
	if tex == nil || !tex.Valid() {
		return ErrInvalidArgument
	}
	return s.set.UpdateTexture(binding, tex.tex)
}

// UpdateSampler binds a sampler.
func (s *DescriptorSet) UpdateSampler(binding uint32, smp *Sampler) error {
	if smp == nil || !smp.Valid() {
		return ErrInvalidArgument
	}
	return s.set.UpdateSampler(binding, smp.smp)
}

// UpdateCombinedTextureSampler binds a texture/sampler pair.
func (s *DescriptorSet) UpdateCombinedTextureSampler(binding uint32, tex *Texture, smp *Sampler) error {
	if tex == nil || !tex.Valid() || smp == nil || !smp.Valid() {
		return ErrInvalidArgument
	}
	return s.set.UpdateCombinedTextureSampler(binding, tex.tex, smp.smp)
}

// IsComplete reports whether every declared binding is populated.
func (s *DescriptorSet) IsComplete() bool { return s.set.IsComplete() }

// HAL returns the backend set for hal-level integration.
func (s *DescriptorSet) HAL() hal.DescriptorSet { return s.set }
