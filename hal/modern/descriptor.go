package modern

import (
	"fmt"
	"sync"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// initialPoolSets is the starting per-frame pool capacity; pools grow on
// demand and are recycled wholesale at frame begin.
const initialPoolSets = 64

// descriptorPool is one per-frame-in-flight pool of descriptor sets.
// Reset recycles the allocated sets without freeing them, so steady-state
// frames allocate without growing.
type descriptorPool struct {
	mu        sync.Mutex
	capacity  uint32
	allocated uint32
	sets      []*DescriptorSet
}

func newDescriptorPool() *descriptorPool {
	return &descriptorPool{capacity: initialPoolSets}
}

// allocate hands out a recycled set, growing the pool when exhausted.
func (p *descriptorPool) allocate(layout *DescriptorSetLayout) *DescriptorSet {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.allocated == p.capacity {
		p.capacity *= 2
	}
	var set *DescriptorSet
	if int(p.allocated) < len(p.sets) {
		set = p.sets[p.allocated]
		set.rebind(layout)
	} else {
		set = newDescriptorSet(layout)
		p.sets = append(p.sets, set)
	}
	p.allocated++
	return set
}

// reset recycles all sets in the pool. Called at frame begin for the
// pool's frame-in-flight slot.
func (p *descriptorPool) reset() {
	p.mu.Lock()
	p.allocated = 0
	p.mu.Unlock()
}

// setsInUse returns how many sets the current frame has allocated.
func (p *descriptorPool) setsInUse() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}

// bindingSlot is one populated binding of a descriptor set.
type bindingSlot struct {
	populated bool
	buffer    hal.Buffer
	offset    uint64
	size      uint64
	texture   hal.Texture
	sampler   hal.Sampler
}

// DescriptorSet is a pool-allocated set instance. Recycled per frame:
// the pool hands the same object out again after reset, so holding a set
// across frames is invalid.
type DescriptorSet struct {
	layout *DescriptorSetLayout
	slots  map[uint32]*bindingSlot
}

func newDescriptorSet(layout *DescriptorSetLayout) *DescriptorSet {
	s := &DescriptorSet{}
	s.rebind(layout)
	return s
}

// rebind reinitializes the set for a layout, clearing old bindings.
func (s *DescriptorSet) rebind(layout *DescriptorSetLayout) {
	s.layout = layout
	s.slots = make(map[uint32]*bindingSlot, len(layout.desc.Bindings))
	for _, b := range layout.desc.Bindings {
		s.slots[b.Binding] = &bindingSlot{}
	}
}

// Variant implements hal.Resource.
func (s *DescriptorSet) Variant() types.Backend { return types.BackendModern }

// DebugName implements hal.Resource.
func (s *DescriptorSet) DebugName() string { return s.layout.desc.DebugName }

// ByteSize implements hal.Resource.
func (s *DescriptorSet) ByteSize() uint64 { return 0 }

// Destroy implements hal.Resource. Pool-owned sets are recycled, not
// destroyed individually.
func (s *DescriptorSet) Destroy() {}

// Layout returns the layout the set conforms to.
func (s *DescriptorSet) Layout() hal.DescriptorSetLayout { return s.layout }

// slotOfKind fetches a declared binding slot, checking the declared type.
func (s *DescriptorSet) slotOfKind(binding uint32, kinds ...types.DescriptorType) (*bindingSlot, error) {
	slot, ok := s.slots[binding]
	if !ok {
		return nil, fmt.Errorf("%w: binding %d not declared in layout %q",
			hal.ErrInvalidArgument, binding, s.layout.desc.DebugName)
	}
	declared := s.bindingType(binding)
	for _, k := range kinds {
		if declared == k {
			return slot, nil
		}
	}
	return nil, fmt.Errorf("%w: binding %d is %v, incompatible update",
		hal.ErrInvalidArgument, binding, declared)
}

func (s *DescriptorSet) bindingType(binding uint32) types.DescriptorType {
	for _, b := range s.layout.desc.Bindings {
		if b.Binding == binding {
			return b.Type
		}
	}
	return 0
}

// UpdateUniformBuffer implements hal.DescriptorSet.
func (s *DescriptorSet) UpdateUniformBuffer(binding uint32, buf hal.Buffer, offset, size uint64) error {
	slot, err := s.slotOfKind(binding, types.DescriptorUniformBuffer, types.DescriptorStorageBuffer)
	if err != nil {
		return err
	}
	if buf == nil {
		return fmt.Errorf("%w: nil buffer for binding %d", hal.ErrInvalidArgument, binding)
	}
	if offset+size > buf.ByteSize() {
		return fmt.Errorf("%w: range [%d,%d) exceeds buffer size %d",
			hal.ErrInvalidArgument, offset, offset+size, buf.ByteSize())
	}
	slot.populated = true
	slot.buffer = buf
	slot.offset = offset
	slot.size = size
	return nil
}

// UpdateTexture implements hal.DescriptorSet.
func (s *DescriptorSet) UpdateTexture(binding uint32, tex hal.Texture) error {
	slot, err := s.slotOfKind(binding, types.DescriptorTexture, types.DescriptorStorageTexture, types.DescriptorInputAttachment)
	if err != nil {
		return err
	}
	if tex == nil {
		return fmt.Errorf("%w: nil texture for binding %d", hal.ErrInvalidArgument, binding)
	}
	slot.populated = true
	slot.texture = tex
	return nil
}

// UpdateSampler implements hal.DescriptorSet.
func (s *DescriptorSet) UpdateSampler(binding uint32, smp hal.Sampler) error {
	slot, err := s.slotOfKind(binding, types.DescriptorSampler)
	if err != nil {
		return err
	}
	if smp == nil {
		return fmt.Errorf("%w: nil sampler for binding %d", hal.ErrInvalidArgument, binding)
	}
	slot.populated = true
	slot.sampler = smp
	return nil
}

// UpdateCombinedTextureSampler implements hal.DescriptorSet.
func (s *DescriptorSet) UpdateCombinedTextureSampler(binding uint32, tex hal.Texture, smp hal.Sampler) error {
	slot, err := s.slotOfKind(binding, types.DescriptorCombinedTextureSampler)
	if err != nil {
		return err
	}
	if tex == nil || smp == nil {
		return fmt.Errorf("%w: nil texture or sampler for binding %d", hal.ErrInvalidArgument, binding)
	}
	slot.populated = true
	slot.texture = tex
	slot.sampler = smp
	return nil
}

// IsComplete implements hal.DescriptorSet.
func (s *DescriptorSet) IsComplete() bool {
	for _, slot := range s.slots {
		if !slot.populated {
			return false
		}
	}
	return true
}
