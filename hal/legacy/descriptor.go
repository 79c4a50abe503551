package legacy

import (
	"fmt"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// binding is one tracked slot of a software descriptor set.
type binding struct {
	populated bool
	buffer    hal.Buffer
	offset    uint64
	size      uint64
	texture   hal.Texture
	sampler   hal.Sampler
}

// DescriptorSet is the legacy binding tracker: a software table that
// binds texture units and uniform binding points when a draw resolves
// it. Allocation is cheap and unpooled.
type DescriptorSet struct {
	layout *DescriptorSetLayout
	slots  map[uint32]*binding
}

func newDescriptorSet(layout *DescriptorSetLayout) *DescriptorSet {
	s := &DescriptorSet{
		layout: layout,
		slots:  make(map[uint32]*binding, len(layout.desc.Bindings)),
	}
	for _, b := range layout.desc.Bindings {
		s.slots[b.Binding] = &binding{}
	}
	return s
}

// Variant implements hal.Resource.
func (s *DescriptorSet) Variant() types.Backend { return types.BackendLegacy }

// DebugName implements hal.Resource.
func (s *DescriptorSet) DebugName() string { return s.layout.desc.DebugName }

// ByteSize implements hal.Resource.
func (s *DescriptorSet) ByteSize() uint64 { return 0 }

// Destroy implements hal.Resource.
func (s *DescriptorSet) Destroy() {}

// Layout returns the layout the set conforms to.
func (s *DescriptorSet) Layout() hal.DescriptorSetLayout { return s.layout }

func (s *DescriptorSet) slot(bindingIndex uint32) (*binding, error) {
	slot, ok := s.slots[bindingIndex]
	if !ok {
		return nil, fmt.Errorf("%w: binding %d not declared in layout %q",
			hal.ErrInvalidArgument, bindingIndex, s.layout.desc.DebugName)
	}
	return slot, nil
}

// UpdateUniformBuffer implements hal.DescriptorSet.
func (s *DescriptorSet) UpdateUniformBuffer(bindingIndex uint32, buf hal.Buffer, offset, size uint64) error {
	slot, err := s.slot(bindingIndex)
	if err != nil {
		return err
	}
	if buf == nil {
		return fmt.Errorf("%w: nil buffer for binding %d", hal.ErrInvalidArgument, bindingIndex)
	}
	slot.populated = true
	slot.buffer = buf
	slot.offset = offset
	slot.size = size
	return nil
}

// UpdateTexture implements hal.DescriptorSet.
func (s *DescriptorSet) UpdateTexture(bindingIndex uint32, tex hal.Texture) error {
	slot, err := s.slot(bindingIndex)
	if err != nil {
		return err
	}
	if tex == nil {
		return fmt.Errorf("%w: nil texture for binding %d", hal.ErrInvalidArgument, bindingIndex)
	}
	slot.populated = true
	slot.texture = tex
	return nil
}

// UpdateSampler implements hal.DescriptorSet.
func (s *DescriptorSet) UpdateSampler(bindingIndex uint32, smp hal.Sampler) error {
	slot, err := s.slot(bindingIndex)
	if err != nil {
		return err
	}
	if smp == nil {
		return fmt.Errorf("%w: nil sampler for binding %d", hal.ErrInvalidArgument, bindingIndex)
	}
	slot.populated = true
	slot.sampler = smp
	return nil
}

// UpdateCombinedTextureSampler implements hal.DescriptorSet.
func (s *DescriptorSet) UpdateCombinedTextureSampler(bindingIndex uint32, tex hal.Texture, smp hal.Sampler) error {
	slot, err := s.slot(bindingIndex)
	if err != nil {
		return err
	}
	if tex == nil || smp == nil {
		return fmt.Errorf("%w: nil texture or sampler for binding %d", hal.ErrInvalidArgument, bindingIndex)
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
