package types

// TextureDesc describes a texture to create.
type TextureDesc struct {
	// DebugName is an optional label for tooling and logs.
	DebugName string
	// Width in texels. Must be non-zero.
	Width uint32
	// Height in texels. Must be non-zero.
	Height uint32
	// Depth in texels; 1 for 2D textures.
	Depth uint32
	// MipLevels is the number of mip levels; at least 1.
	MipLevels uint32
	// ArraySize is the number of array layers; at least 1.
	ArraySize uint32
	// Format is the pixel format.
	Format PixelFormat
	// Usage describes how the texture will be used.
	Usage BufferUsage
	// InitialData optionally initializes mip 0; nil to leave undefined.
	InitialData []byte
}

// normalized returns the desc with zero depth/mips/array clamped to 1.
func (d TextureDesc) normalized() TextureDesc {
	if d.Depth == 0 {
		d.Depth = 1
	}
	if d.MipLevels == 0 {
		d.MipLevels = 1
	}
	if d.ArraySize == 0 {
		d.ArraySize = 1
	}
	return d
}

// ByteSize computes the total size of the texture: every mip of every
// array layer across the depth, using the format's texel or block size.
func (d TextureDesc) ByteSize() uint64 {
	d = d.normalized()
	var total uint64
	for mip := uint32(0); mip < d.MipLevels; mip++ {
		w := MipDimension(d.Width, mip)
		h := MipDimension(d.Height, mip)
		total += d.Format.SurfaceSize(w, h) * uint64(d.Depth)
	}
	return total * uint64(d.ArraySize)
}

// MipByteSize returns the byte size of one mip level of one array layer.
func (d TextureDesc) MipByteSize(level uint32) uint64 {
	d = d.normalized()
	w := MipDimension(d.Width, level)
	h := MipDimension(d.Height, level)
	return d.Format.SurfaceSize(w, h) * uint64(d.Depth)
}

// FilterMode selects texture filtering.
type FilterMode uint8

const (
	// FilterNearest uses point sampling.
	FilterNearest FilterMode = iota
	// FilterLinear uses linear interpolation.
	FilterLinear
)

// AddressMode selects how out-of-range texture coordinates are handled.
type AddressMode uint8

const (
	// AddressRepeat wraps coordinates.
	AddressRepeat AddressMode = iota
	// AddressClampToEdge clamps to the edge texel.
	AddressClampToEdge
	// AddressMirrorRepeat wraps with mirroring.
	AddressMirrorRepeat
)

// SamplerDesc describes a texture sampler.
type SamplerDesc struct {
	// DebugName is an optional label for tooling and logs.
	DebugName string
	// MinFilter is used when the texture is minified.
	MinFilter FilterMode
	// MagFilter is used when the texture is magnified.
	MagFilter FilterMode
	// MipFilter selects between mip levels.
	MipFilter FilterMode
	// AddressU/V/W handle out-of-range coordinates per axis.
	AddressU AddressMode
	AddressV AddressMode
	AddressW AddressMode
	// MaxAnisotropy enables anisotropic filtering when > 1.
	MaxAnisotropy uint32
}
