package types

// PixelFormat enumerates the texture formats the RHI understands.
type PixelFormat uint32

const (
	// FormatUnknown is the zero value and never valid for creation.
	FormatUnknown PixelFormat = iota

	// 8-bit formats.
	FormatR8Unorm
	FormatR8Srgb
	FormatRG8Unorm
	FormatRG8Srgb
	FormatRGBA8Unorm
	FormatBGRA8Unorm
	FormatRGBA8Srgb
	FormatBGRA8Srgb

	// Float formats.
	FormatRGBA32Float
	FormatRGB32Float
	FormatRG32Float
	FormatR32Float

	// Depth formats.
	FormatD32Float
	FormatD24UnormS8Uint
	FormatD32FloatS8Uint
	FormatD16Unorm

	// Block-compressed formats.
	FormatBC1Unorm
	FormatBC1Srgb
	FormatBC3Unorm
	FormatBC3Srgb
)

// FormatInfo describes the memory layout of a pixel format.
type FormatInfo struct {
	// BytesPerPixel is the per-texel size for uncompressed formats, 0 for
	// block-compressed formats.
	BytesPerPixel uint32
	// BlockBytes is the per-block size for compressed formats, 0 otherwise.
	BlockBytes uint32
	// BlockDim is the block edge length (4 for BC formats), 1 otherwise.
	BlockDim uint32
	// Depth reports whether the format has a depth aspect.
	Depth bool
	// Stencil reports whether the format has a stencil aspect.
	Stencil bool
}

var formatInfos = map[PixelFormat]FormatInfo{
	FormatR8Unorm:        {BytesPerPixel: 1, BlockDim: 1},
	FormatR8Srgb:         {BytesPerPixel: 1, BlockDim: 1},
	FormatRG8Unorm:       {BytesPerPixel: 2, BlockDim: 1},
	FormatRG8Srgb:        {BytesPerPixel: 2, BlockDim: 1},
	FormatRGBA8Unorm:     {BytesPerPixel: 4, BlockDim: 1},
	FormatBGRA8Unorm:     {BytesPerPixel: 4, BlockDim: 1},
	FormatRGBA8Srgb:      {BytesPerPixel: 4, BlockDim: 1},
	FormatBGRA8Srgb:      {BytesPerPixel: 4, BlockDim: 1},
	FormatRGBA32Float:    {BytesPerPixel: 16, BlockDim: 1},
	FormatRGB32Float:     {BytesPerPixel: 12, BlockDim: 1},
	FormatRG32Float:      {BytesPerPixel: 8, BlockDim: 1},
	FormatR32Float:       {BytesPerPixel: 4, BlockDim: 1},
	FormatD32Float:       {BytesPerPixel: 4, BlockDim: 1, Depth: true},
	FormatD24UnormS8Uint: {BytesPerPixel: 4, BlockDim: 1, Depth: true, Stencil: true},
	FormatD32FloatS8Uint: {BytesPerPixel: 8, BlockDim: 1, Depth: true, Stencil: true},
	FormatD16Unorm:       {BytesPerPixel: 2, BlockDim: 1, Depth: true},
	FormatBC1Unorm:       {BlockBytes: 8, BlockDim: 4},
	FormatBC1Srgb:        {BlockBytes: 8, BlockDim: 4},
	FormatBC3Unorm:       {BlockBytes: 16, BlockDim: 4},
	FormatBC3Srgb:        {BlockBytes: 16, BlockDim: 4},
}

// Info returns the layout description for the format.
// The zero FormatInfo is returned for FormatUnknown.
func (f PixelFormat) Info() FormatInfo {
	return formatInfos[f]
}

// IsDepth reports whether the format has a depth aspect.
func (f PixelFormat) IsDepth() bool { return f.Info().Depth }

// IsCompressed reports whether the format is block-compressed.
func (f PixelFormat) IsCompressed() bool { return f.Info().BlockDim > 1 }

// MipDimension halves d per mip level, clamping at 1.
func MipDimension(d, level uint32) uint32 {
	for ; level > 0 && d > 1; level-- {
		d >>= 1
	}
	if d == 0 {
		return 1
	}
	return d
}

// SurfaceSize returns the byte size of a single w×h surface in the format.
// Compressed formats round dimensions up to whole blocks.
func (f PixelFormat) SurfaceSize(w, h uint32) uint64 {
	info := f.Info()
	if info.BlockDim > 1 {
		bw := (w + info.BlockDim - 1) / info.BlockDim
		bh := (h + info.BlockDim - 1) / info.BlockDim
		return uint64(bw) * uint64(bh) * uint64(info.BlockBytes)
	}
	return uint64(w) * uint64(h) * uint64(info.BytesPerPixel)
}
