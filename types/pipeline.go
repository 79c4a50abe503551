package types

// PrimitiveTopology selects how vertices are assembled.
type PrimitiveTopology uint8

const (
	// TopologyTriangleList assembles independent triangles.
	TopologyTriangleList PrimitiveTopology = iota
	// TopologyTriangleStrip assembles a triangle strip.
	TopologyTriangleStrip
	// TopologyLineList assembles independent lines.
	TopologyLineList
	// TopologyLineStrip assembles a line strip.
	TopologyLineStrip
	// TopologyPointList assembles points.
	TopologyPointList
)

// BlendFactor is a blend equation operand.
type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendInvSrcColor
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendDstColor
	BlendInvDstColor
	BlendDstAlpha
	BlendInvDstAlpha
)

// BlendOp combines the two blend operands.
type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

// BlendState describes color/alpha blending for a pipeline.
type BlendState struct {
	Enable        bool
	SrcColorBlend BlendFactor
	DstColorBlend BlendFactor
	ColorBlendOp  BlendOp
	SrcAlphaBlend BlendFactor
	DstAlphaBlend BlendFactor
	AlphaBlendOp  BlendOp
}

// FillMode selects polygon rasterization.
type FillMode uint8

const (
	FillSolid FillMode = iota
	FillWireframe
)

// CullMode selects which faces are discarded.
type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// RasterizerState describes fixed-function rasterization.
type RasterizerState struct {
	FillMode              FillMode
	CullMode              CullMode
	FrontCounterClockwise bool
	DepthClampEnable      bool
	ScissorEnable         bool
}

// CompareFunc is a depth/stencil comparison function.
type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// DepthStencilState describes depth/stencil testing for a pipeline.
type DepthStencilState struct {
	DepthEnable      bool
	DepthWriteEnable bool
	DepthFunc        CompareFunc
	StencilEnable    bool
}

// VertexFormat is the data type of one vertex attribute.
type VertexFormat uint8

const (
	VertexFloat1 VertexFormat = iota
	VertexFloat2
	VertexFloat3
	VertexFloat4
	VertexInt1
	VertexInt2
	VertexInt3
	VertexInt4
	VertexUint1
	VertexUint2
	VertexUint3
	VertexUint4
)

// ByteSize returns the size of one attribute of the format.
func (f VertexFormat) ByteSize() uint32 {
	switch f {
	case VertexFloat1, VertexInt1, VertexUint1:
		return 4
	case VertexFloat2, VertexInt2, VertexUint2:
		return 8
	case VertexFloat3, VertexInt3, VertexUint3:
		return 12
	default:
		return 16
	}
}

// VertexAttribute describes one attribute of a vertex layout.
type VertexAttribute struct {
	// Location is the shader input location.
	Location uint32
	// Format is the attribute data type.
	Format VertexFormat
	// Offset in bytes from the start of the vertex.
	Offset uint32
}

// VertexInputLayout describes the vertex buffer layout for a pipeline.
type VertexInputLayout struct {
	// Stride is the size of one vertex in bytes; 0 derives it from the
	// attributes via CalculateStride.
	Stride uint32
	// Attributes lists the vertex attributes.
	Attributes []VertexAttribute
}

// CalculateStride derives the tight stride from the attribute set.
func CalculateStride(attrs []VertexAttribute) uint32 {
	var maxEnd uint32
	for _, a := range attrs {
		if end := a.Offset + a.Format.ByteSize(); end > maxEnd {
			maxEnd = end
		}
	}
	return maxEnd
}

// Viewport describes the viewport transform.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// ScissorRect clips rasterization to a rectangle.
type ScissorRect struct {
	Left, Top     int32
	Right, Bottom int32
}
