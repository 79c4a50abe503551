package hal

import (
	"bytes"
	"encoding/binary"
)

// ShaderFormat classifies shader bytecode by content.
type ShaderFormat uint8

const (
	// ShaderFormatUnknown means the bytecode matched no known format.
	ShaderFormatUnknown ShaderFormat = iota
	// ShaderFormatSPIRV is the binary IR accepted by the modern backend.
	ShaderFormatSPIRV
	// ShaderFormatGLSL is null-terminated GLSL source for the legacy
	// backend.
	ShaderFormatGLSL
	// ShaderFormatWGSL is WGSL source, cross-compiled by the legacy
	// backend.
	ShaderFormatWGSL
)

// String returns the format name.
func (f ShaderFormat) String() string {
	switch f {
	case ShaderFormatSPIRV:
		return "SPIR-V"
	case ShaderFormatGLSL:
		return "GLSL"
	case ShaderFormatWGSL:
		return "WGSL"
	default:
		return "Unknown"
	}
}

// SPIRVMagic is the first word of a SPIR-V module, little-endian.
const SPIRVMagic uint32 = 0x07230203

// SniffShaderFormat detects the format of shader bytecode.
// SPIR-V is detected by its magic number; text without a magic is GLSL
// when null-terminated (the legacy wire convention) and WGSL when it
// contains WGSL entry-point attributes.
func SniffShaderFormat(bytecode []byte) ShaderFormat {
	if len(bytecode) >= 4 && binary.LittleEndian.Uint32(bytecode) == SPIRVMagic {
		return ShaderFormatSPIRV
	}
	if len(bytecode) == 0 {
		return ShaderFormatUnknown
	}
	if bytecode[len(bytecode)-1] == 0 {
		return ShaderFormatGLSL
	}
	if bytes.Contains(bytecode, []byte("@vertex")) ||
		bytes.Contains(bytecode, []byte("@fragment")) ||
		bytes.Contains(bytecode, []byte("@compute")) {
		return ShaderFormatWGSL
	}
	return ShaderFormatUnknown
}

// ValidateSPIRV performs a minimal structural check of a SPIR-V module:
// the magic word and a whole number of 32-bit words.
func ValidateSPIRV(bytecode []byte) bool {
	if len(bytecode) < 20 || len(bytecode)%4 != 0 {
		return false
	}
	return binary.LittleEndian.Uint32(bytecode) == SPIRVMagic
}
