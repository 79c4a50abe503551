package legacy

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// compileWGSLToGLSL cross-compiles a WGSL shader to GLSL for the given
// entry point. The immediate-mode API does not understand WGSL, so naga
// parses it and emits GLSL 4.30 core; 4.30 is required for
// layout(binding=N) qualifiers.
func compileWGSLToGLSL(source string, entryPoint string) (string, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return "", fmt.Errorf("legacy: WGSL parse error: %w", err)
	}
	module, err := naga.Lower(ast)
	if err != nil {
		return "", fmt.Errorf("legacy: WGSL lower error: %w", err)
	}
	glslCode, _, err := glsl.Compile(module, glsl.Options{
		LangVersion:        glsl.Version430,
		EntryPoint:         entryPoint,
		ForceHighPrecision: true,
	})
	if err != nil {
		return "", fmt.Errorf("legacy: GLSL compile error for entry point %q: %w", entryPoint, err)
	}
	return glslCode, nil
}

// entryPointName maps a stage to the WGSL entry-point naming convention
// used by the engine's offline tooling.
func entryPointName(stage types.ShaderStage) string {
	if stage == types.StagePixel {
		return "fs_main"
	}
	return "vs_main"
}

// compileShaderSource resolves bytecode to GLSL source. GLSL is detected
// by its null terminator; WGSL is cross-compiled; SPIR-V is rejected
// because the immediate-mode API consumes source, not IR.
func compileShaderSource(bytecode []byte, stage types.ShaderStage) (string, error) {
	switch format := hal.SniffShaderFormat(bytecode); format {
	case hal.ShaderFormatGLSL:
		source := strings.TrimRight(string(bytecode), "\x00")
		if !strings.Contains(source, "main") {
			hal.Logger().Error("legacy: GLSL source has no entry point", "size", len(bytecode))
			return "", fmt.Errorf("%w: GLSL source has no main", hal.ErrInvalidArgument)
		}
		return source, nil
	case hal.ShaderFormatWGSL:
		return compileWGSLToGLSL(string(bytecode), entryPointName(stage))
	case hal.ShaderFormatSPIRV:
		hal.Logger().Error("legacy: SPIR-V bytecode rejected",
			"size", len(bytecode), "magic", fmt.Sprintf("0x%08x", hal.SPIRVMagic))
		return "", fmt.Errorf("%w: legacy backend requires GLSL or WGSL source", hal.ErrInvalidArgument)
	default:
		hal.Logger().Error("legacy: unrecognized shader bytecode", "size", len(bytecode))
		return "", fmt.Errorf("%w: unrecognized shader bytecode", hal.ErrInvalidArgument)
	}
}
