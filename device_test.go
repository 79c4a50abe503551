package rhi_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/rhi"
	_ "github.com/gogpu/rhi/hal/legacy"
	_ "github.com/gogpu/rhi/hal/modern"
	"github.com/gogpu/rhi/types"
)

// newTestDevice opens a device on the requested backend.
func newTestDevice(t *testing.T, pref types.BackendPreference) *rhi.Device {
	t.Helper()
	cfg := rhi.DefaultConfig()
	cfg.PreferredBackend = pref
	cfg.EnableValidation = true
	device, err := rhi.Init(cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(device.Destroy)
	return device
}

// spirvStub builds a minimal structurally-valid SPIR-V module.
func spirvStub() []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf[0:], 0x07230203) // magic
	binary.LittleEndian.PutUint32(buf[4:], 0x00010000) // version 1.0
	binary.LittleEndian.PutUint32(buf[12:], 8)         // id bound
	return buf
}

// TestInitSelectsBackend verifies preference resolution.
func TestInitSelectsBackend(t *testing.T) {
	modern := newTestDevice(t, types.PreferModern)
	if modern.Backend() != types.BackendModern {
		t.Errorf("backend = %v, want Modern", modern.Backend())
	}
	legacy := newTestDevice(t, types.PreferLegacy)
	if legacy.Backend() != types.BackendLegacy {
		t.Errorf("backend = %v, want Legacy", legacy.Backend())
	}
}

// TestResourceBackendTag verifies resources carry the creating device's
// backend tag.
func TestResourceBackendTag(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)

	buf, err := device.CreateBuffer(&types.BufferDesc{
		DebugName: "TagCheck", Size: 256, Usage: types.BufferUsageVertex,
	})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	defer buf.Release()

	if buf.Backend() != device.Backend() {
		t.Errorf("resource backend %v != device backend %v", buf.Backend(), device.Backend())
	}
}

// TestZeroSizeBufferRejected verifies the InvalidArgument path.
func TestZeroSizeBufferRejected(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)

	buf, err := device.CreateBuffer(&types.BufferDesc{Size: 0})
	if buf != nil || !errors.Is(err, rhi.ErrInvalidArgument) {
		t.Errorf("zero-size buffer: got (%v, %v), want nil + ErrInvalidArgument", buf, err)
	}
}

// TestRefCountLifecycle verifies retain/release and deferred deletion.
func TestRefCountLifecycle(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)

	buf, err := device.CreateBuffer(&types.BufferDesc{
		DebugName: "RefCounted", Size: 1024, Usage: types.BufferUsageUniform,
	})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if buf.RefCount() != 1 {
		t.Errorf("initial refcount = %d, want 1", buf.RefCount())
	}

	buf.Retain()
	if buf.RefCount() != 2 {
		t.Errorf("refcount after retain = %d, want 2", buf.RefCount())
	}

	buf.Release()
	if !buf.Valid() {
		t.Error("buffer invalid while refs remain")
	}
	buf.Release()
	if buf.Valid() {
		t.Error("buffer still valid after last release")
	}

	// The last drop queues backend handles; the drain is observable
	// through memory accounting.
	usedBefore, _ := device.MemoryStats()
	device.WaitForIdle()
	device.CollectGarbage()
	usedAfter, _ := device.MemoryStats()
	if usedAfter >= usedBefore {
		t.Errorf("memory used %d -> %d, want release after garbage collection", usedBefore, usedAfter)
	}
}

// TestWeakUpgrade verifies the cache-reference upgrade semantics.
func TestWeakUpgrade(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)

	tex, err := device.CreateTexture(&types.TextureDesc{
		DebugName: "WeakTarget", Width: 16, Height: 16,
		Format: types.FormatRGBA8Unorm, Usage: types.BufferUsageShaderResource,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}

	weak := rhi.MakeWeak(tex)

	strong, ok := weak.Upgrade()
	if !ok {
		t.Fatal("upgrade failed while resource alive")
	}
	strong.Release()

	tex.Release() // strong count reaches zero

	if _, ok := weak.Upgrade(); ok {
		t.Error("upgrade succeeded after strong count reached zero")
	}
}

// TestMappedBuffer verifies CPU access is gated on CPUAccessible.
func TestMappedBuffer(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)

	gpu, _ := device.CreateBuffer(&types.BufferDesc{
		DebugName: "DeviceOnly", Size: 64, Usage: types.BufferUsageVertex,
	})
	defer gpu.Release()
	if _, err := gpu.Map(); !errors.Is(err, rhi.ErrInvalidArgument) {
		t.Errorf("mapping device-only buffer: err = %v, want ErrInvalidArgument", err)
	}

	up, _ := device.CreateBuffer(&types.BufferDesc{
		DebugName: "Staging", Size: 64, Usage: types.BufferUsageTransferSrc,
		Memory: types.MemoryUpload, CPUAccessible: true,
	})
	defer up.Release()

	data, err := up.Map()
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(data) != 64 {
		t.Errorf("mapped length = %d, want 64", len(data))
	}
	if !up.IsMapped() {
		t.Error("IsMapped false while mapped")
	}
	up.Unmap()
	if up.IsMapped() {
		t.Error("IsMapped true after unmap")
	}
}

// TestShaderBytecodeValidation verifies per-backend bytecode contracts.
func TestShaderBytecodeValidation(t *testing.T) {
	modern := newTestDevice(t, types.PreferModern)

	sh, err := modern.CreateVertexShader(spirvStub())
	if err != nil {
		t.Fatalf("modern SPIR-V shader: %v", err)
	}
	sh.Release()

	if _, err := modern.CreateVertexShader([]byte("void main() {}\x00")); !errors.Is(err, rhi.ErrInvalidArgument) {
		t.Errorf("modern GLSL shader: err = %v, want ErrInvalidArgument", err)
	}

	legacy := newTestDevice(t, types.PreferLegacy)

	glsl := []byte("#version 430 core\nvoid main() { gl_Position = vec4(0.0); }\x00")
	sh, err = legacy.CreateVertexShader(glsl)
	if err != nil {
		t.Fatalf("legacy GLSL shader: %v", err)
	}
	sh.Release()

	if _, err := legacy.CreateVertexShader(spirvStub()); !errors.Is(err, rhi.ErrInvalidArgument) {
		t.Errorf("legacy SPIR-V shader: err = %v, want ErrInvalidArgument", err)
	}
}

// TestPipelineStateCreation verifies pipeline creation and the null
// return on invalid shaders.
func TestPipelineStateCreation(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)

	vs, err := device.CreateVertexShader(spirvStub())
	if err != nil {
		t.Fatalf("vertex shader: %v", err)
	}
	defer vs.Release()
	ps, err := device.CreatePixelShader(spirvStub())
	if err != nil {
		t.Fatalf("pixel shader: %v", err)
	}
	defer ps.Release()

	pso, err := device.CreatePipelineState(&rhi.PipelineStateDesc{
		DebugName:    "BasicPSO",
		VertexShader: vs,
		PixelShader:  ps,
		Topology:     types.TopologyTriangleList,
		RenderTargetFormats: []types.PixelFormat{
			types.FormatBGRA8Srgb,
		},
		DepthFormat: types.FormatD32Float,
		VertexLayout: types.VertexInputLayout{
			Attributes: []types.VertexAttribute{
				{Location: 0, Format: types.VertexFloat3, Offset: 0},
				{Location: 1, Format: types.VertexFloat2, Offset: 12},
			},
		},
	})
	if err != nil {
		t.Fatalf("CreatePipelineState: %v", err)
	}
	defer pso.Release()

	if _, err := device.CreatePipelineState(&rhi.PipelineStateDesc{}); !errors.Is(err, rhi.ErrInvalidArgument) {
		t.Errorf("pipeline without shaders: err = %v, want ErrInvalidArgument", err)
	}
}

// TestDefaultTextures verifies the fallback set exists on both backends.
func TestDefaultTextures(t *testing.T) {
	for _, pref := range []types.BackendPreference{types.PreferModern, types.PreferLegacy} {
		device := newTestDevice(t, pref)
		defaults := device.Defaults()
		for name, tex := range map[string]*rhi.Texture{
			"white":        defaults.White,
			"black":        defaults.Black,
			"flat normal":  defaults.FlatNormal,
			"checkerboard": defaults.Checkerboard,
		} {
			if tex == nil || !tex.Valid() {
				t.Errorf("%v: default %s texture missing", device.Backend(), name)
			}
		}
	}
}

// TestConfigFromEnv verifies environment parsing with fallbacks.
func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RHI_PREFERRED_BACKEND", "legacy")
	t.Setenv("RHI_ENABLE_VALIDATION", "true")
	t.Setenv("RHI_TEXTURE_POOL_SIZE_BYTES", "1048576")
	t.Setenv("RHI_FRAME_ARENA_BYTES", "not-a-number")

	cfg := rhi.ConfigFromEnv()
	if cfg.PreferredBackend != types.PreferLegacy {
		t.Errorf("preferred backend = %v, want legacy", cfg.PreferredBackend)
	}
	if !cfg.EnableValidation {
		t.Error("validation not enabled")
	}
	if cfg.TexturePoolSizeBytes != 1048576 {
		t.Errorf("texture pool bytes = %d, want 1048576", cfg.TexturePoolSizeBytes)
	}
	if cfg.FrameArenaBytes != rhi.DefaultConfig().FrameArenaBytes {
		t.Errorf("malformed arena bytes should fall back, got %d", cfg.FrameArenaBytes)
	}
}
