package rhi

import (
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// Config is the enumerated configuration surface of the core. Every
// field maps to one environment variable read by ConfigFromEnv.
type Config struct {
	// PreferredBackend selects which backend Init opens.
	// Env: RHI_PREFERRED_BACKEND = auto | modern | legacy.
	PreferredBackend types.BackendPreference

	// EnableValidation turns on internal invariant checks.
	// Env: RHI_ENABLE_VALIDATION.
	EnableValidation bool

	// EnableDebugMarkers records BeginEvent/EndEvent/SetMarker scopes.
	// Env: RHI_ENABLE_DEBUG_MARKERS.
	EnableDebugMarkers bool

	// TexturePoolSizeBytes sizes the streaming texture pool blocks.
	// Env: RHI_TEXTURE_POOL_SIZE_BYTES.
	TexturePoolSizeBytes uint64

	// FrameArenaBytes sizes the per-frame scratch arena.
	// Env: RHI_FRAME_ARENA_BYTES.
	FrameArenaBytes uint64

	// HugePagesForTextures backs large texture blocks with huge pages.
	// Env: RHI_HUGE_PAGES_FOR_TEXTURES.
	HugePagesForTextures bool
}

// DefaultConfig returns the defaults used when the environment is
// silent: auto backend, validation off, 64 MiB texture blocks, 16 MiB
// frame arena.
func DefaultConfig() Config {
	return Config{
		PreferredBackend:     types.PreferAuto,
		TexturePoolSizeBytes: 64 << 20,
		FrameArenaBytes:      16 << 20,
	}
}

// ConfigFromEnv reads the configuration environment variables, falling
// back to defaults (with a warning) on malformed values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	switch v := strings.ToLower(os.Getenv("RHI_PREFERRED_BACKEND")); v {
	case "", "auto":
	case "modern":
		cfg.PreferredBackend = types.PreferModern
	case "legacy":
		cfg.PreferredBackend = types.PreferLegacy
	default:
		hal.Logger().Warn("rhi: unknown RHI_PREFERRED_BACKEND, using auto", "value", v)
	}

	cfg.EnableValidation = envBool("RHI_ENABLE_VALIDATION", cfg.EnableValidation)
	cfg.EnableDebugMarkers = envBool("RHI_ENABLE_DEBUG_MARKERS", cfg.EnableDebugMarkers)
	cfg.TexturePoolSizeBytes = envUint("RHI_TEXTURE_POOL_SIZE_BYTES", cfg.TexturePoolSizeBytes)
	cfg.FrameArenaBytes = envUint("RHI_FRAME_ARENA_BYTES", cfg.FrameArenaBytes)
	cfg.HugePagesForTextures = envBool("RHI_HUGE_PAGES_FOR_TEXTURES", cfg.HugePagesForTextures)
	return cfg
}

func envBool(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		hal.Logger().Warn("rhi: malformed boolean environment variable", "name", name, "value", v)
		return fallback
	}
	return b
}

func envUint(name string, fallback uint64) uint64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		hal.Logger().Warn("rhi: malformed integer environment variable", "name", name, "value", v)
		return fallback
	}
	return n
}
