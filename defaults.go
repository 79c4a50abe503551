package rhi

import (
	"github.com/gogpu/rhi/types"
)

// DefaultTextures are the built-in fallbacks substituted when a
// requested texture is missing, so rendering proceeds: solid white,
// solid black, a flat normal map, and a magenta/black checkerboard for
// visibly wrong lookups.
type DefaultTextures struct {
	White        *Texture
	Black        *Texture
	FlatNormal   *Texture
	Checkerboard *Texture
}

const defaultTextureSize = 4

// solidTexture builds a defaultTextureSize² RGBA8 fill.
func solidTexture(name string, r, g, b, a byte) *types.TextureDesc {
	data := make([]byte, defaultTextureSize*defaultTextureSize*4)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = r, g, b, a
	}
	return &types.TextureDesc{
		DebugName:   name,
		Width:       defaultTextureSize,
		Height:      defaultTextureSize,
		MipLevels:   1,
		Format:      types.FormatRGBA8Unorm,
		Usage:       types.BufferUsageShaderResource,
		InitialData: data,
	}
}

// checkerTexture builds the magenta/black checkerboard.
func checkerTexture(name string) *types.TextureDesc {
	data := make([]byte, defaultTextureSize*defaultTextureSize*4)
	for y := 0; y < defaultTextureSize; y++ {
		for x := 0; x < defaultTextureSize; x++ {
			i := (y*defaultTextureSize + x) * 4
			if (x+y)%2 == 0 {
				data[i], data[i+1], data[i+2] = 255, 0, 255
			}
			data[i+3] = 255
		}
	}
	return &types.TextureDesc{
		DebugName:   name,
		Width:       defaultTextureSize,
		Height:      defaultTextureSize,
		MipLevels:   1,
		Format:      types.FormatRGBA8Unorm,
		Usage:       types.BufferUsageShaderResource,
		InitialData: data,
	}
}

// createDefaultTextures populates the device's fallback set.
func (d *Device) createDefaultTextures() error {
	var err error
	if d.defaults.White, err = d.CreateTexture(solidTexture("DefaultWhite", 255, 255, 255, 255)); err != nil {
		return err
	}
	if d.defaults.Black, err = d.CreateTexture(solidTexture("DefaultBlack", 0, 0, 0, 255)); err != nil {
		return err
	}
	// Flat tangent-space normal: (0.5, 0.5, 1.0).
	if d.defaults.FlatNormal, err = d.CreateTexture(solidTexture("DefaultFlatNormal", 128, 128, 255, 255)); err != nil {
		return err
	}
	if d.defaults.Checkerboard, err = d.CreateTexture(checkerTexture("DefaultChecker")); err != nil {
		return err
	}
	return nil
}

// release drops the default texture references.
func (t *DefaultTextures) release() {
	for _, tex := range []*Texture{t.White, t.Black, t.FlatNormal, t.Checkerboard} {
		if tex != nil {
			tex.Release()
		}
	}
	t.White, t.Black, t.FlatNormal, t.Checkerboard = nil, nil, nil, nil
}
