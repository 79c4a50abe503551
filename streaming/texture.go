// Package streaming implements priority-driven texture mip streaming:
// a per-frame control loop that decides which mip levels of each
// registered texture should be GPU-resident, loads missing mips from
// disk through the async file loader, uploads them through the device's
// upload queue, and evicts lower-priority mips when the pool is tight.
//
// Pool backing comes from the memory package's texture pool; disk I/O
// from the fileio package; GPU uploads and fences from the RHI device.
package streaming

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/hal"
	"github.com/gogpu/rhi/types"
)

// StreamableTexture is the contract between the streaming manager and
// texture objects. Mip levels use texture convention: level 0 is full
// resolution. Residency is a count of the lowest-detail mips held in
// GPU memory; mip indices below total−resident refer to sideloaded
// disk data.
type StreamableTexture interface {
	// TotalMips returns the full mip chain length.
	TotalMips() uint32

	// ResidentMips returns how many tail mips are GPU-resident.
	ResidentMips() uint32

	// MipSize returns the byte size of one mip level.
	MipSize(level uint32) uint64

	// MipFileOffset returns the byte offset of a mip level in the
	// texture's backing file. Mips are stored contiguously in level
	// order.
	MipFileOffset(level uint32) int64

	// FilePath returns the backing file for disk loads.
	FilePath() string

	// UploadMipData synchronously uploads mips [startLevel, endLevel);
	// data holds one slice per level.
	UploadMipData(startLevel, endLevel uint32, data [][]byte) error

	// UploadMipDataAsync queues one upload per mip and returns a fence
	// value per mip for completion checking.
	UploadMipDataAsync(startLevel, endLevel uint32, data [][]byte) ([]uint64, error)

	// IsAsyncUploadComplete reports whether an upload fence signaled.
	IsAsyncUploadComplete(fence uint64) bool

	// WaitForAsyncUpload blocks until an upload fence signals.
	WaitForAsyncUpload(fence uint64)

	// UpdateResidentMips records the new resident count after a stream
	// operation completes.
	UpdateResidentMips(count uint32)
}

// Texture2D ties the streaming contract to an RHI device texture.
type Texture2D struct {
	device   *rhi.Device
	texture  *rhi.Texture
	filePath string

	mipSizes   []uint64
	mipOffsets []int64
	resident   atomic.Uint32
}

// NewTexture2D creates a streamable texture over a device texture whose
// mip data lives in the file at filePath, stored contiguously in level
// order starting at offset 0.
func NewTexture2D(device *rhi.Device, desc *types.TextureDesc, filePath string) (*Texture2D, error) {
	tex, err := device.CreateTexture(desc)
	if err != nil {
		return nil, err
	}

	full := tex.Desc()
	t := &Texture2D{
		device:   device,
		texture:  tex,
		filePath: filePath,
	}
	t.mipSizes = make([]uint64, full.MipLevels)
	t.mipOffsets = make([]int64, full.MipLevels)
	var offset int64
	for level := uint32(0); level < full.MipLevels; level++ {
		size := full.MipByteSize(level)
		t.mipSizes[level] = size
		t.mipOffsets[level] = offset
		offset += int64(size)
	}
	return t, nil
}

// Texture returns the wrapped RHI texture handle.
func (t *Texture2D) Texture() *rhi.Texture { return t.texture }

// Release drops the texture reference.
func (t *Texture2D) Release() { t.texture.Release() }

// TotalMips implements StreamableTexture.
func (t *Texture2D) TotalMips() uint32 { return uint32(len(t.mipSizes)) }

// ResidentMips implements StreamableTexture.
func (t *Texture2D) ResidentMips() uint32 { return t.resident.Load() }

// MipSize implements StreamableTexture.
func (t *Texture2D) MipSize(level uint32) uint64 {
	if level >= uint32(len(t.mipSizes)) {
		return 0
	}
	return t.mipSizes[level]
}

// MipFileOffset implements StreamableTexture.
func (t *Texture2D) MipFileOffset(level uint32) int64 {
	if level >= uint32(len(t.mipOffsets)) {
		return 0
	}
	return t.mipOffsets[level]
}

// FilePath implements StreamableTexture.
func (t *Texture2D) FilePath() string { return t.filePath }

// validateRange rejects out-of-chain upload requests.
func (t *Texture2D) validateRange(startLevel, endLevel uint32) error {
	if startLevel >= t.TotalMips() || endLevel > t.TotalMips() || startLevel >= endLevel {
		hal.Logger().Warn("streaming: mip range outside chain",
			"texture", t.filePath, "start", startLevel, "end", endLevel, "total", t.TotalMips())
		return fmt.Errorf("%w: mip range [%d,%d) outside chain of %d",
			rhi.ErrInvalidArgument, startLevel, endLevel, t.TotalMips())
	}
	return nil
}

// UploadMipData implements StreamableTexture.
func (t *Texture2D) UploadMipData(startLevel, endLevel uint32, data [][]byte) error {
	if err := t.validateRange(startLevel, endLevel); err != nil {
		return err
	}
	return t.device.HAL().UploadTextureMips(t.texture.HAL(), startLevel, endLevel, data)
}

// UploadMipDataAsync implements StreamableTexture.
func (t *Texture2D) UploadMipDataAsync(startLevel, endLevel uint32, data [][]byte) ([]uint64, error) {
	if err := t.validateRange(startLevel, endLevel); err != nil {
		return nil, err
	}
	return t.device.HAL().UploadTextureMipsAsync(t.texture.HAL(), startLevel, endLevel, data)
}

// IsAsyncUploadComplete implements StreamableTexture.
func (t *Texture2D) IsAsyncUploadComplete(fence uint64) bool {
	return t.device.HAL().IsUploadComplete(fence)
}

// WaitForAsyncUpload implements StreamableTexture.
func (t *Texture2D) WaitForAsyncUpload(fence uint64) {
	t.device.HAL().WaitForUpload(fence)
}

// UpdateResidentMips implements StreamableTexture.
func (t *Texture2D) UpdateResidentMips(count uint32) {
	if count > t.TotalMips() {
		count = t.TotalMips()
	}
	t.resident.Store(count)
}
