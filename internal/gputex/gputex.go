// Package gputex defines the opaque GPU texture object the Cache Directory
// drives. It mirrors texture.hpp's Texture2D method set exactly (Generate,
// SetFilteringMipmapped, SetBorderClamp, UploadMipmap, SetActiveMips) so that
// the cache package can stay GPU-API-agnostic: a real embedder supplies a
// GL- or Vulkan-backed Uploader, while tests and the CLI tools use
// MemoryUploader, which does no GPU work at all.
package gputex

import "fmt"

// Size is a pixel width/height pair.
type Size struct {
	W, H int
}

// Texture is one GPU-resident texture object, created fresh each time the
// Cache Directory rebuilds the resident mip chain (the underlying graphics
// API cannot reliably free individual mip levels in place, so the pattern
// is always destroy-and-recreate).
type Texture interface {
	// SetFilteringMipmapped selects mipmapped linear minification and
	// linear magnification filtering.
	SetFilteringMipmapped()
	// SetBorderClamp selects edge-clamp addressing on both axes.
	SetBorderClamp()
	// UploadMipmap uploads one mip level's pixels. mipIndex follows the
	// underlying API's convention (0 = largest uploaded level).
	UploadMipmap(mipIndex int, pixels []byte, size Size) error
	// SetActiveMips marks the usable mip range [minMip, maxMip] inclusive,
	// in the same indexing convention as UploadMipmap.
	SetActiveMips(minMip, maxMip int)
	// Release destroys the GPU handle. Safe to call once; a Texture is
	// never reused after Release.
	Release()
	// Handle returns an implementation-defined identifier for diagnostics
	// (e.g. a GL texture name), or 0 if none is meaningful.
	Handle() uint64
}

// Uploader constructs new GPU textures. Exactly one Uploader is owned by the
// render/driver goroutine; nothing here is safe to call concurrently.
type Uploader interface {
	// Generate allocates a new, empty GPU texture object.
	Generate() (Texture, error)
}

// mipmapIndexConvention converts a cache-side mip index (0 = smallest) to
// the GPU-side index (0 = largest resident level), matching
// update_texture_object's to_opengl_mip_index helper.
func mipmapIndexConvention(cachedMips, mipIndex int) (int, error) {
	if mipIndex < 0 || mipIndex >= cachedMips {
		return 0, fmt.Errorf("gputex: mip index %d out of range [0,%d)", mipIndex, cachedMips)
	}
	return cachedMips - 1 - mipIndex, nil
}

// ToGPUMipIndex is the exported form of mipmapIndexConvention, used by the
// cache package when driving UploadMipmap/SetActiveMips.
func ToGPUMipIndex(cachedMips, mipIndex int) (int, error) {
	return mipmapIndexConvention(cachedMips, mipIndex)
}
