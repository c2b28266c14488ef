// Package cache implements the Cache Directory: the filepath -> CachedTexture
// map, its byte-budget bookkeeping, and the GPU texture lifecycle rules.
// It is a direct translation of the source viewer's Texture_Streamer member
// functions (find_texture, add_texture, update_texture_object, evict_mip,
// cache_mips, remove_texture) with the original's hand-rolled sorted_vector
// replaced by a plain Go map — nothing in the spec depends on iteration
// order, and map lookup is O(1) where the original's sorted vector was
// O(log n).
//
// Every exported method here is called only from the render/driver
// goroutine; Cache holds no internal locking because it is never shared
// across goroutines (see internal/streamer).
package cache

import (
	"errors"
	"fmt"
	"math"

	"github.com/halvardh/streamview/internal/gputex"
	"github.com/halvardh/streamview/internal/pyramid"
)

// ErrAlreadyPresent is returned by Add when called twice for the same path.
var ErrAlreadyPresent = errors.New("cache: texture already present")

// Mipmap is one entry of a CachedTexture's pyramid descriptor.
type Mipmap struct {
	SizePx pyramid.Size
	Image  *pyramid.Level // nil unless resident
	// Priority is recomputed every frame by the streamer; +Inf means
	// "currently unwanted".
	Priority float64
}

// MemorySize returns the resident byte size of this mip, 0 if absent.
func (m *Mipmap) MemorySize() int64 {
	if m.Image == nil {
		return 0
	}
	return m.SizePx.MemorySize()
}

// CachedTexture is the per-image cache entry: the ordered pyramid
// descriptor, how much of it is resident, how much of it is wanted, and the
// GPU handle if any mip is resident.
type CachedTexture struct {
	Filepath string

	// Mips is ordered smallest (index 0) to largest (index len-1),
	// matching pyramid.Generate's output order.
	Mips []Mipmap

	// CachedMips is the length of the resident prefix: Mips[0:CachedMips]
	// have a non-nil Image, Mips[CachedMips:] do not.
	CachedMips int
	// DesiredCachedMips is recomputed by the streamer every frame in
	// queries_end's Step B.
	DesiredCachedMips int

	// Tex is the GPU handle for the currently resident prefix, or nil if
	// CachedMips == 0.
	Tex gputex.Texture

	// OrderPriority is in [0,1], lower means more urgent; reset to +Inf at
	// queries_begin and minimized across the frame's queries.
	OrderPriority float64
	// WasQueried is true iff at least one query named this texture's path
	// this frame.
	WasQueried bool
	// JobInFlight is true iff a decode job for this texture is currently
	// queued, being processed, or has a result waiting to be drained.
	JobInFlight bool
}

// GetDisplayablePixelDensity returns the ratio of the largest resident
// mip's size to onscreenSizePx, taking the minimum across axes, or 0 if
// nothing is resident yet. The renderer uses this to decide whether to draw
// a loading overlay.
func (t *CachedTexture) GetDisplayablePixelDensity(onscreenSizePx pyramid.Size) float64 {
	if t.CachedMips == 0 {
		return 0
	}
	largest := t.Mips[t.CachedMips-1].SizePx
	wx := float64(largest.W) / float64(onscreenSizePx.W)
	hy := float64(largest.H) / float64(onscreenSizePx.H)
	if wx < hy {
		return wx
	}
	return hy
}

// AllMipsDisplayable reports whether the full pyramid (not just a prefix)
// is currently resident.
func (t *CachedTexture) AllMipsDisplayable() bool {
	return t.CachedMips == len(t.Mips)
}

// Cache is the filepath -> CachedTexture map plus byte-budget accounting.
type Cache struct {
	textures map[string]*CachedTexture

	// MemoryUsed is the sum of MemorySize() over every resident mip across
	// every texture.
	MemoryUsed int64
	// MemoryBudget is the ceiling queries_end's Step B packs mips against.
	MemoryBudget int64

	uploader gputex.Uploader
}

// New constructs an empty Cache with the given byte budget and GPU
// uploader.
func New(memoryBudget int64, uploader gputex.Uploader) *Cache {
	return &Cache{
		textures:     make(map[string]*CachedTexture),
		MemoryBudget: memoryBudget,
		uploader:     uploader,
	}
}

// Find returns the CachedTexture for path, or nil if unknown.
func (c *Cache) Find(path string) *CachedTexture {
	return c.textures[path]
}

// Len returns the number of textures currently tracked.
func (c *Cache) Len() int {
	return len(c.textures)
}

// Each calls fn once per tracked texture. fn must not add or remove
// textures from the cache.
func (c *Cache) Each(fn func(*CachedTexture)) {
	for _, t := range c.textures {
		fn(t)
	}
}

// Add inserts a new CachedTexture for path with an empty pyramid descriptor
// derived from fullSizePx. Returns ErrAlreadyPresent if path is already
// tracked.
func (c *Cache) Add(path string, fullSizePx pyramid.Size) (*CachedTexture, error) {
	if _, exists := c.textures[path]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPresent, path)
	}

	sizes := pyramid.LevelSizes(fullSizePx)
	mips := make([]Mipmap, len(sizes))
	for i, s := range sizes {
		mips[i] = Mipmap{SizePx: s, Priority: infinity}
	}

	t := &CachedTexture{
		Filepath:      path,
		Mips:          mips,
		OrderPriority: infinity,
	}
	c.textures[path] = t
	return t, nil
}

// infinity is the "not wanted" sentinel priority value.
var infinity = math.Inf(1)

// EvictMip releases the host image at level k, adjusting MemoryUsed. It does
// not rebuild the GPU texture; callers must follow up with
// UpdateTextureObject. CachedMips is not changed here — callers adjust it
// themselves to reflect the new resident prefix.
func (c *Cache) EvictMip(t *CachedTexture, k int) {
	m := &t.Mips[k]
	if m.Image == nil {
		return
	}
	c.MemoryUsed -= m.MemorySize()
	pyramid.ReleaseAll([]pyramid.Level{*m.Image})
	m.Image = nil
}

// UpdateTextureObject tears down the current GPU handle and, if
// CachedMips > 0, creates a new one uploading exactly the first CachedMips
// host buffers as the GPU mip chain (biggest to smallest, matching
// texture.hpp's convention), with mipmapped linear filtering and
// edge-clamp addressing, with the active mip range set to cover exactly
// those levels.
func (c *Cache) UpdateTextureObject(t *CachedTexture) error {
	if t.Tex != nil {
		t.Tex.Release()
		t.Tex = nil
	}

	if t.CachedMips == 0 {
		return nil
	}

	tex, err := c.uploader.Generate()
	if err != nil {
		return fmt.Errorf("cache: generate texture for %s: %w", t.Filepath, err)
	}
	tex.SetFilteringMipmapped()
	tex.SetBorderClamp()

	for i := 0; i < t.CachedMips; i++ {
		m := &t.Mips[i]
		if m.Image == nil {
			return fmt.Errorf("cache: mip %d of %s marked cached but has no image", i, t.Filepath)
		}
		gpuIdx, err := gputex.ToGPUMipIndex(t.CachedMips, i)
		if err != nil {
			return err
		}
		if err := tex.UploadMipmap(gpuIdx, m.Image.Image.Pix, gputex.Size{W: m.SizePx.W, H: m.SizePx.H}); err != nil {
			return fmt.Errorf("cache: upload mip %d of %s: %w", i, t.Filepath, err)
		}
	}
	tex.SetActiveMips(0, t.CachedMips-1)

	t.Tex = tex
	return nil
}

// CacheMips clears every currently resident mip of t, then installs the
// first min(DesiredCachedMips, len(newMips)) entries as the resident
// prefix, updates MemoryUsed, and rebuilds the GPU texture.
//
// If a mip's size disagrees with the descriptor captured at Add time (the
// source file changed on disk between add and decode), the descriptor is
// refreshed from newMips' sizes, any stale resident prefix is discarded, and
// the caller should treat this as a recoverable anomaly and re-reconcile on
// the next frame.
func (c *Cache) CacheMips(t *CachedTexture, newMips []pyramid.Level) error {
	if len(newMips) != len(t.Mips) {
		c.resetDescriptor(t, newMips)
	} else {
		for i, lvl := range newMips {
			if lvl.Size != t.Mips[i].SizePx {
				c.resetDescriptor(t, newMips)
				break
			}
		}
	}

	c.evictAllMips(t)

	want := t.DesiredCachedMips
	if want > len(newMips) {
		want = len(newMips)
	}
	t.CachedMips = want

	for i := 0; i < t.CachedMips; i++ {
		lvl := newMips[i]
		t.Mips[i].Image = &lvl
		c.MemoryUsed += t.Mips[i].MemorySize()
	}
	// Any levels beyond the resident prefix were generated but are not
	// wanted this frame; return their buffers to the pool immediately
	// instead of holding them until the next eviction.
	if t.CachedMips < len(newMips) {
		pyramid.ReleaseAll(newMips[t.CachedMips:])
	}

	return c.UpdateTextureObject(t)
}

func (c *Cache) resetDescriptor(t *CachedTexture, newMips []pyramid.Level) {
	c.evictAllMips(t)
	mips := make([]Mipmap, len(newMips))
	for i, lvl := range newMips {
		mips[i] = Mipmap{SizePx: lvl.Size, Priority: infinity}
	}
	t.Mips = mips
	if t.DesiredCachedMips > len(mips) {
		t.DesiredCachedMips = len(mips)
	}
}

// evictAllMips releases every currently resident mip and tears down the
// GPU texture, without erasing the texture from the cache.
func (c *Cache) evictAllMips(t *CachedTexture) {
	for i := 0; i < t.CachedMips; i++ {
		c.EvictMip(t, i)
	}
	t.CachedMips = 0
	if t.Tex != nil {
		t.Tex.Release()
		t.Tex = nil
	}
}

// Remove evicts every mip of the texture at path (freeing host memory and
// releasing the GPU handle) and erases the entry. Callers must ensure no
// job is in flight for that texture.
func (c *Cache) Remove(path string) {
	t, ok := c.textures[path]
	if !ok {
		return
	}
	c.evictAllMips(t)
	delete(c.textures, path)
}

// Clear evicts and removes every tracked texture.
func (c *Cache) Clear() {
	for path := range c.textures {
		c.Remove(path)
	}
}
