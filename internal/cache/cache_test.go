package cache

import (
	"image"
	"testing"

	"github.com/halvardh/streamview/internal/gputex"
	"github.com/halvardh/streamview/internal/pyramid"
)

func solidLevels(full pyramid.Size) []pyramid.Level {
	sizes := pyramid.LevelSizes(full)
	levels := make([]pyramid.Level, len(sizes))
	for i, s := range sizes {
		levels[i] = pyramid.Level{Size: s, Image: image.NewRGBA(image.Rect(0, 0, s.W, s.H))}
	}
	return levels
}

func TestAddThenFind(t *testing.T) {
	c := New(1<<20, gputex.NewMemoryUploader())
	tex, err := c.Add("a.png", pyramid.Size{W: 4, H: 4})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := c.Find("a.png"); got != tex {
		t.Fatalf("Find returned %v, want the same pointer as Add", got)
	}
	if c.Find("missing.png") != nil {
		t.Fatal("Find on unknown path should return nil")
	}
}

func TestAddTwiceFails(t *testing.T) {
	c := New(1<<20, gputex.NewMemoryUploader())
	if _, err := c.Add("a.png", pyramid.Size{W: 4, H: 4}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if _, err := c.Add("a.png", pyramid.Size{W: 4, H: 4}); err == nil {
		t.Fatal("expected ErrAlreadyPresent on second Add")
	}
}

func TestCacheMipsUpdatesMemoryUsedAndGPUHandle(t *testing.T) {
	c := New(1<<20, gputex.NewMemoryUploader())
	tex, _ := c.Add("a.png", pyramid.Size{W: 4, H: 4})
	tex.DesiredCachedMips = len(tex.Mips)

	levels := solidLevels(pyramid.Size{W: 4, H: 4})
	if err := c.CacheMips(tex, levels); err != nil {
		t.Fatalf("CacheMips: %v", err)
	}

	if tex.CachedMips != len(tex.Mips) {
		t.Fatalf("CachedMips = %d, want %d", tex.CachedMips, len(tex.Mips))
	}
	if tex.Tex == nil {
		t.Fatal("expected a GPU handle after caching mips")
	}
	if c.MemoryUsed == 0 {
		t.Fatal("expected MemoryUsed > 0")
	}

	var want int64
	for _, s := range pyramid.LevelSizes(pyramid.Size{W: 4, H: 4}) {
		want += s.MemorySize()
	}
	if c.MemoryUsed != want {
		t.Fatalf("MemoryUsed = %d, want %d", c.MemoryUsed, want)
	}
}

func TestCacheMipsInstallsOnlyDesiredPrefix(t *testing.T) {
	c := New(1<<20, gputex.NewMemoryUploader())
	tex, _ := c.Add("a.png", pyramid.Size{W: 4, H: 4})
	tex.DesiredCachedMips = 2 // smallest two levels only

	levels := solidLevels(pyramid.Size{W: 4, H: 4})
	if err := c.CacheMips(tex, levels); err != nil {
		t.Fatalf("CacheMips: %v", err)
	}

	if tex.CachedMips != 2 {
		t.Fatalf("CachedMips = %d, want 2", tex.CachedMips)
	}
	for i := 0; i < 2; i++ {
		if tex.Mips[i].Image == nil {
			t.Fatalf("mip %d should be resident", i)
		}
	}
	for i := 2; i < len(tex.Mips); i++ {
		if tex.Mips[i].Image != nil {
			t.Fatalf("mip %d should not be resident", i)
		}
	}
}

func TestEvictMipThenUpdateTextureObjectShrinksChain(t *testing.T) {
	c := New(1<<20, gputex.NewMemoryUploader())
	tex, _ := c.Add("a.png", pyramid.Size{W: 4, H: 4})
	tex.DesiredCachedMips = len(tex.Mips)

	levels := solidLevels(pyramid.Size{W: 4, H: 4})
	if err := c.CacheMips(tex, levels); err != nil {
		t.Fatalf("CacheMips: %v", err)
	}

	full := len(tex.Mips)
	for i := 1; i < full; i++ {
		c.EvictMip(tex, i)
	}
	tex.CachedMips = 1
	if err := c.UpdateTextureObject(tex); err != nil {
		t.Fatalf("UpdateTextureObject: %v", err)
	}

	if tex.Tex == nil {
		t.Fatal("expected GPU handle to remain present with cached_mips == 1")
	}
	for i := 1; i < full; i++ {
		if tex.Mips[i].Image != nil {
			t.Fatalf("mip %d should have been evicted", i)
		}
	}
}

func TestRemoveReleasesGPUHandleAndErasesEntry(t *testing.T) {
	c := New(1<<20, gputex.NewMemoryUploader())
	tex, _ := c.Add("a.png", pyramid.Size{W: 2, H: 2})
	tex.DesiredCachedMips = len(tex.Mips)
	if err := c.CacheMips(tex, solidLevels(pyramid.Size{W: 2, H: 2})); err != nil {
		t.Fatalf("CacheMips: %v", err)
	}

	c.Remove("a.png")

	if c.Find("a.png") != nil {
		t.Fatal("expected texture to be erased")
	}
	if c.MemoryUsed != 0 {
		t.Fatalf("MemoryUsed = %d, want 0 after Remove", c.MemoryUsed)
	}
}

func TestGetDisplayablePixelDensity(t *testing.T) {
	c := New(1<<20, gputex.NewMemoryUploader())
	tex, _ := c.Add("a.png", pyramid.Size{W: 8, H: 8})

	if got := tex.GetDisplayablePixelDensity(pyramid.Size{W: 8, H: 8}); got != 0 {
		t.Fatalf("density with nothing resident = %v, want 0", got)
	}

	tex.DesiredCachedMips = 2 // residents: 1x1, 2x2
	if err := c.CacheMips(tex, solidLevels(pyramid.Size{W: 8, H: 8})); err != nil {
		t.Fatalf("CacheMips: %v", err)
	}

	got := tex.GetDisplayablePixelDensity(pyramid.Size{W: 8, H: 8})
	want := 2.0 / 8.0
	if got != want {
		t.Fatalf("density = %v, want %v", got, want)
	}
	if tex.AllMipsDisplayable() {
		t.Fatal("expected AllMipsDisplayable to be false with a partial prefix")
	}
}
