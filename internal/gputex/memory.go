package gputex

import "sync/atomic"

// MemoryUploader is a fake Uploader that does no GPU work: it just tracks
// which mip levels have been "uploaded" and their byte sizes, so tests and
// the headless CLI tools (cmd/streamview, cmd/mipdump) can exercise the
// Cache Directory's texture lifecycle without a real graphics context.
type MemoryUploader struct {
	handles atomic.Uint64
}

// NewMemoryUploader constructs a MemoryUploader ready for use.
func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{}
}

// Generate implements Uploader.
func (u *MemoryUploader) Generate() (Texture, error) {
	return &memoryTexture{handle: u.handles.Add(1)}, nil
}

// memoryTexture implements Texture by recording calls instead of issuing
// GPU commands. Bytes are copied out of the caller's slice so later mutation
// (e.g. pool reuse of the source buffer) can't corrupt what was "uploaded".
type memoryTexture struct {
	handle      uint64
	mipmapped   bool
	borderClamp bool
	minMip      int
	maxMip      int
	mips        map[int][]byte
	mipSizes    map[int]Size
	released    bool
}

func (t *memoryTexture) SetFilteringMipmapped() { t.mipmapped = true }
func (t *memoryTexture) SetBorderClamp()        { t.borderClamp = true }

func (t *memoryTexture) UploadMipmap(mipIndex int, pixels []byte, size Size) error {
	if t.mips == nil {
		t.mips = make(map[int][]byte)
		t.mipSizes = make(map[int]Size)
	}
	buf := make([]byte, len(pixels))
	copy(buf, pixels)
	t.mips[mipIndex] = buf
	t.mipSizes[mipIndex] = size
	return nil
}

func (t *memoryTexture) SetActiveMips(minMip, maxMip int) {
	t.minMip, t.maxMip = minMip, maxMip
}

func (t *memoryTexture) Release() {
	t.released = true
	t.mips = nil
	t.mipSizes = nil
}

func (t *memoryTexture) Handle() uint64 { return t.handle }

// Mipmap exposes the bytes last uploaded at a GPU mip index, for test
// assertions. ok is false if that index was never uploaded or the texture
// has been released.
func (t *memoryTexture) Mipmap(mipIndex int) (pixels []byte, size Size, ok bool) {
	if t.released || t.mips == nil {
		return nil, Size{}, false
	}
	p, ok := t.mips[mipIndex]
	return p, t.mipSizes[mipIndex], ok
}
