// Package recording_backend provides a device.Backend that allocates plain Go memory and records
// every call. It backs headless runs and the engine's tests.
package recording_backend

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/engine/device"
)

// Texture is a recorded texture allocation.
type Texture struct {
	desc     device.TextureDescriptor
	mu       sync.Mutex
	pixels   []byte
	released bool
	resolved int
}

var _ device.Texture = &Texture{}

func (t *Texture) Label() string                { return t.desc.Label }
func (t *Texture) Width() uint32                { return t.desc.Width }
func (t *Texture) Height() uint32               { return t.desc.Height }
func (t *Texture) SampleCount() uint32          { return t.desc.SampleCount }
func (t *Texture) Format() device.TextureFormat { return t.desc.Format }

// Usage returns the usage flags the texture was created with.
func (t *Texture) Usage() device.TextureUsage { return t.desc.Usage }

func (t *Texture) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.released = true
}

// Released reports whether Release was called.
func (t *Texture) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// Pixels returns the last uploaded pixel data.
func (t *Texture) Pixels() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pixels
}

// ResolveCount returns how many times the texture was the destination of a resolve.
func (t *Texture) ResolveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolved
}

// Sampleable reports whether shaders can read the texture: it must be single-sample, bound for
// sampling, and hold content (uploaded or resolved).
func (t *Texture) Sampleable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.released && t.desc.SampleCount == 1 &&
		t.desc.Usage&device.TextureUsageTextureBinding != 0 &&
		(t.resolved > 0 || t.pixels != nil)
}

// Buffer is a recorded buffer allocation.
type Buffer struct {
	label    string
	usage    device.BufferUsage
	data     []byte
	mu       sync.Mutex
	released bool
}

var _ device.Buffer = &Buffer{}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Size() uint64  { return uint64(len(b.data)) }

// Usage returns the usage flags the buffer was created with.
func (b *Buffer) Usage() device.BufferUsage { return b.usage }

// Data returns the buffer contents.
func (b *Buffer) Data() []byte { return b.data }

func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
}

// Released reports whether Release was called.
func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// ResolveRecord is one recorded Resolve call.
type ResolveRecord struct {
	Src, Dst *Texture
}

// Backend is a recording device.Backend.
type Backend struct {
	mu         sync.Mutex
	maxSize    uint32
	textures   []*Texture
	buffers    []*Buffer
	resolves   []ResolveRecord
	presented  []*Texture
	destroyed  bool
	failCreate error
}

var _ device.Backend = &Backend{}
var _ device.Presenter = &Backend{}

// New creates a recording backend with no texture size limit.
func New() *Backend {
	return &Backend{}
}

// NewWithLimit creates a recording backend rejecting textures larger than maxSize.
func NewWithLimit(maxSize uint32) *Backend {
	return &Backend{maxSize: maxSize}
}

// FailCreates makes every following CreateTexture and CreateBuffer call return err until it is reset with nil.
func (b *Backend) FailCreates(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCreate = err
}

func (b *Backend) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return nil, device.ErrDeviceLost
	}
	if b.failCreate != nil {
		return nil, b.failCreate
	}
	if err := device.ValidateDescriptor(desc, b.maxSize); err != nil {
		return nil, err
	}
	t := &Texture{desc: desc}
	b.textures = append(b.textures, t)
	return t, nil
}

func (b *Backend) WriteTexture(tex device.Texture, pixels []byte) error {
	t, ok := tex.(*Texture)
	if !ok {
		return fmt.Errorf("%w: foreign texture %q", device.ErrInvalidDescriptor, tex.Label())
	}
	if t.SampleCount() != 1 {
		return fmt.Errorf("%w: cannot upload into multisampled %q", device.ErrInvalidDescriptor, t.Label())
	}
	if uint64(len(pixels)) != uint64(t.Width())*uint64(t.Height())*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d texture %q", device.ErrInvalidDescriptor, len(pixels), t.Width(), t.Height(), t.Label())
	}
	t.mu.Lock()
	t.pixels = append([]byte(nil), pixels...)
	t.mu.Unlock()
	return nil
}

func (b *Backend) CreateBuffer(label string, usage device.BufferUsage, data []byte) (device.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return nil, device.ErrDeviceLost
	}
	if b.failCreate != nil {
		return nil, b.failCreate
	}
	buf := &Buffer{label: label, usage: usage, data: append([]byte(nil), data...)}
	b.buffers = append(b.buffers, buf)
	return buf, nil
}

func (b *Backend) Resolve(src, dst device.Texture) error {
	if !device.CanResolve(src, dst) {
		return fmt.Errorf("%w: cannot resolve %q into %q", device.ErrInvalidDescriptor, src.Label(), dst.Label())
	}
	s, okS := src.(*Texture)
	d, okD := dst.(*Texture)
	if !okS || !okD {
		return fmt.Errorf("%w: foreign textures in resolve", device.ErrInvalidDescriptor)
	}

	d.mu.Lock()
	d.resolved++
	d.mu.Unlock()

	b.mu.Lock()
	b.resolves = append(b.resolves, ResolveRecord{Src: s, Dst: d})
	b.mu.Unlock()
	return nil
}

func (b *Backend) Present(color device.Texture) error {
	t, ok := color.(*Texture)
	if !ok {
		return fmt.Errorf("%w: foreign texture %q", device.ErrInvalidDescriptor, color.Label())
	}
	if t.SampleCount() != 1 {
		return fmt.Errorf("%w: cannot present multisampled %q", device.ErrInvalidDescriptor, t.Label())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return device.ErrDeviceLost
	}
	b.presented = append(b.presented, t)
	return nil
}

func (b *Backend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (b *Backend) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// Textures returns every texture created so far, released or not.
func (b *Backend) Textures() []*Texture {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Texture(nil), b.textures...)
}

// LiveTextures returns the textures that have not been released.
func (b *Backend) LiveTextures() []*Texture {
	var out []*Texture
	for _, t := range b.Textures() {
		if !t.Released() {
			out = append(out, t)
		}
	}
	return out
}

// Buffers returns every buffer created so far.
func (b *Backend) Buffers() []*Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Buffer(nil), b.buffers...)
}

// Resolves returns every recorded resolve in call order.
func (b *Backend) Resolves() []ResolveRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ResolveRecord(nil), b.resolves...)
}

// Presented returns every texture handed to Present in call order.
func (b *Backend) Presented() []*Texture {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Texture(nil), b.presented...)
}
