package wgpu_backend

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
)

var formatTable = map[device.TextureFormat]wgpu.TextureFormat{
	device.TextureFormatRGBA8Unorm:          wgpu.TextureFormatRGBA8Unorm,
	device.TextureFormatRGBA8UnormSrgb:      wgpu.TextureFormatRGBA8UnormSrgb,
	device.TextureFormatBGRA8Unorm:          wgpu.TextureFormatBGRA8Unorm,
	device.TextureFormatDepth24PlusStencil8: wgpu.TextureFormatDepth24PlusStencil8,
	device.TextureFormatDepth32Float:        wgpu.TextureFormatDepth32Float,
	device.TextureFormatR32Uint:             wgpu.TextureFormatR32Uint,
	device.TextureFormatRGBA16Float:         wgpu.TextureFormatRGBA16Float,
}

// toWGPUFormat maps a device format to its WebGPU equivalent.
func toWGPUFormat(f device.TextureFormat) (wgpu.TextureFormat, bool) {
	wf, ok := formatTable[f]
	return wf, ok
}

// fromWGPUFormat maps a WebGPU format back, reporting TextureFormatUndefined for formats the engine does not use.
func fromWGPUFormat(wf wgpu.TextureFormat) device.TextureFormat {
	for f, candidate := range formatTable {
		if candidate == wf {
			return f
		}
	}
	return device.TextureFormatUndefined
}

// resolvable reports whether WebGPU can resolve multisampled content of the format.
// Depth/stencil and integer formats have no resolve operation.
func resolvable(f device.TextureFormat) bool {
	switch f {
	case device.TextureFormatDepth24PlusStencil8, device.TextureFormatDepth32Float, device.TextureFormatR32Uint:
		return false
	default:
		return true
	}
}

func toWGPUTextureUsage(u device.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&device.TextureUsageCopySrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if u&device.TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	if u&device.TextureUsageTextureBinding != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&device.TextureUsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	return out
}

func toWGPUBufferUsage(u device.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&device.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&device.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&device.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	// queue writes need CopyDst regardless of the requested usage
	return out | wgpu.BufferUsageCopyDst
}

// alignBufferSize rounds a buffer size up to the 4-byte multiple WebGPU requires for queue writes.
func alignBufferSize(n int) uint64 {
	return uint64((n + 3) &^ 3)
}

// Texture is a WebGPU texture together with its default view.
type Texture struct {
	desc     device.TextureDescriptor
	mu       sync.Mutex
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	released bool
}

var _ device.Texture = &Texture{}

func (t *Texture) Label() string                { return t.desc.Label }
func (t *Texture) Width() uint32                { return t.desc.Width }
func (t *Texture) Height() uint32               { return t.desc.Height }
func (t *Texture) SampleCount() uint32          { return t.desc.SampleCount }
func (t *Texture) Format() device.TextureFormat { return t.desc.Format }

// View returns the texture's default view for binding as an attachment or shader resource.
//
// Returns:
//   - *wgpu.TextureView: the view, or nil once released
func (t *Texture) View() *wgpu.TextureView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// Raw returns the underlying WebGPU texture.
//
// Returns:
//   - *wgpu.Texture: the texture, or nil once released
func (t *Texture) Raw() *wgpu.Texture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.texture
}

func (t *Texture) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// Buffer is a WebGPU buffer.
type Buffer struct {
	label    string
	size     uint64
	mu       sync.Mutex
	buffer   *wgpu.Buffer
	released bool
}

var _ device.Buffer = &Buffer{}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Size() uint64  { return b.size }

// Raw returns the underlying WebGPU buffer.
//
// Returns:
//   - *wgpu.Buffer: the buffer, or nil once released
func (b *Buffer) Raw() *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer
}

func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}
