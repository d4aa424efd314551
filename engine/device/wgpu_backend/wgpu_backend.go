// Package wgpu_backend implements device.Backend on WebGPU through cogentcore/webgpu.
package wgpu_backend

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBackend is the WebGPU implementation of device.Backend.
type wgpuBackend struct {
	mu     sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	label                string
	forceFallbackAdapter bool
	powerPreference      wgpu.PowerPreference

	surfaceDescriptor *wgpu.SurfaceDescriptor
	surfaceWidth      int
	surfaceHeight     int
	surfaceFormat     wgpu.TextureFormat
	presentMode       wgpu.PresentMode

	destroyed bool
}

// Backend is a device.Backend that can also present to a window surface and resize it.
type Backend interface {
	device.Backend
	device.Presenter

	// ConfigureSurface reconfigures the window surface after a resize.
	// It is a no-op for backends created without a surface.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the surface reports no usable format
	ConfigureSurface(width, height int) error

	// SurfaceFormat returns the format a texture must have to be presented.
	//
	// Returns:
	//   - device.TextureFormat: the surface format, or TextureFormatUndefined without a surface
	SurfaceFormat() device.TextureFormat
}

var _ Backend = &wgpuBackend{}

// New requests a WebGPU adapter and device and wraps them as a backend.
//
// Parameters:
//   - options: functional options for adapter selection and surface setup
//
// Returns:
//   - Backend: the backend
//   - error: an error if no adapter or device could be obtained
func New(options ...WGPUBackendBuilderOption) (Backend, error) {
	b := &wgpuBackend{
		label:       "oxy device",
		presentMode: wgpu.PresentModeImmediate,
	}
	for _, opt := range options {
		opt(b)
	}

	b.instance = wgpu.CreateInstance(nil)
	if b.surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(b.surfaceDescriptor)
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		PowerPreference:      b.powerPreference,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.instance.Release()
		return nil, fmt.Errorf("failed to request adapter for %q: %w", b.label, err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: b.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		a.Release()
		b.instance.Release()
		return nil, fmt.Errorf("failed to request device %q: %w", b.label, err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if b.surface != nil {
		if err := b.ConfigureSurface(b.surfaceWidth, b.surfaceHeight); err != nil {
			b.Destroy()
			return nil, err
		}
	}
	return b, nil
}

func (b *wgpuBackend) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return nil, device.ErrDeviceLost
	}
	if err := device.ValidateDescriptor(desc, 0); err != nil {
		return nil, err
	}
	format, ok := toWGPUFormat(desc.Format)
	if !ok {
		return nil, fmt.Errorf("%w: no WebGPU format for %s", device.ErrInvalidDescriptor, desc.Format)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   desc.SampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         toWGPUTextureUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &Texture{desc: desc, texture: tex, view: view}, nil
}

func (b *wgpuBackend) WriteTexture(tex device.Texture, pixels []byte) error {
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
	raw := t.Raw()
	if raw == nil {
		return fmt.Errorf("%w: texture %q was released", device.ErrInvalidDescriptor, t.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return device.ErrDeviceLost
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  raw,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  t.Width() * 4,
			RowsPerImage: t.Height(),
		},
		&wgpu.Extent3D{
			Width:              t.Width(),
			Height:             t.Height(),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *wgpuBackend) CreateBuffer(label string, usage device.BufferUsage, data []byte) (device.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return nil, device.ErrDeviceLost
	}

	size := alignBufferSize(len(data))
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            toWGPUBufferUsage(usage),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		padded := data
		if uint64(len(data)) != size {
			padded = make([]byte, size)
			copy(padded, data)
		}
		if err := b.queue.WriteBuffer(buf, 0, padded); err != nil {
			buf.Release()
			return nil, err
		}
	}
	return &Buffer{label: label, size: size, buffer: buf}, nil
}

// Resolve encodes a load/store render pass with the multisampled texture as the color attachment
// and the single-sample texture as its resolve target, the same arrangement the swapchain MSAA pass uses.
func (b *wgpuBackend) Resolve(src, dst device.Texture) error {
	if !device.CanResolve(src, dst) || !resolvable(src.Format()) {
		return fmt.Errorf("%w: cannot resolve %q into %q", device.ErrInvalidDescriptor, src.Label(), dst.Label())
	}
	s, okS := src.(*Texture)
	d, okD := dst.(*Texture)
	if !okS || !okD {
		return fmt.Errorf("%w: foreign textures in resolve", device.ErrInvalidDescriptor)
	}
	srcView, dstView := s.View(), d.View()
	if srcView == nil || dstView == nil {
		return fmt.Errorf("%w: resolve of released texture", device.ErrInvalidDescriptor)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return device.ErrDeviceLost
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          srcView,
				ResolveTarget: dstView,
				LoadOp:        wgpu.LoadOpLoad,
				StoreOp:       wgpu.StoreOpStore,
			},
		},
	})
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	common.Logger().Debug("resolved multisampled texture", "src", src.Label(), "dst", dst.Label(), "samples", src.SampleCount())
	return nil
}

func (b *wgpuBackend) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || b.destroyed {
		return nil
	}
	if width <= 0 || height <= 0 {
		// minimised windows report a zero framebuffer; keep the previous configuration
		return nil
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return fmt.Errorf("surface for %q reports no usable format", b.label)
	}
	b.surfaceFormat = capabilities.Formats[0]
	b.surfaceWidth = width
	b.surfaceHeight = height

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	return nil
}

func (b *wgpuBackend) SurfaceFormat() device.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil {
		return device.TextureFormatUndefined
	}
	return fromWGPUFormat(b.surfaceFormat)
}

// Present copies the color texture into the current swapchain image. The texture must match the
// surface size and format and carry CopySrc usage.
func (b *wgpuBackend) Present(color device.Texture) error {
	t, ok := color.(*Texture)
	if !ok {
		return fmt.Errorf("%w: foreign texture %q", device.ErrInvalidDescriptor, color.Label())
	}
	if t.SampleCount() != 1 {
		return fmt.Errorf("%w: cannot present multisampled %q", device.ErrInvalidDescriptor, t.Label())
	}
	raw := t.Raw()
	if raw == nil {
		return fmt.Errorf("%w: texture %q was released", device.ErrInvalidDescriptor, t.Label())
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return device.ErrDeviceLost
	}
	if b.surface == nil {
		return nil
	}
	if want, ok := toWGPUFormat(t.Format()); !ok || want != b.surfaceFormat {
		return fmt.Errorf("%w: %q is %s, surface expects a different format", device.ErrInvalidDescriptor, t.Label(), t.Format())
	}
	if int(t.Width()) != b.surfaceWidth || int(t.Height()) != b.surfaceHeight {
		return fmt.Errorf("%w: %q is %dx%d, surface is %dx%d", device.ErrInvalidDescriptor, t.Label(), t.Width(), t.Height(), b.surfaceWidth, b.surfaceHeight)
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: raw, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: surfaceTexture, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: t.Width(), Height: t.Height(), DepthOrArrayLayers: 1},
	)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		surfaceTexture.Release()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	b.surface.Present()
	surfaceTexture.Release()
	return nil
}

func (b *wgpuBackend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.destroyed = true
	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}
