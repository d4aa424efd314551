// Package texture provides the sampled texture resource. Source pixels are shared by every device;
// each device uploads its own copy, resampled to the device's texture quality.
package texture

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
)

// gpuTexture is the per-device payload.
type gpuTexture struct {
	texture    device.Texture
	generation uint64
}

// texture is the implementation of the Texture interface.
type texture struct {
	key            resource.Key
	label          string
	format         device.TextureFormat
	qualityScaling bool
	path           string

	mu         sync.RWMutex
	source     common.TextureStagingData
	generation uint64

	instances *resource.Instances[gpuTexture]
}

// Texture is a sampled 2D texture resource.
type Texture interface {
	resource.Resource
	resource.Invalidator

	// Label returns the debug label used for GPU allocations.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Path returns the file the texture was imported from, or "" for in-memory sources.
	//
	// Returns:
	//   - string: the source path
	Path() string

	// Source returns the current source pixels.
	//
	// Returns:
	//   - common.TextureStagingData: the source pixels
	Source() common.TextureStagingData

	// SetSource replaces the source pixels. Devices that already uploaded the previous source
	// report Stale until Refresh is called for them.
	//
	// Parameters:
	//   - data: the new source pixels
	//
	// Returns:
	//   - error: common.ErrConfiguration if the pixel data does not match its dimensions
	SetSource(data common.TextureStagingData) error

	// Stale reports whether dev holds an upload of an older source.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - bool: true if Refresh would re-upload
	Stale(dev device.Device) bool

	// Refresh re-uploads the current source on dev when the device's copy is stale, releasing the
	// previous GPU texture. It is a no-op for devices the texture is not loaded on.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - error: an allocation or upload error; the previous upload is kept in that case
	Refresh(dev device.Device) error

	// GPUTexture returns the device's uploaded texture.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - device.Texture: the texture
	//   - error: resource.ErrNotLoaded before Load
	GPUTexture(dev device.Device) (device.Texture, error)
}

var _ Texture = &texture{}

// NewTexture creates a texture resource from RGBA source pixels.
//
// Parameters:
//   - key: the registry key
//   - source: the source pixels (shared, never modified)
//   - options: functional options
//
// Returns:
//   - Texture: the texture
//   - error: common.ErrConfiguration if the pixel data does not match its dimensions
func NewTexture(key resource.Key, source common.TextureStagingData, options ...TextureBuilderOption) (Texture, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: texture %s has %d bytes for %dx%d", common.ErrConfiguration, key, len(source.Pixels), source.Width, source.Height)
	}
	t := &texture{
		key:            key,
		label:          key.String(),
		format:         device.TextureFormatRGBA8UnormSrgb,
		qualityScaling: true,
		source:         source,
		instances:      resource.NewInstances[gpuTexture](),
	}
	for _, opt := range options {
		opt(t)
	}
	return t, nil
}

func (t *texture) Kind() resource.Kind { return resource.KindTexture }
func (t *texture) Key() resource.Key   { return t.key }
func (t *texture) Label() string       { return t.label }
func (t *texture) Path() string        { return t.path }

func (t *texture) Source() common.TextureStagingData {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.source
}

func (t *texture) SetSource(data common.TextureStagingData) error {
	if !data.Valid() {
		return fmt.Errorf("%w: texture %s has %d bytes for %dx%d", common.ErrConfiguration, t.key, len(data.Pixels), data.Width, data.Height)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source = data
	t.generation++
	return nil
}

func (t *texture) snapshot() (common.TextureStagingData, uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.source, t.generation
}

func (t *texture) upload(dev device.Device) (gpuTexture, error) {
	source, generation := t.snapshot()

	width, height := source.Width, source.Height
	if t.qualityScaling {
		width, height = TargetSize(width, height, dev.Capabilities())
	} else if limit := dev.Capabilities().MaxTextureSize; limit > 0 && (width > limit || height > limit) {
		width, height = TargetSize(width, height, device.Capabilities{MaxTextureSize: limit})
	}
	pixels := Scale(source, width, height)

	backend := dev.Backend()
	tex, err := backend.CreateTexture(device.TextureDescriptor{
		Label:       t.label,
		Width:       width,
		Height:      height,
		SampleCount: 1,
		Format:      t.format,
		Usage:       device.TextureUsageTextureBinding | device.TextureUsageCopyDst,
	})
	if err != nil {
		return gpuTexture{}, err
	}
	if err := backend.WriteTexture(tex, pixels.Pixels); err != nil {
		tex.Release()
		return gpuTexture{}, err
	}

	common.Logger().Debug("texture uploaded", "texture", t.label, "device", dev.Ordinal(),
		"width", width, "height", height, "quality", dev.Capabilities().TextureQuality)
	return gpuTexture{texture: tex, generation: generation}, nil
}

func (t *texture) Load(dev device.Device, _ resource.Registry) error {
	return t.instances.Load(dev, func() (gpuTexture, error) {
		return t.upload(dev)
	})
}

func (t *texture) Unload(dev device.Device) {
	if g, ok := t.instances.Unload(dev); ok {
		g.texture.Release()
	}
}

func (t *texture) IsLoaded(dev device.Device) bool {
	return t.instances.IsLoaded(dev)
}

func (t *texture) Invalidate(dev device.Device) {
	t.instances.Invalidate(dev)
}

func (t *texture) Stale(dev device.Device) bool {
	g, err := t.instances.Get(dev)
	if err != nil {
		return false
	}
	_, generation := t.snapshot()
	return g.generation != generation
}

func (t *texture) Refresh(dev device.Device) error {
	if !t.Stale(dev) {
		return nil
	}
	g, err := t.upload(dev)
	if err != nil {
		return err
	}
	prev, err := t.instances.Update(dev, g)
	if err != nil {
		// unloaded while uploading
		g.texture.Release()
		return nil
	}
	prev.texture.Release()
	return nil
}

func (t *texture) GPUTexture(dev device.Device) (device.Texture, error) {
	g, err := t.instances.Get(dev)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", t.key, err)
	}
	return g.texture, nil
}
