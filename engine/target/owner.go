package target

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
)

// Size is the allocation configuration of an owned set.
type Size struct {
	Width, Height uint32

	// SampleCount is the multisample count. Zero selects the device's default.
	SampleCount uint32
}

// allocation is the per-device payload of an Owner.
type allocation struct {
	size Size
	set  Set
}

func (a *allocation) release() {
	for _, at := range a.set.attachments {
		if at.Texture != nil {
			at.Texture.Release()
		}
		if at.Resolve != nil {
			at.Resolve.Release()
		}
	}
}

// owner is the implementation of the Owner interface.
type owner struct {
	key     resource.Key
	label   string
	formats [channelCount]device.TextureFormat

	mu   sync.Mutex
	size Size

	instances *resource.Instances[*allocation]
	onAlloc   func(dev device.Device, size Size)
}

// Owner allocates the buffers of a set per device. The requested size is polled from the host
// once per frame; when it or the sample count changes, every buffer of the device's allocation is
// released and re-created on the next Acquire. An unchanged configuration reuses its buffers.
type Owner interface {
	resource.Resource
	resource.Invalidator

	// Label returns the debug label prefix of the owned textures.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Request sets the configuration the next Acquire allocates for.
	//
	// Parameters:
	//   - size: the requested size and sample count
	Request(size Size)

	// Requested returns the configuration set by Request.
	//
	// Returns:
	//   - Size: the requested size
	Requested() Size

	// Acquire returns the set for dev, allocating it on first use and re-allocating it when the
	// requested configuration changed since the last allocation.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - Set: the owned set
	//   - error: common.ErrConfiguration for a zero size, or the allocation error
	Acquire(dev device.Device) (Set, error)

	// Channels reports which channels the owner allocates.
	//
	// Returns:
	//   - []Channel: the allocated channels in binding order
	Channels() []Channel
}

var _ Owner = &owner{}

// NewOwner creates an Owner allocating color and depth buffers unless options select other channels.
//
// Parameters:
//   - key: the registry key
//   - options: functional options
//
// Returns:
//   - Owner: the owner
func NewOwner(key resource.Key, options ...OwnerBuilderOption) Owner {
	o := &owner{
		key:       key,
		label:     key.String(),
		instances: resource.NewInstances[*allocation](),
	}
	o.formats[ChannelColor] = device.TextureFormatBGRA8Unorm
	o.formats[ChannelDepth] = device.TextureFormatDepth24PlusStencil8
	for _, opt := range options {
		opt(o)
	}
	return o
}

func (o *owner) Kind() resource.Kind { return resource.KindRenderTarget }
func (o *owner) Key() resource.Key   { return o.key }
func (o *owner) Label() string       { return o.label }

func (o *owner) Channels() []Channel {
	var out []Channel
	for _, c := range Channels {
		if o.formats[c] != device.TextureFormatUndefined {
			out = append(out, c)
		}
	}
	return out
}

func (o *owner) Request(size Size) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.size = size
}

func (o *owner) Requested() Size {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size
}

// effective resolves the default sample count against the device.
func (o *owner) effective(dev device.Device) Size {
	size := o.Requested()
	if size.SampleCount == 0 {
		size.SampleCount = uint32(dev.Capabilities().SampleCount)
	}
	if size.SampleCount == 0 {
		size.SampleCount = 1
	}
	return size
}

func (o *owner) allocate(dev device.Device, size Size) (*allocation, error) {
	if size.Width == 0 || size.Height == 0 {
		return nil, fmt.Errorf("%w: render target %s requested at %dx%d", common.ErrConfiguration, o.label, size.Width, size.Height)
	}
	backend := dev.Backend()
	alloc := &allocation{size: size}

	create := func(c Channel, samples uint32, suffix string) (device.Texture, error) {
		usage := device.TextureUsageRenderAttachment
		if samples == 1 {
			usage |= device.TextureUsageTextureBinding | device.TextureUsageCopySrc
		}
		return backend.CreateTexture(device.TextureDescriptor{
			Label:       fmt.Sprintf("%s %s%s", o.label, c, suffix),
			Width:       size.Width,
			Height:      size.Height,
			SampleCount: samples,
			Format:      o.formats[c],
			Usage:       usage,
		})
	}

	for _, c := range Channels {
		if o.formats[c] == device.TextureFormatUndefined {
			continue
		}
		tex, err := create(c, size.SampleCount, "")
		if err != nil {
			alloc.release()
			return nil, fmt.Errorf("render target %s %s: %w", o.label, c, err)
		}
		a := Attachment{Texture: tex}
		if size.SampleCount > 1 && c.resolvable() {
			resolve, err := create(c, 1, " Resolve")
			if err != nil {
				tex.Release()
				alloc.release()
				return nil, fmt.Errorf("render target %s %s resolve: %w", o.label, c, err)
			}
			a.Resolve = resolve
		}
		alloc.set.attachments[c] = a
	}

	if o.onAlloc != nil {
		o.onAlloc(dev, size)
	}
	common.Logger().Debug("render target allocated",
		"device", dev.Ordinal(), "target", o.label,
		"width", size.Width, "height", size.Height, "samples", size.SampleCount)
	return alloc, nil
}

func (o *owner) Load(dev device.Device, _ resource.Registry) error {
	return o.instances.Load(dev, func() (*allocation, error) {
		return o.allocate(dev, o.effective(dev))
	})
}

func (o *owner) Acquire(dev device.Device) (Set, error) {
	want := o.effective(dev)
	alloc, err := o.instances.Get(dev)
	if err != nil {
		if err := o.Load(dev, nil); err != nil {
			return Set{}, err
		}
		if alloc, err = o.instances.Get(dev); err != nil {
			return Set{}, err
		}
	}
	if alloc.size == want {
		return alloc.set, nil
	}

	// the configuration changed: drop every buffer before allocating the new ones
	alloc.release()
	next, err := o.allocate(dev, want)
	if err != nil {
		o.instances.Unload(dev)
		return Set{}, err
	}
	if _, err := o.instances.Update(dev, next); err != nil {
		next.release()
		return Set{}, err
	}
	return next.set, nil
}

func (o *owner) Unload(dev device.Device) {
	if alloc, ok := o.instances.Unload(dev); ok {
		alloc.release()
	}
}

func (o *owner) IsLoaded(dev device.Device) bool {
	return o.instances.IsLoaded(dev)
}

func (o *owner) Invalidate(dev device.Device) {
	o.instances.Invalidate(dev)
}
