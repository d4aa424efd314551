// Package view provides the views a scene is rendered into: each owns its primary render target
// per device, the pass dispatcher per device and the render target stack a frame runs on.
package view

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/pass"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/slot"
	"github.com/Carmen-Shannon/oxy-rt/engine/target"
)

// Host supplies the size and antialiasing of a view. It is polled once per frame.
type Host interface {
	// Width returns the current width in pixels.
	Width() int

	// Height returns the current height in pixels.
	Height() int

	// SampleCount returns the requested multisample count. Zero selects the device's default.
	SampleCount() uint32
}

// FixedHost is a Host with a constant configuration, used for offscreen views.
type FixedHost struct {
	W, H    int
	Samples uint32
}

func (h FixedHost) Width() int          { return h.W }
func (h FixedHost) Height() int         { return h.H }
func (h FixedHost) SampleCount() uint32 { return h.Samples }

// perDevice is the frame state of a view on one device.
type perDevice struct {
	dispatcher pass.Dispatcher
	stack      target.Stack
}

// view is the implementation of the View interface.
type view struct {
	id        uint64
	label     string
	host      Host
	primary   target.Owner
	ownerOpts []target.OwnerBuilderOption
	stackOpts []target.StackBuilderOption

	mu      sync.Mutex
	layers  pass.LayerMask
	devices *slot.DeviceSlotArray[*perDevice]
}

// View is a camera-independent render destination: a host-sized primary target set, the layers it
// renders and the subscriptions made for it on every device.
type View interface {
	// ID returns the view identifier.
	//
	// Returns:
	//   - uint64: the ID
	ID() uint64

	// Label returns the view name used in logs and target labels.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Host returns the view's host.
	//
	// Returns:
	//   - Host: the host
	Host() Host

	// Layers returns the layers the view renders.
	//
	// Returns:
	//   - pass.LayerMask: the mask
	Layers() pass.LayerMask

	// SetLayers replaces the layers the view renders on every device.
	//
	// Parameters:
	//   - layers: the mask
	SetLayers(layers pass.LayerMask)

	// Primary returns the owner of the view's primary target set.
	//
	// Returns:
	//   - target.Owner: the owner
	Primary() target.Owner

	// Poll reads the host's configuration and requests it from the primary owner. A change takes
	// effect at the next BeginFrame on each device.
	Poll()

	// Dispatcher returns the view's dispatcher on dev, creating it on first use.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - pass.Dispatcher: the dispatcher
	Dispatcher(dev device.Device) pass.Dispatcher

	// BeginFrame acquires the primary set on dev and resets the device's stack to it.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - target.Stack: the stack for the frame
	//   - error: the primary target's allocation error
	BeginFrame(dev device.Device) (target.Stack, error)

	// Unload releases the primary target on dev and drops the view's subscriptions there.
	//
	// Parameters:
	//   - dev: the device
	Unload(dev device.Device)

	// Invalidate forgets every per-device state of dev without releasing GPU objects.
	//
	// Parameters:
	//   - dev: the lost device
	Invalidate(dev device.Device)
}

var _ View = &view{}

// NewView creates a View rendering for host.
//
// Parameters:
//   - id: the view identifier
//   - host: the size and antialiasing source
//   - options: functional options
//
// Returns:
//   - View: the view
func NewView(id uint64, host Host, options ...ViewBuilderOption) View {
	if host == nil {
		panic("view: NewView requires a host")
	}
	v := &view{
		id:      id,
		label:   fmt.Sprintf("view %d", id),
		host:    host,
		layers:  pass.LayerAll,
		devices: slot.NewDeviceSlotArray[*perDevice](),
	}
	for _, opt := range options {
		opt(v)
	}
	key := resource.NamedKey(fmt.Sprintf("target:view/%d", id))
	v.primary = target.NewOwner(key, append([]target.OwnerBuilderOption{target.WithLabel(v.label)}, v.ownerOpts...)...)
	v.Poll()
	return v
}

func (v *view) ID() uint64            { return v.id }
func (v *view) Label() string         { return v.label }
func (v *view) Host() Host            { return v.host }
func (v *view) Primary() target.Owner { return v.primary }

func (v *view) Layers() pass.LayerMask {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layers
}

func (v *view) SetLayers(layers pass.LayerMask) {
	v.mu.Lock()
	v.layers = layers
	v.mu.Unlock()

	for _, pd := range v.devices.All() {
		pd.dispatcher.SetLayers(layers)
	}
}

func (v *view) Poll() {
	size := target.Size{
		Width:       uint32(max(v.host.Width(), 0)),
		Height:      uint32(max(v.host.Height(), 0)),
		SampleCount: v.host.SampleCount(),
	}
	if size != v.primary.Requested() {
		common.Logger().Debug("view resized", "view", v.label,
			"width", size.Width, "height", size.Height, "samples", size.SampleCount)
		v.primary.Request(size)
	}
}

// state returns the per-device state of dev, creating it at the device's ordinal.
func (v *view) state(dev device.Device) *perDevice {
	v.mu.Lock()
	defer v.mu.Unlock()

	if pd, ok := v.devices.Get(dev.Ordinal()); ok {
		return pd
	}
	pd := &perDevice{
		dispatcher: pass.NewDispatcher(pass.WithViewID(v.id), pass.WithLayers(v.layers)),
	}
	if i, err := v.devices.Add(dev.Ordinal(), pd); err != nil || i != dev.Ordinal() {
		panic(fmt.Sprintf("view: slot for device %d is occupied", dev.Ordinal()))
	}
	return pd
}

func (v *view) Dispatcher(dev device.Device) pass.Dispatcher {
	return v.state(dev).dispatcher
}

func (v *view) BeginFrame(dev device.Device) (target.Stack, error) {
	set, err := v.primary.Acquire(dev)
	if err != nil {
		return nil, fmt.Errorf("%s primary target: %w", v.label, err)
	}
	pd := v.state(dev)
	if pd.stack == nil {
		pd.stack = target.NewStack(dev, set, v.stackOpts...)
	} else {
		pd.stack.Reset(set)
	}
	return pd.stack, nil
}

func (v *view) drop(dev device.Device) {
	v.mu.Lock()
	pd, ok := v.devices.RemoveAt(dev.Ordinal())
	v.mu.Unlock()
	if ok {
		pd.dispatcher.Clear()
	}
}

func (v *view) Unload(dev device.Device) {
	v.drop(dev)
	v.primary.Unload(dev)
}

func (v *view) Invalidate(dev device.Device) {
	v.drop(dev)
	v.primary.Invalidate(dev)
}
