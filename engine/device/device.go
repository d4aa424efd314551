package device

import (
	"errors"
	"sync/atomic"
)

// ErrDeviceLost is returned for work targeting a device that was removed or became unusable.
var ErrDeviceLost = errors.New("device: device lost")

// graphicsDevice is the implementation of the Device interface.
type graphicsDevice struct {
	ordinal      int
	capabilities Capabilities
	backend      Backend
	lost         atomic.Bool
}

// Device represents one physical or logical rendering adapter.
// Its ordinal is dense, assigned at enumeration, and stable while the device is active.
// Capabilities are read-only after construction.
type Device interface {
	// Ordinal returns the device's stable index, used to address per-device slots.
	//
	// Returns:
	//   - int: the device ordinal
	Ordinal() int

	// Capabilities returns the device's configuration snapshot.
	//
	// Returns:
	//   - Capabilities: texture quality, sample count and limits
	Capabilities() Capabilities

	// Backend returns the native graphics API used to allocate device resources.
	//
	// Returns:
	//   - Backend: the backend
	Backend() Backend

	// Lost reports whether the device has been removed or became unusable.
	// Resources report themselves unloaded on a lost device.
	//
	// Returns:
	//   - bool: true once the device is lost
	Lost() bool
}

var _ Device = &graphicsDevice{}

// NewDevice creates a Device with the given ordinal and backend.
// Devices are normally created through a Manager, which assigns ordinals; NewDevice is exposed for
// hosts that enumerate adapters themselves.
//
// Parameters:
//   - ordinal: the device ordinal (must be >= 0)
//   - backend: the native backend (must not be nil)
//   - options: functional options overriding DefaultCapabilities
//
// Returns:
//   - Device: the new device
func NewDevice(ordinal int, backend Backend, options ...DeviceBuilderOption) Device {
	return newDevice(ordinal, backend, options...)
}

func newDevice(ordinal int, backend Backend, options ...DeviceBuilderOption) *graphicsDevice {
	if ordinal < 0 {
		panic("device: NewDevice requires a non-negative ordinal")
	}
	if backend == nil {
		panic("device: NewDevice requires a non-nil Backend")
	}
	d := &graphicsDevice{
		ordinal:      ordinal,
		capabilities: DefaultCapabilities(),
		backend:      backend,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *graphicsDevice) Ordinal() int {
	return d.ordinal
}

func (d *graphicsDevice) Capabilities() Capabilities {
	return d.capabilities
}

func (d *graphicsDevice) Backend() Backend {
	return d.backend
}

func (d *graphicsDevice) Lost() bool {
	return d.lost.Load()
}
