package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/slot"
)

// ErrUnknownDevice is returned when an ordinal does not name an active device.
var ErrUnknownDevice = errors.New("device: unknown device ordinal")

// manager is the implementation of the Manager interface.
type manager struct {
	mu          sync.Mutex
	devices     *slot.DeviceSlotArray[*graphicsDevice]
	nextOrdinal int
	onRemoved   []func(Device)
}

// Manager enumerates graphics devices and owns their lifetime.
// Ordinals are assigned densely in enumeration order and are never reused within a process, so a
// stale ordinal can never alias a newer device.
type Manager interface {
	// Enumerate registers a backend as a new device and assigns it the next ordinal.
	//
	// Parameters:
	//   - backend: the native backend for the device
	//   - options: functional options for the device's capabilities
	//
	// Returns:
	//   - Device: the new device
	Enumerate(backend Backend, options ...DeviceBuilderOption) Device

	// Device returns the active device with the given ordinal, or nil.
	//
	// Parameters:
	//   - ordinal: the device ordinal
	//
	// Returns:
	//   - Device: the device or nil
	Device(ordinal int) Device

	// Devices returns all active devices in ascending ordinal order.
	//
	// Returns:
	//   - []Device: the active devices
	Devices() []Device

	// Remove marks a device lost, runs the removal callbacks so every per-device slot for the
	// ordinal is invalidated, and destroys the backend.
	//
	// Parameters:
	//   - ordinal: the device ordinal
	//
	// Returns:
	//   - error: ErrUnknownDevice if the ordinal is not active
	Remove(ordinal int) error

	// OnRemoved registers a callback invoked synchronously for every removed device, after the
	// device reports Lost and before its backend is destroyed.
	//
	// Parameters:
	//   - fn: the callback
	OnRemoved(fn func(Device))

	// Close removes every active device.
	Close()
}

var _ Manager = &manager{}

// NewManager creates an empty device Manager.
//
// Returns:
//   - Manager: the new manager
func NewManager() Manager {
	return &manager{
		devices: slot.NewDeviceSlotArray[*graphicsDevice](),
	}
}

func (m *manager) Enumerate(backend Backend, options ...DeviceBuilderOption) Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := newDevice(m.nextOrdinal, backend, options...)
	m.nextOrdinal++
	if _, err := m.devices.Add(d.ordinal, d); err != nil {
		panic(fmt.Sprintf("device: enumerate: %v", err))
	}

	caps := d.capabilities
	common.Logger().Info("device enumerated",
		"ordinal", d.ordinal,
		"label", caps.Label,
		"textureQuality", caps.TextureQuality.String(),
		"msaa", uint32(caps.SampleCount))
	return d
}

func (m *manager) Device(ordinal int) Device {
	d, ok := m.devices.Get(ordinal)
	if !ok {
		return nil
	}
	return d
}

func (m *manager) Devices() []Device {
	out := make([]Device, 0, m.devices.Len())
	_ = m.devices.Range(func(_ int, d *graphicsDevice) bool {
		out = append(out, d)
		return true
	})
	return out
}

func (m *manager) Remove(ordinal int) error {
	m.mu.Lock()
	d, ok := m.devices.RemoveAt(ordinal)
	callbacks := append([]func(Device){}, m.onRemoved...)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDevice, ordinal)
	}

	d.lost.Store(true)
	for _, fn := range callbacks {
		fn(d)
	}
	d.backend.Destroy()

	common.Logger().Info("device removed", "ordinal", ordinal, "label", d.capabilities.Label)
	return nil
}

func (m *manager) OnRemoved(fn func(Device)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemoved = append(m.onRemoved, fn)
}

func (m *manager) Close() {
	for _, d := range m.Devices() {
		_ = m.Remove(d.Ordinal())
	}
}
