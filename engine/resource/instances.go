package resource

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/slot"
)

// State is the per-device lifecycle state of a resource.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

type instance[T any] struct {
	state   State
	payload T
}

// Instances tracks one payload per device for a resource, stored in a DeviceSlotArray addressed
// by device ordinal. The zero value is not usable; create one with NewInstances.
//
// The tracker lock guards state transitions only. It is never held while a payload is built, so a
// load may acquire dependencies that load on the same device.
type Instances[T any] struct {
	mu    sync.Mutex
	slots *slot.DeviceSlotArray[*instance[T]]
}

// NewInstances creates an empty tracker.
//
// Returns:
//   - *Instances[T]: the tracker
func NewInstances[T any]() *Instances[T] {
	return &Instances[T]{
		slots: slot.NewDeviceSlotArray[*instance[T]](),
	}
}

// Load builds the payload for dev with build and stores it. It is a no-op when dev is already
// loaded or its load is in progress. When build fails the device is left unloaded.
//
// Parameters:
//   - dev: the target device
//   - build: creates the payload; called without the tracker lock held
//
// Returns:
//   - error: the build error, or ErrDeviceLost for a lost device
func (in *Instances[T]) Load(dev device.Device, build func() (T, error)) error {
	if dev.Lost() {
		return fmt.Errorf("%w: ordinal %d", device.ErrDeviceLost, dev.Ordinal())
	}

	in.mu.Lock()
	if in.slots.Has(dev.Ordinal()) {
		in.mu.Unlock()
		return nil
	}
	pending := &instance[T]{state: StateLoading}
	if _, err := in.add(dev.Ordinal(), pending); err != nil {
		in.mu.Unlock()
		return err
	}
	in.mu.Unlock()

	payload, err := build()

	in.mu.Lock()
	defer in.mu.Unlock()
	if err != nil {
		_ = in.slots.Remove(pending)
		return err
	}
	if current, ok := in.slots.Get(dev.Ordinal()); !ok || current != pending {
		// invalidated while building; the device is gone
		return fmt.Errorf("%w: ordinal %d", device.ErrDeviceLost, dev.Ordinal())
	}
	pending.payload = payload
	pending.state = StateLoaded
	return nil
}

// add stores inst at exactly ordinal. Instances never share a slot with another device.
func (in *Instances[T]) add(ordinal int, inst *instance[T]) (int, error) {
	i, err := in.slots.Add(ordinal, inst)
	if err != nil {
		return -1, err
	}
	if i != ordinal {
		in.slots.RemoveAt(i)
		return -1, fmt.Errorf("resource: slot for ordinal %d is occupied", ordinal)
	}
	return i, nil
}

// Unload removes the payload for dev and returns it so the caller can release its GPU objects.
// Unloading an unloaded device, or one whose load is still in progress, reports false.
//
// Parameters:
//   - dev: the target device
//
// Returns:
//   - T: the removed payload
//   - bool: true if a loaded payload was removed
func (in *Instances[T]) Unload(dev device.Device) (T, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	var zero T
	inst, ok := in.slots.Get(dev.Ordinal())
	if !ok || inst.state != StateLoaded {
		return zero, false
	}
	in.slots.RemoveAt(dev.Ordinal())
	return inst.payload, true
}

// Get returns the payload for dev.
//
// Parameters:
//   - dev: the target device
//
// Returns:
//   - T: the payload
//   - error: ErrNotLoaded if the resource is not loaded on dev, ErrDeviceLost if dev is lost
func (in *Instances[T]) Get(dev device.Device) (T, error) {
	var zero T
	if dev.Lost() {
		return zero, fmt.Errorf("%w: ordinal %d", device.ErrDeviceLost, dev.Ordinal())
	}
	in.mu.Lock()
	defer in.mu.Unlock()

	inst, ok := in.slots.Get(dev.Ordinal())
	if !ok || inst.state != StateLoaded {
		return zero, fmt.Errorf("%w: ordinal %d", ErrNotLoaded, dev.Ordinal())
	}
	return inst.payload, nil
}

// Update replaces the payload for a loaded device, returning the previous one.
//
// Parameters:
//   - dev: the target device
//   - payload: the new payload
//
// Returns:
//   - T: the previous payload
//   - error: ErrNotLoaded if the resource is not loaded on dev
func (in *Instances[T]) Update(dev device.Device, payload T) (T, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	var zero T
	inst, ok := in.slots.Get(dev.Ordinal())
	if !ok || inst.state != StateLoaded {
		return zero, fmt.Errorf("%w: ordinal %d", ErrNotLoaded, dev.Ordinal())
	}
	prev := inst.payload
	inst.payload = payload
	return prev, nil
}

// IsLoaded reports whether a payload is stored for dev. It reports false for a lost device.
func (in *Instances[T]) IsLoaded(dev device.Device) bool {
	return !dev.Lost() && in.State(dev) == StateLoaded
}

// State returns the lifecycle state for dev.
func (in *Instances[T]) State(dev device.Device) State {
	in.mu.Lock()
	defer in.mu.Unlock()

	inst, ok := in.slots.Get(dev.Ordinal())
	if !ok {
		return StateUnloaded
	}
	return inst.state
}

// Invalidate forgets the state for dev without returning its payload. It is used on device loss,
// when the GPU objects are already gone.
func (in *Instances[T]) Invalidate(dev device.Device) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.slots.RemoveAt(dev.Ordinal())
}

// Range calls fn with every loaded payload in ascending ordinal order until fn returns false.
//
// Parameters:
//   - fn: the visitor, receiving the device ordinal and payload
//
// Returns:
//   - error: slot.ErrModifiedDuringIteration if devices were dropped mid-walk
func (in *Instances[T]) Range(fn func(ordinal int, payload T) bool) error {
	return in.slots.Range(func(i int, inst *instance[T]) bool {
		in.mu.Lock()
		loaded, payload := inst.state == StateLoaded, inst.payload
		in.mu.Unlock()
		if !loaded {
			return true
		}
		return fn(i, payload)
	})
}

// Len returns the number of devices with a loaded payload.
func (in *Instances[T]) Len() int {
	n := 0
	_ = in.Range(func(int, T) bool {
		n++
		return true
	})
	return n
}
