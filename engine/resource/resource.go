// Package resource tracks GPU-resident resources per graphics device.
//
// Every resource type implements Resource and stores its per-device payloads in an Instances
// tracker. A Registry exists per device and deduplicates resource creation by Key.
package resource

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine/device"
)

// ErrNotLoaded is returned when a per-device payload is queried before the resource was loaded on
// that device.
var ErrNotLoaded = errors.New("resource: not loaded on device")

// Kind names a resource type. A key holds resources of exactly one kind.
type Kind string

const (
	KindTexture      Kind = "texture"
	KindGeometry     Kind = "geometry"
	KindMaterial     Kind = "material"
	KindMesh         Kind = "mesh"
	KindRenderTarget Kind = "render-target"
)

// Resource is the per-device lifecycle every GPU resource follows.
// Per device a resource is Unloaded, Loading or Loaded; the state on one device never affects another.
type Resource interface {
	// Kind returns the resource type.
	Kind() Kind

	// Key returns the key the resource is registered under.
	Key() Key

	// Load creates the resource's GPU state on dev. Loading an already loaded resource is a no-op,
	// as is re-entering Load for a device whose load is in progress. Dependencies are acquired
	// through reg. A failed load leaves the resource Unloaded on dev.
	//
	// Parameters:
	//   - dev: the target device
	//   - reg: the device's registry
	//
	// Returns:
	//   - error: an error if GPU state could not be created
	Load(dev device.Device, reg Registry) error

	// Unload releases the resource's GPU state on dev. Unloading a resource that is not loaded is a no-op.
	//
	// Parameters:
	//   - dev: the target device
	Unload(dev device.Device)

	// IsLoaded reports whether the resource is usable on dev. It reports false for a lost device.
	//
	// Parameters:
	//   - dev: the target device
	//
	// Returns:
	//   - bool: true if loaded
	IsLoaded(dev device.Device) bool
}

// Invalidator is implemented by resources that can forget a device's state without touching the GPU.
// Registries call it when their device is lost.
type Invalidator interface {
	// Invalidate drops any state held for dev without releasing GPU objects.
	//
	// Parameters:
	//   - dev: the lost device
	Invalidate(dev device.Device)
}

// Factory builds a resource for key. Factories receive the registry's KeyGenerator to key any
// sub-resources they create. A factory must not request its own key from the registry.
type Factory func(key Key, keys KeyGenerator) (Resource, error)

// As converts a resource to its concrete type. A type mismatch is a programming error and panics.
//
// Parameters:
//   - res: the resource
//
// Returns:
//   - T: the typed resource
func As[T Resource](res Resource) T {
	t, ok := res.(T)
	if !ok {
		var zero T
		panic(fmt.Sprintf("resource: %s %s is %T, not %T", res.Kind(), res.Key(), res, zero))
	}
	return t
}

// AcquireAs acquires a resource through reg and converts it to its concrete type.
//
// Parameters:
//   - reg: the device registry
//   - key: the resource key
//   - kind: the resource kind
//   - factory: builds the resource when the key is absent
//
// Returns:
//   - T: the loaded resource
//   - error: a factory or load error
func AcquireAs[T Resource](reg Registry, key Key, kind Kind, factory Factory) (T, error) {
	res, err := reg.Acquire(key, kind, factory)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](res), nil
}
