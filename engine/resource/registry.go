package resource

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"golang.org/x/sync/singleflight"
)

// ErrNoDefault is returned by Default for a kind without a registered fallback factory.
var ErrNoDefault = errors.New("resource: no default registered for kind")

// registry is the implementation of the Registry interface.
type registry struct {
	device   device.Device
	keys     KeyGenerator
	defaults map[Kind]Factory
	loadHook func(Key, Kind, error)

	mu      sync.RWMutex
	entries map[Key]Resource
	order   []Key

	group singleflight.Group
}

// Registry deduplicates resources by key for one device.
// All methods are safe for concurrent use; no lock is held while a factory runs or a resource loads.
type Registry interface {
	// Device returns the device the registry loads resources on.
	//
	// Returns:
	//   - device.Device: the device
	Device() device.Device

	// KeyGenerator returns the generator handed to factories.
	//
	// Returns:
	//   - KeyGenerator: the generator
	KeyGenerator() KeyGenerator

	// GetOrCreate returns the resource stored under key, invoking factory exactly once when the key
	// is absent, even under concurrent callers. Requesting an existing key with a different kind
	// panics.
	//
	// Parameters:
	//   - key: the resource key
	//   - kind: the expected resource kind
	//   - factory: builds the resource when the key is absent
	//
	// Returns:
	//   - Resource: the resource
	//   - error: the factory error; nothing is stored in that case
	GetOrCreate(key Key, kind Kind, factory Factory) (Resource, error)

	// Acquire is GetOrCreate followed by a load on the registry's device. A failed load evicts the
	// key so the next call runs the factory again.
	//
	// Parameters:
	//   - key: the resource key
	//   - kind: the expected resource kind
	//   - factory: builds the resource when the key is absent
	//
	// Returns:
	//   - Resource: the loaded resource
	//   - error: a factory or load error
	Acquire(key Key, kind Kind, factory Factory) (Resource, error)

	// Default returns the loaded canonical fallback resource for kind, creating it on first use.
	//
	// Parameters:
	//   - kind: the resource kind
	//
	// Returns:
	//   - Resource: the fallback resource
	//   - error: ErrNoDefault, or a factory or load error
	Default(kind Kind) (Resource, error)

	// Get returns the resource stored under key without creating it.
	//
	// Parameters:
	//   - key: the resource key
	//
	// Returns:
	//   - Resource: the resource, or nil
	//   - bool: true if present
	Get(key Key) (Resource, bool)

	// Unload unloads the resource stored under key from the device and forgets the key.
	//
	// Parameters:
	//   - key: the resource key
	//
	// Returns:
	//   - bool: true if the key was present
	Unload(key Key) bool

	// UnloadAll unloads every resource, most recently registered first, and empties the registry.
	UnloadAll()

	// Invalidate forgets every resource without releasing GPU state. It is used on device loss.
	Invalidate()

	// Len returns the number of registered resources.
	//
	// Returns:
	//   - int: the count
	Len() int

	// Keys returns the registered keys in registration order.
	//
	// Returns:
	//   - []Key: the keys
	Keys() []Key
}

var _ Registry = &registry{}

// NewRegistry creates a registry for dev.
//
// Parameters:
//   - dev: the device (must not be nil)
//   - options: functional options
//
// Returns:
//   - Registry: the new registry
func NewRegistry(dev device.Device, options ...RegistryBuilderOption) Registry {
	if dev == nil {
		panic("resource: NewRegistry requires a non-nil Device")
	}
	r := &registry{
		device:   dev,
		keys:     NewKeyGenerator(),
		defaults: make(map[Kind]Factory),
		entries:  make(map[Key]Resource),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *registry) Device() device.Device {
	return r.device
}

func (r *registry) KeyGenerator() KeyGenerator {
	return r.keys
}

func (r *registry) lookup(key Key, kind Kind) (Resource, bool) {
	r.mu.RLock()
	res, ok := r.entries[key]
	r.mu.RUnlock()
	if ok && res.Kind() != kind {
		panic(fmt.Sprintf("resource: key %s holds a %s, requested as %s", key, res.Kind(), kind))
	}
	return res, ok
}

func (r *registry) GetOrCreate(key Key, kind Kind, factory Factory) (Resource, error) {
	if res, ok := r.lookup(key, kind); ok {
		return res, nil
	}
	if factory == nil {
		return nil, fmt.Errorf("resource: no factory for absent %s %s", kind, key)
	}

	v, err, _ := r.group.Do(key.flightKey(), func() (any, error) {
		// a caller that lost the race to an earlier flight finds the stored entry here
		if res, ok := r.lookup(key, kind); ok {
			return res, nil
		}
		res, err := factory(key, r.keys)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s %s: %w", kind, key, err)
		}
		if res == nil {
			return nil, fmt.Errorf("failed to create %s %s: factory returned nil", kind, key)
		}
		if res.Kind() != kind {
			panic(fmt.Sprintf("resource: factory for %s %s built a %s", kind, key, res.Kind()))
		}

		r.mu.Lock()
		r.entries[key] = res
		r.order = append(r.order, key)
		r.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Resource), nil
}

func (r *registry) Acquire(key Key, kind Kind, factory Factory) (Resource, error) {
	res, err := r.GetOrCreate(key, kind, factory)
	if err != nil {
		return nil, err
	}
	if res.IsLoaded(r.device) {
		return res, nil
	}

	err = res.Load(r.device, r)
	if r.loadHook != nil {
		r.loadHook(key, kind, err)
	}
	if err != nil {
		r.evict(key, res)
		common.Logger().Debug("resource load failed", "kind", kind, "key", key, "device", r.device.Ordinal(), "error", err)
		return nil, fmt.Errorf("failed to load %s %s on device %d: %w", kind, key, r.device.Ordinal(), err)
	}
	return res, nil
}

// evict removes key when it still maps to res.
func (r *registry) evict(key Key, res Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[key] != res {
		return
	}
	delete(r.entries, key)
	r.removeOrder(key)
}

func (r *registry) removeOrder(key Key) {
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// DefaultKey returns the key a registry stores the fallback resource of kind under.
//
// Parameters:
//   - kind: the resource kind
//
// Returns:
//   - Key: the key
func DefaultKey(kind Kind) Key {
	return NamedKey("default:" + string(kind))
}

func (r *registry) Default(kind Kind) (Resource, error) {
	factory, ok := r.defaults[kind]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrNoDefault, kind)
	}
	return r.Acquire(DefaultKey(kind), kind, factory)
}

func (r *registry) Get(key Key) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.entries[key]
	return res, ok
}

func (r *registry) Unload(key Key) bool {
	r.mu.Lock()
	res, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
		r.removeOrder(key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	res.Unload(r.device)
	return true
}

func (r *registry) UnloadAll() {
	r.mu.Lock()
	order := r.order
	entries := r.entries
	r.order = nil
	r.entries = make(map[Key]Resource)
	r.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		entries[order[i]].Unload(r.device)
	}
}

func (r *registry) Invalidate() {
	r.mu.Lock()
	entries := r.entries
	r.order = nil
	r.entries = make(map[Key]Resource)
	r.mu.Unlock()

	for _, res := range entries {
		if inv, ok := res.(Invalidator); ok {
			inv.Invalidate(r.device)
		}
	}
	common.Logger().Debug("registry invalidated", "device", r.device.Ordinal(), "resources", len(entries))
}

func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *registry) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Key(nil), r.order...)
}
