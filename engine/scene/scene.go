package scene

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/slot"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
)

// Runner schedules fn on the goroutine that owns dev's resource and render target work.
type Runner func(dev device.Device, fn func())

// run calls fn through the runner, or right away when there is none.
func (r Runner) run(dev device.Device, fn func()) {
	if r == nil {
		fn()
		return
	}
	r(dev, fn)
}

// Scene is a registry of GameObjects and the views they are rendered into.
// The scene loads object meshes on every device it has been loaded on, keeps each object's pass
// subscriptions current through Update and releases GPU state when objects or views leave.
// Scenes can be hot-swapped via the Active flag to switch between different levels.
// Thread-safe for concurrent access. The per-device work of Add, Remove, AddView and RemoveView
// goes through the scene's Runner; Load, Unload, Invalidate and Update are called on the device's
// goroutine by whoever drives the scene.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Count returns the number of GameObjects in the scene.
	//
	// Returns:
	//   - int: count of GameObjects in the registry
	Count() int

	// Add adds a GameObject to the scene and schedules its mesh load on every device the scene is
	// loaded on. Objects without an ID are assigned one. A failed mesh load is logged and retried by
	// the next Load.
	//
	// Parameters:
	//   - obj: the GameObject to add
	//
	// Returns:
	//   - uint64: the assigned object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves a GameObject by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Objects returns the scene's GameObjects ordered by ID.
	//
	// Returns:
	//   - []game_object.GameObject: the objects
	Objects() []game_object.GameObject

	// Remove removes a GameObject by ID, cancels all its pass subscriptions and schedules its mesh
	// unload on every device unless another object in the scene shares it.
	//
	// Parameters:
	//   - id: the object's unique ID
	Remove(id uint64)

	// AddView adds a view the scene is rendered into. Adding a view with an ID already present
	// replaces the previous view.
	//
	// Parameters:
	//   - v: the view
	AddView(v view.View)

	// View retrieves a view by its ID.
	// Returns nil if not found.
	//
	// Parameters:
	//   - id: the view ID
	//
	// Returns:
	//   - view.View: the view or nil
	View(id uint64) view.View

	// Views returns the scene's views ordered by ID.
	//
	// Returns:
	//   - []view.View: the views
	Views() []view.View

	// RemoveView removes a view and schedules, on every loaded device, the detachment of every
	// object from it and the release of its targets.
	//
	// Parameters:
	//   - id: the view ID
	RemoveView(id uint64)

	// Load loads every object mesh on the registry's device and remembers the registry so that later
	// additions load there too. Failures do not stop the traversal.
	//
	// Parameters:
	//   - reg: the device's registry
	//
	// Returns:
	//   - error: the joined load failures, or nil
	Load(reg resource.Registry) error

	// Unload releases every object subscription, mesh and view target on dev and forgets its registry.
	//
	// Parameters:
	//   - dev: the device
	Unload(dev device.Device)

	// Invalidate forgets every per-device state of a lost device without releasing GPU objects.
	//
	// Parameters:
	//   - dev: the lost device
	Invalidate(dev device.Device)

	// Update brings every object's pass subscriptions on dev up to date for every view.
	//
	// Parameters:
	//   - dev: the device
	Update(dev device.Device)

	// Clear removes all objects and views from the scene.
	// Does not release GPU resources.
	Clear()

	// SetRunner installs the scheduler for per-device work. A nil runner runs it on the caller.
	//
	// Parameters:
	//   - run: the runner
	SetRunner(run Runner)
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	registry map[uint64]game_object.GameObject
	nextID   uint64
	views    map[uint64]view.View

	// loaded holds the registry of every device the scene is loaded on.
	loaded *slot.DeviceSlotArray[resource.Registry]
	runner Runner
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new, inactive Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:       &sync.RWMutex{},
		name:     name,
		registry: make(map[uint64]game_object.GameObject),
		nextID:   1,
		views:    make(map[uint64]view.View),
		loaded:   slot.NewDeviceSlotArray[resource.Registry](),
	}

	for _, option := range options {
		option(s)
	}

	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

// register stores obj, assigning an ID when it has none. Caller must hold s.mu write lock.
func (s *scene) register(obj game_object.GameObject) uint64 {
	if obj.ID() == 0 {
		for s.registry[s.nextID] != nil {
			s.nextID++
		}
		obj.SetID(s.nextID)
		s.nextID++
	}
	if prev, ok := s.registry[obj.ID()]; ok && prev != obj {
		prev.Remove()
	}
	s.registry[obj.ID()] = obj
	return obj.ID()
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	if obj == nil {
		panic("scene: cannot Add a nil GameObject")
	}

	s.mu.Lock()
	id := s.register(obj)
	regs := s.registries()
	run := s.runner
	name := s.name
	s.mu.Unlock()

	for _, reg := range regs {
		run.run(reg.Device(), func() {
			if err := loadMesh(reg, obj); err != nil {
				common.Logger().Warn("mesh load failed", "scene", name, "object", obj.Label(),
					"device", reg.Device().Ordinal(), "err", err)
			}
		})
	}
	return id
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects()
}

// objects returns the registry ordered by ID. Caller must hold s.mu.
func (s *scene) objects() []game_object.GameObject {
	out := make([]game_object.GameObject, 0, len(s.registry))
	for _, obj := range s.registry {
		out = append(out, obj)
	}
	slices.SortFunc(out, func(a, b game_object.GameObject) int {
		return cmpID(a.ID(), b.ID())
	})
	return out
}

// registries returns the registries of the devices the scene is loaded on. Caller must hold s.mu.
func (s *scene) registries() []resource.Registry {
	out := make([]resource.Registry, 0, s.loaded.Len())
	for _, reg := range s.loaded.All() {
		out = append(out, reg)
	}
	return out
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	obj, exists := s.registry[id]
	if !exists {
		s.mu.Unlock()
		return
	}
	delete(s.registry, id)
	mesh := obj.Model()
	shared := mesh != nil && s.references(mesh)
	regs := s.registries()
	run := s.runner
	s.mu.Unlock()

	obj.Remove()
	if mesh == nil || shared {
		return
	}
	for _, reg := range regs {
		run.run(reg.Device(), func() { release(reg, mesh) })
	}
}

// references reports whether any object in the registry uses mesh. Caller must hold s.mu.
func (s *scene) references(mesh model.Model) bool {
	for _, obj := range s.registry {
		if obj.Model() == mesh {
			return true
		}
	}
	return false
}

func (s *scene) AddView(v view.View) {
	if v == nil {
		panic("scene: cannot add a nil View")
	}

	s.mu.Lock()
	prev, ok := s.views[v.ID()]
	s.views[v.ID()] = v
	s.mu.Unlock()

	if ok && prev != v {
		s.releaseView(prev)
	}
}

func (s *scene) View(id uint64) view.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views[id]
}

func (s *scene) Views() []view.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewList()
}

// viewList returns the views ordered by ID. Caller must hold s.mu.
func (s *scene) viewList() []view.View {
	out := make([]view.View, 0, len(s.views))
	for _, v := range s.views {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b view.View) int {
		return cmpID(a.ID(), b.ID())
	})
	return out
}

func (s *scene) RemoveView(id uint64) {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()

	if ok {
		s.releaseView(v)
	}
}

// releaseView detaches every object from v and unloads v on every loaded device. The detachment
// runs on each device as well so that an Update in flight there cannot resubscribe afterwards.
func (s *scene) releaseView(v view.View) {
	s.mu.RLock()
	objs := s.objects()
	regs := s.registries()
	run := s.runner
	s.mu.RUnlock()

	detach := func() {
		for _, obj := range objs {
			obj.DetachView(v.ID())
		}
	}
	if len(regs) == 0 {
		detach()
		return
	}
	for _, reg := range regs {
		run.run(reg.Device(), func() {
			detach()
			v.Unload(reg.Device())
		})
	}
}

func (s *scene) Load(reg resource.Registry) error {
	if reg == nil {
		panic("scene: Load requires a registry")
	}
	dev := reg.Device()

	s.mu.Lock()
	if cur, ok := s.loaded.Get(dev.Ordinal()); !ok || cur != reg {
		if ok {
			s.loaded.RemoveAt(dev.Ordinal())
		}
		if _, err := s.loaded.Add(dev.Ordinal(), reg); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("scene %q: %w", s.name, err)
		}
	}
	objs := s.objects()
	s.mu.Unlock()

	var errs []error
	for _, obj := range objs {
		if err := loadMesh(reg, obj); err != nil {
			common.Logger().Warn("mesh load failed", "scene", s.Name(), "object", obj.Label(),
				"device", dev.Ordinal(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", obj.Label(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *scene) Unload(dev device.Device) {
	s.mu.Lock()
	reg, ok := s.loaded.RemoveAt(dev.Ordinal())
	objs := s.objects()
	views := s.viewList()
	s.mu.Unlock()

	for _, obj := range objs {
		obj.DetachDevice(dev.Ordinal())
	}
	for _, v := range views {
		v.Unload(dev)
	}
	if !ok {
		return
	}
	seen := make(map[model.Model]struct{})
	for _, obj := range objs {
		mesh := obj.Model()
		if mesh == nil {
			continue
		}
		if _, dup := seen[mesh]; dup {
			continue
		}
		seen[mesh] = struct{}{}
		release(reg, mesh)
	}
}

func (s *scene) Invalidate(dev device.Device) {
	s.mu.Lock()
	s.loaded.RemoveAt(dev.Ordinal())
	objs := s.objects()
	views := s.viewList()
	s.mu.Unlock()

	for _, obj := range objs {
		obj.DetachDevice(dev.Ordinal())
		if mesh := obj.Model(); mesh != nil {
			mesh.Invalidate(dev)
		}
	}
	for _, v := range views {
		v.Invalidate(dev)
	}
}

func (s *scene) Update(dev device.Device) {
	s.mu.RLock()
	objs := s.objects()
	views := s.viewList()
	s.mu.RUnlock()

	for _, v := range views {
		d := v.Dispatcher(dev)
		for _, obj := range objs {
			obj.UpdateForView(v.ID(), dev, d)
		}
	}
}

func (s *scene) SetRunner(run Runner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runner = run
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry = make(map[uint64]game_object.GameObject)
	s.views = make(map[uint64]view.View)
}

// loadMesh loads obj's mesh on the registry's device. A mesh the registry already holds under its
// key is acquired through the registry, any other mesh is loaded directly.
func loadMesh(reg resource.Registry, obj game_object.GameObject) error {
	mesh := obj.Model()
	if mesh == nil || mesh.IsLoaded(reg.Device()) {
		return nil
	}
	if res, ok := reg.Get(mesh.Key()); ok && res == resource.Resource(mesh) {
		_, err := reg.Acquire(mesh.Key(), resource.KindMesh, nil)
		return err
	}
	return mesh.Load(reg.Device(), reg)
}

// release unloads mesh on the registry's device, removing it from the registry if it is registered there.
func release(reg resource.Registry, mesh model.Model) {
	if res, ok := reg.Get(mesh.Key()); ok && res == resource.Resource(mesh) {
		reg.Unload(mesh.Key())
		return
	}
	mesh.Unload(reg.Device())
}

func cmpID(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
