package game_object

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/pass"
)

// DrawFunc renders an object's mesh into the targets bound for a pass.
type DrawFunc func(ctx *pass.Context, obj GameObject, mesh model.Model) error

// binding identifies one (view, device) pair an object renders in.
type binding struct {
	viewID  uint64
	ordinal int
}

// subscription is the object's active pass registration for one binding.
type subscription struct {
	dispatcher pass.Dispatcher
	sub        *pass.Subscription
	generation uint64
}

type gameObject struct {
	id         uint64
	enabled    atomic.Bool
	opacity    atomic.Uint32
	wireframe  atomic.Bool
	layers     atomic.Uint32
	generation atomic.Uint64
	label      string
	draw       DrawFunc

	mdlMu sync.RWMutex
	mdl   model.Model

	subsMu sync.Mutex
	subs   map[binding]*subscription
}

// GameObject defines the interface for a renderable scene entity. An object holds at most one
// pass subscription per (view, device) and re-evaluates it in UpdateForView when its render state
// changed since the subscription was made.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Label returns the name used for the object's subscriptions in logs.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Model returns the mesh associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated mesh or nil
	Model() model.Model

	// Opacity returns the object's opacity, multiplied with its materials' when choosing a pass.
	//
	// Returns:
	//   - float32: the opacity in [0, 1]
	Opacity() float32

	// Wireframe reports whether the object renders as lines regardless of its materials.
	//
	// Returns:
	//   - bool: true for wireframe rendering
	Wireframe() bool

	// Layers returns the layers the object renders in.
	//
	// Returns:
	//   - pass.LayerMask: the mask
	Layers() pass.LayerMask

	// Generation returns the render state counter, bumped by every setter that can change the
	// object's pass.
	//
	// Returns:
	//   - uint64: the generation
	Generation() uint64

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object is enabled for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetModel assigns a mesh to this object.
	//
	// Parameters:
	//   - m: the mesh to associate
	SetModel(m model.Model)

	// SetOpacity sets the object's opacity, clamped to [0, 1].
	//
	// Parameters:
	//   - opacity: the opacity
	SetOpacity(opacity float32)

	// SetWireframe forces wireframe rendering.
	//
	// Parameters:
	//   - wireframe: true for wireframe rendering
	SetWireframe(wireframe bool)

	// SetLayers sets the layers the object renders in.
	//
	// Parameters:
	//   - layers: the mask
	SetLayers(layers pass.LayerMask)

	// UpdateForView brings the object's subscription with a view's dispatcher on dev up to date.
	// An enabled object whose mesh is loaded on dev and which holds no subscription there
	// subscribes to the pass its state selects: Transparent below full opacity, Wireframe for line
	// rendering, Opaque otherwise. A subscription made under an older generation is dropped and
	// the pass chosen again in the same call. An object that is not renderable ends unsubscribed.
	//
	// Parameters:
	//   - viewID: the view
	//   - dev: the device
	//   - d: the view's dispatcher on dev
	UpdateForView(viewID uint64, dev device.Device, d pass.Dispatcher)

	// SubscribedPass reports the pass the object is subscribed to for a view on dev.
	//
	// Parameters:
	//   - viewID: the view
	//   - dev: the device
	//
	// Returns:
	//   - pass.ID: the pass
	//   - bool: false when the object holds no subscription there
	SubscribedPass(viewID uint64, dev device.Device) (pass.ID, bool)

	// DetachView drops the object's subscriptions for a view on every device. Idempotent.
	//
	// Parameters:
	//   - viewID: the view
	DetachView(viewID uint64)

	// DetachDevice drops the object's subscriptions on a device for every view. Idempotent.
	//
	// Parameters:
	//   - ordinal: the device ordinal
	DetachDevice(ordinal int)

	// Remove drops every subscription of the object. Idempotent.
	Remove()
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options. Objects start
// enabled, fully opaque and on the default layer.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		draw: DrawMesh,
		subs: make(map[binding]*subscription),
	}
	obj.enabled.Store(true)
	obj.opacity.Store(math.Float32bits(1))
	obj.layers.Store(uint32(pass.LayerDefault))
	for _, option := range options {
		option(obj)
	}
	if obj.label == "" {
		obj.label = fmt.Sprintf("object %d", obj.id)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Label() string {
	return g.label
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Model() model.Model {
	g.mdlMu.RLock()
	defer g.mdlMu.RUnlock()
	return g.mdl
}

func (g *gameObject) Opacity() float32 {
	return math.Float32frombits(g.opacity.Load())
}

func (g *gameObject) Wireframe() bool {
	return g.wireframe.Load()
}

func (g *gameObject) Layers() pass.LayerMask {
	return pass.LayerMask(g.layers.Load())
}

func (g *gameObject) Generation() uint64 {
	return g.generation.Load()
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	if g.enabled.Swap(enabled) != enabled {
		g.generation.Add(1)
	}
}

func (g *gameObject) SetModel(m model.Model) {
	g.mdlMu.Lock()
	g.mdl = m
	g.mdlMu.Unlock()
	g.generation.Add(1)
}

func (g *gameObject) SetOpacity(opacity float32) {
	bits := math.Float32bits(min(max(opacity, 0), 1))
	if g.opacity.Swap(bits) != bits {
		g.generation.Add(1)
	}
}

func (g *gameObject) SetWireframe(wireframe bool) {
	if g.wireframe.Swap(wireframe) != wireframe {
		g.generation.Add(1)
	}
}

func (g *gameObject) SetLayers(layers pass.LayerMask) {
	if pass.LayerMask(g.layers.Swap(uint32(layers))) != layers {
		g.generation.Add(1)
	}
}

// meshLoaded reports whether the object's mesh and all of its sub-resources are resident on dev.
func (g *gameObject) meshLoaded(dev device.Device) bool {
	mesh := g.Model()
	return mesh != nil && mesh.IsLoaded(dev)
}

// choosePass selects the pass for the object's current state on dev. It reports false when the
// object cannot render there.
func (g *gameObject) choosePass(dev device.Device) (pass.ID, bool) {
	if !g.Enabled() {
		return 0, false
	}
	if !g.meshLoaded(dev) {
		return 0, false
	}
	mesh := g.Model()
	meshOpacity, err := mesh.Opacity(dev)
	if err != nil {
		return 0, false
	}
	meshWireframe, err := mesh.Wireframe(dev)
	if err != nil {
		return 0, false
	}

	switch {
	case g.Opacity()*meshOpacity < 1:
		return pass.Transparent, true
	case g.Wireframe() || meshWireframe:
		return pass.Wireframe, true
	default:
		return pass.Opaque, true
	}
}

func (g *gameObject) UpdateForView(viewID uint64, dev device.Device, d pass.Dispatcher) {
	key := binding{viewID: viewID, ordinal: dev.Ordinal()}
	gen := g.Generation()

	g.subsMu.Lock()
	defer g.subsMu.Unlock()

	if cur, ok := g.subs[key]; ok {
		// a sub-resource unloaded behind the mesh does not bump the generation
		if cur.generation == gen && cur.sub.Active() && cur.dispatcher == d && g.meshLoaded(dev) {
			return
		}
		cur.dispatcher.Unsubscribe(cur.sub)
		delete(g.subs, key)
	}

	id, ok := g.choosePass(dev)
	if !ok {
		return
	}
	sub := d.Subscribe(id, g.Layers(), g.label, g.callback())
	g.subs[key] = &subscription{dispatcher: d, sub: sub, generation: gen}
}

// callback draws the object's current mesh on the device the pass runs on.
func (g *gameObject) callback() pass.Callback {
	return func(ctx *pass.Context) error {
		mesh := g.Model()
		if mesh == nil {
			return fmt.Errorf("%s: no mesh", g.label)
		}
		return g.draw(ctx, g, mesh)
	}
}

func (g *gameObject) SubscribedPass(viewID uint64, dev device.Device) (pass.ID, bool) {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	cur, ok := g.subs[binding{viewID: viewID, ordinal: dev.Ordinal()}]
	if !ok || !cur.sub.Active() {
		return 0, false
	}
	return cur.sub.Pass(), true
}

// detach drops the subscriptions whose binding matches.
func (g *gameObject) detach(match func(binding) bool) {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	for key, cur := range g.subs {
		if match(key) {
			cur.dispatcher.Unsubscribe(cur.sub)
			delete(g.subs, key)
		}
	}
}

func (g *gameObject) DetachView(viewID uint64) {
	g.detach(func(b binding) bool { return b.viewID == viewID })
}

func (g *gameObject) DetachDevice(ordinal int) {
	g.detach(func(b binding) bool { return b.ordinal == ordinal })
}

func (g *gameObject) Remove() {
	g.detach(func(binding) bool { return true })
}

// DrawMesh is the default DrawFunc. It checks that the mesh's geometry and materials are resident
// on the pass's device and that the bound targets have a color channel to draw into.
func DrawMesh(ctx *pass.Context, obj GameObject, mesh model.Model) error {
	geo, err := mesh.Geometry(ctx.Device)
	if err != nil {
		return err
	}
	if _, _, err := geo.Buffers(ctx.Device); err != nil {
		return err
	}
	mats, err := mesh.Materials(ctx.Device)
	if err != nil {
		return err
	}
	for _, mat := range mats {
		if _, err := mat.Uniform(ctx.Device); err != nil {
			return err
		}
	}
	if ctx.Stack == nil || !ctx.Targets.Color().IsZero() {
		return nil
	}
	return fmt.Errorf("%s: no color target bound for %s pass", obj.Label(), ctx.Pass)
}
