package game_object

import (
	"math"

	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/pass"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithLabel sets the name used for the object's subscriptions in logs. Defaults to "object <id>".
//
// Parameters:
//   - label: the label
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the label
func WithLabel(label string) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.label = label
	}
}

// WithEnabled sets whether the GameObject is enabled for rendering.
//
// Parameters:
//   - enabled: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithModel sets the mesh for this GameObject.
//
// Parameters:
//   - m: the mesh to associate
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the mesh
func WithModel(m model.Model) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.mdl = m
	}
}

// WithOpacity sets the initial opacity of the GameObject.
//
// Parameters:
//   - opacity: the opacity, clamped to [0, 1]
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the opacity
func WithOpacity(opacity float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.opacity.Store(math.Float32bits(min(max(opacity, 0), 1)))
	}
}

// WithWireframe forces wireframe rendering.
//
// Parameters:
//   - wireframe: true for wireframe rendering
//
// Returns:
//   - GameObjectBuilderOption: functional option to set wireframe rendering
func WithWireframe(wireframe bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.wireframe.Store(wireframe)
	}
}

// WithLayers sets the layers the GameObject renders in. Defaults to pass.LayerDefault.
//
// Parameters:
//   - layers: the mask
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the layers
func WithLayers(layers pass.LayerMask) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.layers.Store(uint32(layers))
	}
}

// WithDraw replaces the function rendering the object's mesh. Defaults to DrawMesh.
//
// Parameters:
//   - draw: the draw function
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the draw function
func WithDraw(draw DrawFunc) GameObjectBuilderOption {
	return func(obj *gameObject) {
		if draw != nil {
			obj.draw = draw
		}
	}
}
