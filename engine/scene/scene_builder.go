package scene

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithObjects adds initial objects to the scene.
// Objects without IDs will be assigned new IDs. Their meshes load when the scene is loaded on a device.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			if obj != nil {
				s.register(obj)
			}
		}
	}
}

// WithViews adds initial views to the scene.
//
// Parameters:
//   - views: the views to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithViews(views ...view.View) SceneBuilderOption {
	return func(s *scene) {
		for _, v := range views {
			if v != nil {
				s.views[v.ID()] = v
			}
		}
	}
}

// WithRunner sets the scheduler for per-device work. See Scene.SetRunner.
//
// Parameters:
//   - run: the runner
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRunner(run Runner) SceneBuilderOption {
	return func(s *scene) {
		s.runner = run
	}
}
