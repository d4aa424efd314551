package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfilingInterval sets how often the profiler logs its report. Defaults to one second.
//
// Parameters:
//   - interval: the logging interval
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfilingInterval(interval time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.profiler.SetInterval(interval)
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets the window the engine presents to. The engine creates the window's view with
// the present view ID.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithWindowViewOptions passes options to the view the engine creates for its window, for example
// a color format matching the surface.
//
// Parameters:
//   - options: the view options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindowViewOptions(options ...view.ViewBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.windowViewOpts = append(e.windowViewOpts, options...)
	}
}

// WithPresentView sets the ID of the view whose frames are presented on devices that own a
// surface. Defaults to 0.
//
// Parameters:
//   - id: the view ID
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPresentView(id uint64) EngineBuilderOption {
	return func(e *engine) {
		e.presentViewID = id
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are rendered in ascending key order during the render loop.
//
// Parameters:
//   - key: the z-index determining render order (lower renders first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		s.SetRunner(e.runOnDevice)
		e.scenes[key] = s
	}
}

// WithDevice enumerates a device once the engine is constructed. Devices are enumerated in option order.
//
// Parameters:
//   - backend: the native device
//   - options: functional options for the device
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(backend device.Backend, options ...device.DeviceBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.deviceSpecs = append(e.deviceSpecs, deviceSpec{backend: backend, options: options})
	}
}

// WithRegistryOptions adds options to every device registry the engine creates, after the engine's
// default resources and load hook.
//
// Parameters:
//   - options: the registry options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRegistryOptions(options ...resource.RegistryBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.registryOpts = append(e.registryOpts, options...)
	}
}

// WithAsyncWorkers sets the number of workers decoding streamed textures. Defaults to 2.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAsyncWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		e.asyncWorkers = max(n, 1)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}

// WithMaxFrames makes Run quit after n frames. Pass 0 to render until Quit (default).
//
// Parameters:
//   - n: the number of frames
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxFrames(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrames = n
	}
}
