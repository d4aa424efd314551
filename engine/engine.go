package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/pass"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/slot"
	"github.com/Carmen-Shannon/oxy-rt/engine/target"
	"github.com/Carmen-Shannon/oxy-rt/engine/texture"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"golang.org/x/sync/errgroup"
)

// Job is work queued for a device's render goroutine. Jobs run in submission order at the start
// of the device's next frame, before any view renders.
type Job func(reg resource.Registry) error

// deviceState is the engine's per-device state.
type deviceState struct {
	dev device.Device
	reg resource.Registry

	mu      sync.Mutex
	pending []Job
}

func (st *deviceState) enqueue(job Job) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.pending = append(st.pending, job)
}

// drain runs every queued job on the calling goroutine. Failures are logged and dropped.
func (st *deviceState) drain() {
	st.mu.Lock()
	jobs := st.pending
	st.pending = nil
	st.mu.Unlock()

	for _, job := range jobs {
		if err := job(st.reg); err != nil {
			common.Logger().Warn("queued device job failed", "device", st.dev.Ordinal(), "err", err)
		}
	}
}

// deviceSpec is a device requested through WithDevice, enumerated once all options are applied.
type deviceSpec struct {
	backend device.Backend
	options []device.DeviceBuilderOption
}

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window         window.Window
	windowView     view.View
	windowViewOpts []view.ViewBuilderOption
	presentViewID  uint64

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	mu     sync.RWMutex
	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // frames rendered before Run quits; 0 = unlimited
	frame            atomic.Uint64

	manager      device.Manager
	devices      *slot.DeviceSlotArray[*deviceState]
	deviceSpecs  []deviceSpec
	registryOpts []resource.RegistryBuilderOption

	removedMu sync.Mutex
	removed   []*deviceState

	asyncWorkers int
	loadPool     worker.DynamicWorkerPool
	taskID       atomic.Int64
}

// Engine is the main entry point for the engine.
// It owns the graphics devices and their registries, renders every active scene's views on every
// device once per frame and orchestrates the engine loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, or nil for headless engines
	Window() window.Window

	// WindowView returns the view hosted by the window. Frames of this view are presented.
	//
	// Returns:
	//   - view.View: the window view, or nil for headless engines
	WindowView() view.View

	// NewView creates a view whose render target stacks report their resolves to the profiler.
	//
	// Parameters:
	//   - id: the view identifier
	//   - host: the size and antialiasing source
	//   - options: functional options for the view
	//
	// Returns:
	//   - view.View: the view
	NewView(id uint64, host view.Host, options ...view.ViewBuilderOption) view.View

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Profiler returns the engine's profiler.
	//
	// Returns:
	//   - *profiler.Profiler: the profiler
	Profiler() *profiler.Profiler

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, physics, input processing, and animation updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddDevice enumerates a device, creates its registry with the default resources and queues
	// every scene's load on it.
	//
	// Parameters:
	//   - backend: the native device
	//   - options: functional options for the device
	//
	// Returns:
	//   - device.Device: the enumerated device
	AddDevice(backend device.Backend, options ...device.DeviceBuilderOption) device.Device

	// RemoveDevice removes a device. Its registry, views and subscriptions are invalidated before
	// the next frame; no GPU object of the device is touched again.
	//
	// Parameters:
	//   - ordinal: the device ordinal
	//
	// Returns:
	//   - error: device.ErrUnknownDevice if no such device is active
	RemoveDevice(ordinal int) error

	// Devices returns the active devices in ordinal order.
	//
	// Returns:
	//   - []device.Device: the devices
	Devices() []device.Device

	// Registry returns the resource registry of dev.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - resource.Registry: the registry, or nil for an unknown device
	Registry(dev device.Device) resource.Registry

	// Enqueue queues job on every active device. Each device runs it on its render goroutine at the
	// start of its next frame.
	//
	// Parameters:
	//   - job: the job
	Enqueue(job Job)

	// StreamTexture decodes an imported texture on the load worker pool and queues its load on every
	// active device. A key already registered on a device keeps its registered texture.
	//
	// Parameters:
	//   - imported: the importer's texture descriptor
	//   - options: functional options for the texture
	//
	// Returns:
	//   - resource.Key: the key the texture will be registered under
	//   - <-chan error: receives the decode result, then closes
	StreamTexture(imported *common.ImportedTexture, options ...texture.TextureBuilderOption) (resource.Key, <-chan error)

	// AddScene registers a scene at the given z-index key and queues its load on every device.
	// Scenes are rendered in ascending key order during the render loop.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key and queues its unload on every device.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// RenderFrame renders one frame of every active scene on every device, devices in parallel.
	// Per device it runs the queued jobs, updates subscriptions, then begins, dispatches, finishes
	// and presents every view.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//
	// Returns:
	//   - error: the joined per-view failures, or nil
	RenderFrame(deltaTime float32) error

	// Frame returns the number of frames rendered.
	//
	// Returns:
	//   - uint64: the frame counter
	Frame() uint64

	// Run starts the engine loops. With a window it blocks until the window closes; headless it
	// blocks until Quit is called or the frame limit set by WithMaxFrames is reached.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Close stops the engine, unloads every scene and registry and releases all devices.
	Close()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Initializes message channels, the device manager and profiler with sensible defaults.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, devices, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
		manager:         device.NewManager(),
		devices:         slot.NewDeviceSlotArray[*deviceState](),
		asyncWorkers:    2,
	}

	for _, opt := range options {
		opt(e)
	}

	// Queue size of 256 accommodates bursts of streamed textures at scene load.
	e.loadPool = worker.NewDynamicWorkerPool(e.asyncWorkers, 256, 1*time.Second)
	e.manager.OnRemoved(e.deviceRemoved)

	if e.window != nil {
		opts := append([]view.ViewBuilderOption{view.WithLabel("window")}, e.windowViewOpts...)
		e.windowView = e.NewView(e.presentViewID, e.window, opts...)
		e.window.SetResizeCallback(e.resized)
	}

	for _, spec := range e.deviceSpecs {
		e.AddDevice(spec.backend, spec.options...)
	}
	e.deviceSpecs = nil

	return e
}

// surfaceConfigurer is implemented by backends presenting to a window surface.
type surfaceConfigurer interface {
	ConfigureSurface(width, height int) error
}

// resized reconfigures the surface of every presenting device. The window view picks the new
// size up when it is polled at the next frame.
func (e *engine) resized(width, height int) {
	common.Logger().Debug("window resized", "width", width, "height", height)
	for _, dev := range e.Devices() {
		sc, ok := dev.Backend().(surfaceConfigurer)
		if !ok {
			continue
		}
		if err := sc.ConfigureSurface(width, height); err != nil {
			common.Logger().Warn("surface reconfiguration failed", "device", dev.Ordinal(), "err", err)
		}
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) WindowView() view.View {
	return e.windowView
}

func (e *engine) NewView(id uint64, host view.Host, options ...view.ViewBuilderOption) view.View {
	opts := append([]view.ViewBuilderOption{
		view.WithStackOptions(target.WithResolveHook(e.profiler.RecordResolve)),
	}, options...)
	return view.NewView(id, host, opts...)
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) AddDevice(backend device.Backend, options ...device.DeviceBuilderOption) device.Device {
	dev := e.manager.Enumerate(backend, options...)

	opts := append([]resource.RegistryBuilderOption{
		resource.WithDefaults(map[resource.Kind]resource.Factory{
			resource.KindTexture:  texture.DefaultFactory,
			resource.KindGeometry: geometry.DefaultFactory,
			resource.KindMaterial: material.DefaultFactory,
			resource.KindMesh:     model.DefaultFactory,
		}),
		resource.WithLoadHook(func(key resource.Key, kind resource.Kind, err error) {
			e.profiler.RecordLoad(err)
			if err != nil {
				common.Logger().Warn("resource load failed", "device", dev.Ordinal(),
					"key", key.String(), "kind", string(kind), "err", err)
			}
		}),
	}, e.registryOpts...)
	st := &deviceState{dev: dev, reg: resource.NewRegistry(dev, opts...)}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.devices.Add(dev.Ordinal(), st); err != nil {
		panic(fmt.Sprintf("engine: device %d: %v", dev.Ordinal(), err))
	}
	for _, k := range e.sceneKeys() {
		st.enqueue(loadScene(e.scenes[k]))
	}
	return dev
}

func (e *engine) RemoveDevice(ordinal int) error {
	return e.manager.Remove(ordinal)
}

// deviceRemoved runs as the manager's removal listener. The device's state leaves the frame
// fan-out immediately; its invalidation runs before the next frame.
func (e *engine) deviceRemoved(dev device.Device) {
	e.mu.Lock()
	st, ok := e.devices.RemoveAt(dev.Ordinal())
	e.mu.Unlock()
	if !ok {
		return
	}

	e.removedMu.Lock()
	e.removed = append(e.removed, st)
	e.removedMu.Unlock()
}

// processRemovals invalidates every per-device state of the devices removed since the last frame.
func (e *engine) processRemovals() {
	e.removedMu.Lock()
	removed := e.removed
	e.removed = nil
	e.removedMu.Unlock()

	if len(removed) == 0 {
		return
	}
	scenes := e.allScenes()
	for _, st := range removed {
		st.reg.Invalidate()
		for _, s := range scenes {
			s.Invalidate(st.dev)
		}
		if e.windowView != nil {
			e.windowView.Invalidate(st.dev)
		}
		common.Logger().Debug("device state invalidated", "device", st.dev.Ordinal())
	}
}

func (e *engine) Devices() []device.Device {
	return e.manager.Devices()
}

func (e *engine) Registry(dev device.Device) resource.Registry {
	if dev == nil {
		return nil
	}
	st, ok := e.devices.Get(dev.Ordinal())
	if !ok || st.dev != dev {
		return nil
	}
	return st.reg
}

// states returns the active device states in ordinal order.
func (e *engine) states() []*deviceState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*deviceState, 0, e.devices.Len())
	for _, st := range e.devices.All() {
		out = append(out, st)
	}
	return out
}

func (e *engine) Enqueue(job Job) {
	if job == nil {
		return
	}
	for _, st := range e.states() {
		st.enqueue(job)
	}
}

func (e *engine) StreamTexture(imported *common.ImportedTexture, options ...texture.TextureBuilderOption) (resource.Key, <-chan error) {
	key := texture.KeyFor(imported)
	done := make(chan error, 1)

	e.loadPool.SubmitTask(worker.Task{
		ID: int(e.taskID.Add(1)),
		Do: func() (any, error) {
			defer close(done)

			source, err := imported.Decode()
			if err != nil {
				common.Logger().Warn("texture decode failed", "key", key.String(), "err", err)
				done <- err
				return nil, nil
			}
			opts := []texture.TextureBuilderOption{texture.WithLabel(imported.Name)}
			if imported.Path != "" {
				opts = append(opts, texture.WithPath(imported.Path))
			}
			factory := texture.FromStaging(source, append(opts, options...)...)
			e.Enqueue(func(reg resource.Registry) error {
				_, err := reg.Acquire(key, resource.KindTexture, factory)
				return err
			})
			done <- nil
			return nil, nil
		},
	})
	return key, done
}

// runOnDevice queues fn for the device's next frame. Work for a removed device is dropped; the
// removal invalidates what it would have touched.
func (e *engine) runOnDevice(dev device.Device, fn func()) {
	e.mu.RLock()
	st, ok := e.devices.Get(dev.Ordinal())
	e.mu.RUnlock()
	if !ok || st.dev != dev {
		return
	}
	st.enqueue(func(resource.Registry) error {
		fn()
		return nil
	})
}

// loadScene returns the job loading s on a device.
func loadScene(s scene.Scene) Job {
	return func(reg resource.Registry) error {
		return s.Load(reg)
	}
}

// unloadScene returns the job unloading s from a device.
func unloadScene(s scene.Scene) Job {
	return func(reg resource.Registry) error {
		s.Unload(reg.Device())
		return nil
	}
}

func (e *engine) Run() {
	e.running.Store(true)
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
	e.running.Store(false)
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() {
	e.signalQuit()
	e.wg.Wait()
	e.processRemovals()

	scenes := e.allScenes()
	for _, st := range e.states() {
		st.drain()
		for _, s := range scenes {
			s.Unload(st.dev)
		}
		if e.windowView != nil {
			e.windowView.Unload(st.dev)
		}
		st.reg.UnloadAll()
	}
	e.manager.Close()
	e.processRemovals()

	if e.window != nil {
		if err := e.window.Close(); err != nil {
			common.Logger().Warn("window close failed", "err", err)
		}
	}
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", fmt.Sprint(r))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			// Per-view failures are logged where they occur.
			_ = e.RenderFrame(dt)

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.maxFrames > 0 && e.frame.Load() >= e.maxFrames {
				e.signalQuit()
				return
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) Frame() uint64 {
	return e.frame.Load()
}

func (e *engine) RenderFrame(deltaTime float32) error {
	e.processRemovals()
	frame := e.frame.Add(1)

	scenes := e.activeScenes()
	for _, s := range scenes {
		for _, v := range s.Views() {
			v.Poll()
		}
	}

	var g errgroup.Group
	for _, st := range e.states() {
		g.Go(func() error {
			return e.renderDevice(st, scenes, frame)
		})
	}
	err := g.Wait()

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}
	return err
}

// renderDevice renders one frame of scenes on a device. It runs on the device's goroutine.
func (e *engine) renderDevice(st *deviceState, scenes []scene.Scene, frame uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("device %d: panic: %v", st.dev.Ordinal(), r)
			common.Logger().Error("device frame panicked", "device", st.dev.Ordinal(), "panic", fmt.Sprint(r))
		}
	}()

	st.drain()

	var errs []error
	for _, s := range scenes {
		s.Update(st.dev)
		for _, v := range s.Views() {
			if err := e.renderView(st, v, frame); err != nil {
				common.Logger().Error("view frame failed", "scene", s.Name(), "view", v.Label(),
					"device", st.dev.Ordinal(), "err", err)
				errs = append(errs, fmt.Errorf("device %d %s: %w", st.dev.Ordinal(), v.Label(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// renderView runs every pass of v on the device and presents the result when v is the window view.
func (e *engine) renderView(st *deviceState, v view.View, frame uint64) error {
	stack, err := v.BeginFrame(st.dev)
	if err != nil {
		return err
	}

	stats := v.Dispatcher(st.dev).Execute(&pass.Context{
		Frame:    frame,
		Device:   st.dev,
		Registry: st.reg,
		Stack:    stack,
	})
	e.profiler.RecordDispatch(stats)

	primary, err := stack.Finish()
	if err != nil {
		return err
	}

	if v.ID() != e.presentViewID {
		return nil
	}
	presenter, ok := st.dev.Backend().(device.Presenter)
	if !ok {
		return nil
	}
	color := primary.Color().Sampleable()
	if color == nil {
		return fmt.Errorf("%w: %s has no presentable color channel", common.ErrConfiguration, v.Label())
	}
	return presenter.Present(color)
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running.Load() {
		// Send to channel for immediate update in running engine loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	s.SetRunner(e.runOnDevice)
	e.mu.Lock()
	prev := e.scenes[key]
	e.scenes[key] = s
	e.mu.Unlock()

	for _, st := range e.states() {
		if prev != nil && prev != s {
			st.enqueue(unloadScene(prev))
		}
		st.enqueue(loadScene(s))
	}
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	s, ok := e.scenes[key]
	delete(e.scenes, key)
	e.mu.Unlock()

	if !ok {
		return
	}
	for _, st := range e.states() {
		st.enqueue(unloadScene(s))
	}
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

// sceneKeys returns the scene keys in ascending order. Caller must hold e.mu.
func (e *engine) sceneKeys() []int {
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// allScenes returns every scene in ascending z-index order.
func (e *engine) allScenes() []scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]scene.Scene, 0, len(e.scenes))
	for _, k := range e.sceneKeys() {
		out = append(out, e.scenes[k])
	}
	return out
}

// activeScenes returns the active scenes in ascending z-index order.
func (e *engine) activeScenes() []scene.Scene {
	all := e.allScenes()
	out := all[:0]
	for _, s := range all {
		if s.Active() {
			out = append(out, s)
		}
	}
	return out
}
