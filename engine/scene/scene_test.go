package scene_test

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/device/recording_backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/pass"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/texture"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(dev device.Device) resource.Registry {
	return resource.NewRegistry(dev,
		resource.WithDefault(resource.KindTexture, texture.DefaultFactory),
		resource.WithDefault(resource.KindGeometry, geometry.DefaultFactory),
		resource.WithDefault(resource.KindMaterial, material.DefaultFactory))
}

// frameQueue holds scheduled device work until the next frame starts, like the engine's device queues.
type frameQueue struct {
	mu   sync.Mutex
	jobs []func()
}

func (q *frameQueue) run(_ device.Device, fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, fn)
}

func (q *frameQueue) drain() {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()
	for _, fn := range jobs {
		fn()
	}
}

func TestLoadCoversEarlierAndLaterObjects(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	reg := newRegistry(dev)
	queue := &frameQueue{}
	early := game_object.NewGameObject(game_object.WithModel(model.NewModel(resource.NamedKey("early"))))
	s := scene.NewScene("level", scene.WithObjects(early), scene.WithRunner(queue.run))
	assert.Equal(t, uint64(1), early.ID())
	assert.False(t, early.Model().IsLoaded(dev))

	require.NoError(t, s.Load(reg))
	assert.True(t, early.Model().IsLoaded(dev))

	late := game_object.NewGameObject(game_object.WithModel(model.NewModel(resource.NamedKey("late"))))
	id := s.Add(late)
	assert.Equal(t, uint64(2), id)
	assert.Equal(t, 2, s.Count())
	assert.Same(t, late, s.Get(id))
	assert.False(t, late.Model().IsLoaded(dev), "the load waits for the device's frame")

	queue.drain()
	assert.True(t, late.Model().IsLoaded(dev))

	s.Remove(id)
	assert.True(t, late.Model().IsLoaded(dev))
	queue.drain()
	assert.False(t, late.Model().IsLoaded(dev))
}

func TestAddWithoutRunnerLoadsImmediately(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	s := scene.NewScene("level")
	require.NoError(t, s.Load(newRegistry(dev)))

	obj := game_object.NewGameObject(game_object.WithModel(model.NewModel(resource.NamedKey("crate"))))
	s.Add(obj)
	assert.True(t, obj.Model().IsLoaded(dev))
}

func TestRemoveViewMidFrameKeepsTargetsUntilNextFrame(t *testing.T) {
	back := recording_backend.New()
	dev := device.NewDevice(0, back, device.WithMSAA(device.MSAA4x))
	queue := &frameQueue{}
	v := view.NewView(0, view.FixedHost{W: 4, H: 4})
	obj := game_object.NewGameObject(game_object.WithModel(model.NewModel(resource.NamedKey("crate"))))
	s := scene.NewScene("level", scene.WithObjects(obj), scene.WithViews(v), scene.WithRunner(queue.run))
	require.NoError(t, s.Load(newRegistry(dev)))
	s.Update(dev)

	stack, err := v.BeginFrame(dev)
	require.NoError(t, err)
	color := stack.Current().Color()
	live := len(back.LiveTextures())

	s.RemoveView(0)
	assert.Nil(t, s.View(0))
	assert.Len(t, back.LiveTextures(), live, "a frame in flight keeps its targets")
	_, ok := obj.SubscribedPass(0, dev)
	assert.True(t, ok)

	primary, err := stack.Finish()
	require.NoError(t, err)
	assert.False(t, primary.Color().Texture.(*recording_backend.Texture).Released())
	assert.False(t, color.Resolve.(*recording_backend.Texture).Released())

	queue.drain()
	assert.Less(t, len(back.LiveTextures()), live)
	assert.True(t, color.Texture.(*recording_backend.Texture).Released())
	_, ok = obj.SubscribedPass(0, dev)
	assert.False(t, ok)
}

func TestUpdateSubscribesPerView(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	main := view.NewView(1, view.FixedHost{W: 4, H: 4})
	mirror := view.NewView(2, view.FixedHost{W: 4, H: 4})
	obj := game_object.NewGameObject(game_object.WithModel(model.NewModel(resource.NamedKey("crate"))))
	s := scene.NewScene("level", scene.WithObjects(obj), scene.WithViews(main, mirror))
	require.NoError(t, s.Load(newRegistry(dev)))

	s.Update(dev)
	assert.Len(t, main.Dispatcher(dev).Subscribers(pass.Opaque), 1)
	assert.Len(t, mirror.Dispatcher(dev).Subscribers(pass.Opaque), 1)

	mirrorDispatcher := mirror.Dispatcher(dev)
	s.RemoveView(2)
	assert.Empty(t, mirrorDispatcher.Subscribers(pass.Opaque))
	assert.Len(t, main.Dispatcher(dev).Subscribers(pass.Opaque), 1)
	assert.Nil(t, s.View(2))
	assert.Len(t, s.Views(), 1)
}

func TestRemoveUnloadsUnsharedMesh(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	v := view.NewView(1, view.FixedHost{W: 4, H: 4})
	shared := model.NewModel(resource.NamedKey("shared"))
	a := game_object.NewGameObject(game_object.WithModel(shared))
	b := game_object.NewGameObject(game_object.WithModel(shared))
	s := scene.NewScene("level", scene.WithObjects(a, b), scene.WithViews(v))
	require.NoError(t, s.Load(newRegistry(dev)))
	s.Update(dev)
	require.Len(t, v.Dispatcher(dev).Subscribers(pass.Opaque), 2)

	s.Remove(a.ID())
	assert.True(t, shared.IsLoaded(dev), "b still draws the mesh")
	assert.Len(t, v.Dispatcher(dev).Subscribers(pass.Opaque), 1)

	s.Remove(b.ID())
	s.Remove(b.ID())
	assert.False(t, shared.IsLoaded(dev))
	assert.Empty(t, v.Dispatcher(dev).Subscribers(pass.Opaque))
	assert.Zero(t, s.Count())
}

func TestRegistryMeshIsReleasedThroughRegistry(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	reg := newRegistry(dev)
	mesh, err := resource.AcquireAs[model.Model](reg, resource.NamedKey("mesh"), resource.KindMesh, model.Factory())
	require.NoError(t, err)

	s := scene.NewScene("level")
	require.NoError(t, s.Load(reg))
	obj := game_object.NewGameObject(game_object.WithModel(mesh))
	s.Add(obj)
	s.Remove(obj.ID())

	_, ok := reg.Get(resource.NamedKey("mesh"))
	assert.False(t, ok)
	assert.False(t, mesh.IsLoaded(dev))
}

func TestUnloadAndInvalidatePerDevice(t *testing.T) {
	backA := recording_backend.New()
	devA := device.NewDevice(0, backA)
	devB := device.NewDevice(1, recording_backend.New())
	v := view.NewView(1, view.FixedHost{W: 4, H: 4})
	obj := game_object.NewGameObject(game_object.WithModel(model.NewModel(resource.NamedKey("crate"))))
	s := scene.NewScene("level", scene.WithObjects(obj), scene.WithViews(v))
	require.NoError(t, s.Load(newRegistry(devA)))
	require.NoError(t, s.Load(newRegistry(devB)))
	s.Update(devA)
	s.Update(devB)

	s.Unload(devB)
	assert.False(t, obj.Model().IsLoaded(devB))
	assert.True(t, obj.Model().IsLoaded(devA))
	_, ok := obj.SubscribedPass(1, devB)
	assert.False(t, ok)

	live := len(backA.LiveTextures())
	s.Invalidate(devA)
	assert.False(t, obj.Model().IsLoaded(devA))
	_, ok = obj.SubscribedPass(1, devA)
	assert.False(t, ok)
	assert.Len(t, backA.LiveTextures(), live, "invalidation releases nothing")
}

func TestLoadReportsFailuresAndContinues(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	broken := game_object.NewGameObject(game_object.WithLabel("broken"),
		game_object.WithModel(model.NewModel(resource.NamedKey("broken"),
			model.WithSubmesh(model.Submesh{IndexCount: 1 << 20}))))
	fine := game_object.NewGameObject(game_object.WithModel(model.NewModel(resource.NamedKey("fine"))))
	s := scene.NewScene("level", scene.WithObjects(broken, fine))

	err := s.Load(newRegistry(dev))
	assert.ErrorIs(t, err, common.ErrConfiguration)
	assert.ErrorContains(t, err, "broken")
	assert.True(t, fine.Model().IsLoaded(dev))
	assert.False(t, broken.Model().IsLoaded(dev))
}

func TestActiveAndClear(t *testing.T) {
	s := scene.NewScene("a", scene.WithActive(true), scene.WithObjects(game_object.NewGameObject()))
	assert.True(t, s.Active())
	s.SetActive(false)
	s.SetName("b")
	assert.False(t, s.Active())
	assert.Equal(t, "b", s.Name())

	s.Clear()
	assert.Zero(t, s.Count())
	assert.Empty(t, s.Objects())
}
