package view_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/device/recording_backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/pass"
	"github.com/Carmen-Shannon/oxy-rt/engine/target"
	"github.com/Carmen-Shannon/oxy-rt/engine/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resizableHost struct {
	w, h    int
	samples uint32
}

func (h *resizableHost) Width() int          { return h.w }
func (h *resizableHost) Height() int         { return h.h }
func (h *resizableHost) SampleCount() uint32 { return h.samples }

func TestBeginFrameFollowsHost(t *testing.T) {
	back := recording_backend.New()
	dev := device.NewDevice(0, back)
	host := &resizableHost{w: 320, h: 200, samples: 1}
	v := view.NewView(1, host)

	stack, err := v.BeginFrame(dev)
	require.NoError(t, err)
	w, h := stack.Current().Size()
	assert.Equal(t, [2]uint32{320, 200}, [2]uint32{w, h})
	first := stack.Current()

	again, err := v.BeginFrame(dev)
	require.NoError(t, err)
	assert.Same(t, stack, again)
	assert.True(t, first.Equal(again.Current()))

	host.w, host.samples = 640, 4
	v.Poll()
	_, err = v.BeginFrame(dev)
	require.NoError(t, err)
	current := stack.Current()
	w, _ = current.Size()
	assert.Equal(t, uint32(640), w)
	assert.True(t, current.Color().Multisampled())
	assert.True(t, first.Color().Texture.(*recording_backend.Texture).Released())
}

func TestDispatcherPerDevice(t *testing.T) {
	devA := device.NewDevice(0, recording_backend.New())
	devB := device.NewDevice(1, recording_backend.New())
	v := view.NewView(3, view.FixedHost{W: 8, H: 8}, view.WithLayers(pass.LayerDefault))

	a := v.Dispatcher(devA)
	assert.Same(t, a, v.Dispatcher(devA))
	assert.NotSame(t, a, v.Dispatcher(devB))
	assert.Equal(t, uint64(3), a.ViewID())
	assert.Equal(t, pass.LayerDefault, a.Layers())

	v.SetLayers(pass.LayerAll)
	assert.Equal(t, pass.LayerAll, v.Dispatcher(devB).Layers())
}

func TestInvalidateDropsDeviceState(t *testing.T) {
	back := recording_backend.New()
	dev := device.NewDevice(0, back)
	v := view.NewView(1, view.FixedHost{W: 8, H: 8, Samples: 1},
		view.WithTargetOptions(target.WithAuxiliaryChannels()))

	_, err := v.BeginFrame(dev)
	require.NoError(t, err)
	sub := v.Dispatcher(dev).Subscribe(pass.Opaque, pass.LayerAll, "x", func(*pass.Context) error { return nil })
	assert.Len(t, back.LiveTextures(), 4)

	v.Invalidate(dev)
	assert.False(t, sub.Active())
	assert.False(t, v.Primary().IsLoaded(dev))
	assert.Len(t, back.LiveTextures(), 4, "invalidation releases nothing")

	_, err = v.BeginFrame(dev)
	require.NoError(t, err)
	v.Unload(dev)
	assert.Len(t, back.LiveTextures(), 4)
}

func TestZeroSizedHostFailsFrame(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	v := view.NewView(1, view.FixedHost{})

	_, err := v.BeginFrame(dev)
	assert.Error(t, err)
}
