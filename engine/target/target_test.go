package target_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/device/recording_backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(msaa device.MSAASampleCount) (device.Device, *recording_backend.Backend) {
	back := recording_backend.New()
	return device.NewDevice(0, back, device.WithMSAA(msaa)), back
}

func ownedSet(t *testing.T, dev device.Device, label string, size target.Size, options ...target.OwnerBuilderOption) target.Set {
	t.Helper()
	o := target.NewOwner(resource.NamedKey(label), append(options, target.WithSize(size))...)
	set, err := o.Acquire(dev)
	require.NoError(t, err)
	return set
}

func TestBalancedPushPopRestoresCurrent(t *testing.T) {
	dev, _ := newDevice(device.MSAAOff)
	primary := ownedSet(t, dev, "primary", target.Size{Width: 64, Height: 32}, target.WithAuxiliaryChannels())
	stack := target.NewStack(dev, primary)

	before := stack.Current()
	sub := ownedSet(t, dev, "sub", target.Size{Width: 64, Height: 32})
	inner := ownedSet(t, dev, "inner", target.Size{Width: 64, Height: 32})

	_, err := stack.Push("sub", sub, target.OwnAll().With(target.Inherit, target.ChannelObjectID, target.ChannelNormalDepth))
	require.NoError(t, err)
	_, err = stack.Push("inner", inner, target.NewMode(target.Own, target.ChannelColor))
	require.NoError(t, err)
	assert.Equal(t, 3, stack.Depth())

	_, err = stack.Pop()
	require.NoError(t, err)
	_, err = stack.Pop()
	require.NoError(t, err)

	assert.True(t, before.Equal(stack.Current()))
	assert.Equal(t, 1, stack.Depth())
	assert.NoError(t, stack.Verify())
}

func TestOwnColorInheritObjectID(t *testing.T) {
	dev, _ := newDevice(device.MSAAOff)
	size := target.Size{Width: 16, Height: 16}
	primary := ownedSet(t, dev, "primary", size, target.WithAuxiliaryChannels())
	stack := target.NewStack(dev, primary)

	sub := ownedSet(t, dev, "sub", size)
	top, err := stack.Push("sub", sub, target.NewMode(target.Own, target.ChannelColor).With(target.Inherit, target.ChannelObjectID))
	require.NoError(t, err)

	assert.NotSame(t, primary.Color().Texture, top.Color().Texture)
	assert.Same(t, sub.Color().Texture, top.Color().Texture)
	assert.Same(t, primary.ObjectID().Texture, top.ObjectID().Texture)
	assert.False(t, top.Has(target.ChannelDepth))
	assert.False(t, top.Has(target.ChannelNormalDepth))
}

func TestMultisampledPopYieldsSampleableBuffer(t *testing.T) {
	dev, back := newDevice(device.MSAA4x)
	size := target.Size{Width: 8, Height: 8}
	primary := ownedSet(t, dev, "primary", size)
	resolves := 0
	stack := target.NewStack(dev, primary, target.WithResolveHook(func(src, dst device.Texture) { resolves++ }))

	sub := ownedSet(t, dev, "msaa", size, target.WithAuxiliaryChannels())
	require.True(t, sub.Color().Multisampled())
	_, err := stack.Push("msaa", sub, target.OwnAll())
	require.NoError(t, err)

	popped, err := stack.Pop()
	require.NoError(t, err)

	color := popped.Color().Sampleable().(*recording_backend.Texture)
	assert.Equal(t, uint32(1), color.SampleCount())
	assert.True(t, color.Sampleable())
	normal := popped.NormalDepth().Sampleable().(*recording_backend.Texture)
	assert.True(t, normal.Sampleable())
	assert.Len(t, back.Resolves(), 2)
	assert.Equal(t, 2, resolves)
}

func TestInheritedChannelsAreNotResolvedOnPop(t *testing.T) {
	dev, back := newDevice(device.MSAA4x)
	size := target.Size{Width: 8, Height: 8}
	primary := ownedSet(t, dev, "primary", size, target.WithAuxiliaryChannels())
	stack := target.NewStack(dev, primary)

	sub := ownedSet(t, dev, "sub", size)
	_, err := stack.Push("sub", sub, target.NewMode(target.Own, target.ChannelColor).With(target.Inherit, target.ChannelNormalDepth))
	require.NoError(t, err)
	_, err = stack.Pop()
	require.NoError(t, err)

	require.Len(t, back.Resolves(), 1)
	assert.Same(t, sub.Color().Resolve, back.Resolves()[0].Dst)

	final, err := stack.Finish()
	require.NoError(t, err)
	assert.True(t, final.Equal(primary))
	assert.Len(t, back.Resolves(), 3)
}

func TestPushConfigurationErrors(t *testing.T) {
	dev, _ := newDevice(device.MSAAOff)
	primary := ownedSet(t, dev, "primary", target.Size{Width: 16, Height: 16})
	stack := target.NewStack(dev, primary)
	small := ownedSet(t, dev, "small", target.Size{Width: 8, Height: 8})

	tests := []struct {
		name string
		set  target.Set
		mode target.Mode
	}{
		{"own missing channel", small, target.NewMode(target.Own, target.ChannelObjectID)},
		{"inherit missing channel", small, target.NewMode(target.Inherit, target.ChannelNormalDepth)},
		{"mixed sizes", small, target.NewMode(target.Own, target.ChannelColor).With(target.Inherit, target.ChannelDepth)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := stack.Push(tt.name, tt.set, tt.mode)
			assert.ErrorIs(t, err, common.ErrConfiguration)
			assert.Equal(t, 1, stack.Depth())
		})
	}
}

func TestMultisampledWithoutResolveIsRejected(t *testing.T) {
	dev, back := newDevice(device.MSAA4x)
	primary := ownedSet(t, dev, "primary", target.Size{Width: 4, Height: 4})
	stack := target.NewStack(dev, primary)

	tex, err := back.CreateTexture(device.TextureDescriptor{
		Label: "bare", Width: 4, Height: 4, SampleCount: 4,
		Format: device.TextureFormatBGRA8Unorm, Usage: device.TextureUsageRenderAttachment,
	})
	require.NoError(t, err)

	_, err = stack.Push("bare", target.NewSet(target.WithColor(tex, nil)), target.NewMode(target.Own, target.ChannelColor))
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestVerifyNamesUnpoppedEntries(t *testing.T) {
	dev, _ := newDevice(device.MSAAOff)
	size := target.Size{Width: 4, Height: 4}
	primary := ownedSet(t, dev, "primary", size)
	stack := target.NewStack(dev, primary)

	_, err := stack.Pop()
	assert.ErrorIs(t, err, target.ErrUnbalanced)

	_, err = stack.Push("shadow", ownedSet(t, dev, "a", size), target.OwnAll().With(target.Absent, target.ChannelObjectID, target.ChannelNormalDepth))
	require.NoError(t, err)
	_, err = stack.Push("reflection", ownedSet(t, dev, "b", size), target.NewMode(target.Own, target.ChannelColor))
	require.NoError(t, err)

	err = stack.Verify()
	require.ErrorIs(t, err, target.ErrUnbalanced)
	assert.Contains(t, err.Error(), "shadow, reflection")
	_, err = stack.Finish()
	assert.ErrorIs(t, err, target.ErrUnbalanced)

	stack.Reset(primary)
	assert.Equal(t, 1, stack.Depth())
	assert.NoError(t, stack.Verify())
}

func TestOwnerReallocatesOnConfigurationChange(t *testing.T) {
	dev, back := newDevice(device.MSAAOff)
	allocs := 0
	o := target.NewOwner(resource.NamedKey("view"), target.WithSize(target.Size{Width: 32, Height: 32}),
		target.WithAllocHook(func(device.Device, target.Size) { allocs++ }))

	first, err := o.Acquire(dev)
	require.NoError(t, err)
	again, err := o.Acquire(dev)
	require.NoError(t, err)
	assert.True(t, first.Equal(again))
	assert.Equal(t, 1, allocs)

	o.Request(target.Size{Width: 64, Height: 48})
	resized, err := o.Acquire(dev)
	require.NoError(t, err)
	w, h := resized.Size()
	assert.Equal(t, [2]uint32{64, 48}, [2]uint32{w, h})
	assert.True(t, first.Color().Texture.(*recording_backend.Texture).Released())
	assert.True(t, first.Depth().Texture.(*recording_backend.Texture).Released())

	o.Request(target.Size{Width: 64, Height: 48, SampleCount: 4})
	msaa, err := o.Acquire(dev)
	require.NoError(t, err)
	assert.True(t, msaa.Color().Multisampled())
	assert.NotNil(t, msaa.Color().Resolve)
	assert.Nil(t, msaa.Depth().Resolve)
	assert.Equal(t, 3, allocs)
	assert.Len(t, back.LiveTextures(), 3)

	o.Unload(dev)
	o.Unload(dev)
	assert.Empty(t, back.LiveTextures())
	assert.False(t, o.IsLoaded(dev))
}

func TestOwnerRejectsZeroSize(t *testing.T) {
	dev, _ := newDevice(device.MSAAOff)
	o := target.NewOwner(resource.NamedKey("empty"))

	_, err := o.Acquire(dev)
	assert.ErrorIs(t, err, common.ErrConfiguration)
	assert.False(t, o.IsLoaded(dev))
	assert.Equal(t, []target.Channel{target.ChannelColor, target.ChannelDepth}, o.Channels())
}
