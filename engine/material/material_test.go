package material_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/device/recording_backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func newRegistry(back *recording_backend.Backend) (device.Device, resource.Registry) {
	dev := device.NewDevice(0, back)
	return dev, resource.NewRegistry(dev,
		resource.WithDefault(resource.KindTexture, texture.DefaultFactory),
		resource.WithDefault(resource.KindMaterial, material.DefaultFactory))
}

func TestLoadSharesTexturesByContent(t *testing.T) {
	back := recording_backend.New()
	dev, reg := newRegistry(back)
	data := pngBytes(t)

	a, err := resource.AcquireAs[material.Material](reg, resource.NamedKey("a"), resource.KindMaterial,
		material.Factory(material.WithDiffuseTexture(&common.ImportedTexture{Name: "albedo", Data: data})))
	require.NoError(t, err)
	b, err := resource.AcquireAs[material.Material](reg, resource.NamedKey("b"), resource.KindMaterial,
		material.Factory(material.WithDiffuseTexture(&common.ImportedTexture{Name: "albedo copy", Data: data})))
	require.NoError(t, err)

	ta, err := a.Texture(dev, material.SlotDiffuse)
	require.NoError(t, err)
	tb, err := b.Texture(dev, material.SlotDiffuse)
	require.NoError(t, err)
	assert.Same(t, ta, tb)
	assert.Len(t, back.Textures(), 1)
}

func TestMissingDiffuseUsesDefaultTexture(t *testing.T) {
	back := recording_backend.New()
	dev, reg := newRegistry(back)

	res, err := reg.Default(resource.KindMaterial)
	require.NoError(t, err)
	m := resource.As[material.Material](res)

	diffuse, err := m.Texture(dev, material.SlotDiffuse)
	require.NoError(t, err)
	require.NotNil(t, diffuse)
	assert.Equal(t, resource.DefaultKey(resource.KindTexture), diffuse.Key())

	normal, err := m.Texture(dev, material.SlotNormal)
	require.NoError(t, err)
	assert.Nil(t, normal)
}

func TestCompositeIsLoadedTracksTextures(t *testing.T) {
	back := recording_backend.New()
	dev, reg := newRegistry(back)
	imported := &common.ImportedTexture{Name: "albedo", Data: pngBytes(t)}

	m, err := resource.AcquireAs[material.Material](reg, resource.NamedKey("m"), resource.KindMaterial,
		material.Factory(material.WithDiffuseTexture(imported)))
	require.NoError(t, err)
	require.True(t, m.IsLoaded(dev))

	reg.Unload(texture.KeyFor(imported))
	assert.False(t, m.IsLoaded(dev))
}

func TestUniformCarriesParams(t *testing.T) {
	back := recording_backend.New()
	dev, reg := newRegistry(back)

	m, err := resource.AcquireAs[material.Material](reg, resource.NamedKey("glass"), resource.KindMaterial,
		material.Factory(material.WithBaseColor([4]float32{0.2, 0.4, 0.6, 1}), material.WithOpacity(0.5),
			material.WithMetallic(0.25), material.WithWireframe(true)))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), m.Opacity())

	uniform, err := m.Uniform(dev)
	require.NoError(t, err)
	raw := uniform.(*recording_backend.Buffer).Data()
	require.Len(t, raw, 32)
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(raw[12:16])))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(raw[16:20])))
	assert.Equal(t, material.FlagWireframe, binary.LittleEndian.Uint32(raw[24:28]))

	params := m.Params()
	assert.Equal(t, 32, params.Size())

	m.Unload(dev)
	assert.True(t, uniform.(*recording_backend.Buffer).Released())
	_, err = m.Uniform(dev)
	assert.ErrorIs(t, err, resource.ErrNotLoaded)
}

func TestBrokenTextureFailsLoad(t *testing.T) {
	back := recording_backend.New()
	dev, reg := newRegistry(back)

	_, err := reg.Acquire(resource.NamedKey("broken"), resource.KindMaterial,
		material.Factory(material.WithNormalTexture(&common.ImportedTexture{Name: "n", Data: []byte("junk")})))
	assert.ErrorIs(t, err, common.ErrUnsupportedImage)
	_, ok := reg.Get(resource.NamedKey("broken"))
	assert.False(t, ok)
	assert.Empty(t, back.Buffers())

	m := material.NewMaterial(resource.NamedKey("loose"))
	assert.Error(t, m.Load(dev, nil))
}

func TestFromImported(t *testing.T) {
	m := material.NewMaterial(resource.NamedKey("k"), material.FromImported(common.ImportedMaterial{
		Name:      "Glass",
		BaseColor: [4]float32{1, 1, 1, 0.3},
		Roughness: 0.1,
		Wireframe: true,
	})...)

	assert.Equal(t, "Glass", m.Name())
	assert.Equal(t, float32(0.3), m.Opacity())
	assert.True(t, m.Wireframe())
	assert.Equal(t, float32(0.1), m.Roughness())
}
