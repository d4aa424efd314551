package model_test

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/device/recording_backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(dev device.Device) resource.Registry {
	return resource.NewRegistry(dev,
		resource.WithDefault(resource.KindTexture, texture.DefaultFactory),
		resource.WithDefault(resource.KindGeometry, geometry.DefaultFactory),
		resource.WithDefault(resource.KindMaterial, material.DefaultFactory),
		resource.WithDefault(resource.KindMesh, model.DefaultFactory))
}

func triangle(z float32) []model.GPUVertex {
	return []model.GPUVertex{
		{Position: [3]float32{0, 0, z}},
		{Position: [3]float32{1, 0, z}},
		{Position: [3]float32{0, 1, z}},
	}
}

func importedPair() model.ImportedModel {
	return model.ImportedModel{
		Name: "pair",
		Meshes: []model.ImportedMesh{
			{Name: "front", Vertices: triangle(0), Indices: []uint32{0, 1, 2}, MaterialIndex: 0},
			{Name: "back", Vertices: triangle(-2), Indices: []uint32{0, 2, 1}, MaterialIndex: 1},
		},
		Materials: []common.ImportedMaterial{
			{Name: "solid", BaseColor: [4]float32{1, 0, 0, 1}},
			{Name: "glass", BaseColor: [4]float32{1, 1, 1, 0.4}},
		},
	}
}

func TestFromImportedMergesMeshes(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	reg := newRegistry(dev)

	m, err := resource.AcquireAs[model.Model](reg, resource.NamedKey("pair"), resource.KindMesh, model.FromImported(importedPair()))
	require.NoError(t, err)
	require.True(t, m.IsLoaded(dev))

	assert.Equal(t, []model.Submesh{
		{IndexOffset: 0, IndexCount: 3, MaterialIndex: 0},
		{IndexOffset: 3, IndexCount: 3, MaterialIndex: 1},
	}, m.Submeshes())
	assert.InDelta(t, 2.236, m.BoundingRadius(), 0.001)

	geo, err := m.Geometry(dev)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2, 3, 5, 4}, geo.Data().Indices)
	assert.Equal(t, uint32(6), geo.Data().VertexCount())

	mats, err := m.Materials(dev)
	require.NoError(t, err)
	require.Len(t, mats, 2)
	assert.Equal(t, "glass", mats[1].Name())

	opacity, err := m.Opacity(dev)
	require.NoError(t, err)
	assert.Equal(t, float32(0.4), opacity)

	// mesh, geometry, two materials and the default texture their diffuse slots fall back to
	assert.Equal(t, 5, reg.Len())
}

func TestCompositeIsLoadedTracksSubResources(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	reg := newRegistry(dev)

	m, err := resource.AcquireAs[model.Model](reg, resource.NamedKey("pair"), resource.KindMesh, model.FromImported(importedPair()))
	require.NoError(t, err)
	require.True(t, m.IsLoaded(dev))

	reg.Unload(resource.NamedKey("material:pair#1"))
	assert.False(t, m.IsLoaded(dev))

	_, err = reg.Acquire(resource.NamedKey("pair"), resource.KindMesh, nil)
	require.NoError(t, err)
	assert.True(t, m.IsLoaded(dev))
	_, ok := reg.Get(resource.NamedKey("material:pair#1"))
	assert.True(t, ok)

	m.Unload(dev)
	m.Unload(dev)
	_, err = m.Materials(dev)
	assert.ErrorIs(t, err, resource.ErrNotLoaded)
}

func TestDefaultMesh(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	reg := newRegistry(dev)

	res, err := reg.Default(resource.KindMesh)
	require.NoError(t, err)
	m := resource.As[model.Model](res)
	require.True(t, m.IsLoaded(dev))

	geo, err := m.Geometry(dev)
	require.NoError(t, err)
	assert.Equal(t, resource.DefaultKey(resource.KindGeometry), geo.Key())

	mats, err := m.Materials(dev)
	require.NoError(t, err)
	require.Len(t, mats, 1)
	assert.Equal(t, resource.DefaultKey(resource.KindMaterial), mats[0].Key())

	wireframe, err := m.Wireframe(dev)
	require.NoError(t, err)
	assert.False(t, wireframe)
}

func TestSubmeshOutOfRangeFailsLoad(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	reg := newRegistry(dev)

	_, err := reg.Acquire(resource.NamedKey("bad"), resource.KindMesh,
		model.Factory(model.WithSubmesh(model.Submesh{IndexOffset: 3, IndexCount: 6})))
	assert.ErrorIs(t, err, common.ErrConfiguration)
	_, ok := reg.Get(resource.NamedKey("bad"))
	assert.False(t, ok)

	_, err = reg.Acquire(resource.NamedKey("bad material"), resource.KindMesh,
		model.Factory(model.WithSubmesh(model.Submesh{IndexCount: 6, MaterialIndex: 2})))
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestImportWithoutMeshesIsFactoryError(t *testing.T) {
	dev := device.NewDevice(0, recording_backend.New())
	reg := newRegistry(dev)

	_, err := reg.Acquire(resource.NamedKey("empty"), resource.KindMesh, model.FromImported(model.ImportedModel{Name: "empty"}))
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestPerDeviceIndependence(t *testing.T) {
	devA := device.NewDevice(0, recording_backend.New())
	devB := device.NewDevice(1, recording_backend.New())
	regA, regB := newRegistry(devA), newRegistry(devB)

	m := model.NewModel(resource.NamedKey("shared"))
	require.NoError(t, m.Load(devA, regA))
	require.NoError(t, m.Load(devB, regB))

	geoA, err := m.Geometry(devA)
	require.NoError(t, err)
	geoB, err := m.Geometry(devB)
	require.NoError(t, err)
	assert.NotSame(t, geoA, geoB)

	m.Unload(devA)
	assert.False(t, m.IsLoaded(devA))
	assert.True(t, m.IsLoaded(devB))

	m.Invalidate(devB)
	_, err = m.Geometry(devB)
	assert.ErrorIs(t, err, resource.ErrNotLoaded)
}

func TestVerticesToData(t *testing.T) {
	v := model.GPUVertex{Position: [3]float32{1, 2, 3}}
	data := model.VerticesToData([]model.GPUVertex{v, v}, []uint32{0, 1, 0})

	assert.Equal(t, uint32(64), data.Stride)
	assert.Len(t, data.Vertices, 128)
	assert.Equal(t, v.Marshal(), data.Vertices[64:])
	assert.Equal(t, 64, v.Size())
	assert.NoError(t, data.Validate())
}
