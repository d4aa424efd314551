// Package model provides the mesh resource: a composite of one geometry and the materials its
// submeshes draw with, loaded together per device through the device's registry.
package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/slot"
)

// geometryRef is the geometry a model acquired on one device.
type geometryRef struct {
	geometry geometry.Geometry
}

// materialSet is the material list a model acquired on one device, indexed like the model's refs.
type materialSet struct {
	materials []material.Material
}

// model is the implementation of the Model interface.
type model struct {
	key             resource.Key
	name            string
	geometryKey     resource.Key
	geometryFactory resource.Factory
	materialRefs    []MaterialRef
	submeshes       []Submesh
	boundingRadius  float32

	instances  *resource.Instances[struct{}]
	geometries *slot.DeviceSlotArray[*geometryRef]
	materials  *slot.DeviceSlotArray[*materialSet]
}

// Model defines the interface for a mesh: geometry plus the materials its submeshes draw with.
// Sub-resources are registry entries of their own, acquired per device when the model loads.
// A model reports loaded on a device only while its geometry and every material are loaded there.
type Model interface {
	resource.Resource
	resource.Invalidator

	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Submeshes retrieves the index ranges of the model and the material each draws with.
	// An empty list draws the whole geometry with the first material.
	//
	// Returns:
	//   - []Submesh: the submeshes
	Submeshes() []Submesh

	// BoundingRadius returns the bounding sphere radius for this model, measured as
	// the maximum vertex distance from the origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// Geometry returns the geometry acquired on dev.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - geometry.Geometry: the geometry
	//   - error: resource.ErrNotLoaded before Load
	Geometry(dev device.Device) (geometry.Geometry, error)

	// Materials returns the materials acquired on dev, indexed by Submesh.MaterialIndex.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - []material.Material: the materials
	//   - error: resource.ErrNotLoaded before Load
	Materials(dev device.Device) ([]material.Material, error)

	// Opacity returns the lowest opacity among the materials acquired on dev.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - float32: the opacity in [0, 1]
	//   - error: resource.ErrNotLoaded before Load
	Opacity(dev device.Device) (float32, error)

	// Wireframe reports whether any material acquired on dev renders as lines.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - bool: true for wireframe rendering
	//   - error: resource.ErrNotLoaded before Load
	Wireframe(dev device.Device) (bool, error)
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
//
// Parameters:
//   - key: the registry key
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(key resource.Key, options ...ModelBuilderOption) Model {
	m := &model{
		key:        key,
		name:       key.String(),
		instances:  resource.NewInstances[struct{}](),
		geometries: slot.NewDeviceSlotArray[*geometryRef](),
		materials:  slot.NewDeviceSlotArray[*materialSet](),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Kind() resource.Kind { return resource.KindMesh }
func (m *model) Key() resource.Key   { return m.key }

func (m *model) Name() string {
	return m.name
}

func (m *model) Submeshes() []Submesh {
	return m.submeshes
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

// place stores v at exactly ordinal, replacing a stale entry left there.
func place[T comparable](a *slot.DeviceSlotArray[T], ordinal int, v T) error {
	a.RemoveAt(ordinal)
	i, err := a.Add(ordinal, v)
	if err != nil {
		return err
	}
	if i != ordinal {
		a.RemoveAt(i)
		return fmt.Errorf("model: slot for ordinal %d is occupied", ordinal)
	}
	return nil
}

func (m *model) acquireGeometry(reg resource.Registry) (geometry.Geometry, error) {
	if m.geometryKey.IsZero() {
		res, err := reg.Default(resource.KindGeometry)
		if err != nil {
			return nil, err
		}
		return resource.As[geometry.Geometry](res), nil
	}
	return resource.AcquireAs[geometry.Geometry](reg, m.geometryKey, resource.KindGeometry, m.geometryFactory)
}

func (m *model) acquireMaterials(reg resource.Registry) ([]material.Material, error) {
	refs := m.materialRefs
	if len(refs) == 0 {
		refs = []MaterialRef{{}}
	}
	mats := make([]material.Material, len(refs))
	for i, ref := range refs {
		if ref.Key.IsZero() {
			res, err := reg.Default(resource.KindMaterial)
			if err != nil {
				return nil, fmt.Errorf("material %d: %w", i, err)
			}
			mats[i] = resource.As[material.Material](res)
			continue
		}
		mat, err := resource.AcquireAs[material.Material](reg, ref.Key, resource.KindMaterial, ref.Factory)
		if err != nil {
			return nil, fmt.Errorf("material %d (%s): %w", i, ref.Key, err)
		}
		mats[i] = mat
	}
	return mats, nil
}

// validate checks the submeshes against the acquired geometry and materials.
func (m *model) validate(geo geometry.Geometry, mats []material.Material) error {
	indexCount := uint32(geo.IndexCount())
	for i, sm := range m.submeshes {
		if sm.IndexOffset+sm.IndexCount > indexCount {
			return fmt.Errorf("%w: submesh %d covers indices [%d, %d) of %d",
				common.ErrConfiguration, i, sm.IndexOffset, sm.IndexOffset+sm.IndexCount, indexCount)
		}
		if sm.MaterialIndex < 0 || sm.MaterialIndex >= len(mats) {
			return fmt.Errorf("%w: submesh %d references material %d of %d",
				common.ErrConfiguration, i, sm.MaterialIndex, len(mats))
		}
	}
	return nil
}

func (m *model) Load(dev device.Device, reg resource.Registry) error {
	if reg == nil {
		return fmt.Errorf("model %s: a registry is required to acquire geometry and materials", m.key)
	}
	if m.instances.IsLoaded(dev) && !m.IsLoaded(dev) {
		// a sub-resource was unloaded underneath the model; acquire again
		m.Unload(dev)
	}
	ordinal := dev.Ordinal()
	err := m.instances.Load(dev, func() (struct{}, error) {
		geo, err := m.acquireGeometry(reg)
		if err != nil {
			return struct{}{}, fmt.Errorf("model %s geometry: %w", m.name, err)
		}
		mats, err := m.acquireMaterials(reg)
		if err != nil {
			return struct{}{}, fmt.Errorf("model %s %w", m.name, err)
		}
		if err := m.validate(geo, mats); err != nil {
			return struct{}{}, fmt.Errorf("model %s: %w", m.name, err)
		}

		if err := place(m.geometries, ordinal, &geometryRef{geometry: geo}); err != nil {
			return struct{}{}, err
		}
		if err := place(m.materials, ordinal, &materialSet{materials: mats}); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil && !m.instances.IsLoaded(dev) && m.instances.State(dev) != resource.StateLoading {
		m.forget(ordinal)
	}
	return err
}

func (m *model) forget(ordinal int) {
	m.geometries.RemoveAt(ordinal)
	m.materials.RemoveAt(ordinal)
}

// Unload drops the device's sub-resource references. Geometry and materials are registry entries
// of their own and are unloaded through the registry.
func (m *model) Unload(dev device.Device) {
	if _, ok := m.instances.Unload(dev); ok {
		m.forget(dev.Ordinal())
	}
}

// IsLoaded reports true only when the model, its geometry and every material are loaded on dev.
func (m *model) IsLoaded(dev device.Device) bool {
	if !m.instances.IsLoaded(dev) {
		return false
	}
	geo, ok := m.geometries.Get(dev.Ordinal())
	if !ok || !geo.geometry.IsLoaded(dev) {
		return false
	}
	set, ok := m.materials.Get(dev.Ordinal())
	if !ok {
		return false
	}
	for _, mat := range set.materials {
		if !mat.IsLoaded(dev) {
			return false
		}
	}
	return true
}

func (m *model) Invalidate(dev device.Device) {
	m.instances.Invalidate(dev)
	m.forget(dev.Ordinal())
}

func (m *model) loaded(dev device.Device) error {
	if _, err := m.instances.Get(dev); err != nil {
		return fmt.Errorf("model %s: %w", m.key, err)
	}
	return nil
}

func (m *model) Geometry(dev device.Device) (geometry.Geometry, error) {
	if err := m.loaded(dev); err != nil {
		return nil, err
	}
	ref, ok := m.geometries.Get(dev.Ordinal())
	if !ok {
		return nil, fmt.Errorf("model %s: %w", m.key, resource.ErrNotLoaded)
	}
	return ref.geometry, nil
}

func (m *model) Materials(dev device.Device) ([]material.Material, error) {
	if err := m.loaded(dev); err != nil {
		return nil, err
	}
	set, ok := m.materials.Get(dev.Ordinal())
	if !ok {
		return nil, fmt.Errorf("model %s: %w", m.key, resource.ErrNotLoaded)
	}
	return set.materials, nil
}

func (m *model) Opacity(dev device.Device) (float32, error) {
	mats, err := m.Materials(dev)
	if err != nil {
		return 0, err
	}
	opacity := float32(1)
	for _, mat := range mats {
		opacity = min(opacity, mat.Opacity())
	}
	return opacity, nil
}

func (m *model) Wireframe(dev device.Device) (bool, error) {
	mats, err := m.Materials(dev)
	if err != nil {
		return false, err
	}
	for _, mat := range mats {
		if mat.Wireframe() {
			return true, nil
		}
	}
	return false, nil
}
