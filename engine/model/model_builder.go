package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
)

// ModelBuilderOption is a functional option for configuring a Model during construction.
type ModelBuilderOption func(*model)

// WithName sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a Model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithGeometry sets the geometry the model draws. Without it the registry's default geometry is used.
//
// Parameters:
//   - key: the geometry's registry key
//   - factory: builds the geometry when the registry lacks the key
//
// Returns:
//   - ModelBuilderOption: a function that applies the geometry option to a Model
func WithGeometry(key resource.Key, factory resource.Factory) ModelBuilderOption {
	return func(m *model) {
		m.geometryKey = key
		m.geometryFactory = factory
	}
}

// WithMaterial appends a material to the model's material list. A zero key refers to the
// registry's default material.
//
// Parameters:
//   - key: the material's registry key
//   - factory: builds the material when the registry lacks the key
//
// Returns:
//   - ModelBuilderOption: a function that applies the material option to a Model
func WithMaterial(key resource.Key, factory resource.Factory) ModelBuilderOption {
	return func(m *model) {
		m.materialRefs = append(m.materialRefs, MaterialRef{Key: key, Factory: factory})
	}
}

// WithSubmesh appends an index range drawn with one of the model's materials.
//
// Parameters:
//   - submesh: the index range and material index
//
// Returns:
//   - ModelBuilderOption: a function that applies the submesh option to a Model
func WithSubmesh(submesh Submesh) ModelBuilderOption {
	return func(m *model) {
		m.submeshes = append(m.submeshes, submesh)
	}
}

// WithBoundingRadius sets the precomputed bounding sphere radius for the Model.
//
// Parameters:
//   - radius: the bounding sphere radius
//
// Returns:
//   - ModelBuilderOption: a function that applies the bounding radius option to a Model
func WithBoundingRadius(radius float32) ModelBuilderOption {
	return func(m *model) {
		m.boundingRadius = radius
	}
}

// Factory returns a registry factory building a model with the given options.
//
// Parameters:
//   - options: the model options
//
// Returns:
//   - resource.Factory: the factory
func Factory(options ...ModelBuilderOption) resource.Factory {
	return func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
		return NewModel(key, options...), nil
	}
}

// FromImported returns a registry factory building a model from an importer's output. All meshes
// are merged into one geometry with a submesh each; every imported material becomes a material
// entry keyed under the model's key. A model without drawable meshes fails in the factory.
//
// Parameters:
//   - imported: the importer's model
//
// Returns:
//   - resource.Factory: the factory
func FromImported(imported ImportedModel) resource.Factory {
	return func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
		var (
			vertices  []GPUVertex
			indices   []uint32
			submeshes []Submesh
		)
		for _, mesh := range imported.Meshes {
			if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
				continue
			}
			base := uint32(len(vertices))
			submeshes = append(submeshes, Submesh{
				IndexOffset:   uint32(len(indices)),
				IndexCount:    uint32(len(mesh.Indices)),
				MaterialIndex: mesh.MaterialIndex,
			})
			vertices = append(vertices, mesh.Vertices...)
			for _, idx := range mesh.Indices {
				indices = append(indices, base+idx)
			}
		}
		if len(submeshes) == 0 {
			return nil, fmt.Errorf("%w: model %q has no drawable meshes", common.ErrConfiguration, imported.Name)
		}

		name := common.Coalesce(imported.Name, key.String())
		data := VerticesToData(vertices, indices)
		options := []ModelBuilderOption{
			WithName(name),
			WithGeometry(resource.NamedKey("geometry:"+key.String()), geometry.FromData(data, geometry.WithLabel(name))),
			WithBoundingRadius(ComputeBoundingRadius(vertices)),
		}
		for i, mat := range imported.Materials {
			matKey := resource.NamedKey(fmt.Sprintf("material:%s#%d", key, i))
			options = append(options, WithMaterial(matKey, material.Factory(material.FromImported(mat)...)))
		}
		for _, sm := range submeshes {
			if len(imported.Materials) == 0 {
				sm.MaterialIndex = 0
			}
			options = append(options, WithSubmesh(sm))
		}
		return NewModel(key, options...), nil
	}
}

// DefaultFactory builds the canonical fallback mesh: the registry's default geometry drawn whole
// with its default material.
func DefaultFactory(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
	return NewModel(key, WithName("default")), nil
}
