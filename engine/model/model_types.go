package model

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
)

// Submesh is a range of the model's index buffer drawn with one material.
type Submesh struct {
	// IndexOffset is the first index of the range.
	IndexOffset uint32

	// IndexCount is the number of indices in the range.
	IndexCount uint32

	// MaterialIndex references the model's material list.
	MaterialIndex int
}

// MaterialRef names a material a model draws with and how to build it when the registry lacks it.
type MaterialRef struct {
	// Key is the material's registry key.
	Key resource.Key

	// Factory builds the material when the key is absent.
	Factory resource.Factory
}

// --- Import Types ---

// ImportedModel represents a 3D model handed over by an importer (glTF, FBX, etc.).
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Meshes contains all mesh data (may have multiple meshes/submeshes).
	Meshes []ImportedMesh

	// Materials are referenced materials (indices into a material library).
	Materials []common.ImportedMaterial
}

// ImportedMesh represents a single mesh within an imported model.
type ImportedMesh struct {
	// Name is the mesh identifier.
	Name string

	// Vertices are the mesh vertices.
	Vertices []GPUVertex

	// Indices are the triangle indices.
	Indices []uint32

	// MaterialIndex references ImportedModel.Materials.
	MaterialIndex int
}
