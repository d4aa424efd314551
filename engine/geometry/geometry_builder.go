package geometry

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
)

// GeometryBuilderOption is a functional option applied to a geometry during construction via NewGeometry.
type GeometryBuilderOption func(*geometry)

// WithLabel sets the debug label prefix of the geometry's buffers. Defaults to the key.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - GeometryBuilderOption: option function to apply
func WithLabel(label string) GeometryBuilderOption {
	return func(g *geometry) {
		g.label = label
	}
}

// FromData returns a factory building a geometry from builder output.
//
// Parameters:
//   - data: the builder output
//   - options: functional options for the geometry
//
// Returns:
//   - resource.Factory: the factory
func FromData(data Data, options ...GeometryBuilderOption) resource.Factory {
	return func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
		return NewGeometry(key, data, options...), nil
	}
}

// Quad returns a unit quad in the XY plane with position (3 floats) and UV (2 floats) per vertex.
// It is used for fallback geometry and full-screen composition.
//
// Returns:
//   - Data: the quad
func Quad() Data {
	vertices := []float32{
		-1, -1, 0, 0, 1,
		1, -1, 0, 1, 1,
		1, 1, 0, 1, 0,
		-1, 1, 0, 0, 0,
	}
	return Data{
		Vertices: common.SliceToBytes(vertices),
		Stride:   5 * 4,
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
	}
}

// DefaultFactory builds the canonical fallback geometry, a unit quad.
func DefaultFactory(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
	return NewGeometry(key, Quad(), WithLabel("default quad")), nil
}
