// Package geometry provides the vertex/index buffer resource fed by external geometry builders.
package geometry

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
)

// Data is the output of a geometry builder: interleaved vertex bytes with a fixed stride and an
// optional triangle-list index buffer.
type Data struct {
	// Vertices holds the interleaved vertex attributes.
	Vertices []byte

	// Stride is the size of one vertex in bytes.
	Stride uint32

	// Indices lists triangle corners as vertex indices. Empty for non-indexed drawing.
	Indices []uint32
}

// VertexCount returns the number of whole vertices in the data.
func (d Data) VertexCount() uint32 {
	if d.Stride == 0 {
		return 0
	}
	return uint32(len(d.Vertices)) / d.Stride
}

// Validate checks the counts are consistent.
//
// Returns:
//   - error: common.ErrConfiguration wrapped with the reason, or nil
func (d Data) Validate() error {
	switch {
	case d.Stride == 0:
		return fmt.Errorf("%w: zero vertex stride", common.ErrConfiguration)
	case len(d.Vertices) == 0:
		return fmt.Errorf("%w: no vertices", common.ErrConfiguration)
	case uint32(len(d.Vertices))%d.Stride != 0:
		return fmt.Errorf("%w: %d vertex bytes is not a multiple of stride %d", common.ErrConfiguration, len(d.Vertices), d.Stride)
	case len(d.Indices)%3 != 0:
		return fmt.Errorf("%w: %d indices do not form whole triangles", common.ErrConfiguration, len(d.Indices))
	}
	n := d.VertexCount()
	for i, idx := range d.Indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at position %d exceeds vertex count %d", common.ErrConfiguration, idx, i, n)
		}
	}
	return nil
}

// gpuGeometry is the per-device payload.
type gpuGeometry struct {
	vertex device.Buffer
	index  device.Buffer
}

// geometry is the implementation of the Geometry interface.
type geometry struct {
	key       resource.Key
	label     string
	data      Data
	instances *resource.Instances[gpuGeometry]
}

// Geometry is a mesh's vertex and index buffers.
type Geometry interface {
	resource.Resource
	resource.Invalidator

	// Data returns the source data.
	//
	// Returns:
	//   - Data: the vertex and index data
	Data() Data

	// IndexCount returns the number of indices, or zero for non-indexed geometry.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// Buffers returns the device's vertex and index buffers. The index buffer is nil for non-indexed geometry.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - device.Buffer: the vertex buffer
	//   - device.Buffer: the index buffer, or nil
	//   - error: resource.ErrNotLoaded before Load
	Buffers(dev device.Device) (device.Buffer, device.Buffer, error)
}

var _ Geometry = &geometry{}

// NewGeometry creates a geometry resource. The data is validated when it is loaded.
//
// Parameters:
//   - key: the registry key
//   - data: the builder output (shared, never modified)
//   - options: functional options
//
// Returns:
//   - Geometry: the geometry
func NewGeometry(key resource.Key, data Data, options ...GeometryBuilderOption) Geometry {
	g := &geometry{
		key:       key,
		label:     key.String(),
		data:      data,
		instances: resource.NewInstances[gpuGeometry](),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *geometry) Kind() resource.Kind { return resource.KindGeometry }
func (g *geometry) Key() resource.Key   { return g.key }
func (g *geometry) Data() Data          { return g.data }
func (g *geometry) IndexCount() int     { return len(g.data.Indices) }

func (g *geometry) Load(dev device.Device, _ resource.Registry) error {
	return g.instances.Load(dev, func() (gpuGeometry, error) {
		if err := g.data.Validate(); err != nil {
			return gpuGeometry{}, fmt.Errorf("geometry %s: %w", g.key, err)
		}

		backend := dev.Backend()
		vertex, err := backend.CreateBuffer(g.label+" Vertex Buffer", device.BufferUsageVertex|device.BufferUsageCopyDst, g.data.Vertices)
		if err != nil {
			return gpuGeometry{}, err
		}

		var index device.Buffer
		if len(g.data.Indices) > 0 {
			index, err = backend.CreateBuffer(g.label+" Index Buffer", device.BufferUsageIndex|device.BufferUsageCopyDst, common.SliceToBytes(g.data.Indices))
			if err != nil {
				vertex.Release()
				return gpuGeometry{}, err
			}
		}
		return gpuGeometry{vertex: vertex, index: index}, nil
	})
}

func (g *geometry) Unload(dev device.Device) {
	p, ok := g.instances.Unload(dev)
	if !ok {
		return
	}
	p.vertex.Release()
	if p.index != nil {
		p.index.Release()
	}
}

func (g *geometry) IsLoaded(dev device.Device) bool {
	return g.instances.IsLoaded(dev)
}

func (g *geometry) Invalidate(dev device.Device) {
	g.instances.Invalidate(dev)
}

func (g *geometry) Buffers(dev device.Device) (device.Buffer, device.Buffer, error) {
	p, err := g.instances.Get(dev)
	if err != nil {
		return nil, nil, fmt.Errorf("geometry %s: %w", g.key, err)
	}
	return p.vertex, p.index, nil
}
