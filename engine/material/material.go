// Package material provides the surface material resource: a uniform buffer of surface factors
// plus the textures it samples, loaded together per device.
package material

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/texture"
)

// TextureSlot names a texture a material samples.
type TextureSlot int

const (
	SlotDiffuse TextureSlot = iota
	SlotNormal
	SlotMetallicRoughness
	slotCount
)

func (s TextureSlot) String() string {
	switch s {
	case SlotDiffuse:
		return "diffuse"
	case SlotNormal:
		return "normal"
	case SlotMetallicRoughness:
		return "metallic-roughness"
	default:
		return "unknown"
	}
}

// gpuMaterial is the per-device payload: the uniform buffer and the textures acquired for it.
type gpuMaterial struct {
	uniform  device.Buffer
	textures [slotCount]texture.Texture
}

// material is the implementation of the Material interface.
type material struct {
	key                      resource.Key
	name                     string
	baseColor                [4]float32
	metallic                 float32
	roughness                float32
	wireframe                bool
	diffuseTexture           *common.ImportedTexture
	normalTexture            *common.ImportedTexture
	metallicRoughnessTexture *common.ImportedTexture
	pipelineKey              string

	instances *resource.Instances[gpuMaterial]
}

// Material defines the interface for a render material, encapsulating surface
// properties, texture references, and the per-device GPU state needed for draw calls.
//
// Surface properties are set at construction and are read-only through this interface.
// The pipeline key stays mutable so an external renderer can assign it after import.
type Material interface {
	resource.Resource
	resource.Invalidator

	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo/diffuse RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Opacity retrieves the alpha of the base color. Materials below 1 render in the transparent pass.
	//
	// Returns:
	//   - float32: the opacity in [0, 1]
	Opacity() float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Wireframe reports whether surfaces using this material render as lines.
	//
	// Returns:
	//   - bool: true for wireframe rendering
	Wireframe() bool

	// PipelineKey retrieves the key identifying the render pipeline this material uses.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// SetPipelineKey sets the render pipeline key for this material.
	//
	// Parameters:
	//   - key: the pipeline key to associate with this material
	SetPipelineKey(key string)

	// Params returns the uniform contents uploaded on load.
	//
	// Returns:
	//   - GPUMaterialParams: the uniform
	Params() GPUMaterialParams

	// Uniform returns the device's uniform buffer.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - device.Buffer: the uniform buffer
	//   - error: resource.ErrNotLoaded before Load
	Uniform(dev device.Device) (device.Buffer, error)

	// Texture returns the texture bound to slot on dev, or nil when the slot is unused.
	//
	// Parameters:
	//   - dev: the device
	//   - slot: the texture slot
	//
	// Returns:
	//   - texture.Texture: the texture, or nil
	//   - error: resource.ErrNotLoaded before Load
	Texture(dev device.Device, slot TextureSlot) (texture.Texture, error)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - key: the registry key
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(key resource.Key, options ...MaterialBuilderOption) Material {
	m := &material{
		key:       key,
		name:      key.String(),
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
		instances: resource.NewInstances[gpuMaterial](),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Kind() resource.Kind { return resource.KindMaterial }
func (m *material) Key() resource.Key   { return m.key }

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Opacity() float32 {
	return m.baseColor[3]
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Wireframe() bool {
	return m.wireframe
}

func (m *material) PipelineKey() string {
	return m.pipelineKey
}

func (m *material) SetPipelineKey(key string) {
	m.pipelineKey = key
}

func (m *material) Params() GPUMaterialParams {
	p := GPUMaterialParams{
		BaseColor: m.baseColor,
		Metallic:  m.metallic,
		Roughness: m.roughness,
	}
	if m.wireframe {
		p.Flags |= FlagWireframe
	}
	if m.normalTexture != nil {
		p.Flags |= FlagHasNormalMap
	}
	if m.metallicRoughnessTexture != nil {
		p.Flags |= FlagHasMetallicRoughnessMap
	}
	return p
}

// acquireTexture loads an imported texture through the registry, falling back to the registry's
// default texture for the diffuse slot.
func (m *material) acquireTexture(reg resource.Registry, slot TextureSlot, imported *common.ImportedTexture) (texture.Texture, error) {
	if imported == nil {
		if slot != SlotDiffuse {
			return nil, nil
		}
		res, err := reg.Default(resource.KindTexture)
		if errors.Is(err, resource.ErrNoDefault) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return resource.As[texture.Texture](res), nil
	}

	var opts []texture.TextureBuilderOption
	if slot != SlotDiffuse {
		opts = append(opts, texture.WithLinear())
	}
	return resource.AcquireAs[texture.Texture](reg, texture.KeyFor(imported), resource.KindTexture, texture.FromImported(imported, opts...))
}

func (m *material) Load(dev device.Device, reg resource.Registry) error {
	if reg == nil {
		return fmt.Errorf("material %s: a registry is required to acquire textures", m.key)
	}
	if m.instances.IsLoaded(dev) && !m.IsLoaded(dev) {
		// a texture was unloaded underneath the material; acquire again
		m.Unload(dev)
	}
	return m.instances.Load(dev, func() (gpuMaterial, error) {
		var g gpuMaterial
		sources := [slotCount]*common.ImportedTexture{m.diffuseTexture, m.normalTexture, m.metallicRoughnessTexture}
		for slot, imported := range sources {
			tex, err := m.acquireTexture(reg, TextureSlot(slot), imported)
			if err != nil {
				return gpuMaterial{}, fmt.Errorf("material %s %s texture: %w", m.name, TextureSlot(slot), err)
			}
			g.textures[slot] = tex
		}

		params := m.Params()
		uniform, err := dev.Backend().CreateBuffer(m.name+" Material Uniform", device.BufferUsageUniform|device.BufferUsageCopyDst, params.Marshal())
		if err != nil {
			return gpuMaterial{}, err
		}
		g.uniform = uniform
		return g, nil
	})
}

// Unload releases the uniform buffer. Textures are registry entries of their own and are unloaded
// through the registry.
func (m *material) Unload(dev device.Device) {
	if g, ok := m.instances.Unload(dev); ok {
		g.uniform.Release()
	}
}

// IsLoaded reports true only when the material and every texture it references are loaded on dev.
func (m *material) IsLoaded(dev device.Device) bool {
	g, err := m.instances.Get(dev)
	if err != nil {
		return false
	}
	for _, tex := range g.textures {
		if tex != nil && !tex.IsLoaded(dev) {
			return false
		}
	}
	return true
}

func (m *material) Invalidate(dev device.Device) {
	m.instances.Invalidate(dev)
}

func (m *material) Uniform(dev device.Device) (device.Buffer, error) {
	g, err := m.instances.Get(dev)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", m.key, err)
	}
	return g.uniform, nil
}

func (m *material) Texture(dev device.Device, slot TextureSlot) (texture.Texture, error) {
	if slot < 0 || slot >= slotCount {
		return nil, fmt.Errorf("material %s: unknown texture slot %d", m.key, slot)
	}
	g, err := m.instances.Get(dev)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", m.key, err)
	}
	return g.textures[slot], nil
}
