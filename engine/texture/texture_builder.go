package texture

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
)

// TextureBuilderOption is a functional option applied to a texture during construction via NewTexture.
type TextureBuilderOption func(*texture)

// WithLabel sets the debug label used for GPU allocations. Defaults to the key.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - TextureBuilderOption: option function to apply
func WithLabel(label string) TextureBuilderOption {
	return func(t *texture) {
		t.label = label
	}
}

// WithLinear stores the texture in a linear format instead of sRGB. Use it for data textures such
// as normal and metallic/roughness maps.
//
// Returns:
//   - TextureBuilderOption: option function to apply
func WithLinear() TextureBuilderOption {
	return func(t *texture) {
		t.format = device.TextureFormatRGBA8Unorm
	}
}

// WithoutQualityScaling uploads the texture at source resolution on every device, ignoring the
// device's texture quality. The max texture size still applies.
//
// Returns:
//   - TextureBuilderOption: option function to apply
func WithoutQualityScaling() TextureBuilderOption {
	return func(t *texture) {
		t.qualityScaling = false
	}
}

// WithPath records the file the texture was imported from so it can be hot reloaded.
//
// Parameters:
//   - path: the source file path
//
// Returns:
//   - TextureBuilderOption: option function to apply
func WithPath(path string) TextureBuilderOption {
	return func(t *texture) {
		t.path = path
	}
}

// FromStaging returns a factory building a texture from already decoded pixels.
//
// Parameters:
//   - source: the source pixels
//   - options: functional options for the texture
//
// Returns:
//   - resource.Factory: the factory
func FromStaging(source common.TextureStagingData, options ...TextureBuilderOption) resource.Factory {
	return func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
		return NewTexture(key, source, options...)
	}
}

// FromImported returns a factory that decodes an imported texture. A decode failure is a factory
// error, so the registry stores nothing for the key.
//
// Parameters:
//   - imported: the importer's texture descriptor
//   - options: functional options for the texture
//
// Returns:
//   - resource.Factory: the factory
func FromImported(imported *common.ImportedTexture, options ...TextureBuilderOption) resource.Factory {
	return func(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
		source, err := imported.Decode()
		if err != nil {
			return nil, err
		}
		opts := []TextureBuilderOption{WithLabel(imported.Name)}
		if imported.Path != "" {
			opts = append(opts, WithPath(imported.Path))
		}
		return NewTexture(key, source, append(opts, options...)...)
	}
}

// KeyFor returns the registry key for an imported texture: its path when it is file-backed, else a
// digest of its embedded bytes, so identical sources share one resource.
//
// Parameters:
//   - imported: the importer's texture descriptor
//
// Returns:
//   - resource.Key: the key
func KeyFor(imported *common.ImportedTexture) resource.Key {
	if imported.Path != "" {
		return resource.NamedKey("texture:" + imported.Path)
	}
	return resource.ContentKey("texture", imported.Data)
}

// DefaultFactory builds the canonical fallback texture: a single opaque white pixel. Register it
// with resource.WithDefault(resource.KindTexture, texture.DefaultFactory).
func DefaultFactory(key resource.Key, _ resource.KeyGenerator) (resource.Resource, error) {
	return NewTexture(key, common.TextureStagingData{
		Pixels: []byte{255, 255, 255, 255},
		Width:  1,
		Height: 1,
	}, WithLabel("default white"), WithoutQualityScaling())
}
