// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned by ImportedTexture.Decode when the source bytes are not a known image format.
var ErrUnsupportedImage = errors.New("unsupported image format")

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
// Staging data is source data: it may be shared by every device, each of which uploads its own copy.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// Valid reports whether the pixel buffer matches the declared dimensions.
func (s TextureStagingData) Valid() bool {
	return s.Width > 0 && s.Height > 0 && uint64(len(s.Pixels)) == uint64(s.Width)*uint64(s.Height)*4
}

// ImportedMaterial represents material properties handed over by a model importer.
type ImportedMaterial struct {
	// Name is the material identifier.
	Name string

	// BaseColor is the albedo/diffuse color (RGBA). The alpha component is the material opacity.
	BaseColor [4]float32

	// Metallic factor (0.0 = dielectric, 1.0 = metal).
	Metallic float32

	// Roughness factor (0.0 = smooth, 1.0 = rough).
	Roughness float32

	// Wireframe requests line rendering for surfaces using this material.
	Wireframe bool

	// DiffuseTexture holds diffuse/albedo texture data (if present).
	DiffuseTexture *ImportedTexture

	// NormalTexture holds normal map data (if present).
	NormalTexture *ImportedTexture

	// MetallicRoughnessTexture holds metallic/roughness data (if present).
	MetallicRoughnessTexture *ImportedTexture
}

// ImportedTexture represents texture data handed over by an importer.
// For embedded textures the Data field contains raw image bytes.
// For external textures the Path field contains the file path.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "diffuse", "normal").
	Name string

	// Path is the file path for external textures (empty for embedded).
	Path string

	// Data contains raw image bytes for embedded textures.
	Data []byte

	// MimeType indicates the image format (e.g., "image/png"). Filled in by Decode when empty.
	MimeType string

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int
}

// Source returns the raw encoded bytes of the texture, reading Path when no embedded Data is present.
//
// Returns:
//   - []byte: the encoded image bytes
//   - error: error if the texture has no source or the file cannot be read
func (t *ImportedTexture) Source() ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("texture is nil")
	}
	if len(t.Data) > 0 {
		return t.Data, nil
	}
	if t.Path == "" {
		return nil, fmt.Errorf("texture %q has neither data nor path", t.Name)
	}
	file, err := os.Open(t.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture file %s: %w", t.Path, err)
	}
	defer file.Close()
	return io.ReadAll(file)
}

// Decode decodes the texture to RGBA staging data.
// Uses either embedded Data bytes or loads from Path on disk.
// Supports PNG, JPEG, BMP, TIFF and WebP; the format is sniffed from the leading bytes.
//
// Returns:
//   - TextureStagingData: the decoded RGBA pixels with dimensions
//   - error: error if reading or decoding fails
func (t *ImportedTexture) Decode() (TextureStagingData, error) {
	raw, err := t.Source()
	if err != nil {
		return TextureStagingData{}, err
	}

	kind, err := filetype.Match(raw)
	if err != nil || !filetype.IsImage(raw) {
		return TextureStagingData{}, fmt.Errorf("texture %q: %w", t.Name, ErrUnsupportedImage)
	}
	if t.MimeType == "" {
		t.MimeType = kind.MIME.Value
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode texture %q (%s): %w", t.Name, kind.MIME.Value, err)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	t.Width = bounds.Dx()
	t.Height = bounds.Dy()

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(t.Width),
		Height: uint32(t.Height),
	}, nil
}
