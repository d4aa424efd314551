package device

import (
	"errors"
	"fmt"
)

// ErrInvalidDescriptor is returned by backends for descriptors they cannot honour (zero size,
// unsupported sample count, dimension over the device limit).
var ErrInvalidDescriptor = errors.New("device: invalid resource descriptor")

// TextureFormat is the pixel format of a device texture.
type TextureFormat int

const (
	TextureFormatUndefined TextureFormat = iota
	TextureFormatRGBA8Unorm
	TextureFormatRGBA8UnormSrgb
	TextureFormatBGRA8Unorm
	TextureFormatDepth24PlusStencil8
	TextureFormatDepth32Float
	// TextureFormatR32Uint stores per-pixel object identifiers.
	TextureFormatR32Uint
	// TextureFormatRGBA16Float stores packed view-space normals and linear depth.
	TextureFormatRGBA16Float
)

// String returns a short format name for logs.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case TextureFormatBGRA8Unorm:
		return "bgra8unorm"
	case TextureFormatDepth24PlusStencil8:
		return "depth24plus-stencil8"
	case TextureFormatDepth32Float:
		return "depth32float"
	case TextureFormatR32Uint:
		return "r32uint"
	case TextureFormatRGBA16Float:
		return "rgba16float"
	default:
		return "undefined"
	}
}

// TextureUsage specifies how a texture can be used. Flags combine with bitwise OR.
type TextureUsage uint32

const (
	TextureUsageCopySrc TextureUsage = 1 << iota
	TextureUsageCopyDst
	TextureUsageTextureBinding
	TextureUsageRenderAttachment
)

// BufferUsage specifies how a buffer can be used. Flags combine with bitwise OR.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageCopyDst
)

// TextureDescriptor describes a texture to allocate on a device.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the texture dimensions in pixels.
	Width, Height uint32

	// SampleCount is the number of samples per pixel. Use 1 for no multisampling.
	SampleCount uint32

	// Format is the pixel format.
	Format TextureFormat

	// Usage specifies how the texture will be used.
	Usage TextureUsage
}

// Texture is a device-resident texture allocation. Implementations are comparable pointers.
type Texture interface {
	// Label returns the debug label the texture was created with.
	Label() string

	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// SampleCount returns the number of samples per pixel.
	SampleCount() uint32

	// Format returns the pixel format.
	Format() TextureFormat

	// Release frees the device memory. Releasing twice is a no-op.
	Release()
}

// Buffer is a device-resident buffer allocation.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the buffer size in bytes.
	Size() uint64

	// Release frees the device memory. Releasing twice is a no-op.
	Release()
}

// Backend is the native graphics API behind a GraphicsDevice.
// All calls for one device are issued from that device's render goroutine.
type Backend interface {
	// CreateTexture allocates a texture.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the allocated texture
	//   - error: ErrInvalidDescriptor or a native allocation error
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTexture uploads tightly packed RGBA pixels into a single-sample texture.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - pixels: width*height*4 bytes
	//
	// Returns:
	//   - error: an error if the upload cannot be encoded
	WriteTexture(tex Texture, pixels []byte) error

	// CreateBuffer allocates a buffer and uploads its initial contents.
	//
	// Parameters:
	//   - label: debug label
	//   - usage: buffer usage flags
	//   - data: initial contents; its length is the buffer size
	//
	// Returns:
	//   - Buffer: the allocated buffer
	//   - error: an error if allocation fails
	CreateBuffer(label string, usage BufferUsage, data []byte) (Buffer, error)

	// Resolve downsamples a multisampled texture into a single-sample texture of the same size and format.
	// The resolved texture is readable by shaders once Resolve returns.
	//
	// Parameters:
	//   - src: the multisampled source
	//   - dst: the single-sample destination
	//
	// Returns:
	//   - error: ErrInvalidDescriptor if the pair is incompatible
	Resolve(src, dst Texture) error

	// Destroy releases the native device. Further calls are undefined.
	Destroy()
}

// ValidateDescriptor performs the backend-independent checks every backend applies before allocating.
//
// Parameters:
//   - desc: the descriptor to check
//   - maxSize: the device limit, or zero for unbounded
//
// Returns:
//   - error: ErrInvalidDescriptor wrapped with the reason, or nil
func ValidateDescriptor(desc TextureDescriptor, maxSize uint32) error {
	switch {
	case desc.Width == 0 || desc.Height == 0:
		return fmt.Errorf("%w: zero-sized texture %q", ErrInvalidDescriptor, desc.Label)
	case desc.Format == TextureFormatUndefined:
		return fmt.Errorf("%w: undefined format for %q", ErrInvalidDescriptor, desc.Label)
	case !MSAASampleCount(desc.SampleCount).Valid():
		return fmt.Errorf("%w: unsupported sample count %d for %q", ErrInvalidDescriptor, desc.SampleCount, desc.Label)
	case maxSize > 0 && (desc.Width > maxSize || desc.Height > maxSize):
		return fmt.Errorf("%w: %q is %dx%d, device limit %d", ErrInvalidDescriptor, desc.Label, desc.Width, desc.Height, maxSize)
	}
	return nil
}

// CanResolve reports whether src can be resolved into dst.
func CanResolve(src, dst Texture) bool {
	return src != nil && dst != nil &&
		src.SampleCount() > 1 && dst.SampleCount() == 1 &&
		src.Width() == dst.Width() && src.Height() == dst.Height() &&
		src.Format() == dst.Format()
}

// Presenter is implemented by backends that own a presentable surface, such as a window swapchain.
type Presenter interface {
	// Present copies a resolved single-sample color texture to the surface and presents it.
	//
	// Parameters:
	//   - color: the texture to present
	//
	// Returns:
	//   - error: an error if the surface could not be acquired or the formats differ
	Present(color Texture) error
}
