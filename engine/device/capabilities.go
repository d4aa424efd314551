package device

// TextureQuality selects the resolution tier textures are uploaded at on a device.
type TextureQuality int

const (
	// TextureQualityHigh uploads textures at their source resolution. This is the default.
	TextureQualityHigh TextureQuality = iota

	// TextureQualityMedium halves each texture dimension before upload.
	TextureQualityMedium

	// TextureQualityLow quarters each texture dimension before upload.
	TextureQualityLow
)

// String returns the configuration name of the quality tier.
func (q TextureQuality) String() string {
	switch q {
	case TextureQualityMedium:
		return "medium"
	case TextureQualityLow:
		return "low"
	default:
		return "high"
	}
}

// ParseTextureQuality converts a configuration name into a TextureQuality. Unknown names map to high.
//
// Parameters:
//   - s: "high", "medium" or "low"
//
// Returns:
//   - TextureQuality: the parsed quality tier
func ParseTextureQuality(s string) TextureQuality {
	switch s {
	case "medium":
		return TextureQualityMedium
	case "low":
		return TextureQualityLow
	default:
		return TextureQualityHigh
	}
}

// Divisor returns the factor each texture dimension is divided by at this quality.
func (q TextureQuality) Divisor() uint32 {
	switch q {
	case TextureQualityMedium:
		return 2
	case TextureQualityLow:
		return 4
	default:
		return 1
	}
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// Valid reports whether the sample count is one of the supported values.
func (c MSAASampleCount) Valid() bool {
	switch c {
	case MSAAOff, MSAA4x, MSAA8x, MSAA16x:
		return true
	}
	return false
}

// Capabilities is the read-only configuration snapshot of a GraphicsDevice.
type Capabilities struct {
	// Label is a human readable adapter name used in logs.
	Label string

	// TextureQuality is the resolution tier textures are uploaded at.
	TextureQuality TextureQuality

	// SampleCount is the default multisample count for render targets on this device.
	SampleCount MSAASampleCount

	// MaxTextureSize is the largest texture dimension the device accepts. Zero means unbounded.
	MaxTextureSize uint32
}

// DefaultCapabilities returns the capabilities used when no options are supplied.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Label:          "device",
		TextureQuality: TextureQualityHigh,
		SampleCount:    MSAA4x,
		MaxTextureSize: 8192,
	}
}
