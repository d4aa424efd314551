package device

// DeviceBuilderOption is a functional option applied to a device during construction.
type DeviceBuilderOption func(*graphicsDevice)

// WithCapabilities replaces the device's entire capability snapshot.
//
// Parameters:
//   - caps: the capabilities to use
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithCapabilities(caps Capabilities) DeviceBuilderOption {
	return func(d *graphicsDevice) {
		d.capabilities = caps
	}
}

// WithLabel sets the human readable adapter name.
//
// Parameters:
//   - label: the adapter label
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithLabel(label string) DeviceBuilderOption {
	return func(d *graphicsDevice) {
		d.capabilities.Label = label
	}
}

// WithTextureQuality sets the texture resolution tier for the device.
//
// Parameters:
//   - quality: the TextureQuality to use
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithTextureQuality(quality TextureQuality) DeviceBuilderOption {
	return func(d *graphicsDevice) {
		d.capabilities.TextureQuality = quality
	}
}

// WithMSAA sets the default multisample count for render targets on the device.
// Invalid counts fall back to MSAAOff.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithMSAA(count MSAASampleCount) DeviceBuilderOption {
	return func(d *graphicsDevice) {
		if !count.Valid() {
			count = MSAAOff
		}
		d.capabilities.SampleCount = count
	}
}

// WithMaxTextureSize sets the largest texture dimension the device accepts.
//
// Parameters:
//   - size: the limit in pixels, or zero for unbounded
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithMaxTextureSize(size uint32) DeviceBuilderOption {
	return func(d *graphicsDevice) {
		d.capabilities.MaxTextureSize = size
	}
}
