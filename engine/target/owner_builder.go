package target

import "github.com/Carmen-Shannon/oxy-rt/engine/device"

// OwnerBuilderOption is a functional option applied to an owner during construction via NewOwner.
type OwnerBuilderOption func(*owner)

// WithLabel sets the debug label prefix of the owned textures. Defaults to the key.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - OwnerBuilderOption: option function to apply
func WithLabel(label string) OwnerBuilderOption {
	return func(o *owner) {
		o.label = label
	}
}

// WithChannel allocates c in format. TextureFormatUndefined leaves the channel out.
//
// Parameters:
//   - c: the channel
//   - format: the texture format
//
// Returns:
//   - OwnerBuilderOption: option function to apply
func WithChannel(c Channel, format device.TextureFormat) OwnerBuilderOption {
	return func(o *owner) {
		o.formats[c] = format
	}
}

// WithAuxiliaryChannels allocates the object-id and normal-depth channels in their default formats.
//
// Returns:
//   - OwnerBuilderOption: option function to apply
func WithAuxiliaryChannels() OwnerBuilderOption {
	return func(o *owner) {
		o.formats[ChannelObjectID] = device.TextureFormatR32Uint
		o.formats[ChannelNormalDepth] = device.TextureFormatRGBA16Float
	}
}

// WithSize sets the initial requested configuration.
//
// Parameters:
//   - size: the size and sample count
//
// Returns:
//   - OwnerBuilderOption: option function to apply
func WithSize(size Size) OwnerBuilderOption {
	return func(o *owner) {
		o.size = size
	}
}

// WithAllocHook registers a callback invoked after every allocation.
//
// Parameters:
//   - fn: the callback, receiving the device and the allocated configuration
//
// Returns:
//   - OwnerBuilderOption: option function to apply
func WithAllocHook(fn func(dev device.Device, size Size)) OwnerBuilderOption {
	return func(o *owner) {
		o.onAlloc = fn
	}
}
