package target

import "github.com/Carmen-Shannon/oxy-rt/engine/device"

// SetBuilderOption binds an attachment while building a Set with NewSet.
type SetBuilderOption func(*Set)

// WithAttachment binds an attachment to a channel.
//
// Parameters:
//   - c: the channel
//   - a: the attachment
//
// Returns:
//   - SetBuilderOption: option function to apply
func WithAttachment(c Channel, a Attachment) SetBuilderOption {
	return func(s *Set) {
		s.attachments[c] = a
	}
}

// WithColor binds a color texture and, for multisampled color, its resolve target.
//
// Parameters:
//   - tex: the color texture
//   - resolve: the single-sample resolve target, or nil
//
// Returns:
//   - SetBuilderOption: option function to apply
func WithColor(tex, resolve device.Texture) SetBuilderOption {
	return WithAttachment(ChannelColor, Attachment{Texture: tex, Resolve: resolve})
}

// WithDepth binds a depth-stencil texture.
//
// Parameters:
//   - tex: the depth texture
//
// Returns:
//   - SetBuilderOption: option function to apply
func WithDepth(tex device.Texture) SetBuilderOption {
	return WithAttachment(ChannelDepth, Attachment{Texture: tex})
}

// WithObjectID binds an object identifier texture.
//
// Parameters:
//   - tex: the object-id texture
//
// Returns:
//   - SetBuilderOption: option function to apply
func WithObjectID(tex device.Texture) SetBuilderOption {
	return WithAttachment(ChannelObjectID, Attachment{Texture: tex})
}

// WithNormalDepth binds a normal-depth texture and, when multisampled, its resolve target.
//
// Parameters:
//   - tex: the normal-depth texture
//   - resolve: the single-sample resolve target, or nil
//
// Returns:
//   - SetBuilderOption: option function to apply
func WithNormalDepth(tex, resolve device.Texture) SetBuilderOption {
	return WithAttachment(ChannelNormalDepth, Attachment{Texture: tex, Resolve: resolve})
}
