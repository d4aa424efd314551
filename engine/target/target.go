// Package target provides render target sets, the per-device stack nested passes push and pop
// them on, and the owner that allocates a set's buffers per device.
package target

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
)

// ErrUnbalanced is returned when pushes and pops do not pair up within a frame.
var ErrUnbalanced = errors.New("target: unbalanced render target stack")

// Channel names one output buffer of a Set.
type Channel int

const (
	ChannelColor Channel = iota
	ChannelDepth
	ChannelObjectID
	ChannelNormalDepth
	channelCount
)

// Channels lists every channel in binding order.
var Channels = [channelCount]Channel{ChannelColor, ChannelDepth, ChannelObjectID, ChannelNormalDepth}

func (c Channel) String() string {
	switch c {
	case ChannelColor:
		return "color"
	case ChannelDepth:
		return "depth"
	case ChannelObjectID:
		return "object-id"
	case ChannelNormalDepth:
		return "normal-depth"
	default:
		return "unknown"
	}
}

// resolvable reports whether multisampled content of the channel is resolved on pop.
func (c Channel) resolvable() bool {
	return c == ChannelColor || c == ChannelNormalDepth
}

// Ownership decides where a pushed entry's channel buffer comes from.
type Ownership int

const (
	// Absent leaves the channel unbound.
	Absent Ownership = iota
	// Own uses the pushed set's buffer.
	Own
	// Inherit overtakes the buffer bound by the entry below.
	Inherit
)

func (o Ownership) String() string {
	switch o {
	case Own:
		return "own"
	case Inherit:
		return "inherit"
	default:
		return "absent"
	}
}

// Mode is the per-channel ownership of a push.
type Mode [channelCount]Ownership

// NewMode creates a Mode with every channel Absent, then applies ownership to the given channels.
//
// Parameters:
//   - ownership: the ownership applied to channels
//   - channels: the channels
//
// Returns:
//   - Mode: the mode
func NewMode(ownership Ownership, channels ...Channel) Mode {
	var m Mode
	return m.With(ownership, channels...)
}

// With returns a copy of m with ownership applied to the given channels.
func (m Mode) With(ownership Ownership, channels ...Channel) Mode {
	for _, c := range channels {
		m[c] = ownership
	}
	return m
}

// OwnAll is the mode of a push that renders into fresh buffers for every channel.
func OwnAll() Mode {
	return NewMode(Own, Channels[:]...)
}

// Attachment is one bound channel buffer. When Texture is multisampled, Resolve is the
// single-sample texture its content is resolved into.
type Attachment struct {
	Texture device.Texture
	Resolve device.Texture
}

// IsZero reports whether the attachment is unbound.
func (a Attachment) IsZero() bool {
	return a.Texture == nil
}

// Multisampled reports whether the bound texture has more than one sample per pixel.
func (a Attachment) Multisampled() bool {
	return a.Texture != nil && a.Texture.SampleCount() > 1
}

// Sampleable returns the texture shaders read: the resolve target for multisampled content,
// otherwise the texture itself.
func (a Attachment) Sampleable() device.Texture {
	if a.Resolve != nil {
		return a.Resolve
	}
	return a.Texture
}

// Set is an immutable bundle of up to four attachments. The zero value binds nothing.
type Set struct {
	attachments [channelCount]Attachment
}

// NewSet creates a Set from the given attachments.
//
// Parameters:
//   - options: the attachments to bind
//
// Returns:
//   - Set: the set
func NewSet(options ...SetBuilderOption) Set {
	var s Set
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// Attachment returns the attachment bound to c.
func (s Set) Attachment(c Channel) Attachment {
	if c < 0 || c >= channelCount {
		return Attachment{}
	}
	return s.attachments[c]
}

// Has reports whether c is bound.
func (s Set) Has(c Channel) bool {
	return !s.Attachment(c).IsZero()
}

func (s Set) Color() Attachment       { return s.attachments[ChannelColor] }
func (s Set) Depth() Attachment       { return s.attachments[ChannelDepth] }
func (s Set) ObjectID() Attachment    { return s.attachments[ChannelObjectID] }
func (s Set) NormalDepth() Attachment { return s.attachments[ChannelNormalDepth] }

// With returns a copy of s with c bound to a.
func (s Set) With(c Channel, a Attachment) Set {
	s.attachments[c] = a
	return s
}

// Size returns the dimensions shared by the bound attachments, or zero for an empty set.
func (s Set) Size() (width, height uint32) {
	for _, a := range s.attachments {
		if a.Texture != nil {
			return a.Texture.Width(), a.Texture.Height()
		}
	}
	return 0, 0
}

// Validate checks that the bound attachments agree in size and that multisampled channels
// resolved on pop carry a compatible resolve target.
//
// Returns:
//   - error: common.ErrConfiguration describing the mismatch, or nil
func (s Set) Validate() error {
	var w, h uint32
	for _, c := range Channels {
		a := s.attachments[c]
		if a.IsZero() {
			continue
		}
		if w == 0 {
			w, h = a.Texture.Width(), a.Texture.Height()
		} else if a.Texture.Width() != w || a.Texture.Height() != h {
			return fmt.Errorf("%w: %s is %dx%d, other channels are %dx%d",
				common.ErrConfiguration, c, a.Texture.Width(), a.Texture.Height(), w, h)
		}
		if c.resolvable() && a.Multisampled() && !device.CanResolve(a.Texture, a.Resolve) {
			return fmt.Errorf("%w: multisampled %s %q has no compatible resolve target",
				common.ErrConfiguration, c, a.Texture.Label())
		}
	}
	return nil
}

// Equal reports whether s and o bind the same textures to every channel.
func (s Set) Equal(o Set) bool {
	return s.attachments == o.attachments
}
