package view

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/pass"
	"github.com/Carmen-Shannon/oxy-rt/engine/target"
)

// ViewBuilderOption is a functional option applied to a view during construction via NewView.
type ViewBuilderOption func(*view)

// WithLabel sets the view name. Defaults to "view <id>".
//
// Parameters:
//   - label: the label
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithLabel(label string) ViewBuilderOption {
	return func(v *view) {
		v.label = label
	}
}

// WithLayers sets the layers the view renders. Defaults to pass.LayerAll.
//
// Parameters:
//   - layers: the mask
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithLayers(layers pass.LayerMask) ViewBuilderOption {
	return func(v *view) {
		v.layers = layers
	}
}

// WithTargetOptions passes options to the primary target owner, for example its channels.
//
// Parameters:
//   - options: the owner options
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithTargetOptions(options ...target.OwnerBuilderOption) ViewBuilderOption {
	return func(v *view) {
		v.ownerOpts = append(v.ownerOpts, options...)
	}
}

// WithStackOptions passes options to the per-device render target stacks.
//
// Parameters:
//   - options: the stack options
//
// Returns:
//   - ViewBuilderOption: option function to apply
func WithStackOptions(options ...target.StackBuilderOption) ViewBuilderOption {
	return func(v *view) {
		v.stackOpts = append(v.stackOpts, options...)
	}
}
