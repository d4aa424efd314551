package target

import "github.com/Carmen-Shannon/oxy-rt/engine/device"

// StackBuilderOption is a functional option applied to a stack during construction via NewStack.
type StackBuilderOption func(*stack)

// WithResolveHook registers a callback invoked after every resolve the stack performs.
//
// Parameters:
//   - fn: the callback, receiving the multisampled source and the resolve target
//
// Returns:
//   - StackBuilderOption: option function to apply
func WithResolveHook(fn func(src, dst device.Texture)) StackBuilderOption {
	return func(s *stack) {
		s.onResolve = fn
	}
}
