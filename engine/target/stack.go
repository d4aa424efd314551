package target

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
)

// entry is one level of the stack: the set that was bound and how its channels were chosen.
type entry struct {
	label string
	set   Set
	mode  Mode
}

// stack is the implementation of the Stack interface.
type stack struct {
	device    device.Device
	entries   []entry
	onResolve func(src, dst device.Texture)
}

// Stack is the per-device render state of a frame. The bottom entry is the view's primary set;
// nested rendering pushes a set, renders into it and pops it again.
// A Stack is used from its device's render goroutine only.
type Stack interface {
	// Push binds a new set on top. For every channel, mode selects the pushed set's buffer (Own),
	// the buffer of the entry below (Inherit) or nothing (Absent).
	//
	// Parameters:
	//   - label: identifies the entry in imbalance reports
	//   - set: the set providing owned channels
	//   - mode: the per-channel ownership
	//
	// Returns:
	//   - Set: the new top
	//   - error: common.ErrConfiguration when an owned or inherited channel is missing, sizes
	//     differ, or a multisampled channel cannot be resolved
	Push(label string, set Set, mode Mode) (Set, error)

	// Pop removes the top entry, resolving the multisampled color and normal-depth buffers it owns
	// into their single-sample counterparts.
	//
	// Returns:
	//   - Set: the popped set, whose resolved channels are readable by shaders
	//   - error: ErrUnbalanced when only the primary entry is left, or the resolve error
	Pop() (Set, error)

	// Current returns the set bound at the top.
	//
	// Returns:
	//   - Set: the active targets
	Current() Set

	// Depth returns the number of entries, including the primary.
	//
	// Returns:
	//   - int: the depth
	Depth() int

	// Verify checks that only the primary entry is left.
	//
	// Returns:
	//   - error: ErrUnbalanced naming the labels of unpopped entries, or nil
	Verify() error

	// Finish verifies the stack and resolves the primary set's multisampled channels.
	//
	// Returns:
	//   - Set: the primary set, ready to present
	//   - error: ErrUnbalanced or the resolve error
	Finish() (Set, error)

	// Reset discards every entry and starts a new frame on primary.
	//
	// Parameters:
	//   - primary: the view's primary set
	Reset(primary Set)
}

var _ Stack = &stack{}

// NewStack creates a Stack for dev with primary as its bottom entry.
//
// Parameters:
//   - dev: the device resolves run on
//   - primary: the view's primary set
//   - options: functional options
//
// Returns:
//   - Stack: the stack
func NewStack(dev device.Device, primary Set, options ...StackBuilderOption) Stack {
	if dev == nil {
		panic("target: NewStack requires a device")
	}
	s := &stack{device: dev}
	for _, opt := range options {
		opt(s)
	}
	s.Reset(primary)
	return s
}

func (s *stack) top() entry {
	return s.entries[len(s.entries)-1]
}

func (s *stack) Push(label string, set Set, mode Mode) (Set, error) {
	parent := s.top().set
	var next Set
	for _, c := range Channels {
		switch mode[c] {
		case Own:
			if !set.Has(c) {
				return Set{}, fmt.Errorf("%w: push %q owns %s but the set has none", common.ErrConfiguration, label, c)
			}
			next.attachments[c] = set.attachments[c]
		case Inherit:
			if !parent.Has(c) {
				return Set{}, fmt.Errorf("%w: push %q inherits %s but %q binds none", common.ErrConfiguration, label, c, s.top().label)
			}
			next.attachments[c] = parent.attachments[c]
		}
	}
	if err := next.Validate(); err != nil {
		return Set{}, fmt.Errorf("push %q: %w", label, err)
	}

	s.entries = append(s.entries, entry{label: label, set: next, mode: mode})
	return next, nil
}

func (s *stack) Pop() (Set, error) {
	if len(s.entries) <= 1 {
		return Set{}, fmt.Errorf("%w: pop of the primary entry", ErrUnbalanced)
	}
	e := s.top()
	s.entries = s.entries[:len(s.entries)-1]
	if err := s.resolve(e); err != nil {
		return e.set, err
	}
	return e.set, nil
}

// resolve downsamples the multisampled resolvable channels e owns.
func (s *stack) resolve(e entry) error {
	for _, c := range Channels {
		a := e.set.attachments[c]
		if e.mode[c] != Own || !c.resolvable() || !a.Multisampled() {
			continue
		}
		if err := s.device.Backend().Resolve(a.Texture, a.Resolve); err != nil {
			return fmt.Errorf("resolve %s of %q: %w", c, e.label, err)
		}
		if s.onResolve != nil {
			s.onResolve(a.Texture, a.Resolve)
		}
		common.Logger().Debug("render target resolved",
			"device", s.device.Ordinal(), "entry", e.label, "channel", c.String(),
			"src", a.Texture.Label(), "dst", a.Resolve.Label())
	}
	return nil
}

func (s *stack) Current() Set {
	return s.top().set
}

func (s *stack) Depth() int {
	return len(s.entries)
}

func (s *stack) Verify() error {
	if len(s.entries) == 1 {
		return nil
	}
	labels := make([]string, 0, len(s.entries)-1)
	for _, e := range s.entries[1:] {
		labels = append(labels, e.label)
	}
	return fmt.Errorf("%w: unpopped %s", ErrUnbalanced, strings.Join(labels, ", "))
}

func (s *stack) Finish() (Set, error) {
	if err := s.Verify(); err != nil {
		return Set{}, err
	}
	primary := s.entries[0]
	if err := s.resolve(primary); err != nil {
		return primary.set, err
	}
	return primary.set, nil
}

func (s *stack) Reset(primary Set) {
	s.entries = append(s.entries[:0], entry{label: "primary", set: primary, mode: OwnAll()})
}
