// Package pass defines the render passes of a frame and the per-view, per-device dispatcher that
// invokes the callbacks subscribed to them.
package pass

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/target"
)

// ID names a render pass.
type ID int

const (
	Opaque ID = iota
	Wireframe
	Transparent
	ObjectID
	NormalDepth
)

// Order is the fixed execution order of the passes within a frame.
var Order = []ID{Opaque, Wireframe, Transparent, ObjectID, NormalDepth}

func (id ID) String() string {
	switch id {
	case Opaque:
		return "opaque"
	case Wireframe:
		return "wireframe"
	case Transparent:
		return "transparent"
	case ObjectID:
		return "object-id"
	case NormalDepth:
		return "normal-depth"
	default:
		return "unknown"
	}
}

// LayerMask selects the views a subscription renders in. A view renders a subscription when
// their masks intersect.
type LayerMask uint32

const (
	LayerNone    LayerMask = 0
	LayerDefault LayerMask = 1
	LayerAll     LayerMask = ^LayerMask(0)
)

// Intersects reports whether m and o share a layer.
func (m LayerMask) Intersects(o LayerMask) bool {
	return m&o != 0
}

// Context is handed to every callback of a pass execution.
type Context struct {
	// Pass is the executing pass.
	Pass ID

	// ViewID identifies the view being rendered.
	ViewID uint64

	// Frame is the engine frame counter.
	Frame uint64

	// Device is the device rendering the view.
	Device device.Device

	// Registry is the device's resource registry.
	Registry resource.Registry

	// Stack is the device's render target stack. Callbacks rendering nested content push and pop
	// it; every push must be popped before the callback returns. Entries a callback leaves pushed
	// are popped for it and the callback counts as failed.
	Stack target.Stack

	// Targets is the stack's current set when the callback was invoked. It does not follow the
	// callback's own pushes and pops; read Stack.Current for those.
	Targets target.Set
}

// Callback renders one subscriber's content for a pass.
type Callback func(ctx *Context) error
