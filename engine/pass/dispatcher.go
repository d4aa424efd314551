package pass

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/target"
)

// Subscription is an active registration of a callback with a pass.
type Subscription struct {
	id     uint64
	pass   ID
	layers LayerMask
	label  string
	fn     Callback
	active atomic.Bool
}

// Pass returns the pass the subscription is registered with.
func (s *Subscription) Pass() ID { return s.pass }

// Layers returns the subscription's layer mask.
func (s *Subscription) Layers() LayerMask { return s.layers }

// Label returns the label given at Subscribe.
func (s *Subscription) Label() string { return s.label }

// Active reports whether the subscription has not been unsubscribed.
func (s *Subscription) Active() bool { return s.active.Load() }

// Stats summarises one Execute call.
type Stats struct {
	Invoked int
	Failed  int
}

// dispatcher is the implementation of the Dispatcher interface.
type dispatcher struct {
	mu     sync.Mutex
	viewID uint64
	layers LayerMask
	nextID uint64
	subs   map[ID][]*Subscription
}

// Dispatcher holds the pass subscriptions of one view on one device and runs them.
type Dispatcher interface {
	// Subscribe registers cb with a pass.
	//
	// Parameters:
	//   - pass: the pass
	//   - layers: the layers the subscription renders in
	//   - label: identifies the subscriber in logs
	//   - cb: the callback
	//
	// Returns:
	//   - *Subscription: the subscription handle
	Subscribe(pass ID, layers LayerMask, label string, cb Callback) *Subscription

	// Unsubscribe removes a subscription. Unsubscribing twice, or a nil subscription, is a no-op.
	//
	// Parameters:
	//   - sub: the subscription
	Unsubscribe(sub *Subscription)

	// Subscribers returns the active subscriptions of a pass in insertion order.
	//
	// Parameters:
	//   - pass: the pass
	//
	// Returns:
	//   - []*Subscription: the subscriptions
	Subscribers(pass ID) []*Subscription

	// ViewID returns the identifier of the view the dispatcher belongs to.
	//
	// Returns:
	//   - uint64: the view ID
	ViewID() uint64

	// Layers returns the view's layer mask.
	//
	// Returns:
	//   - LayerMask: the mask
	Layers() LayerMask

	// SetLayers replaces the view's layer mask.
	//
	// Parameters:
	//   - layers: the mask
	SetLayers(layers LayerMask)

	// Execute runs every pass in Order. Within a pass, subscriptions whose layers intersect the
	// view's run in insertion order; a callback's error or panic is logged and the pass continues.
	// A callback returning with a different stack depth than it started with counts as failed.
	//
	// Parameters:
	//   - ctx: the frame context; ViewID is set once, Pass and Targets per pass
	//
	// Returns:
	//   - Stats: the number of invoked and failed callbacks
	Execute(ctx *Context) Stats

	// Clear drops every subscription.
	Clear()
}

var _ Dispatcher = &dispatcher{}

// NewDispatcher creates an empty Dispatcher.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Dispatcher: the dispatcher
func NewDispatcher(options ...DispatcherBuilderOption) Dispatcher {
	d := &dispatcher{
		layers: LayerAll,
		subs:   make(map[ID][]*Subscription),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *dispatcher) Subscribe(pass ID, layers LayerMask, label string, cb Callback) *Subscription {
	if cb == nil {
		panic("pass: Subscribe requires a callback")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	sub := &Subscription{id: d.nextID, pass: pass, layers: layers, label: label, fn: cb}
	sub.active.Store(true)
	d.subs[pass] = append(d.subs[pass], sub)
	return sub
}

func (d *dispatcher) Unsubscribe(sub *Subscription) {
	if sub == nil || !sub.active.CompareAndSwap(true, false) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	list := d.subs[sub.pass]
	for i, s := range list {
		if s == sub {
			d.subs[sub.pass] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (d *dispatcher) Subscribers(pass ID) []*Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Subscription(nil), d.subs[pass]...)
}

func (d *dispatcher) ViewID() uint64 {
	return d.viewID
}

func (d *dispatcher) Layers() LayerMask {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.layers
}

func (d *dispatcher) SetLayers(layers LayerMask) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layers = layers
}

func (d *dispatcher) Clear() {
	d.mu.Lock()
	subs := d.subs
	d.subs = make(map[ID][]*Subscription)
	d.mu.Unlock()

	for _, list := range subs {
		for _, s := range list {
			s.active.Store(false)
		}
	}
}

func (d *dispatcher) Execute(ctx *Context) Stats {
	var stats Stats
	layers := d.Layers()
	ctx.ViewID = d.viewID
	for _, id := range Order {
		ctx.Pass = id
		for _, sub := range d.Subscribers(id) {
			// unsubscribed by an earlier callback of this pass
			if !sub.Active() || !sub.layers.Intersects(layers) {
				continue
			}
			if ctx.Stack != nil {
				ctx.Targets = ctx.Stack.Current()
			}
			stats.Invoked++
			if err := d.invoke(sub, ctx); err != nil {
				stats.Failed++
				common.Logger().Warn("pass subscriber failed",
					"pass", id.String(), "view", ctx.ViewID, "device", deviceOrdinal(ctx),
					"subscriber", sub.label, "error", err)
			}
		}
	}
	return stats
}

// invoke runs one callback, converting a panic into an error. Entries the callback left pushed on
// the target stack are popped, resolving what they own, so later subscribers bind the targets the
// callback started with.
func (d *dispatcher) invoke(sub *Subscription, ctx *Context) (err error) {
	depth := -1
	if ctx.Stack != nil {
		depth = ctx.Stack.Depth()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
		if depth < 0 || ctx.Stack.Depth() == depth {
			return
		}
		after := ctx.Stack.Depth()
		common.Logger().Error("pass subscriber left the target stack unbalanced",
			"pass", sub.pass.String(), "subscriber", sub.label,
			"before", depth, "after", after, "error", ctx.Stack.Verify())
		for ctx.Stack.Depth() > depth {
			if _, perr := ctx.Stack.Pop(); perr != nil {
				common.Logger().Error("unwinding target stack failed",
					"pass", sub.pass.String(), "subscriber", sub.label, "error", perr)
			}
		}
		if err == nil {
			err = fmt.Errorf("%w: target stack depth %d after callback, expected %d", target.ErrUnbalanced, after, depth)
		}
	}()
	return sub.fn(ctx)
}

func deviceOrdinal(ctx *Context) int {
	if ctx.Device == nil {
		return -1
	}
	return ctx.Device.Ordinal()
}
