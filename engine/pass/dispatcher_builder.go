package pass

// DispatcherBuilderOption is a functional option applied to a dispatcher during construction via NewDispatcher.
type DispatcherBuilderOption func(*dispatcher)

// WithViewID sets the identifier of the view the dispatcher belongs to.
//
// Parameters:
//   - id: the view ID
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithViewID(id uint64) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.viewID = id
	}
}

// WithLayers sets the view's layer mask. Defaults to LayerAll.
//
// Parameters:
//   - layers: the mask
//
// Returns:
//   - DispatcherBuilderOption: option function to apply
func WithLayers(layers LayerMask) DispatcherBuilderOption {
	return func(d *dispatcher) {
		d.layers = layers
	}
}
