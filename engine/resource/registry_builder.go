package resource

// RegistryBuilderOption is a functional option applied to a registry during construction via NewRegistry.
type RegistryBuilderOption func(*registry)

// WithKeyGenerator injects the generator handed to factories. Registries of different devices
// usually share one generator so numeric keys stay unique process-wide.
//
// Parameters:
//   - gen: the key generator
//
// Returns:
//   - RegistryBuilderOption: option function to apply
func WithKeyGenerator(gen KeyGenerator) RegistryBuilderOption {
	return func(r *registry) {
		if gen != nil {
			r.keys = gen
		}
	}
}

// WithDefault registers the factory for the canonical fallback resource of kind, such as a
// 1x1 white texture. The fallback is created lazily on the first Default call.
//
// Parameters:
//   - kind: the resource kind
//   - factory: builds the fallback resource
//
// Returns:
//   - RegistryBuilderOption: option function to apply
func WithDefault(kind Kind, factory Factory) RegistryBuilderOption {
	return func(r *registry) {
		r.defaults[kind] = factory
	}
}

// WithDefaults registers several fallback factories at once.
//
// Parameters:
//   - factories: fallback factories keyed by kind
//
// Returns:
//   - RegistryBuilderOption: option function to apply
func WithDefaults(factories map[Kind]Factory) RegistryBuilderOption {
	return func(r *registry) {
		for kind, f := range factories {
			r.defaults[kind] = f
		}
	}
}

// WithLoadHook installs a callback invoked after every load attempted through Acquire.
// The engine uses it to feed the frame profiler.
//
// Parameters:
//   - hook: receives the key, kind and load error (nil on success)
//
// Returns:
//   - RegistryBuilderOption: option function to apply
func WithLoadHook(hook func(key Key, kind Kind, err error)) RegistryBuilderOption {
	return func(r *registry) {
		r.loadHook = hook
	}
}
