package hotreload

// WatcherBuilderOption is a functional option applied to a Watcher during construction via NewWatcher.
type WatcherBuilderOption func(*watcher)

// WithReloadHook installs a callback invoked after every reload attempt.
//
// Parameters:
//   - hook: receives the source path and the reload error (nil on success)
//
// Returns:
//   - WatcherBuilderOption: option function to apply
func WithReloadHook(hook func(path string, err error)) WatcherBuilderOption {
	return func(w *watcher) {
		w.onReload = hook
	}
}
