// Package hotreload watches the files textures were imported from and re-uploads them on every
// device when they change on disk.
package hotreload

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/texture"
	"github.com/fsnotify/fsnotify"
)

// ErrNoPath is returned by Watch for textures that were not imported from a file.
var ErrNoPath = errors.New("hotreload: texture has no source path")

// Queue runs jobs on every device's render goroutine. engine.Engine implements it.
type Queue interface {
	// Enqueue queues job on every active device.
	//
	// Parameters:
	//   - job: the job
	Enqueue(job engine.Job)
}

// Watcher reloads watched textures when their source file changes. Decoding happens on the
// watcher's goroutine; each device's re-upload runs as a queued job on that device.
type Watcher interface {
	// Watch starts watching the file tex was imported from.
	//
	// Parameters:
	//   - tex: the texture
	//
	// Returns:
	//   - error: ErrNoPath for in-memory textures, or the file system watch error
	Watch(tex texture.Texture) error

	// Unwatch stops reloading tex. Unwatching a texture that is not watched is a no-op.
	//
	// Parameters:
	//   - tex: the texture
	Unwatch(tex texture.Texture)

	// Reload decodes path now and queues a refresh of every texture watching it.
	//
	// Parameters:
	//   - path: the source file
	//
	// Returns:
	//   - error: the decode error, or nil
	Reload(path string) error

	// Close stops the watcher. Safe to call multiple times.
	//
	// Returns:
	//   - error: the file system watcher's close error
	Close() error
}

type watcher struct {
	queue    Queue
	fs       *fsnotify.Watcher
	onReload func(path string, err error)

	mu       sync.Mutex
	textures map[string][]texture.Texture
	dirs     map[string]int

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

var _ Watcher = &watcher{}

// NewWatcher creates a Watcher queueing its refreshes on queue.
//
// Parameters:
//   - queue: the device job queue, usually the engine
//   - options: functional options
//
// Returns:
//   - Watcher: the watcher
//   - error: the file system watcher's creation error
func NewWatcher(queue Queue, options ...WatcherBuilderOption) (Watcher, error) {
	if queue == nil {
		panic("hotreload: NewWatcher requires a queue")
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("hotreload: %w", err)
	}
	w := &watcher{
		queue:    queue,
		fs:       fs,
		textures: make(map[string][]texture.Texture),
		dirs:     make(map[string]int),
		done:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(w)
	}

	w.wg.Add(1)
	go w.watch()
	return w, nil
}

// normalize returns the cleaned absolute form of path used as the watch key.
func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func (w *watcher) Watch(tex texture.Texture) error {
	if tex.Path() == "" {
		return fmt.Errorf("%w: %s", ErrNoPath, tex.Label())
	}
	path := normalize(tex.Path())
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.textures[path] {
		if t == tex {
			return nil
		}
	}
	// Directories are watched so that editors replacing the file are still seen.
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("hotreload: watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.textures[path] = append(w.textures[path], tex)
	common.Logger().Debug("watching texture source", "texture", tex.Label(), "path", path)
	return nil
}

func (w *watcher) Unwatch(tex texture.Texture) {
	if tex.Path() == "" {
		return
	}
	path := normalize(tex.Path())
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	list := w.textures[path]
	for i, t := range list {
		if t != tex {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(w.textures, path)
		} else {
			w.textures[path] = list
		}
		w.dirs[dir]--
		if w.dirs[dir] == 0 {
			delete(w.dirs, dir)
			_ = w.fs.Remove(dir)
		}
		return
	}
}

func (w *watcher) Reload(path string) error {
	path = normalize(path)

	w.mu.Lock()
	targets := append([]texture.Texture(nil), w.textures[path]...)
	w.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	source, err := (&common.ImportedTexture{Name: filepath.Base(path), Path: path}).Decode()
	if err == nil {
		var errs []error
		for _, tex := range targets {
			if setErr := tex.SetSource(source); setErr != nil {
				errs = append(errs, setErr)
				continue
			}
			w.queue.Enqueue(refresh(tex))
		}
		err = errors.Join(errs...)
	}

	if err != nil {
		common.Logger().Warn("texture reload failed", "path", path, "err", err)
	} else {
		common.Logger().Info("texture reloaded", "path", path, "textures", len(targets))
	}
	if w.onReload != nil {
		w.onReload(path, err)
	}
	return err
}

// refresh returns the job re-uploading tex on a device.
func refresh(tex texture.Texture) engine.Job {
	return func(reg resource.Registry) error {
		return tex.Refresh(reg.Device())
	}
}

func (w *watcher) watch() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				_ = w.Reload(event.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("texture watcher error", "err", err)
		}
	}
}

func (w *watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.fs.Close()
		w.wg.Wait()
	})
	return w.closeErr
}
