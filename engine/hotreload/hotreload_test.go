package hotreload_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/device/recording_backend"
	"github.com/Carmen-Shannon/oxy-rt/engine/hotreload"
	"github.com/Carmen-Shannon/oxy-rt/engine/resource"
	"github.com/Carmen-Shannon/oxy-rt/engine/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jobQueue struct {
	mu   sync.Mutex
	jobs []engine.Job
}

func (q *jobQueue) Enqueue(job engine.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
}

func (q *jobQueue) run(t *testing.T, reg resource.Registry) int {
	t.Helper()
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()
	for _, job := range jobs {
		require.NoError(t, job(reg))
	}
	return len(jobs)
}

func writePNG(t *testing.T, path string, size int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func loadTexture(t *testing.T, reg resource.Registry, path string) texture.Texture {
	t.Helper()
	imported := &common.ImportedTexture{Name: "albedo", Path: path}
	tex, err := resource.AcquireAs[texture.Texture](reg, texture.KeyFor(imported), resource.KindTexture, texture.FromImported(imported))
	require.NoError(t, err)
	return tex
}

func TestReloadRefreshesEveryDeviceThroughQueue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albedo.png")
	writePNG(t, path, 2, color.NRGBA{R: 255, A: 255})

	back := recording_backend.New()
	dev := device.NewDevice(0, back, device.WithTextureQuality(device.TextureQualityHigh))
	reg := resource.NewRegistry(dev)
	tex := loadTexture(t, reg, path)
	before, err := tex.GPUTexture(dev)
	require.NoError(t, err)

	// Written before watching so only the explicit Reload observes it.
	writePNG(t, path, 4, color.NRGBA{G: 255, A: 255})
	q := &jobQueue{}
	w, err := hotreload.NewWatcher(q)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(tex))
	require.NoError(t, w.Watch(tex))

	require.NoError(t, w.Reload(path))
	assert.True(t, tex.Stale(dev))
	assert.Equal(t, uint32(4), tex.Source().Width)

	assert.Equal(t, 1, q.run(t, reg))
	assert.False(t, tex.Stale(dev))
	after, err := tex.GPUTexture(dev)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, uint32(4), after.Width())
	assert.True(t, before.(*recording_backend.Texture).Released())
}

func TestReloadKeepsSourceOnDecodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albedo.png")
	writePNG(t, path, 2, color.NRGBA{B: 255, A: 255})
	dev := device.NewDevice(0, recording_backend.New())
	tex := loadTexture(t, resource.NewRegistry(dev), path)

	require.NoError(t, os.WriteFile(path, []byte("half written"), 0o644))
	q := &jobQueue{}
	w, err := hotreload.NewWatcher(q)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(tex))

	assert.ErrorIs(t, w.Reload(path), common.ErrUnsupportedImage)
	assert.False(t, tex.Stale(dev))
	assert.Equal(t, uint32(2), tex.Source().Width)
	assert.Empty(t, q.jobs)
}

func TestWatchRejectsInMemoryTextures(t *testing.T) {
	w, err := hotreload.NewWatcher(&jobQueue{})
	require.NoError(t, err)
	defer w.Close()

	tex, err := texture.NewTexture(resource.NamedKey("white"), common.TextureStagingData{
		Pixels: []byte{255, 255, 255, 255}, Width: 1, Height: 1,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, w.Watch(tex), hotreload.ErrNoPath)
	w.Unwatch(tex)
}

func TestFileChangeTriggersReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albedo.png")
	writePNG(t, path, 2, color.NRGBA{R: 255, A: 255})
	dev := device.NewDevice(0, recording_backend.New())
	tex := loadTexture(t, resource.NewRegistry(dev), path)

	reloaded := make(chan struct{}, 16)
	w, err := hotreload.NewWatcher(&jobQueue{}, hotreload.WithReloadHook(func(_ string, err error) {
		if err == nil {
			reloaded <- struct{}{}
		}
	}))
	require.NoError(t, err)
	require.NoError(t, w.Watch(tex))

	writePNG(t, path, 8, color.NRGBA{G: 255, A: 255})
	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file changed")
	}
	assert.True(t, tex.Stale(dev))

	w.Unwatch(tex)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
